// Package submit generates synthetic load against a task-creation endpoint.
// One randomized POST /task per call, strictly sequential, no retries —
// the first transport error aborts the run.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/taskprobe/taskprobe/internal/domain"
)

// submittedTypes are the task types the generator draws from.
// "bar" is deliberately absent: bar tasks make the workers GET a live
// third-party time site, and a 10k-request run would hammer it. This is an
// operational workaround, not a rule of the task service.
var submittedTypes = [...]domain.TaskType{domain.TaskFoo, domain.TaskBaz}

// Submitter issues randomized task submissions one at a time.
type Submitter struct {
	target string
	client *http.Client
	rng    *rand.Rand
	out    io.Writer

	// now is stubbed in tests.
	now func() time.Time
}

// New creates a Submitter for the given host:port. The rand source is
// threaded in explicitly so tests can supply deterministic sequences;
// per-call results are printed to out.
func New(target string, rng *rand.Rand, out io.Writer) *Submitter {
	return &Submitter{
		target: target,
		// A fresh connection per request, like the original harness:
		// keep-alives off means every POST is a full dial-request-close cycle.
		client: &http.Client{
			Transport: &http.Transport{DisableKeepAlives: true},
		},
		rng: rng,
		out: out,
		now: time.Now,
	}
}

// Run submits count randomized tasks sequentially. It stops at the first
// transport error; non-2xx responses are printed and do not stop the run.
func (s *Submitter) Run(ctx context.Context, count int) error {
	for i := 0; i < count; i++ {
		if err := s.SubmitRandomTask(ctx); err != nil {
			return fmt.Errorf("request %d/%d: %w", i+1, count, err)
		}
	}
	return nil
}

// SubmitRandomTask builds one randomized task request, POSTs it, and prints
// "status_code=<int>, res_text=<str>" for whatever came back.
func (s *Submitter) SubmitRandomTask(ctx context.Context) error {
	body, err := json.Marshal(s.randomRequest())
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+s.target+"/task", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	resText, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	fmt.Fprintf(s.out, "status_code=%d, res_text=%q\n", resp.StatusCode, resText)
	return nil
}

// randomRequest picks a task type uniformly from submittedTypes and an
// execution time offset from now by minutes in [-10,10) and seconds in
// [-30,30), so it may land in the past or the near future.
func (s *Submitter) randomRequest() domain.CreateTaskRequest {
	mins := s.rng.Intn(20) - 10
	secs := s.rng.Intn(60) - 30
	delta := time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second

	return domain.CreateTaskRequest{
		TaskType:      submittedTypes[s.rng.Intn(len(submittedTypes))],
		ExecutionTime: s.now().UTC().Add(-delta),
	}
}
