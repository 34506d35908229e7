package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/taskprobe/taskprobe/internal/domain"
)

// capture records every request body the test server sees.
type capture struct {
	mu       sync.Mutex
	requests []domain.CreateTaskRequest
	headers  []http.Header
}

func newCaptureServer(t *testing.T, status int, body string) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		c.mu.Lock()
		c.requests = append(c.requests, req)
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func newTestSubmitter(target string, seed int64) (*Submitter, *bytes.Buffer) {
	var out bytes.Buffer
	s := New(target, rand.New(rand.NewSource(seed)), &out)
	return s, &out
}

func TestRun_IssuesExactCount(t *testing.T) {
	srv, c := newCaptureServer(t, http.StatusCreated, `{"id":"x"}`)
	s, out := newTestSubmitter(strings.TrimPrefix(srv.URL, "http://"), 1)

	const count = 50
	if err := s.Run(context.Background(), count); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got := len(c.requests); got != count {
		t.Errorf("server saw %d requests, want %d", got, count)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != count {
		t.Errorf("printed %d lines, want %d", len(lines), count)
	}
	if lines[0] != `status_code=201, res_text="{\"id\":\"x\"}"` {
		t.Errorf("line = %q, want status_code/res_text format", lines[0])
	}
}

func TestRun_NeverSendsBar(t *testing.T) {
	srv, c := newCaptureServer(t, http.StatusOK, "ok")
	s, _ := newTestSubmitter(strings.TrimPrefix(srv.URL, "http://"), 42)

	if err := s.Run(context.Background(), 200); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	seen := map[domain.TaskType]int{}
	for _, req := range c.requests {
		seen[req.TaskType]++
		if req.TaskType != domain.TaskFoo && req.TaskType != domain.TaskBaz {
			t.Fatalf("sent task_type %q, want only foo or baz", req.TaskType)
		}
	}
	// With 200 uniform draws both allowed types should show up.
	if seen[domain.TaskFoo] == 0 || seen[domain.TaskBaz] == 0 {
		t.Errorf("type distribution = %v, want both foo and baz present", seen)
	}
}

func TestRun_ExecutionTimeWithinOffsetRange(t *testing.T) {
	srv, c := newCaptureServer(t, http.StatusOK, "ok")
	s, _ := newTestSubmitter(strings.TrimPrefix(srv.URL, "http://"), 7)

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.Run(context.Background(), 100); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// now − delta with minutes in [-10,10) and seconds in [-30,30) lands in
	// (base−9m29s, base+10m30s].
	lo := base.Add(-(9*time.Minute + 29*time.Second))
	hi := base.Add(10*time.Minute + 30*time.Second)
	for i, req := range c.requests {
		if req.ExecutionTime.Before(lo) || req.ExecutionTime.After(hi) {
			t.Errorf("request %d execution_time %v outside [%v, %v]", i, req.ExecutionTime, lo, hi)
		}
	}
}

func TestSubmitRandomTask_Headers(t *testing.T) {
	srv, c := newCaptureServer(t, http.StatusOK, "ok")
	s, _ := newTestSubmitter(strings.TrimPrefix(srv.URL, "http://"), 1)

	if err := s.SubmitRandomTask(context.Background()); err != nil {
		t.Fatalf("SubmitRandomTask() error: %v", err)
	}

	h := c.headers[0]
	if got := h.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := h.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want application/json", got)
	}
}

func TestRun_Non2xxDoesNotStop(t *testing.T) {
	srv, c := newCaptureServer(t, http.StatusInternalServerError, "boom")
	s, out := newTestSubmitter(strings.TrimPrefix(srv.URL, "http://"), 1)

	if err := s.Run(context.Background(), 20); err != nil {
		t.Fatalf("Run() should not stop on non-2xx, got: %v", err)
	}
	if len(c.requests) != 20 {
		t.Errorf("server saw %d requests, want 20", len(c.requests))
	}
	if !strings.Contains(out.String(), "status_code=500") {
		t.Errorf("output should record the 500s, got %q", out.String())
	}
}

func TestRun_TransportErrorIsFatal(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusOK, "ok")
	target := strings.TrimPrefix(srv.URL, "http://")
	srv.Close() // nothing is listening anymore

	s, _ := newTestSubmitter(target, 1)
	err := s.Run(context.Background(), 10)
	if err == nil {
		t.Fatal("Run() = nil, want transport error")
	}
	if !strings.Contains(err.Error(), "request 1/10") {
		t.Errorf("error = %v, should identify the failing request", err)
	}
}

func TestRandomRequest_Deterministic(t *testing.T) {
	// Same seed, same sequence — the injectable rand source is the point.
	a, _ := newTestSubmitter("localhost:3000", 99)
	b, _ := newTestSubmitter("localhost:3000", 99)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base }
	b.now = func() time.Time { return base }

	for i := 0; i < 20; i++ {
		ra, rb := a.randomRequest(), b.randomRequest()
		if ra != rb {
			t.Fatalf("draw %d diverged: %+v vs %+v", i, ra, rb)
		}
	}
}
