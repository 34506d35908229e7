// Package worker executes due tasks from the simulator's store and emits
// the worker log lines the verifier consumes. The claim-then-execute
// protocol makes execution exactly-once even with concurrent pollers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/taskprobe/taskprobe/internal/domain"
	"github.com/taskprobe/taskprobe/internal/infra/metrics"
	"github.com/taskprobe/taskprobe/internal/infra/sqlite"
)

// Config controls the worker pool.
type Config struct {
	// Workers is the number of concurrent executors.
	Workers int
	// PollInterval is how often the store is searched for due tasks.
	PollInterval time.Duration
	// MaxSleep is the execution-time horizon: a task due within MaxSleep is
	// claimed now, and the executor sleeps out the remainder.
	MaxSleep time.Duration
	// TimeURL is fetched by "bar" tasks.
	TimeURL string
	// Out receives one "workers-<n> | task_id: <id> | <msg>" line per task.
	Out io.Writer
}

// Pool polls the store for due tasks and fans them out to executors.
type Pool struct {
	cfg    Config
	db     *sqlite.DB
	client *http.Client

	outMu sync.Mutex
}

// NewPool creates a worker pool over the given task store.
func NewPool(cfg Config, db *sqlite.DB) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Pool{
		cfg:    cfg,
		db:     db,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run starts the poller and executors and blocks until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	tasks := make(chan *domain.Task, p.cfg.Workers)

	var wg sync.WaitGroup
	for i := 1; i <= p.cfg.Workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(n)))
			for task := range tasks {
				p.execute(ctx, n, task, rng)
			}
		}(i)
	}

	err := p.poll(ctx, tasks)
	close(tasks)
	wg.Wait()
	return err
}

// poll claims due tasks and hands them to the executors. Claiming happens
// here, before the hand-off, so a task found by two polls runs once.
func (p *Pool) poll(ctx context.Context, tasks chan<- *domain.Task) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		due, err := p.db.FindDue(time.Now(), p.cfg.MaxSleep, p.cfg.Workers*2)
		if err != nil {
			return fmt.Errorf("find due tasks: %w", err)
		}
		for _, task := range due {
			if err := p.db.ClaimTask(task.ID); err != nil {
				if errors.Is(err, domain.ErrTaskClaimed) {
					continue
				}
				return err
			}
			select {
			case tasks <- task:
			case <-ctx.Done():
				return nil
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// execute waits out the task's remaining lead time, runs its handler, and
// records the terminal status.
func (p *Pool) execute(ctx context.Context, n int, task *domain.Task, rng *rand.Rand) {
	if d := time.Until(task.ExecutionTime); d > 0 {
		if !sleep(ctx, d) {
			return
		}
	}

	metrics.TasksExecuting.Inc()
	defer metrics.TasksExecuting.Dec()

	status := domain.TaskDone
	outcome := "ok"
	if err := p.runTask(ctx, n, task, rng); err != nil {
		status = domain.TaskFailed
		outcome = "failed"
		p.logf(n, task.ID, "error: %v", err)
	}

	if err := p.db.FinishTask(task.ID, status); err != nil {
		p.logf(n, task.ID, "finish: %v", err)
		return
	}
	metrics.TasksExecuted.WithLabelValues(string(task.Type), outcome).Inc()
	metrics.ExecutionLatency.Observe(time.Since(task.ExecutionTime).Seconds())
}

func (p *Pool) runTask(ctx context.Context, n int, task *domain.Task, rng *rand.Rand) error {
	switch task.Type {
	case domain.TaskFoo:
		if !sleep(ctx, 3*time.Second) {
			return ctx.Err()
		}
		p.logf(n, task.ID, "Foo %s", task.ID)
		return nil

	case domain.TaskBar:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.TimeURL, nil)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		p.logf(n, task.ID, "Bar %d", resp.StatusCode)
		return nil

	case domain.TaskBaz:
		p.logf(n, task.ID, "Baz %d", rng.Intn(344))
		return nil
	}

	return fmt.Errorf("%w: %q", domain.ErrUnknownTaskType, task.Type)
}

// logf emits one worker log line in the format the verifier parses.
func (p *Pool) logf(n int, taskID, format string, args ...any) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Fprintf(p.cfg.Out, "workers-%d | task_id: %s | %s\n", n, taskID, fmt.Sprintf(format, args...))
}

// sleep waits for d, returning false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
