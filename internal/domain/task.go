// Package domain holds the task types shared by the submitter, the
// verifier, and the simulator. A Task is a unit of work that flows through
// the service under test: submit → persist → claim → execute.
package domain

import "time"

// TaskType categorizes the kind of work a worker performs.
type TaskType string

const (
	// TaskFoo sleeps 3 seconds and prints "Foo <task_id>".
	TaskFoo TaskType = "foo"
	// TaskBar fetches an external time page and prints the status code.
	TaskBar TaskType = "bar"
	// TaskBaz prints "Baz <N>" for a random N in [0,344).
	TaskBaz TaskType = "baz"
)

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	return t == TaskFoo || t == TaskBar || t == TaskBaz
}

// TaskStatus tracks the simulator-side task lifecycle.
type TaskStatus string

const (
	TaskSubmitted TaskStatus = "submitted"
	TaskExecuting TaskStatus = "executing"
	TaskDone      TaskStatus = "done"
	TaskFailed    TaskStatus = "failed"
)

// CreateTaskRequest is the wire shape of a task submission.
// execution_time is RFC 3339 with a UTC offset; it may land in the past.
type CreateTaskRequest struct {
	TaskType      TaskType  `json:"task_type"`
	ExecutionTime time.Time `json:"execution_time"`
}

// Task is a persisted task in the simulator.
type Task struct {
	ID            string     `json:"id"`
	Type          TaskType   `json:"task_type"`
	Status        TaskStatus `json:"status"`
	ExecutionTime time.Time  `json:"execution_time"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Due reports whether the task should execute within the given horizon.
func (t *Task) Due(now time.Time, horizon time.Duration) bool {
	return !t.ExecutionTime.After(now.Add(horizon))
}
