// Package sqlite provides the simulator's persistent task store.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/taskprobe/taskprobe/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/tasks.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "tasks.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id             TEXT PRIMARY KEY,
			task_type      TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'submitted',
			execution_time INTEGER NOT NULL,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due
			ON tasks (status, execution_time)`,
	}

	for i, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// CreateTask persists a newly submitted task.
func (d *DB) CreateTask(t *domain.Task) error {
	_, err := d.db.Exec(
		`INSERT INTO tasks (id, task_type, status, execution_time, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, string(t.Type), string(t.Status), t.ExecutionTime.Unix(), t.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask fetches one task by ID.
func (d *DB) GetTask(id string) (*domain.Task, error) {
	row := d.db.QueryRow(
		`SELECT id, task_type, status, execution_time, created_at
		 FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// FindDue returns up to limit submitted tasks whose execution time falls
// before now+horizon, soonest first.
func (d *DB) FindDue(now time.Time, horizon time.Duration, limit int) ([]*domain.Task, error) {
	rows, err := d.db.Query(
		`SELECT id, task_type, status, execution_time, created_at
		 FROM tasks
		 WHERE status = ? AND execution_time <= ?
		 ORDER BY execution_time ASC
		 LIMIT ?`,
		string(domain.TaskSubmitted), now.Add(horizon).Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClaimTask transitions a task from submitted to executing. Exactly one
// caller wins; everyone else gets ErrTaskClaimed. This is what makes
// execution exactly-once even with concurrent pollers.
func (d *DB) ClaimTask(id string) error {
	res, err := d.db.Exec(
		`UPDATE tasks SET status = ? WHERE id = ? AND status = ?`,
		string(domain.TaskExecuting), id, string(domain.TaskSubmitted))
	if err != nil {
		return fmt.Errorf("claim task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTaskClaimed
	}
	return nil
}

// FinishTask records the terminal status of an executed task.
func (d *DB) FinishTask(id string, status domain.TaskStatus) error {
	res, err := d.db.Exec(
		`UPDATE tasks SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// CountByStatus returns the number of tasks per lifecycle status.
func (d *DB) CountByStatus() (map[domain.TaskStatus]int, error) {
	rows, err := d.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := map[domain.TaskStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.TaskStatus(status)] = n
	}
	return counts, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (*domain.Task, error) {
	var t domain.Task
	var taskType, status string
	var execUnix, createdUnix int64

	err := row.Scan(&t.ID, &taskType, &status, &execUnix, &createdUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.Type = domain.TaskType(taskType)
	t.Status = domain.TaskStatus(status)
	t.ExecutionTime = time.Unix(execUnix, 0).UTC()
	t.CreatedAt = time.Unix(createdUnix, 0).UTC()
	return &t, nil
}
