package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskprobe/taskprobe/internal/domain"
	"github.com/taskprobe/taskprobe/internal/infra/sqlite"
)

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := httptest.NewServer(NewServer(db).Handler())
	t.Cleanup(srv.Close)
	return srv, db
}

func postTask(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/task", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /task error: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateTask(t *testing.T) {
	srv, db := newTestServer(t)

	execAt := time.Now().UTC().Add(5 * time.Minute).Format(time.RFC3339)
	resp := postTask(t, srv.URL, `{"task_type":"foo","execution_time":"`+execAt+`"}`)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var task domain.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, err := uuid.Parse(task.ID); err != nil {
		t.Errorf("task id %q is not a UUID: %v", task.ID, err)
	}
	if task.Type != domain.TaskFoo || task.Status != domain.TaskSubmitted {
		t.Errorf("task = %+v", task)
	}

	// And it is actually persisted.
	stored, err := db.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask() error: %v", err)
	}
	if stored.Type != domain.TaskFoo {
		t.Errorf("stored type = %s, want foo", stored.Type)
	}
}

func TestCreateTask_FreshIDPerSubmission(t *testing.T) {
	srv, _ := newTestServer(t)
	execAt := time.Now().UTC().Format(time.RFC3339)

	ids := map[string]bool{}
	for i := 0; i < 5; i++ {
		resp := postTask(t, srv.URL, `{"task_type":"baz","execution_time":"`+execAt+`"}`)
		var task domain.Task
		if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
			t.Fatal(err)
		}
		if ids[task.ID] {
			t.Fatalf("id %s assigned twice", task.ID)
		}
		ids[task.ID] = true
	}
}

func TestCreateTask_Rejections(t *testing.T) {
	srv, _ := newTestServer(t)
	execAt := time.Now().UTC().Format(time.RFC3339)

	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"task_type":"qux","execution_time":"` + execAt + `"}`},
		{"empty type", `{"execution_time":"` + execAt + `"}`},
		{"bad timestamp", `{"task_type":"foo","execution_time":"next tuesday"}`},
		{"missing timestamp", `{"task_type":"foo"}`},
		{"not json", `task_type=foo`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postTask(t, srv.URL, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestGetTask(t *testing.T) {
	srv, db := newTestServer(t)

	task := &domain.Task{
		ID:            uuid.NewString(),
		Type:          domain.TaskBaz,
		Status:        domain.TaskSubmitted,
		ExecutionTime: time.Now().UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.CreateTask(task); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/task/" + task.ID)
	if err != nil {
		t.Fatalf("GET /task error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got domain.Task
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ID != task.ID || got.Type != domain.TaskBaz {
		t.Errorf("got = %+v", got)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/task/" + uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewServer(db)
	s.EnableMetrics()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", resp.StatusCode)
	}
}
