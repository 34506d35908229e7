// Package api provides the HTTP surface of the simulator: the same
// POST /task contract the external task service exposes, so the submitter
// can be pointed at a local stand-in.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskprobe/taskprobe/internal/domain"
	"github.com/taskprobe/taskprobe/internal/infra/metrics"
	"github.com/taskprobe/taskprobe/internal/infra/sqlite"
)

// Server is the simulator's HTTP API server.
type Server struct {
	db             *sqlite.DB
	metricsEnabled bool
}

// NewServer creates a new API server backed by the given task store.
func NewServer(db *sqlite.DB) *Server {
	return &Server{db: db}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Post("/task", s.handleCreateTask)
	r.Get("/task/{id}", s.handleGetTask)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// createTaskBody is the wire shape of POST /task. execution_time stays a
// string until validated, so a bad timestamp gets a specific error instead
// of a generic decode failure.
type createTaskBody struct {
	TaskType      domain.TaskType `json:"task_type"`
	ExecutionTime string          `json:"execution_time"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body createTaskBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		metrics.TasksRejected.WithLabelValues("bad_json").Inc()
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !body.TaskType.Valid() {
		metrics.TasksRejected.WithLabelValues("unknown_type").Inc()
		writeError(w, http.StatusBadRequest, domain.ErrUnknownTaskType.Error())
		return
	}

	execTime, err := time.Parse(time.RFC3339, body.ExecutionTime)
	if err != nil {
		metrics.TasksRejected.WithLabelValues("bad_timestamp").Inc()
		writeError(w, http.StatusBadRequest, domain.ErrBadTimestamp.Error())
		return
	}

	task := &domain.Task{
		ID:            uuid.NewString(),
		Type:          body.TaskType,
		Status:        domain.TaskSubmitted,
		ExecutionTime: execTime.UTC(),
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.db.CreateTask(task); err != nil {
		writeError(w, http.StatusInternalServerError, "store task: "+err.Error())
		return
	}

	metrics.TasksReceived.WithLabelValues(string(task.Type)).Inc()
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.db.GetTask(chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}
