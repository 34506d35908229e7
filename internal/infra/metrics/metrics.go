// Package metrics provides Prometheus metrics for the taskprobe simulator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Submissions ────────────────────────────────────────────────────────────

// TasksReceived tracks accepted task submissions by type.
var TasksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskprobe",
	Name:      "tasks_received_total",
	Help:      "Total accepted task submissions.",
}, []string{"type"})

// TasksRejected tracks rejected task submissions by reason.
var TasksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskprobe",
	Name:      "tasks_rejected_total",
	Help:      "Total rejected task submissions.",
}, []string{"reason"})

// ─── Execution ──────────────────────────────────────────────────────────────

// TasksExecuted tracks completed tasks by type and outcome.
var TasksExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskprobe",
	Name:      "tasks_executed_total",
	Help:      "Total executed tasks.",
}, []string{"type", "outcome"})

// TasksExecuting tracks tasks currently held by a worker.
var TasksExecuting = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "taskprobe",
	Name:      "tasks_executing",
	Help:      "Number of tasks currently executing.",
})

// ExecutionLatency tracks time from a task's execution_time to completion.
var ExecutionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "taskprobe",
	Name:      "execution_latency_seconds",
	Help:      "Delay between a task's scheduled time and its completion.",
	Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
})
