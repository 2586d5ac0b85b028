// Package metrics defines the Prometheus metrics tracked by fxasynq.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksRegistered counts task definitions registered at startup.
	TasksRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fxasynq_tasks_registered_total",
		Help: "Total number of task definitions registered with the queue.",
	})

	// TasksEnqueued counts tasks sent through the client, by task name and status.
	TasksEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxasynq_tasks_enqueued_total",
		Help: "Total number of tasks enqueued.",
	}, []string{"task", "status"})

	// TasksHandled counts worker-side executions, by task name and status.
	TasksHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxasynq_tasks_handled_total",
		Help: "Total number of task executions.",
	}, []string{"task", "status"})

	// TaskDuration measures handler execution time in seconds.
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fxasynq_task_duration_seconds",
		Help:    "Duration of task handler execution in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
	StatusPanic = "panic"
)
