// Package registrar discovers task definitions from container-managed
// components and registers them with the queue's serve mux at startup.
//
// The registrar is the worker-side half of the integration: components
// provide task.Definition records, the container collects them, and
// RegisterAll walks the collection once, wiring each handler into the mux
// with logging, metrics, tracing, and panic recovery around it. Everything
// after that point (delivery, retry, backoff) belongs to the queue.
package registrar

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mintaka-io/fxasynq/config"
	"github.com/mintaka-io/fxasynq/events"
	"github.com/mintaka-io/fxasynq/metrics"
	"github.com/mintaka-io/fxasynq/registry"
	"github.com/mintaka-io/fxasynq/task"
	"github.com/mintaka-io/fxasynq/xerrors"
)

// Registrar registers discovered task definitions with the serve mux.
type Registrar struct {
	mux      *asynq.ServeMux
	registry registry.Registry
	bus      events.Bus
	settings *config.Settings
	logger   *zap.Logger
}

// New creates a Registrar. All arguments are required.
func New(mux *asynq.ServeMux, reg registry.Registry, bus events.Bus, settings *config.Settings, logger *zap.Logger) *Registrar {
	return &Registrar{
		mux:      mux,
		registry: reg,
		bus:      bus,
		settings: settings,
		logger:   logger.Named("registrar"),
	}
}

// RegisterAll walks every provider and registers each of its task
// definitions. A provider with zero definitions is rejected, as is a
// duplicate or otherwise invalid definition. The first error aborts
// registration so a misdeclared component fails the application at startup
// instead of dropping tasks silently.
func (r *Registrar) RegisterAll(providers ...task.Provider) error {
	for _, p := range providers {
		defs := p.TaskDefinitions()
		if len(defs) == 0 {
			return fmt.Errorf("%w on %T", xerrors.ErrNoTasks, p)
		}
		for _, def := range defs {
			if err := r.register(def); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registrar) register(def task.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := r.registry.Register(def); err != nil {
		return err
	}
	r.mux.HandleFunc(def.Name, r.wrap(def))

	metrics.TasksRegistered.Inc()
	r.bus.Publish(context.Background(), events.TopicTasks, events.NewTaskRegisteredEvent(def.Name, def.Queue()))
	r.logger.Info("registered task",
		zap.String("task", def.Name),
		zap.String("queue", def.Queue()),
	)
	return nil
}

// wrap surrounds the handler with panic recovery, structured logging,
// metrics, tracing, and lifecycle events. A panic becomes an ordinary error
// so the queue's retry machinery decides what happens next.
func (r *Registrar) wrap(def task.Definition) asynq.HandlerFunc {
	tracer := otel.Tracer("github.com/mintaka-io/fxasynq/registrar")
	name := def.Name

	return func(ctx context.Context, t *asynq.Task) (err error) {
		ctx, span := tracer.Start(ctx, "task.handle",
			trace.WithAttributes(attribute.String("task.name", name)),
		)
		defer span.End()

		if r.settings.TrackStarted {
			r.bus.Publish(ctx, events.TopicTasks, events.NewTaskStartedEvent(name))
			r.logger.Debug("task started", zap.String("task", name), zap.String("task_id", taskID(ctx)))
		}

		start := time.Now()
		defer func() {
			elapsed := time.Since(start)
			metrics.TaskDuration.WithLabelValues(name).Observe(elapsed.Seconds())

			if rec := recover(); rec != nil {
				err = fmt.Errorf("task %q panicked: %v", name, rec)
				metrics.TasksHandled.WithLabelValues(name, metrics.StatusPanic).Inc()
				span.RecordError(err)
				span.SetStatus(codes.Error, "panic")
				r.bus.Publish(ctx, events.TopicTasks, events.NewTaskFailedEvent(name, err))
				r.logger.Error("task panicked",
					zap.String("task", name),
					zap.String("task_id", taskID(ctx)),
					zap.Any("panic", rec),
				)
				return
			}

			if err != nil {
				metrics.TasksHandled.WithLabelValues(name, metrics.StatusError).Inc()
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				r.bus.Publish(ctx, events.TopicTasks, events.NewTaskFailedEvent(name, err))
				r.logger.Warn("task failed",
					zap.String("task", name),
					zap.String("task_id", taskID(ctx)),
					zap.Duration("elapsed", elapsed),
					zap.Error(err),
				)
				return
			}

			metrics.TasksHandled.WithLabelValues(name, metrics.StatusOK).Inc()
			span.SetStatus(codes.Ok, "")
			r.bus.Publish(ctx, events.TopicTasks, events.NewTaskCompletedEvent(name, elapsed))
			r.logger.Info("task completed",
				zap.String("task", name),
				zap.String("task_id", taskID(ctx)),
				zap.Duration("elapsed", elapsed),
			)
		}()

		return def.Handler(ctx, t)
	}
}

// taskID returns the queue-assigned id for the task being processed, if the
// context carries one. Tests drive handlers straight through the mux, where
// no id exists.
func taskID(ctx context.Context) string {
	if id, ok := asynq.GetTaskID(ctx); ok {
		return id
	}
	return ""
}
