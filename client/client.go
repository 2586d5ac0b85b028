// Package client provides the sending half of the integration: a Sender that
// turns a task name and payload into an enqueue call on the queue, and a
// declarative binder that fills func-typed struct fields so client components
// can expose typed methods whose bodies are never written.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mintaka-io/fxasynq/events"
	"github.com/mintaka-io/fxasynq/metrics"
	"github.com/mintaka-io/fxasynq/registry"
)

// Enqueuer is the narrow sending interface bound clients depend on.
type Enqueuer interface {
	// Enqueue sends a task to the broker.
	Enqueue(ctx context.Context, t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// enqueueClient is the part of *asynq.Client the Sender needs. Narrowed for
// testability; *asynq.Client satisfies it.
type enqueueClient interface {
	EnqueueContext(ctx context.Context, t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Sender enqueues tasks by name, applying declaration-time default options
// from the registry when the task is known to this process.
type Sender struct {
	client   enqueueClient
	registry registry.Registry
	bus      events.Bus
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewSender creates a Sender backed by the given asynq client.
// reg and bus may be nil; defaults lookup and event publication are then
// skipped.
func NewSender(c *asynq.Client, reg registry.Registry, bus events.Bus, logger *zap.Logger) *Sender {
	return newSender(c, reg, bus, logger)
}

func newSender(c enqueueClient, reg registry.Registry, bus events.Bus, logger *zap.Logger) *Sender {
	return &Sender{
		client:   c,
		registry: reg,
		bus:      bus,
		logger:   logger.Named("client"),
		tracer:   otel.Tracer("github.com/mintaka-io/fxasynq/client"),
	}
}

// Send marshals payload to JSON and enqueues it under the given task name.
// Options declared on a locally registered definition are applied first, so
// call-site opts override them. A nil payload produces an empty task body.
func (s *Sender) Send(ctx context.Context, name string, payload any, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("task %q: failed to encode payload: %w", name, err)
		}
	}
	return s.Enqueue(ctx, asynq.NewTask(name, data), opts...)
}

// Enqueue sends an already constructed task, applying registry defaults for
// its type name.
func (s *Sender) Enqueue(ctx context.Context, t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	name := t.Type()

	ctx, span := s.tracer.Start(ctx, "task.enqueue",
		trace.WithAttributes(attribute.String("task.name", name)),
	)
	defer span.End()

	all := append([]asynq.Option(nil), s.defaultOptions(name)...)
	all = append(all, opts...)

	info, err := s.client.EnqueueContext(ctx, t, all...)
	if err != nil {
		metrics.TasksEnqueued.WithLabelValues(name, metrics.StatusError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("enqueue failed", zap.String("task", name), zap.Error(err))
		return nil, fmt.Errorf("failed to enqueue task %q: %w", name, err)
	}

	metrics.TasksEnqueued.WithLabelValues(name, metrics.StatusOK).Inc()
	span.SetAttributes(attribute.String("task.id", info.ID), attribute.String("task.queue", info.Queue))
	if s.bus != nil {
		s.bus.Publish(ctx, events.TopicTasks, events.NewTaskEnqueuedEvent(name, info.ID, info.Queue))
	}
	s.logger.Debug("task enqueued",
		zap.String("task", name),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	return info, nil
}

// defaultOptions returns the options declared on the local definition of
// name, if there is one.
func (s *Sender) defaultOptions(name string) []asynq.Option {
	if s.registry == nil {
		return nil
	}
	def, err := s.registry.Lookup(name)
	if err != nil {
		return nil
	}
	return def.Options
}

// Close releases the underlying asynq client connection.
func (s *Sender) Close() error {
	return s.client.Close()
}

var _ Enqueuer = (*Sender)(nil)
