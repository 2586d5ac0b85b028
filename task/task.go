// Package task defines the metadata record that marks a handler as a
// registrable queue task, and the Provider contract through which
// container-managed components expose their task definitions for discovery.
//
// A Definition is attached once at declaration time and read once at
// registration time; beyond uniqueness of the task name it carries no
// lifecycle of its own.
package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/mintaka-io/fxasynq/xerrors"
)

// HandlerFunc is the worker-side handler signature registered with the queue.
type HandlerFunc func(ctx context.Context, t *asynq.Task) error

// Definition is the name/options record for a single task.
type Definition struct {
	// Name is the task name used for routing, e.g. "tasks.send_email".
	Name string
	// Handler processes tasks of this name on the worker side.
	Handler HandlerFunc
	// Options are declaration-time defaults applied when the task is enqueued
	// through this library's client. Worker-side retry and backoff stay with
	// the queue.
	Options []asynq.Option
}

// Validate reports whether the definition can be registered.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty task name", xerrors.ErrInvalidDefinition)
	}
	if d.Handler == nil {
		return fmt.Errorf("%w: task %q has a nil handler", xerrors.ErrInvalidDefinition, d.Name)
	}
	return nil
}

// Queue returns the queue declared in the definition options, if any.
func (d Definition) Queue() string {
	for _, opt := range d.Options {
		if opt.Type() == asynq.QueueOpt {
			if q, ok := opt.Value().(string); ok {
				return q
			}
		}
	}
	return ""
}

// Provider is implemented by components whose task definitions should be
// discovered and registered at startup.
type Provider interface {
	// TaskDefinitions returns the tasks this component handles.
	TaskDefinitions() []Definition
}

// NewTask builds a Definition whose handler decodes the task payload from
// JSON into T before invoking fn.
//
// fn must not be nil; a nil fn panics at declaration time with a descriptive
// message, mirroring the compile-time guarantee that fn is callable. A payload
// that cannot be decoded into T fails the task without retry, since retrying
// a malformed payload cannot succeed.
func NewTask[T any](name string, fn func(ctx context.Context, payload T) error, opts ...asynq.Option) Definition {
	if fn == nil {
		panic(fmt.Sprintf("task: nil handler func for task %q", name))
	}
	handler := func(ctx context.Context, t *asynq.Task) error {
		var payload T
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return errors.Join(
					fmt.Errorf("task %q: failed to decode payload: %w", name, err),
					asynq.SkipRetry,
				)
			}
		}
		return fn(ctx, payload)
	}
	return Definition{Name: name, Handler: handler, Options: opts}
}

// NewRawTask builds a Definition around a handler that works on the raw
// asynq task, for payloads that are not JSON.
func NewRawTask(name string, fn HandlerFunc, opts ...asynq.Option) Definition {
	if fn == nil {
		panic(fmt.Sprintf("task: nil handler func for task %q", name))
	}
	return Definition{Name: name, Handler: fn, Options: opts}
}
