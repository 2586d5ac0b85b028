package client

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mintaka-io/fxasynq/xerrors"
)

// TagTask is the struct tag that marks a func-typed field as a task sender.
const TagTask = "task"

// Option tags recognized on sender fields. Values are forwarded to the
// corresponding enqueue options of the queue.
const (
	TagQueue     = "queue"      // queue name
	TagMaxRetry  = "max_retry"  // integer retry budget
	TagTimeout   = "timeout"    // duration, e.g. "30s"
	TagRetention = "retention"  // duration the result is kept
	TagProcessIn = "process_in" // delay before processing
	TagUnique    = "unique"     // uniqueness window
	TagGroup     = "group"      // aggregation group name
)

var (
	ctxType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType  = reflect.TypeOf((*error)(nil)).Elem()
	infoType = reflect.TypeOf((*asynq.TaskInfo)(nil))
)

// Bind fills every `task`-tagged func field of the struct pointed to by
// target with an implementation that enqueues the declared task through e.
// The field is never given a hand-written body; calling it marshals the
// payload argument and redirects straight into the queue's send call.
//
// A tagged field must have one of the signatures
//
//	func(ctx context.Context, payload P) (*asynq.TaskInfo, error)
//	func(ctx context.Context) (*asynq.TaskInfo, error)
//
// Bind returns an error if target is not a non-nil pointer to a struct, if a
// tagged field is not a func or has an unsupported signature, if an option
// tag cannot be parsed, or if the struct carries no tagged fields at all.
func Bind(target any, e Enqueuer) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", xerrors.ErrNotStruct, target)
	}
	elem := rv.Elem()
	st := elem.Type()

	bound := 0
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		name, ok := field.Tag.Lookup(TagTask)
		if !ok {
			continue
		}
		if name == "" {
			return fmt.Errorf("%w: empty task name on field %s.%s", xerrors.ErrBadTag, st.Name(), field.Name)
		}
		if field.Type.Kind() != reflect.Func {
			return fmt.Errorf("%w: %s.%s", xerrors.ErrNotFunc, st.Name(), field.Name)
		}
		if !field.IsExported() {
			return fmt.Errorf("cannot bind unexported field %s.%s", st.Name(), field.Name)
		}
		if err := checkSignature(field.Type); err != nil {
			return fmt.Errorf("%s.%s: %w", st.Name(), field.Name, err)
		}
		opts, err := parseOptionTags(field)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", st.Name(), field.Name, err)
		}

		elem.Field(i).Set(makeSender(field.Type, name, opts, e))
		bound++
	}

	if bound == 0 {
		return fmt.Errorf("%w: no task-tagged sender fields on %s", xerrors.ErrNoTasks, st.Name())
	}
	return nil
}

// checkSignature verifies a sender field's func type.
func checkSignature(ft reflect.Type) error {
	if ft.IsVariadic() {
		return fmt.Errorf("%w: variadic func", xerrors.ErrBadSignature)
	}
	if ft.NumIn() < 1 || ft.NumIn() > 2 || ft.In(0) != ctxType {
		return fmt.Errorf("%w: want func(context.Context[, payload]) (*asynq.TaskInfo, error)", xerrors.ErrBadSignature)
	}
	if ft.NumOut() != 2 || ft.Out(0) != infoType || ft.Out(1) != errType {
		return fmt.Errorf("%w: want func(context.Context[, payload]) (*asynq.TaskInfo, error)", xerrors.ErrBadSignature)
	}
	return nil
}

// makeSender builds the func value assigned to a bound field.
func makeSender(ft reflect.Type, name string, opts []asynq.Option, e Enqueuer) reflect.Value {
	return reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
		ctx := args[0].Interface().(context.Context)

		var data []byte
		if len(args) == 2 {
			var err error
			data, err = json.Marshal(args[1].Interface())
			if err != nil {
				return errorResults(fmt.Errorf("task %q: failed to encode payload: %w", name, err))
			}
		}

		info, err := e.Enqueue(ctx, asynq.NewTask(name, data), opts...)
		if err != nil {
			return errorResults(err)
		}
		return []reflect.Value{reflect.ValueOf(info), reflect.Zero(errType)}
	})
}

func errorResults(err error) []reflect.Value {
	return []reflect.Value{reflect.Zero(infoType), reflect.ValueOf(err)}
}

// parseOptionTags converts the option tags on a sender field into enqueue
// options.
func parseOptionTags(field reflect.StructField) ([]asynq.Option, error) {
	var opts []asynq.Option

	if v, ok := field.Tag.Lookup(TagQueue); ok {
		opts = append(opts, asynq.Queue(v))
	}
	if v, ok := field.Tag.Lookup(TagMaxRetry); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: max_retry=%q: %v", xerrors.ErrBadTag, v, err)
		}
		opts = append(opts, asynq.MaxRetry(n))
	}
	for _, d := range []struct {
		tag string
		opt func(time.Duration) asynq.Option
	}{
		{TagTimeout, asynq.Timeout},
		{TagRetention, asynq.Retention},
		{TagProcessIn, asynq.ProcessIn},
		{TagUnique, asynq.Unique},
	} {
		v, ok := field.Tag.Lookup(d.tag)
		if !ok {
			continue
		}
		dur, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q: %v", xerrors.ErrBadTag, d.tag, v, err)
		}
		opts = append(opts, d.opt(dur))
	}
	if v, ok := field.Tag.Lookup(TagGroup); ok {
		opts = append(opts, asynq.Group(v))
	}

	return opts, nil
}
