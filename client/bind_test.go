package client

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintaka-io/fxasynq/xerrors"
)

// mockEnqueuer records every enqueue call.
type mockEnqueuer struct {
	tasks        []*asynq.Task
	opts         [][]asynq.Option
	enqueueError error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.enqueueError != nil {
		return nil, m.enqueueError
	}
	m.tasks = append(m.tasks, t)
	m.opts = append(m.opts, opts)
	return &asynq.TaskInfo{ID: "task-1", Type: t.Type(), Queue: "default"}, nil
}

func optionValue(opts []asynq.Option, typ asynq.OptionType) (interface{}, bool) {
	for _, opt := range opts {
		if opt.Type() == typ {
			return opt.Value(), true
		}
	}
	return nil, false
}

type notifyPayload struct {
	UserID int    `json:"user_id"`
	Msg    string `json:"msg"`
}

type notificationClient struct {
	Notify func(ctx context.Context, p notifyPayload) (*asynq.TaskInfo, error) `task:"tasks.notify" queue:"high" max_retry:"5" timeout:"30s"`
	Ping   func(ctx context.Context) (*asynq.TaskInfo, error)                  `task:"tasks.ping"`
}

func TestBind_ForwardsCallToEnqueue(t *testing.T) {
	e := &mockEnqueuer{}
	var c notificationClient
	require.NoError(t, Bind(&c, e))
	require.NotNil(t, c.Notify)

	info, err := c.Notify(context.Background(), notifyPayload{UserID: 42, Msg: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", info.ID)

	require.Len(t, e.tasks, 1)
	assert.Equal(t, "tasks.notify", e.tasks[0].Type())
	assert.JSONEq(t, `{"user_id":42,"msg":"hi"}`, string(e.tasks[0].Payload()))

	queue, ok := optionValue(e.opts[0], asynq.QueueOpt)
	require.True(t, ok, "queue option must be forwarded")
	assert.Equal(t, "high", queue)

	maxRetry, ok := optionValue(e.opts[0], asynq.MaxRetryOpt)
	require.True(t, ok, "max_retry option must be forwarded")
	assert.Equal(t, 5, maxRetry)

	timeout, ok := optionValue(e.opts[0], asynq.TimeoutOpt)
	require.True(t, ok, "timeout option must be forwarded")
	assert.Equal(t, 30*time.Second, timeout)
}

func TestBind_PayloadlessSender(t *testing.T) {
	e := &mockEnqueuer{}
	var c notificationClient
	require.NoError(t, Bind(&c, e))

	_, err := c.Ping(context.Background())
	require.NoError(t, err)
	require.Len(t, e.tasks, 1)
	assert.Equal(t, "tasks.ping", e.tasks[0].Type())
	assert.Empty(t, e.tasks[0].Payload())
	assert.Empty(t, e.opts[0])
}

func TestBind_EnqueueErrorPropagates(t *testing.T) {
	e := &mockEnqueuer{enqueueError: assert.AnError}
	var c notificationClient
	require.NoError(t, Bind(&c, e))

	info, err := c.Ping(context.Background())
	assert.Nil(t, info)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBind_RejectsNonStructTargets(t *testing.T) {
	e := &mockEnqueuer{}

	tests := []struct {
		name   string
		target any
	}{
		{"nil", nil},
		{"non-pointer", notificationClient{}},
		{"nil pointer", (*notificationClient)(nil)},
		{"pointer to non-struct", new(int)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Bind(tt.target, e)
			assert.ErrorIs(t, err, xerrors.ErrNotStruct)
		})
	}
}

func TestBind_RejectsStructWithNoTaggedFields(t *testing.T) {
	type plain struct {
		Name string
	}
	err := Bind(&plain{}, &mockEnqueuer{})
	require.ErrorIs(t, err, xerrors.ErrNoTasks)
	assert.Contains(t, err.Error(), "plain")
}

func TestBind_RejectsNonFuncTaggedField(t *testing.T) {
	type bad struct {
		Notify string `task:"tasks.notify"`
	}
	err := Bind(&bad{}, &mockEnqueuer{})
	assert.ErrorIs(t, err, xerrors.ErrNotFunc)
}

func TestBind_RejectsBadSignatures(t *testing.T) {
	type noCtx struct {
		Send func(p notifyPayload) (*asynq.TaskInfo, error) `task:"tasks.a"`
	}
	type noResults struct {
		Send func(ctx context.Context, p notifyPayload) error `task:"tasks.a"`
	}
	type variadic struct {
		Send func(ctx context.Context, ps ...notifyPayload) (*asynq.TaskInfo, error) `task:"tasks.a"`
	}

	assert.ErrorIs(t, Bind(&noCtx{}, &mockEnqueuer{}), xerrors.ErrBadSignature)
	assert.ErrorIs(t, Bind(&noResults{}, &mockEnqueuer{}), xerrors.ErrBadSignature)
	assert.ErrorIs(t, Bind(&variadic{}, &mockEnqueuer{}), xerrors.ErrBadSignature)
}

func TestBind_RejectsMalformedOptionTags(t *testing.T) {
	type badRetry struct {
		Send func(ctx context.Context) (*asynq.TaskInfo, error) `task:"tasks.a" max_retry:"lots"`
	}
	type badTimeout struct {
		Send func(ctx context.Context) (*asynq.TaskInfo, error) `task:"tasks.a" timeout:"soon"`
	}
	type emptyName struct {
		Send func(ctx context.Context) (*asynq.TaskInfo, error) `task:""`
	}

	assert.ErrorIs(t, Bind(&badRetry{}, &mockEnqueuer{}), xerrors.ErrBadTag)
	assert.ErrorIs(t, Bind(&badTimeout{}, &mockEnqueuer{}), xerrors.ErrBadTag)
	assert.ErrorIs(t, Bind(&emptyName{}, &mockEnqueuer{}), xerrors.ErrBadTag)
}

func TestBind_RejectsUnexportedTaggedField(t *testing.T) {
	type hidden struct {
		send func(ctx context.Context) (*asynq.TaskInfo, error) `task:"tasks.a"`
	}
	err := Bind(&hidden{}, &mockEnqueuer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexported")
}
