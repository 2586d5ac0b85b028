package events

import (
	"time"

	"github.com/google/uuid"
)

// Task lifecycle event types.
const (
	TaskRegisteredEventType = "task.registered"
	TaskEnqueuedEventType   = "task.enqueued"
	TaskStartedEventType    = "task.started"
	TaskCompletedEventType  = "task.completed"
	TaskFailedEventType     = "task.failed"

	// TopicTasks is the bus topic all task lifecycle events are published on.
	TopicTasks = "fxasynq.tasks"
)

// TaskEvent carries the fields common to all task lifecycle events.
type TaskEvent struct {
	ID         uuid.UUID // unique event id
	TaskName   string    // registered task name, e.g. "tasks.send_email"
	OccurredAt time.Time
}

func newTaskEvent(taskName string) TaskEvent {
	return TaskEvent{ID: uuid.New(), TaskName: taskName, OccurredAt: time.Now().UTC()}
}

// TaskRegisteredEvent is published when a task definition is registered with
// the queue at startup.
type TaskRegisteredEvent struct {
	TaskEvent
	Queue string // target queue if declared, otherwise empty
}

func (e TaskRegisteredEvent) EventType() string { return TaskRegisteredEventType }

// NewTaskRegisteredEvent creates a TaskRegisteredEvent for the given task.
func NewTaskRegisteredEvent(taskName, queue string) TaskRegisteredEvent {
	return TaskRegisteredEvent{TaskEvent: newTaskEvent(taskName), Queue: queue}
}

// TaskEnqueuedEvent is published when a client sends a task to the broker.
type TaskEnqueuedEvent struct {
	TaskEvent
	TaskID string // broker-assigned task id
	Queue  string
}

func (e TaskEnqueuedEvent) EventType() string { return TaskEnqueuedEventType }

// NewTaskEnqueuedEvent creates a TaskEnqueuedEvent for the given enqueue.
func NewTaskEnqueuedEvent(taskName, taskID, queue string) TaskEnqueuedEvent {
	return TaskEnqueuedEvent{TaskEvent: newTaskEvent(taskName), TaskID: taskID, Queue: queue}
}

// TaskStartedEvent is published when a worker begins executing a task.
// Only emitted when task tracking is enabled in the settings.
type TaskStartedEvent struct {
	TaskEvent
}

func (e TaskStartedEvent) EventType() string { return TaskStartedEventType }

// NewTaskStartedEvent creates a TaskStartedEvent for the given task.
func NewTaskStartedEvent(taskName string) TaskStartedEvent {
	return TaskStartedEvent{TaskEvent: newTaskEvent(taskName)}
}

// TaskCompletedEvent is published when a handler returns without error.
type TaskCompletedEvent struct {
	TaskEvent
	Duration time.Duration
}

func (e TaskCompletedEvent) EventType() string { return TaskCompletedEventType }

// NewTaskCompletedEvent creates a TaskCompletedEvent for the given task.
func NewTaskCompletedEvent(taskName string, d time.Duration) TaskCompletedEvent {
	return TaskCompletedEvent{TaskEvent: newTaskEvent(taskName), Duration: d}
}

// TaskFailedEvent is published when a handler returns an error or panics.
// Retry policy is owned entirely by the queue; this is observability only.
type TaskFailedEvent struct {
	TaskEvent
	Err string
}

func (e TaskFailedEvent) EventType() string { return TaskFailedEventType }

// NewTaskFailedEvent creates a TaskFailedEvent for the given task failure.
func NewTaskFailedEvent(taskName string, err error) TaskFailedEvent {
	ev := TaskFailedEvent{TaskEvent: newTaskEvent(taskName)}
	if err != nil {
		ev.Err = err.Error()
	}
	return ev
}
