package task

import "time"

// LifecycleType names a change to the task list.
type LifecycleType string

const (
	LifecycleSubmitted LifecycleType = "task.submitted"
	LifecycleCompleted LifecycleType = "task.completed"
	LifecycleFailed    LifecycleType = "task.failed"
	LifecycleCleared   LifecycleType = "task.cleared"
)

// LifecycleEvent is published after the queue has persisted a change.
type LifecycleEvent struct {
	Type     LifecycleType `json:"type"`
	TaskID   string        `json:"task_id,omitempty"`
	Kind     Kind          `json:"kind,omitempty"`
	Status   Status        `json:"status,omitempty"`
	Progress float64       `json:"progress"`
	At       time.Time     `json:"at"`
}

// EventType satisfies the publisher's event contract.
func (e LifecycleEvent) EventType() string { return string(e.Type) }

// NewLifecycleEvent snapshots t for typ.  t may be nil for list-wide events.
func NewLifecycleEvent(typ LifecycleType, t *Task, at time.Time) LifecycleEvent {
	ev := LifecycleEvent{Type: typ, At: at.UTC()}
	if t != nil {
		ev.TaskID = t.ID
		ev.Kind = t.Type
		ev.Status = t.Status
		ev.Progress = t.Progress
	}
	return ev
}
