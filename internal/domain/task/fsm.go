package task

import (
	"encoding/json"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Event is an input to the task state machine.  The concrete events are
// Ticked, Succeeded and Failed.
type Event interface {
	isEvent()
}

// Ticked advances the progress estimator of a running task.
type Ticked struct{}

// Succeeded completes a running task with its report.
type Succeeded struct {
	Result json.RawMessage
}

// Failed terminates a running task.  Cause is logged, never persisted.
type Failed struct {
	Cause error
}

func (Ticked) isEvent()    {}
func (Succeeded) isEvent() {}
func (Failed) isEvent()    {}

var (
	// ErrTerminal is returned when an event reaches a completed or failed task.
	ErrTerminal = errors.New(errors.ErrCodeTaskTerminal, "task already finished")

	// ErrEmptyResult rejects a success without a report, which would break
	// the completed-iff-result invariant.
	ErrEmptyResult = errors.New(errors.ErrCodeTaskInvalid, "completion requires a result")
)

// Apply runs ev through the state machine:
//
//	running --Ticked-->    running   (progress eased upward, never to 100)
//	running --Succeeded--> completed (progress 100, result attached)
//	running --Failed-->    failed    (progress kept, no result)
//
// Terminal states reject every event with ErrTerminal and stay unchanged.
// Apply reports whether the task changed.
func (t *Task) Apply(ev Event) (bool, error) {
	if t.Status.IsTerminal() {
		return false, ErrTerminal.WithDetail("id=" + t.ID)
	}

	switch e := ev.(type) {
	case Ticked:
		next := NextProgress(t.Progress)
		if next == t.Progress {
			return false, nil
		}
		t.Progress = next
		return true, nil

	case Succeeded:
		if len(e.Result) == 0 || string(e.Result) == "null" {
			return false, ErrEmptyResult.WithDetail("id=" + t.ID)
		}
		t.Status = StatusCompleted
		t.Progress = 100
		t.Result = append(json.RawMessage(nil), e.Result...)
		return true, nil

	case Failed:
		t.Status = StatusFailed
		t.Result = nil
		return true, nil

	default:
		return false, errors.Newf(errors.ErrCodeTaskInvalid, "unknown task event %T", ev)
	}
}
