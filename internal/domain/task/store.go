package task

import (
	"context"
	"encoding/json"
	"math"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Store is the key-value persistence boundary of the queue.  The whole task
// list lives in a single slot; implementations need no knowledge of tasks.
type Store interface {
	// Load returns the bytes under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the bytes under key.
	Save(ctx context.Context, key string, data []byte) error
	// Clear removes key.  Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error
}

// ErrNotFound is returned by Store.Load for an absent key.
var ErrNotFound = errors.New(errors.ErrCodeStoreKeyNotFound, "key not found")

// Encode serialises the list for storage.  A nil list encodes as [].
func Encode(tasks []*Task) ([]byte, error) {
	if tasks == nil {
		tasks = []*Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode task list")
	}
	return data, nil
}

// Decode parses a stored list.  Entries that are null, lack an ID or repeat
// an earlier ID are dropped; anything that is not a JSON array of tasks is
// ErrCodeTaskStateCorrupt.  Surviving entries are repaired so that a result
// is present exactly when the task is completed and progress lies in
// [0,100].
func Decode(data []byte) ([]*Task, error) {
	var raw []*Task
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTaskStateCorrupt, "decode task list")
	}
	out := make([]*Task, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		if t == nil || t.ID == "" {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		t.repair()
		out = append(out, t)
	}
	return out, nil
}

func (t *Task) repair() {
	switch t.Status {
	case "":
		t.Status = StatusRunning
	case StatusRunning, StatusCompleted, StatusFailed:
	default:
		t.Status = StatusFailed
	}
	if t.Status == StatusCompleted && !t.HasResult() {
		t.Status = StatusFailed
	}
	if t.Status != StatusCompleted {
		t.Result = nil
	}

	switch {
	case math.IsNaN(t.Progress) || t.Progress < 0:
		t.Progress = 0
	case t.Status == StatusCompleted:
		t.Progress = 100
	case t.Status == StatusRunning && t.Progress > maxEstimated:
		t.Progress = maxEstimated
	case t.Progress > 100:
		t.Progress = 100
	}
}
