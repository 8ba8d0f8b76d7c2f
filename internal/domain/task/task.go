// Package task holds the analysis task entity, its finite-state machine, the
// progress estimator and the persistence contract of the task queue.
package task

import (
	"encoding/json"
	"time"
)

// Kind is the analysis requested for a molecule.
type Kind string

const (
	KindSynthesis  Kind = "synthesis"
	KindToxicity   Kind = "toxicity"
	KindProperty   Kind = "property"
	KindSimilarity Kind = "similarity"
	KindConditions Kind = "conditions"
)

// Kinds lists every supported analysis kind.
var Kinds = []Kind{KindSynthesis, KindToxicity, KindProperty, KindSimilarity, KindConditions}

// IsValid reports whether k is one of Kinds.
func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Dispatch returns the kind used to route k to the gateway.  Tasks persisted
// with an unrecognised type are planned as synthesis.
func (k Kind) Dispatch() Kind {
	if k.IsValid() {
		return k
	}
	return KindSynthesis
}

// Status is the FSM state of a task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Settings is the configuration captured with a request.  It is copied onto
// the task at submission and never mutated afterwards.
type Settings struct {
	Model      string `json:"model,omitempty"`
	MaxRoutes  int    `json:"maxRoutes,omitempty" validate:"omitempty,min=1,max=10"`
	MaxTime    int    `json:"maxTime,omitempty" validate:"omitempty,min=0"`
	MaxDepth   int    `json:"maxDepth,omitempty" validate:"omitempty,min=0"`
	RiskLevel  string `json:"riskLevel,omitempty" validate:"omitempty,oneof=low medium high"`
	Database   string `json:"database,omitempty"`
	StrictMode bool   `json:"strictMode,omitempty"`
	SearchType string `json:"searchType,omitempty"`
}

// Task is one submitted analysis request.  Fields other than Status,
// Progress and Result are fixed at creation; those three change only through
// Apply.
type Task struct {
	ID        string          `json:"id"`
	Molecule  string          `json:"molecule"`
	Type      Kind            `json:"type"`
	Status    Status          `json:"status"`
	Settings  *Settings       `json:"settings,omitempty"`
	Progress  float64         `json:"progress"`
	Result    json.RawMessage `json:"result,omitempty"`
	StartTime string          `json:"startTime"`
}

// New returns a running task with zero progress.
func New(id, molecule string, kind Kind, settings *Settings, start time.Time) *Task {
	return &Task{
		ID:        id,
		Molecule:  molecule,
		Type:      kind,
		Status:    StatusRunning,
		Settings:  settings.clone(),
		Progress:  0,
		StartTime: start.UTC().Format(time.RFC3339Nano),
	}
}

// HasResult reports whether a result is attached.
func (t *Task) HasResult() bool {
	return len(t.Result) > 0 && string(t.Result) != "null"
}

// Clone returns a deep copy safe to hand outside the queue.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Settings = t.Settings.clone()
	if t.Result != nil {
		c.Result = append(json.RawMessage(nil), t.Result...)
	}
	return &c
}

// Routes returns the synthesis route count hint, or def when unset.
func (t *Task) Routes(def int) int {
	if t.Settings != nil && t.Settings.MaxRoutes > 0 {
		return t.Settings.MaxRoutes
	}
	return def
}

func (s *Settings) clone() *Settings {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
