package task

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Request is the incoming submission shape:
// {id, tool, molecule, settings, timestamp}.
type Request struct {
	ID        string    `json:"id" validate:"omitempty,max=128"`
	Tool      Kind      `json:"tool" validate:"required,analysis_kind"`
	Molecule  string    `json:"molecule" validate:"max=200000"`
	Settings  *Settings `json:"settings,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("analysis_kind", func(fl validator.FieldLevel) bool {
		return Kind(fl.Field().String()).IsValid()
	})
	return v
}

// Validate trims the ID and checks the request shape, settings included.
// Molecule may be empty: the renderer shows a placeholder and the gateway
// decides.
func (r *Request) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(err, errors.ErrCodeTaskInvalid, "invalid task request").
			WithDetail(describe(err))
	}
	return nil
}

// Build creates the running task for r.  A missing ID is generated, and the
// request timestamp becomes the start time when it parses.
func (r *Request) Build(now time.Time) *Task {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = uuid.NewString()
	}
	t := New(id, r.Molecule, r.Tool, r.Settings, now)
	if r.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, r.Timestamp); err == nil {
			t.StartTime = ts.UTC().Format(time.RFC3339Nano)
		}
	}
	return t
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+": "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}
