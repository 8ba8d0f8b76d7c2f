// Package project models the showcase projects researchers publish.
package project

import (
	"context"
	"time"
)

// Tag classifies a project.
type Tag string

const (
	TagAI         Tag = "AI"
	TagChemistry  Tag = "Chemistry"
	TagResearch   Tag = "Research"
	TagToxicology Tag = "Toxicology"
	TagModeling   Tag = "Modeling"
)

// IsValid reports whether t is a known tag.
func (t Tag) IsValid() bool {
	switch t {
	case TagAI, TagChemistry, TagResearch, TagToxicology, TagModeling:
		return true
	}
	return false
}

// Project is a stored project row.  Nullable columns are pointers.
type Project struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
	Name             string     `json:"name"`
	Description      *string    `json:"description"`
	Tag              *Tag       `json:"tag"`
	PreviewImageURL  *string    `json:"preview_image_url"`
	ProblemStatement *string    `json:"problem_statement"`
	AIMethod         *string    `json:"ai_method"`
	Outcome          *string    `json:"outcome"`
	MoleculeCount    int        `json:"molecule_count"`
	ReactionCount    int        `json:"reaction_count"`
}

// Repository defines read access to projects.
type Repository interface {
	List(ctx context.Context) ([]*Project, error)
	// GetByID returns an error satisfying errors.IsNotFound when absent.
	GetByID(ctx context.Context, id string) (*Project, error)
	ListByUser(ctx context.Context, userID string) ([]*Project, error)
}
