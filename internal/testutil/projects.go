package testutil

import (
	"context"

	"github.com/turtacn/ChemXGen/internal/domain/project"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// ProjectRepo is a read-only project.Repository over a fixed slice.
type ProjectRepo struct {
	projects []*project.Project
}

func NewProjectRepo(ps ...*project.Project) *ProjectRepo {
	return &ProjectRepo{projects: ps}
}

func (r *ProjectRepo) List(context.Context) ([]*project.Project, error) {
	return append([]*project.Project(nil), r.projects...), nil
}

func (r *ProjectRepo) GetByID(_ context.Context, id string) (*project.Project, error) {
	for _, p := range r.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errors.New(errors.ErrCodeProjectNotFound, "project not found").WithDetail("id=" + id)
}

func (r *ProjectRepo) ListByUser(_ context.Context, userID string) ([]*project.Project, error) {
	var out []*project.Project
	for _, p := range r.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}
