// Package project serves the project showcase.
package project

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	domain "github.com/turtacn/ChemXGen/internal/domain/project"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Filter narrows List.  The zero value lists everything.
type Filter struct {
	Tag    domain.Tag
	Search string
}

type Service struct {
	repo   domain.Repository
	logger logging.Logger
}

func NewService(repo domain.Repository, logger logging.Logger) *Service {
	return &Service{repo: repo, logger: logger.Named("project")}
}

// List returns projects matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*domain.Project, error) {
	if f.Tag != "" && !f.Tag.IsValid() {
		return nil, errors.InvalidParam("unknown project tag: " + string(f.Tag))
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list projects", logging.Err(err))
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*domain.Project, 0, len(all))
	for _, p := range all {
		if f.Tag != "" && (p.Tag == nil || *p.Tag != f.Tag) {
			continue
		}
		if needle != "" && !matches(p, needle) {
			continue
		}
		out = append(out, p)
	}
	newestFirst(out)
	return out, nil
}

// Get returns one project.  Malformed IDs are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (*domain.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.New(errors.ErrCodeProjectNotFound, "project not found").WithDetail("id=" + id)
	}
	return s.repo.GetByID(ctx, id)
}

// ListByUser returns the projects owned by userID, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*domain.Project, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.InvalidParam("user id is required")
	}
	ps, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list user projects", logging.String(logging.FieldUserID, userID), logging.Err(err))
		return nil, err
	}
	newestFirst(ps)
	return ps, nil
}

func matches(p *domain.Project, needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) {
		return true
	}
	return p.Description != nil && strings.Contains(strings.ToLower(*p.Description), needle)
}

func newestFirst(ps []*domain.Project) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) })
}
