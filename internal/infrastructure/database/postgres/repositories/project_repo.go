package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/turtacn/ChemXGen/internal/domain/project"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/postgres"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

const projectColumns = `id, user_id, created_at, updated_at, name, description, tag, preview_image_url,
	problem_statement, ai_method, outcome, molecule_count, reaction_count`

type postgresProjectRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

func NewPostgresProjectRepo(conn *postgres.Connection, log logging.Logger) project.Repository {
	return &postgresProjectRepo{conn: conn, log: log}
}

// List returns every project, newest first.
func (r *postgresProjectRepo) List(ctx context.Context) ([]*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC`
	return r.query(ctx, query)
}

func (r *postgresProjectRepo) ListByUser(ctx context.Context, userID string) ([]*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`
	return r.query(ctx, query, userID)
}

// GetByID treats an id that is not a UUID as absent.
func (r *postgresProjectRepo) GetByID(ctx context.Context, id string) (*project.Project, error) {
	notFound := errors.New(errors.ErrCodeProjectNotFound, "project not found").WithDetail("id=" + id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound
	}

	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := scanProject(r.conn.DB().QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) || pgCode(err) == pgInvalidTextRepresent {
			return nil, notFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get project")
	}
	return p, nil
}

func (r *postgresProjectRepo) query(ctx context.Context, query string, args ...interface{}) ([]*project.Project, error) {
	rows, err := r.conn.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list projects")
	}
	defer rows.Close()

	projects := make([]*project.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan project")
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate projects")
	}
	return projects, nil
}

func scanProject(row scanner) (*project.Project, error) {
	var (
		p                                         project.Project
		updated                                   sql.NullTime
		desc, tag, preview, problem, method, outc sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &p.CreatedAt, &updated, &p.Name, &desc, &tag, &preview,
		&problem, &method, &outc, &p.MoleculeCount, &p.ReactionCount)
	if err != nil {
		return nil, err
	}
	if updated.Valid {
		t := updated.Time
		p.UpdatedAt = &t
	}
	if tag.Valid {
		t := project.Tag(tag.String)
		p.Tag = &t
	}
	p.Description = stringPtr(desc)
	p.PreviewImageURL = stringPtr(preview)
	p.ProblemStatement = stringPtr(problem)
	p.AIMethod = stringPtr(method)
	p.Outcome = stringPtr(outc)
	return &p, nil
}
