package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/turtacn/ChemXGen/internal/domain/user"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/postgres"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

const profileColumns = `id, email, display_name, photo_url, subscription_tier, credits, created_at, updated_at`

type postgresProfileRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresProfileRepo returns a user.ProfileRepository on the profiles table.
func NewPostgresProfileRepo(conn *postgres.Connection, log logging.Logger) user.ProfileRepository {
	return &postgresProfileRepo{conn: conn, log: log}
}

func (r *postgresProfileRepo) executor() queryExecutor {
	return r.conn.DB()
}

func (r *postgresProfileRepo) GetByID(ctx context.Context, id string) (*user.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.executor().QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeProfileNotFound, "profile not found").WithDetail("id=" + id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get profile")
	}
	return p, nil
}

func (r *postgresProfileRepo) Create(ctx context.Context, p *user.Profile) (*user.Profile, error) {
	if p == nil || p.ID == "" {
		return nil, errors.InvalidParam("profile id is required")
	}
	tier := p.Tier
	if tier == "" {
		tier = user.TierNone
	}
	var credits sql.NullInt64
	if p.Credits != nil {
		credits = sql.NullInt64{Int64: int64(*p.Credits), Valid: true}
	}

	query := `
		INSERT INTO profiles (id, email, display_name, photo_url, subscription_tier, credits)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + profileColumns
	created, err := scanProfile(r.executor().QueryRowContext(ctx, query,
		p.ID, p.Email, p.DisplayName, nullString(p.PhotoURL), string(tier), credits,
	))
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return nil, errors.Conflict("profile already exists").WithDetail("id=" + p.ID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create profile")
	}
	r.log.Debug("Created profile", logging.String("profile_id", created.ID))
	return created, nil
}

func (r *postgresProfileRepo) UpdateTier(ctx context.Context, id string, tier user.Tier) error {
	query := `UPDATE profiles SET subscription_tier = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.executor().ExecContext(ctx, query, id, string(tier))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update subscription tier")
	}
	return expectOneRow(res, id)
}

func (r *postgresProfileRepo) UpdateCredits(ctx context.Context, id string, credits int) error {
	if credits < 0 {
		return errors.InvalidParam("credits must not be negative")
	}
	query := `UPDATE profiles SET credits = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.executor().ExecContext(ctx, query, id, credits)
	if err != nil {
		if pgCode(err) == pgCheckViolation {
			return errors.InvalidParam("credits must not be negative")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update credits")
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	if n == 0 {
		return errors.New(errors.ErrCodeProfileNotFound, "profile not found").WithDetail("id=" + id)
	}
	return nil
}

func scanProfile(row scanner) (*user.Profile, error) {
	var (
		p       user.Profile
		photo   sql.NullString
		tier    string
		credits sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &photo, &tier, &credits, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.PhotoURL = stringPtr(photo)
	p.Tier = user.ParseTier(tier)
	if credits.Valid {
		c := int(credits.Int64)
		p.Credits = &c
	}
	return &p, nil
}
