package user

import "context"

// ProfileRepository defines the persistence contract for profiles.
type ProfileRepository interface {
	// GetByID returns the profile or an error satisfying errors.IsNotFound.
	GetByID(ctx context.Context, id string) (*Profile, error)
	// Create inserts p and returns the stored row.
	Create(ctx context.Context, p *Profile) (*Profile, error)
	UpdateTier(ctx context.Context, id string, tier Tier) error
	UpdateCredits(ctx context.Context, id string, credits int) error
}
