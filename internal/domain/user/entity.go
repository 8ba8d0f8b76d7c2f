package user

import (
	"strings"
	"time"
)

// Tier is a subscription plan.
type Tier string

const (
	TierIndividual Tier = "Individual Researcher"
	TierTeam       Tier = "Small Lab / Team"
	TierEnterprise Tier = "Enterprise"
	TierNone       Tier = "None"
)

// Tiers lists every paid tier, cheapest first.
var Tiers = []Tier{TierIndividual, TierTeam, TierEnterprise}

// Credits returns the monthly credit allowance of the tier.  Unknown tiers
// get nothing.
func (t Tier) Credits() int {
	switch t {
	case TierIndividual:
		return 1000
	case TierTeam:
		return 5000
	case TierEnterprise:
		return 100000
	default:
		return 0
	}
}

// Key is the configuration key of the tier, e.g. "small_lab_team".
func (t Tier) Key() string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(string(t)) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ParseTier maps a stored tier to a Tier.  Anything unrecognised is TierNone.
func ParseTier(s string) Tier {
	for _, t := range Tiers {
		if string(t) == s {
			return t
		}
	}
	return TierNone
}

// Profile is the stored per-user row.  Credits is nil until a balance has
// been recorded; until then the tier allowance applies.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    *string   `json:"photo_url"`
	Tier        Tier      `json:"subscription_tier"`
	Credits     *int      `json:"credits,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is the signed-in view handed to clients.
type User struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	PhotoURL    *string `json:"photo_url"`
	Tier        Tier    `json:"subscription_tier"`
	Credits     int     `json:"credits"`
}

// Identity is what the identity provider knows about an authenticated
// account, independent of the stored profile.
type Identity struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
}

// DefaultProfile is inserted the first time an identity signs in.
func DefaultProfile(id Identity) *Profile {
	name := firstNonEmpty(id.FullName, id.Email, "New User")
	return &Profile{
		ID:          id.ID,
		Email:       id.Email,
		DisplayName: name,
		PhotoURL:    optional(id.AvatarURL),
		Tier:        TierNone,
	}
}

// FromProfile merges a stored profile with the identity it belongs to.
func FromProfile(id Identity, p *Profile) *User {
	tier := ParseTier(string(p.Tier))
	credits := tier.Credits()
	if p.Credits != nil {
		credits = *p.Credits
	}
	photo := p.PhotoURL
	if photo == nil || *photo == "" {
		photo = optional(id.AvatarURL)
	}
	return &User{
		ID:          id.ID,
		Email:       id.Email,
		DisplayName: firstNonEmpty(p.DisplayName, id.FullName, id.Email, "User"),
		PhotoURL:    photo,
		Tier:        tier,
		Credits:     credits,
	}
}

// Fallback is used when the profile store cannot be read or written: the
// user is signed in but has no plan and no credits.
func Fallback(id Identity) *User {
	return &User{
		ID:          id.ID,
		Email:       id.Email,
		DisplayName: firstNonEmpty(id.FullName, "User"),
		PhotoURL:    optional(id.AvatarURL),
		Tier:        TierNone,
		Credits:     0,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Tokens are the credentials issued by the identity provider on sign-in.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
