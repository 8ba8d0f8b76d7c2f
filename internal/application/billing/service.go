// Package billing creates hosted checkout and customer-portal sessions for
// the subscription plans.
package billing

import (
	"context"
	"strings"

	"github.com/turtacn/ChemXGen/internal/domain/user"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// SessionIDPlaceholder is substituted by the payment provider with the id of
// the completed checkout session.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Redirect is where the client should send the user next.
type Redirect struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId,omitempty"`
}

// CheckoutRequest is a subscription checkout for one price.
type CheckoutRequest struct {
	PriceID           string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
}

// Provider is the payment provider.
type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Redirect, error)
	// FindCustomer returns the provider customer ID for email, or an error
	// with code BILLING_002 when there is none.
	FindCustomer(ctx context.Context, email string) (string, error)
	CreatePortal(ctx context.Context, customerID, returnURL string) (*Redirect, error)
}

// Config holds the plan catalogue and URLs.
type Config struct {
	// Plans maps plan names ("individual", "team", "enterprise" or a full
	// user.Tier.Key) to price IDs.
	Plans map[string]string
	// BaseURL is the public origin of the application.
	BaseURL string
}

// Service is the billing bridge.
type Service struct {
	provider Provider
	plans    map[string]user.Tier
	baseURL  string
	logger   logging.Logger
}

// NewService creates the billing service.  Plan keys that do not name a tier
// are ignored with a warning.
func NewService(provider Provider, cfg Config, logger logging.Logger) *Service {
	s := &Service{
		provider: provider,
		plans:    make(map[string]user.Tier),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		logger:   logger.Named("billing"),
	}
	for key, price := range cfg.Plans {
		tier, ok := tierForKey(key)
		if !ok || price == "" {
			s.logger.Warn("ignoring billing plan", logging.String("plan", key))
			continue
		}
		s.plans[price] = tier
	}
	return s
}

// TierForPrice returns the tier a price ID subscribes to.
func (s *Service) TierForPrice(priceID string) (user.Tier, bool) {
	t, ok := s.plans[priceID]
	return t, ok
}

// Checkout starts a subscription checkout for priceID.
func (s *Service) Checkout(ctx context.Context, u *user.User, priceID string) (*Redirect, error) {
	if u == nil {
		return nil, errors.Unauthorized("sign in to subscribe")
	}
	tier, ok := s.plans[priceID]
	if !ok {
		return nil, errors.New(errors.ErrCodeBillingUnknownPrice, "unknown plan price").WithDetail("price=" + priceID)
	}
	r, err := s.provider.CreateCheckout(ctx, CheckoutRequest{
		PriceID:           priceID,
		CustomerEmail:     u.Email,
		ClientReferenceID: u.ID,
		SuccessURL:        s.baseURL + "/app/billing?session_id=" + SessionIDPlaceholder,
		CancelURL:         s.baseURL + "/app/billing",
	})
	if err != nil {
		s.logger.Error("checkout failed", logging.String(logging.FieldUserID, u.ID), logging.Err(err))
		return nil, wrapProvider(err, "could not create checkout session")
	}
	if r.SessionID == "" && r.URL == "" {
		return nil, errors.New(errors.ErrCodeBillingProvider, "could not retrieve a checkout session")
	}
	s.logger.Info("checkout started", logging.String(logging.FieldUserID, u.ID), logging.String("tier", string(tier)))
	return r, nil
}

// Portal opens the customer portal for the user.
func (s *Service) Portal(ctx context.Context, u *user.User) (*Redirect, error) {
	if u == nil {
		return nil, errors.Unauthorized("sign in to manage billing")
	}
	customer, err := s.provider.FindCustomer(ctx, u.Email)
	if err != nil {
		return nil, wrapProvider(err, "could not find billing customer")
	}
	r, err := s.provider.CreatePortal(ctx, customer, s.baseURL+"/app/billing")
	if err != nil {
		s.logger.Error("portal failed", logging.String(logging.FieldUserID, u.ID), logging.Err(err))
		return nil, wrapProvider(err, "could not open billing portal")
	}
	if r.URL == "" {
		return nil, errors.New(errors.ErrCodeBillingProvider, "could not retrieve billing portal url")
	}
	return r, nil
}

func wrapProvider(err error, msg string) error {
	if errors.GetCode(err) != errors.CodeUnknown {
		return err
	}
	return errors.Wrap(err, errors.ErrCodeBillingProvider, msg)
}

var planAliases = map[string]user.Tier{
	"individual": user.TierIndividual,
	"team":       user.TierTeam,
	"enterprise": user.TierEnterprise,
}

// tierForKey accepts the short plan names used in configuration as well as
// full tier keys such as "small_lab_team".
func tierForKey(key string) (user.Tier, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if t, ok := planAliases[key]; ok {
		return t, true
	}
	for _, t := range user.Tiers {
		if t.Key() == key {
			return t, true
		}
	}
	return user.TierNone, false
}
