// Package stripe implements the billing provider on Stripe Checkout and the
// Stripe customer portal.
package stripe

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/turtacn/ChemXGen/internal/application/billing"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Config configures the provider. BackendURL overrides the Stripe API origin.
type Config struct {
	SecretKey  string
	BackendURL string
	HTTPClient *http.Client
	MaxRetries int64
}

// Provider is a billing.Provider backed by the Stripe API.
type Provider struct {
	api    *client.API
	logger logging.Logger
}

var _ billing.Provider = (*Provider)(nil)

func NewProvider(cfg Config, log logging.Logger) (*Provider, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New(errors.ErrCodeValidation, "stripe secret key is required")
	}
	backendCfg := &stripeapi.BackendConfig{
		MaxNetworkRetries: stripeapi.Int64(cfg.MaxRetries),
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelError},
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripeapi.String(strings.TrimRight(cfg.BackendURL, "/"))
	}
	if cfg.HTTPClient != nil {
		backendCfg.HTTPClient = cfg.HTTPClient
	}
	backends := &stripeapi.Backends{
		API:     stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendCfg),
		Connect: stripeapi.GetBackendWithConfig(stripeapi.ConnectBackend, backendCfg),
		Uploads: stripeapi.GetBackendWithConfig(stripeapi.UploadsBackend, backendCfg),
	}
	return &Provider{api: client.New(cfg.SecretKey, backends), logger: log.Named("stripe")}, nil
}

// CreateCheckout opens a subscription checkout session for one seat.
func (p *Provider) CreateCheckout(ctx context.Context, req billing.CheckoutRequest) (*billing.Redirect, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode: stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{{
			Price:    stripeapi.String(req.PriceID),
			Quantity: stripeapi.Int64(1),
		}},
		SuccessURL: stripeapi.String(req.SuccessURL),
		CancelURL:  stripeapi.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripeapi.String(req.CustomerEmail)
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripeapi.String(req.ClientReferenceID)
	}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, providerError(err, "create checkout session")
	}
	p.logger.Debug("Checkout session created", logging.String("session_id", sess.ID))
	return &billing.Redirect{URL: sess.URL, SessionID: sess.ID}, nil
}

// FindCustomer returns the first customer registered under email.
func (p *Provider) FindCustomer(ctx context.Context, email string) (string, error) {
	params := &stripeapi.CustomerListParams{Email: stripeapi.String(email)}
	params.Limit = stripeapi.Int64(1)
	params.Context = ctx

	it := p.api.Customers.List(params)
	if it.Next() {
		return it.Customer().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", providerError(err, "list customers")
	}
	return "", errors.New(errors.ErrCodeBillingNoCustomer, "no billing customer for this account").
		WithDetail("email=" + email)
}

func (p *Provider) CreatePortal(ctx context.Context, customerID, returnURL string) (*billing.Redirect, error) {
	params := &stripeapi.BillingPortalSessionParams{
		Customer:  stripeapi.String(customerID),
		ReturnURL: stripeapi.String(returnURL),
	}
	params.Context = ctx

	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, providerError(err, "create portal session")
	}
	return &billing.Redirect{URL: sess.URL}, nil
}

func providerError(err error, op string) error {
	var se *stripeapi.Error
	if stderrors.As(err, &se) {
		e := errors.Wrap(err, errors.ErrCodeBillingProvider, op+" failed")
		return e.WithDetail(string(se.Code) + ": " + se.Msg)
	}
	return errors.Wrap(err, errors.ErrCodeBillingProvider, op+" failed")
}
