// Package keycloak is the identity provider adapter. It signs users in with
// the password grant, registers accounts through the admin API and verifies
// access tokens against the realm JWKS.
package keycloak

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/ChemXGen/internal/domain/user"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

var (
	ErrInvalidConfig      = errors.New(errors.ErrCodeValidation, "invalid keycloak configuration")
	ErrProviderDown       = errors.New(errors.ErrCodeAuthProviderDown, "identity provider unavailable")
	ErrInvalidCredentials = errors.New(errors.ErrCodeAuthInvalidCredentials, "invalid email or password")
	ErrTokenExpired       = errors.New(errors.ErrCodeAuthTokenExpired, "token expired")
	ErrTokenInvalid       = errors.New(errors.ErrCodeAuthTokenInvalid, "invalid token")
	ErrUserExists         = errors.New(errors.ErrCodeAuthUserExists, "an account with this email already exists")
)

// Config configures the client.
type Config struct {
	BaseURL        string
	Realm          string
	ClientID       string
	ClientSecret   string
	RequestTimeout time.Duration
	JWKSRefresh    time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

// AuthObserver records sign-in outcomes.
type AuthObserver interface {
	RecordAuthAttempt(success bool)
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithObserver(o AuthObserver) ClientOption {
	return func(c *Client) { c.observer = o }
}

// Client talks to one Keycloak realm.
type Client struct {
	cfg        Config
	httpClient *http.Client
	jwks       *jwksCache
	logger     logging.Logger
	observer   AuthObserver

	svcMu       sync.Mutex
	svcToken    string
	svcTokenExp time.Time
}

// NewClient validates cfg and loads the realm signing keys.
func NewClient(ctx context.Context, cfg Config, log logging.Logger, opts ...ClientOption) (*Client, error) {
	switch {
	case cfg.BaseURL == "":
		return nil, errors.Wrap(ErrInvalidConfig, errors.ErrCodeValidation, "base_url is required")
	case cfg.Realm == "":
		return nil, errors.Wrap(ErrInvalidConfig, errors.ErrCodeValidation, "realm is required")
	case cfg.ClientID == "":
		return nil, errors.Wrap(ErrInvalidConfig, errors.ErrCodeValidation, "client_id is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.JWKSRefresh <= 0 {
		cfg.JWKSRefresh = 5 * time.Minute
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	} else if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     log.Named("keycloak"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.jwks = newJWKSCache(c.httpClient, c.realmURL("protocol/openid-connect/certs"), c.logger)

	if err := c.jwks.refresh(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAuthProviderDown, "failed to fetch JWKS")
	}
	c.logger.Info("Keycloak client ready",
		logging.String("realm", cfg.Realm),
		logging.Int("signing_keys", c.jwks.size()))
	return c, nil
}

// RefreshKeys reloads the JWKS every JWKSRefresh until ctx is done.
func (c *Client) RefreshKeys(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.JWKSRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.jwks.refresh(ctx); err != nil {
				c.logger.Error("Failed to refresh JWKS", logging.Err(err))
			}
		}
	}
}

func (c *Client) realmURL(p string) string {
	return c.cfg.BaseURL + "/realms/" + url.PathEscape(c.cfg.Realm) + "/" + p
}

func (c *Client) issuer() string {
	return c.cfg.BaseURL + "/realms/" + c.cfg.Realm
}

// PasswordLogin exchanges credentials for tokens.
func (c *Client) PasswordLogin(ctx context.Context, email, password string) (*user.Tokens, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"username":      {email},
		"password":      {password},
		"scope":         {"openid profile email"},
	}
	resp, err := c.postForm(ctx, c.realmURL("protocol/openid-connect/token"), form, "")
	if err != nil {
		c.observe(false)
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		c.observe(false)
		return nil, ErrInvalidCredentials
	default:
		c.observe(false)
		return nil, statusError(resp, "password login")
	}

	var tokens user.Tokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		c.observe(false)
		return nil, errors.Wrap(err, errors.ErrCodeAuthProviderDown, "decode token response")
	}
	c.observe(true)
	return &tokens, nil
}

type credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type userRepresentation struct {
	Username      string              `json:"username"`
	Email         string              `json:"email"`
	FirstName     string              `json:"firstName,omitempty"`
	LastName      string              `json:"lastName,omitempty"`
	Enabled       bool                `json:"enabled"`
	EmailVerified bool                `json:"emailVerified"`
	Attributes    map[string][]string `json:"attributes,omitempty"`
	Credentials   []credential        `json:"credentials"`
}

// Register creates an account and returns its id.
func (c *Client) Register(ctx context.Context, fullName, email, password string) (string, error) {
	token, err := c.serviceToken(ctx)
	if err != nil {
		return "", err
	}

	first, last := splitName(fullName)
	rep := userRepresentation{
		Username:    email,
		Email:       email,
		FirstName:   first,
		LastName:    last,
		Enabled:     true,
		Credentials: []credential{{Type: "password", Value: password}},
	}
	if fullName != "" {
		rep.Attributes = map[string][]string{"full_name": {fullName}}
	}
	body, err := json.Marshal(rep)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "encode user")
	}

	endpoint := c.cfg.BaseURL + "/admin/realms/" + url.PathEscape(c.cfg.Realm) + "/users"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "build register request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.doWithRetry(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return "", ErrUserExists
	case http.StatusBadRequest:
		return "", errors.New(errors.ErrCodeValidation, "identity provider rejected the account").
			WithDetail(readSnippet(resp.Body))
	default:
		return "", statusError(resp, "register")
	}

	id := path.Base(resp.Header.Get("Location"))
	if id == "" || id == "." || id == "/" {
		return "", errors.New(errors.ErrCodeAuthProviderDown, "register response has no user location")
	}
	return id, nil
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
	AuthorizedParty   string `json:"azp"`
}

// VerifyToken checks the signature, issuer and audience of an access token.
func (c *Client) VerifyToken(ctx context.Context, accessToken string) (*user.Identity, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid")
		}
		return c.jwks.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithIssuer(c.issuer()),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, errors.ErrCodeAuthTokenInvalid, "token verification failed")
	}
	if !c.audienceOK(claims) {
		return nil, errors.Wrap(ErrTokenInvalid, errors.ErrCodeAuthTokenInvalid, "token audience mismatch")
	}

	return &user.Identity{
		ID:        claims.Subject,
		Email:     claims.Email,
		FullName:  firstNonEmpty(claims.Name, claims.PreferredUsername),
		AvatarURL: claims.Picture,
	}, nil
}

func (c *Client) audienceOK(claims accessClaims) bool {
	for _, a := range claims.Audience {
		if a == c.cfg.ClientID {
			return true
		}
	}
	return claims.AuthorizedParty == c.cfg.ClientID
}

// Logout revokes the refresh token's session.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"refresh_token": {refreshToken},
	}
	resp, err := c.postForm(ctx, c.realmURL("protocol/openid-connect/logout"), form, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return statusError(resp, "logout")
	}
	return nil
}

// Health probes the realm discovery document.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.realmURL(".well-known/openid-configuration"), nil)
	if err != nil {
		return err
	}
	resp, err := c.doWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ErrProviderDown
	}
	return nil
}

// serviceToken returns a cached client-credentials token for the admin API.
func (c *Client) serviceToken(ctx context.Context) (string, error) {
	c.svcMu.Lock()
	defer c.svcMu.Unlock()
	if c.svcToken != "" && time.Now().Add(30*time.Second).Before(c.svcTokenExp) {
		return c.svcToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	resp, err := c.postForm(ctx, c.realmURL("protocol/openid-connect/token"), form, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp, "service token")
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeAuthProviderDown, "decode service token")
	}
	c.svcToken = out.AccessToken
	c.svcTokenExp = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return c.svcToken, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, bearer string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.doWithRetry(req)
}

// doWithRetry retries transport errors and 5xx responses with exponential
// backoff. Request bodies are rewound through GetBody.
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	if reqID := logging.RequestIDFromContext(req.Context()); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, errors.Wrap(req.Context().Err(), errors.ErrCodeAuthProviderDown, "identity provider request cancelled")
			case <-time.After(c.cfg.RetryDelay * time.Duration(1<<(attempt-1))):
			}
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, errors.Wrap(err, errors.ErrCodeInternal, "rewind request body")
				}
				req.Body = body
			}
		}

		resp, err := c.httpClient.Do(req)
		if err == nil && resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp.Body.Close()
		}
		c.logger.Debug("Identity provider request failed",
			logging.String("url", req.URL.Path),
			logging.Int("attempt", attempt+1),
			logging.Err(lastErr))
	}
	return nil, errors.Wrap(lastErr, errors.ErrCodeAuthProviderDown, "identity provider unavailable")
}

func (c *Client) observe(success bool) {
	if c.observer != nil {
		c.observer.RecordAuthAttempt(success)
	}
}

func statusError(resp *http.Response, op string) error {
	return errors.Newf(errors.ErrCodeAuthProviderDown, "%s failed with status %d", op, resp.StatusCode).
		WithDetail(readSnippet(resp.Body))
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if i := strings.LastIndex(full, " "); i > 0 {
		return full[:i], full[i+1:]
	}
	return full, ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
