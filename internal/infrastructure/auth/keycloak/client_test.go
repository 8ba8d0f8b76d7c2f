package keycloak

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

const testRealm = "chemxgen"

type mockKeycloak struct {
	server     *httptest.Server
	privateKey *rsa.PrivateKey
	kid        string

	mu          sync.Mutex
	users       map[string]string
	jwksCalls   int32
	tokenFails  int32
	lastBody    string
	adminTokens int32
}

func newMockKeycloak(t *testing.T) *mockKeycloak {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	mk := &mockKeycloak{privateKey: key, kid: "kid-1", users: map[string]string{"ada@example.com": "secret1"}}
	mux := http.NewServeMux()
	base := "/realms/" + testRealm + "/protocol/openid-connect"
	mux.HandleFunc(base+"/certs", mk.handleJWKS)
	mux.HandleFunc(base+"/token", mk.handleToken)
	mux.HandleFunc(base+"/logout", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("refresh_token") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/realms/"+testRealm+"/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"issuer": mk.issuer()})
	})
	mux.HandleFunc("/admin/realms/"+testRealm+"/users", mk.handleCreateUser)
	mk.server = httptest.NewServer(mux)
	t.Cleanup(mk.server.Close)
	return mk
}

func (mk *mockKeycloak) issuer() string {
	return mk.server.URL + "/realms/" + testRealm
}

func (mk *mockKeycloak) currentKid() string {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return mk.kid
}

func (mk *mockKeycloak) rotateKid(kid string) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.kid = kid
}

func (mk *mockKeycloak) handleJWKS(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&mk.jwksCalls, 1)
	pub := mk.privateKey.PublicKey
	kid := mk.currentKid()
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"keys": []map[string]string{{
			"kid": kid,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (mk *mockKeycloak) handleToken(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&mk.tokenFails) > 0 {
		atomic.AddInt32(&mk.tokenFails, -1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	body, _ := io.ReadAll(r.Body)
	mk.mu.Lock()
	mk.lastBody = string(body)
	mk.mu.Unlock()
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	_ = r.ParseForm()

	switch r.Form.Get("grant_type") {
	case "password":
		mk.mu.Lock()
		pw, ok := mk.users[r.Form.Get("username")]
		mk.mu.Unlock()
		if !ok || pw != r.Form.Get("password") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access-" + r.Form.Get("username"),
			"refresh_token": "refresh-1",
			"expires_in":    300,
			"token_type":    "Bearer",
		})
	case "client_credentials":
		atomic.AddInt32(&mk.adminTokens, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "service-token", "expires_in": 3600})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (mk *mockKeycloak) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer service-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var rep userRepresentation
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	mk.mu.Lock()
	defer mk.mu.Unlock()
	if _, exists := mk.users[rep.Email]; exists {
		w.WriteHeader(http.StatusConflict)
		return
	}
	mk.users[rep.Email] = rep.Credentials[0].Value
	w.Header().Set("Location", mk.server.URL+"/admin/realms/"+testRealm+"/users/new-user-id")
	w.WriteHeader(http.StatusCreated)
}

func (mk *mockKeycloak) sign(t *testing.T, claims jwt.MapClaims) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = mk.currentKid()
	s, err := tok.SignedString(mk.privateKey)
	require.NoError(t, err)
	return s
}

func (mk *mockKeycloak) validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":     "user-123",
		"iss":     mk.issuer(),
		"aud":     []string{"chemxgen-web"},
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
		"email":   "ada@example.com",
		"name":    "Ada Lovelace",
		"picture": "https://img/ada.png",
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	results []bool
}

func (o *recordingObserver) RecordAuthAttempt(success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, success)
}

func newTestClient(t *testing.T, mk *mockKeycloak, opts ...ClientOption) *Client {
	c, err := NewClient(context.Background(), Config{
		BaseURL:        mk.server.URL + "/",
		Realm:          testRealm,
		ClientID:       "chemxgen-web",
		ClientSecret:   "s3cret",
		RequestTimeout: time.Second,
		RetryAttempts:  2,
		RetryDelay:     time.Millisecond,
	}, logging.NewNopLogger(), opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingConfig(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrInvalidConfig))

	_, err = NewClient(context.Background(), Config{BaseURL: "http://x"}, logging.NewNopLogger())
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestNewClient_JWKSUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient(context.Background(), Config{BaseURL: srv.URL, Realm: testRealm, ClientID: "c"}, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuthProviderDown))
}

func TestVerifyToken_Valid(t *testing.T) {
	mk := newMockKeycloak(t)
	c := newTestClient(t, mk)

	id, err := c.VerifyToken(context.Background(), mk.sign(t, mk.validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user-123", id.ID)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, "Ada Lovelace", id.FullName)
	assert.Equal(t, "https://img/ada.png", id.AvatarURL)
}

func TestVerifyToken_AuthorizedPartyFallback(t *testing.T) {
	mk := newMockKeycloak(t)
	c := newTestClient(t, mk)

	claims := mk.validClaims()
	claims["aud"] = "account"
	claims["azp"] = "chemxgen-web"
	delete(claims, "name")
	claims["preferred_username"] = "ada"

	id, err := c.VerifyToken(context.Background(), mk.sign(t, claims))
	require.NoError(t, err)
	assert.Equal(t, "ada", id.FullName)
}

func TestVerifyToken_Rejections(t *testing.T) {
	mk := newMockKeycloak(t)
	c := newTestClient(t, mk)

	expired := mk.validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	_, err := c.VerifyToken(context.Background(), mk.sign(t, expired))
	assert.True(t, stderrors.Is(err, ErrTokenExpired))

	wrongIssuer := mk.validClaims()
	wrongIssuer["iss"] = "https://evil.example.com/realms/" + testRealm
	_, err = c.VerifyToken(context.Background(), mk.sign(t, wrongIssuer))
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuthTokenInvalid))

	wrongAudience := mk.validClaims()
	wrongAudience["aud"] = "someone-else"
	_, err = c.VerifyToken(context.Background(), mk.sign(t, wrongAudience))
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuthTokenInvalid))

	_, err = c.VerifyToken(context.Background(), "not-a-jwt")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuthTokenInvalid))

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged := jwt.NewWithClaims(jwt.SigningMethodRS256, mk.validClaims())
	forged.Header["kid"] = mk.currentKid()
	raw, err := forged.SignedString(otherKey)
	require.NoError(t, err)
	_, err = c.VerifyToken(context.Background(), raw)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuthTokenInvalid))
}

func TestVerifyToken_UnknownKidRefreshesKeys(t *testing.T) {
	mk := newMockKeycloak(t)
	c := newTestClient(t, mk)
	before := atomic.LoadInt32(&mk.jwksCalls)

	// Rotate: the server now advertises a new kid.
	mk.rotateKid("kid-2")
	_, err := c.VerifyToken(context.Background(), mk.sign(t, mk.validClaims()))
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt32(&mk.jwksCalls), before)
}

func TestVerifyToken_Concurrent(t *testing.T) {
	mk := newMockKeycloak(t)
	c := newTestClient(t, mk)
	token := mk.sign(t, mk.validClaims())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.VerifyToken(context.Background(), token)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestPasswordLogin(t *testing.T) {
	mk := newMockKeycloak(t)
	obs := &recordingObserver{}
	c := newTestClient(t, mk, WithObserver(obs))

	tokens, err := c.PasswordLogin(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "access-ada@example.com", tokens.AccessToken)
	assert.Equal(t, "refresh-1", tokens.RefreshToken)
	assert.Equal(t, 300, tokens.ExpiresIn)

	_, err = c.PasswordLogin(context.Background(), "ada@example.com", "wrong")
	assert.True(t, stderrors.Is(err, ErrInvalidCredentials))

	assert.Equal(t, []bool{true, false}, obs.results)
}

func TestPasswordLogin_RetriesWithIntactBody(t *testing.T) {
	mk := newMockKeycloak(t)
	c := newTestClient(t, mk)
	atomic.StoreInt32(&mk.tokenFails, 2)

	_, err := c.PasswordLogin(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	mk.mu.Lock()
	defer mk.mu.Unlock()
	assert.Contains(t, mk.lastBody, "password=secret1")
}

func TestPasswordLogin_ProviderDown(t *testing.T) {
	mk := newMockKeycloak(t)
	c := newTestClient(t, mk)
	atomic.StoreInt32(&mk.tokenFails, 10)

	_, err := c.PasswordLogin(context.Background(), "ada@example.com", "secret1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuthProviderDown))
}

func TestRegister(t *testing.T) {
	mk := newMockKeycloak(t)
	c := newTestClient(t, mk)

	id, err := c.Register(context.Background(), "Grace Hopper", "grace@example.com", "cobol!")
	require.NoError(t, err)
	assert.Equal(t, "new-user-id", id)

	_, err = c.Register(context.Background(), "Grace Hopper", "grace@example.com", "cobol!")
	assert.True(t, stderrors.Is(err, ErrUserExists))

	// The service token is reused while valid.
	assert.Equal(t, int32(1), atomic.LoadInt32(&mk.adminTokens))
}

func TestLogout(t *testing.T) {
	mk := newMockKeycloak(t)
	c := newTestClient(t, mk)

	assert.NoError(t, c.Logout(context.Background(), "refresh-1"))
	assert.Error(t, c.Logout(context.Background(), ""))
}

func TestHealth(t *testing.T) {
	mk := newMockKeycloak(t)
	c := newTestClient(t, mk)
	assert.NoError(t, c.Health(context.Background()))

	mk.server.Close()
	assert.True(t, errors.IsCode(c.Health(context.Background()), errors.ErrCodeAuthProviderDown))
}

func TestSplitName(t *testing.T) {
	first, last := splitName("Marie Salomea Curie")
	assert.Equal(t, "Marie Salomea", first)
	assert.Equal(t, "Curie", last)

	first, last = splitName("Plato")
	assert.Equal(t, "Plato", first)
	assert.Empty(t, last)
}
