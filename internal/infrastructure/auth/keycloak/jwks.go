package keycloak

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
)

// jwksCache holds the realm signing keys by kid.
type jwksCache struct {
	client *http.Client
	url    string
	logger logging.Logger

	mu    sync.RWMutex
	keys  map[string]*rsa.PublicKey
	group singleflight.Group
}

func newJWKSCache(client *http.Client, url string, log logging.Logger) *jwksCache {
	return &jwksCache{client: client, url: url, logger: log, keys: make(map[string]*rsa.PublicKey)}
}

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// refresh replaces the key set. Concurrent callers share one fetch.
func (c *jwksCache) refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("jwks", func() (interface{}, error) {
		return nil, c.fetch(ctx)
	})
	return err
}

func (c *jwksCache) fetch(ctx context.Context) error {
	c.logger.Debug("Refreshing JWKS", logging.String("url", c.url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch JWKS: %s", resp.Status)
	}

	var set struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.rsaPublicKey()
		if err != nil {
			c.logger.Warn("Skipping malformed JWK", logging.String("kid", k.Kid), logging.Err(err))
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.mu.Unlock()
	return nil
}

func (k jsonWebKey) rsaPublicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 3 {
		return nil, fmt.Errorf("exponent out of range")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

// key returns the key for kid, refreshing once on a miss so rotated keys
// are picked up.
func (c *jwksCache) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if k := c.lookup(kid); k != nil {
		return k, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if k := c.lookup(kid); k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("no signing key for kid %q", kid)
}

func (c *jwksCache) lookup(kid string) *rsa.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[kid]
}

func (c *jwksCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}
