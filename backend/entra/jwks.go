package entra

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// ErrKeyResolution is returned when the signing key referenced by a token
// cannot be resolved: network failure, malformed key set, unsupported key
// type, or an unknown kid all collapse into it. The wrapped detail is for
// server logs only.
var ErrKeyResolution = errors.New("key resolution failed")

// JWKS represents the JSON Web Key Set published by the discovery endpoint
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a single JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeyResolver fetches and caches the tenant's public signing keys and
// resolves the key referenced by a token header. The cached key set is
// shared, process-wide state: it is replaced wholesale on refresh so
// concurrent readers observe either the old or the new set, never a
// partially written one.
type KeyResolver struct {
	jwksURL    string
	httpClient *http.Client
	cacheTTL   time.Duration

	// refreshMu serializes fetches so a burst of requests hitting a cold or
	// stale cache results in a single network call. The fetch itself runs
	// without mu held.
	refreshMu sync.Mutex

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeyResolver creates a KeyResolver for the given JWKS URL
func NewKeyResolver(jwksURL string, timeout, cacheTTL time.Duration) *KeyResolver {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Hour
	}
	return &KeyResolver{
		jwksURL:    jwksURL,
		httpClient: &http.Client{Timeout: timeout},
		cacheTTL:   cacheTTL,
	}
}

// ResolveKey returns the public key for the given key ID. On a cache miss
// (or expired cache) it refreshes the key set from the discovery endpoint
// and retries the lookup once.
func (r *KeyResolver) ResolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := r.cachedKey(kid); ok {
		return key, nil
	}

	if err := r.refresh(ctx, kid); err != nil {
		return nil, err
	}

	if key, ok := r.lookup(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: key %q not found in key set", ErrKeyResolution, kid)
}

// cachedKey returns the key for kid when the cached set is still fresh
func (r *KeyResolver) cachedKey(kid string) (*rsa.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.keys == nil || time.Since(r.fetchedAt) > r.cacheTTL {
		return nil, false
	}
	key, ok := r.keys[kid]
	return key, ok
}

// lookup returns the key for kid regardless of cache age. Used after a
// refresh, where the snapshot was just replaced.
func (r *KeyResolver) lookup(kid string) (*rsa.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[kid]
	return key, ok
}

// refresh fetches the current key set and replaces the cached snapshot.
// Requests that were queued behind an in-flight refresh re-check the cache
// instead of fetching again.
func (r *KeyResolver) refresh(ctx context.Context, kid string) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	if _, ok := r.cachedKey(kid); ok {
		return nil
	}

	jwks, err := r.fetchJWKS(ctx)
	if err != nil {
		return err
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for i := range jwks.Keys {
		jwk := &jwks.Keys[i]
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		key, err := jwkToRSAPublicKey(jwk)
		if err != nil {
			// A single bad entry should not poison the whole set
			continue
		}
		keys[jwk.Kid] = key
	}

	r.mu.Lock()
	r.keys = keys
	r.fetchedAt = time.Now()
	r.mu.Unlock()

	return nil
}

// fetchJWKS retrieves the key set document from the discovery endpoint
func (r *KeyResolver) fetchJWKS(ctx context.Context) (*JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyResolution, err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyResolution, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: discovery endpoint returned status %d", ErrKeyResolution, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("%w: malformed key set document: %v", ErrKeyResolution, err)
	}

	return &jwks, nil
}

// InvalidateCache discards the cached key set (useful for testing or a
// forced refresh)
func (r *KeyResolver) InvalidateCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = nil
	r.fetchedAt = time.Time{}
}

// jwkToRSAPublicKey converts a JWK document entry to an RSA public key
func jwkToRSAPublicKey(jwk *JWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)

	var e int
	for _, b := range eBytes {
		e = e*256 + int(b)
	}

	return &rsa.PublicKey{N: n, E: e}, nil
}
