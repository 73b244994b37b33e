package client

import (
	"crypto/sha256"
	"net/http"
	"path/filepath"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/mr-tron/base58"
)

// newCachingTransport wraps next with an HTTP cache honouring Cache-Control headers (configuration
// and basic data are served cacheable). httpcache keys entries by URL only, so every scope (token and
// tenant pair) gets its own cache and a cached tenant response can never answer for another tenant.
func newCachingTransport(next http.RoundTripper, cacheDir, scope string) http.RoundTripper {
	var cache httpcache.Cache
	if cacheDir == "" {
		cache = httpcache.NewMemoryCache()
	} else {
		// Use disk-based cache for persistence across runs
		cache = diskcache.New(filepath.Join(cacheDir, scope))
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = next

	return transport
}

// scope names the response cache of the bound credentials.
func (c *Client) scope() string {
	if c.token == "" && c.tenantID == "" {
		return "anonymous"
	}
	return Fingerprint(c.token + "\x00" + c.tenantID)
}

// Fingerprint returns a short, stable, non-reversible identifier for a secret such as a bearer
// token (Base58-encoded SHA256, first 16 characters). Empty input yields an empty fingerprint.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(secret))
	fp := base58.Encode(hash[:])
	if len(fp) > 16 {
		fp = fp[:16]
	}
	return fp
}
