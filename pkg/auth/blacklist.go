package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/propdesk/leadadmin/pkg/cache"
)

// Blacklist holds revoked tokens in Redis until they would have expired
// anyway. Tokens are stored hashed, never verbatim.
type Blacklist struct {
	cache *cache.Client
}

// NewBlacklist creates a Blacklist backed by the shared Redis client.
func NewBlacklist(c *cache.Client) *Blacklist {
	return &Blacklist{cache: c}
}

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:revoked:" + hex.EncodeToString(sum[:])
}

// Revoke marks a token revoked for the remainder of its lifetime.
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return b.cache.Set(ctx, blacklistKey(token), "1", ttl)
}

// IsRevoked reports whether a token has been revoked.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	return b.cache.Exists(ctx, blacklistKey(token))
}
