package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist reads token revocations from Redis. The auth service writes
// jwt:blacklist:<token> on logout with a TTL matching the token expiry.
// A nil client or nil receiver revokes nothing.
type TokenBlacklist struct {
	rc *redis.Client
}

// NewTokenBlacklist wraps rc, which may be nil.
func NewTokenBlacklist(rc *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rc: rc}
}

// Revoke blacklists token until expiresAt. The auth service owns logout;
// this exists for operator tooling and tests.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if b == nil || b.rc == nil {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return b.rc.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
}

// IsRevoked reports whether token was revoked before its natural expiry.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) bool {
	if b == nil || b.rc == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := b.rc.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		// fail open so a Redis outage does not lock every user out
		Sugar.Warnf("token blacklist lookup failed: %v", err)
		return false
	}
	return n > 0
}
