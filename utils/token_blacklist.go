package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

const revokedTokenPrefix = "blog:revoked:"

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.Mutex
)

// revokedKey stores a digest instead of the bearer token itself.
func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedTokenPrefix + hex.EncodeToString(sum[:])
}

// BlacklistToken revokes a token until it would have expired anyway.
// Redis is used when configured so revocations survive restarts.
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	key := revokedKey(token)

	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, key, "1", ttl).Err(); err != nil {
			Sugar.Warnw("revoke token in redis failed", "err", err)
		}
		return
	}

	revokedMu.Lock()
	defer revokedMu.Unlock()
	now := time.Now()
	for k, exp := range revoked {
		if now.After(exp) {
			delete(revoked, k)
		}
	}
	revoked[key] = expiresAt
}

// IsTokenBlacklisted reports whether the token was revoked by a logout or account deletion.
func IsTokenBlacklisted(token string) bool {
	key := revokedKey(token)

	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, key).Result()
		if err != nil {
			// fail open; the token signature and expiry are still checked
			Sugar.Warnw("revoked token lookup failed", "err", err)
			return false
		}
		return n > 0
	}

	revokedMu.Lock()
	defer revokedMu.Unlock()
	exp, ok := revoked[key]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(revoked, key)
		return false
	}
	return true
}
