package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Revoker remembers tokens that were logged out before they expired.
type Revoker interface {
	Revoke(ctx context.Context, token string, until time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type RedisRevoker struct {
	client *redis.Client
}

func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

// Revoke blacklists token until its expiry. Already expired tokens are ignored.
func (r *RedisRevoker) Revoke(ctx context.Context, token string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, blacklistKey(token), 1, ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := r.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// NoopRevoker is used when no redis is configured; logout then only clears
// the cookie.
type NoopRevoker struct{}

func (NoopRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (NoopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }
