package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

func TestNoopRevoker(t *testing.T) {
	var r Revoker = NoopRevoker{}
	if err := r.Revoke(context.Background(), "tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	revoked, err := r.IsRevoked(context.Background(), "tok")
	if err != nil || revoked {
		t.Errorf("Expected token to stay valid, got revoked=%v err=%v", revoked, err)
	}
}

func TestBlacklistKey(t *testing.T) {
	if got := blacklistKey("abc"); got != "blacklist:abc" {
		t.Errorf("unexpected key %s", got)
	}
}

func TestRedisRevoker(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	r := NewRedisRevoker(client)
	token := "token-" + uuid.NewString()
	expired := "expired-" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, blacklistKey(token), blacklistKey(expired)) })

	if revoked, err := r.IsRevoked(ctx, token); err != nil || revoked {
		t.Fatalf("fresh token: revoked=%v err=%v", revoked, err)
	}

	if err := r.Revoke(ctx, token, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked, err := r.IsRevoked(ctx, token); err != nil || !revoked {
		t.Fatalf("revoked token: revoked=%v err=%v", revoked, err)
	}
	ttl, err := client.TTL(ctx, blacklistKey(token)).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("blacklist ttl = %v, err %v", ttl, err)
	}

	if err := r.Revoke(ctx, expired, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Revoke expired: %v", err)
	}
	if revoked, _ := r.IsRevoked(ctx, expired); revoked {
		t.Error("already expired token was stored")
	}
}

func TestRedisRevokerReportsLookupFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	if _, err := NewRedisRevoker(client).IsRevoked(context.Background(), "tok"); err == nil {
		t.Fatal("expected an error from an unreachable redis")
	}
}
