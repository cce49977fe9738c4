package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/marketplace/internal/core/domain"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyGuard remembers client-supplied idempotency keys so a retried
// request is not applied twice.
// Key format: idem:<scope>:<caller>:<key>
type IdempotencyGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyGuard creates an IdempotencyGuard wrapping the given Redis client.
func NewIdempotencyGuard(client *redis.Client) *IdempotencyGuard {
	return &IdempotencyGuard{client: client, ttl: idempotencyTTL}
}

// Claim reserves key for caller. It reports false when the key was already
// claimed within the TTL.
func (g *IdempotencyGuard) Claim(ctx context.Context, scope string, caller domain.Principal, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, idempotencyKey(scope, caller, key), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency claim: %w", err)
	}
	return ok, nil
}

// Release forgets a claimed key so the request may be retried, used when the
// guarded operation failed.
func (g *IdempotencyGuard) Release(ctx context.Context, scope string, caller domain.Principal, key string) error {
	return g.client.Del(ctx, idempotencyKey(scope, caller, key)).Err()
}

func idempotencyKey(scope string, caller domain.Principal, key string) string {
	return fmt.Sprintf("idem:%s:%s:%s", scope, caller.Hex(), key)
}
