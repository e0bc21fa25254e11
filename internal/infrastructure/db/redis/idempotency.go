package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rpg-librarium/liberation/internal/core/ports"
)

const (
	idempotencyTTL = 24 * time.Hour
	// pendingTTL bounds how long a crashed request can hold a key.
	pendingTTL = time.Minute
	// reserveAttempts covers a claim expiring between SETNX and GET.
	reserveAttempts = 3
)

// IdempotencyStore keeps replayable responses backed by Redis.
// Key format: idem:<scope>:<key>
type IdempotencyStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotencyStore creates an IdempotencyStore wrapping the given Redis client.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: idempotencyTTL, pendingTTL: pendingTTL}
}

// Reserve claims key with SETNX. When the key is taken the current entry is
// returned instead.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key, fingerprint string) (*ports.StoredResponse, error) {
	raw, err := json.Marshal(ports.StoredResponse{Pending: true, Fingerprint: fingerprint})
	if err != nil {
		return nil, fmt.Errorf("idempotency encode: %w", err)
	}
	k := s.key(scope, key)

	for attempt := 0; attempt < reserveAttempts; attempt++ {
		claimed, err := s.client.SetNX(ctx, k, raw, s.pendingTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("idempotency reserve: %w", err)
		}
		if claimed {
			return nil, nil
		}

		existing, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		var resp ports.StoredResponse
		if err := json.Unmarshal(existing, &resp); err != nil {
			return nil, fmt.Errorf("idempotency decode: %w", err)
		}
		return &resp, nil
	}
	return nil, fmt.Errorf("idempotency reserve: key %q kept expiring", k)
}

// Complete stores resp for key (expires after 24h), replacing the pending
// claim.
func (s *IdempotencyStore) Complete(ctx context.Context, scope, key string, resp ports.StoredResponse) error {
	resp.Pending = false
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key(scope, key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency save: %w", err)
	}
	return nil
}

// Release deletes the claim on key.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, s.key(scope, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)
