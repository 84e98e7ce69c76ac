package stripewebhook

import (
	"context"
	"fmt"
	"time"
)

const (
	eventGuardScope = "stripe-event"

	// DefaultEventTTL bounds how long a processed event id is remembered.
	// Stripe retries for up to 72h; 96h leaves headroom.
	DefaultEventTTL = 96 * time.Hour
)

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// EventGuard suppresses duplicate webhook deliveries by event id.
type EventGuard interface {
	// CheckAndMark records the event id and reports whether it was
	// already seen.
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	// Unmark releases an event id so a redelivery is processed again.
	// Called when applying the event failed after the mark.
	Unmark(ctx context.Context, eventID string) error
}

type redisGuard struct {
	store idempotencyStore
	ttl   time.Duration
}

// NewRedisGuard builds the Redis-backed event guard.
func NewRedisGuard(store idempotencyStore, ttl time.Duration) (EventGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("idempotency store is required")
	}
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &redisGuard{store: store, ttl: ttl}, nil
}

func (g *redisGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key := g.store.IdempotencyKey(eventGuardScope, eventID)
	stored, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("marking event id: %w", err)
	}
	return !stored, nil
}

func (g *redisGuard) Unmark(ctx context.Context, eventID string) error {
	key := g.store.IdempotencyKey(eventGuardScope, eventID)
	if err := g.store.Del(ctx, key); err != nil {
		return fmt.Errorf("releasing event id: %w", err)
	}
	return nil
}
