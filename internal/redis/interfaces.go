package redis

import (
	"context"
	"time"

	"negotiation/internal/provider"
)

// TripLockInterface defines the interface for the per-trip negotiation-open lock.
type TripLockInterface interface {
	AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error)
	ReleaseTripLock(ctx context.Context, tripID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ TripLockInterface               = (*LockStore)(nil)
	_ provider.TripAttributesProvider = (*TripAttributesStore)(nil)
	_ provider.ConditionsProvider     = (*ConditionStore)(nil)
)
