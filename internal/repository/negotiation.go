package repository

import (
	"context"
	"time"

	"negotiation/internal/domain"
)

// Resolution describes the terminal (or COUNTERED) write attempted against a
// PENDING negotiation. ResponderID and CounterAmount are optional; zero values
// leave the stored columns untouched.
type Resolution struct {
	Status        domain.NegotiationStatus
	ResponderID   string
	CounterAmount float64
	ResolvedAt    time.Time
}

// NegotiationRepository defines the persistence operations for negotiations.
type NegotiationRepository interface {
	// Create persists a new negotiation record.
	Create(ctx context.Context, n *domain.Negotiation) error

	// GetByID retrieves a negotiation by ID.
	GetByID(ctx context.Context, id string) (*domain.Negotiation, error)

	// ListByTrip retrieves all negotiations for a trip in creation order.
	ListByTrip(ctx context.Context, tripID string) ([]*domain.Negotiation, error)

	// GetPendingByTrip retrieves the PENDING negotiation for a trip, if any.
	// Returns ErrNotFound when no record for the trip is pending.
	GetPendingByTrip(ctx context.Context, tripID string) (*domain.Negotiation, error)

	// ListPending retrieves every PENDING negotiation (used to re-arm
	// expiration timers after a restart).
	ListPending(ctx context.Context) ([]*domain.Negotiation, error)

	// ResolvePending applies the resolution if and only if the record is
	// still PENDING, as one atomic step. Returns true when this call
	// performed the write, false when another writer got there first.
	ResolvePending(ctx context.Context, id string, res Resolution) (bool, error)
}
