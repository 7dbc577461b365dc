package service

import (
	"context"
	"time"

	"negotiation/internal/domain"
	"negotiation/internal/repository"
)

// Transition is an attempted write against a PENDING negotiation.
type Transition struct {
	To            domain.NegotiationStatus
	ResponderID   string
	CounterAmount float64
}

// Outcome is the result of arbitration. Exactly one caller per negotiation
// observes Applied == true; every other concurrent caller (including the
// expiration timer) gets Applied == false with the record that actually won.
type Outcome struct {
	Applied bool
	Record  *domain.Negotiation
}

// Arbitrator serializes all attempts to resolve a single pending negotiation:
// concurrent responder decisions plus the expiration firing. The winner is
// decided by the store's compare-and-swap, so the guarantee holds across
// processes, not just within one.
type Arbitrator struct {
	repo repository.NegotiationRepository
}

// NewArbitrator creates a new Arbitrator.
func NewArbitrator(repo repository.NegotiationRepository) *Arbitrator {
	return &Arbitrator{repo: repo}
}

// Arbitrate attempts the transition and reports whether this caller's write
// took effect. Losing the race is a normal outcome, not an error.
func (a *Arbitrator) Arbitrate(ctx context.Context, negotiationID string, t Transition) (*Outcome, error) {
	applied, err := a.repo.ResolvePending(ctx, negotiationID, repository.Resolution{
		Status:        t.To,
		ResponderID:   t.ResponderID,
		CounterAmount: t.CounterAmount,
		ResolvedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}

	// Read back the record either way: the winner's view after the write,
	// or the actual resolution the loser must report.
	record, err := a.repo.GetByID(ctx, negotiationID)
	if err != nil {
		return nil, err
	}

	return &Outcome{Applied: applied, Record: record}, nil
}
