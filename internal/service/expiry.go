package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"negotiation/internal/domain"
	"negotiation/internal/repository"
)

// ExpiryScheduler guarantees that a negotiation still PENDING at its deadline
// transitions to EXPIRED. The timer is a convenience, not the source of truth:
// expires_at lives on the record, and Rescan rebuilds timers after a restart.
// The firing races responder writes through the arbitrator, so a timer that
// loses is a no-op.
type ExpiryScheduler struct {
	mu         sync.Mutex
	timers     map[string]*time.Timer
	arbitrator *Arbitrator
	repo       repository.NegotiationRepository
	stopped    bool
}

// NewExpiryScheduler creates a new ExpiryScheduler.
func NewExpiryScheduler(arbitrator *Arbitrator, repo repository.NegotiationRepository) *ExpiryScheduler {
	return &ExpiryScheduler{
		timers:     make(map[string]*time.Timer),
		arbitrator: arbitrator,
		repo:       repo,
	}
}

// Arm schedules the expiration attempt for a negotiation. A deadline already
// in the past fires immediately.
func (s *ExpiryScheduler) Arm(negotiationID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if existing, ok := s.timers[negotiationID]; ok {
		existing.Stop()
	}

	delay := time.Until(expiresAt)
	if delay < 0 {
		delay = 0
	}

	s.timers[negotiationID] = time.AfterFunc(delay, func() {
		s.fire(negotiationID)
	})
}

// Cancel stops the timer for a negotiation that resolved before its deadline.
// Cancelling an unknown ID is a no-op.
func (s *ExpiryScheduler) Cancel(negotiationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[negotiationID]; ok {
		timer.Stop()
		delete(s.timers, negotiationID)
	}
}

// Rescan re-arms timers for every PENDING record from its stored deadline.
// Called once at process start so in-flight negotiations survive restarts.
func (s *ExpiryScheduler) Rescan(ctx context.Context) error {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return err
	}

	for _, n := range pending {
		s.Arm(n.ID, n.ExpiresAt)
	}

	if len(pending) > 0 {
		log.Printf("expiry scheduler: re-armed %d pending negotiation(s)", len(pending))
	}

	return nil
}

// Stop cancels all timers. Used on shutdown; records keep their expires_at
// and the next process picks them up via Rescan.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// expiryRetryDelay is how long fire waits before retrying after a store error.
const expiryRetryDelay = time.Second

// fire attempts the PENDING -> EXPIRED transition through the arbitrator.
// A store error re-arms the timer: the deadline guarantee must survive a
// transient outage, not just a restart.
func (s *ExpiryScheduler) fire(negotiationID string) {
	outcome, err := s.arbitrator.Arbitrate(context.Background(), negotiationID, Transition{
		To: domain.NegotiationStatusExpired,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.Cancel(negotiationID)
			return
		}
		log.Printf("expiry scheduler: expire %s failed: %v, retrying in %s", negotiationID, err, expiryRetryDelay)
		s.Arm(negotiationID, time.Now().Add(expiryRetryDelay))
		return
	}

	s.Cancel(negotiationID)

	if outcome.Applied {
		log.Printf("expiry scheduler: negotiation %s expired", negotiationID)
	}
}
