package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"negotiation/internal/domain"
	"negotiation/internal/service"
)

// waitForStatus polls the mock repository until the record reaches the status
// or the deadline passes.
func waitForStatus(t *testing.T, repo *MockNegotiationRepository, id string, want domain.NegotiationStatus, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if record := repo.GetNegotiation(id); record != nil && record.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	last := domain.NegotiationStatus("<missing>")
	if record := repo.GetNegotiation(id); record != nil {
		last = record.Status
	}
	t.Fatalf("record %s never reached %s, last status %s", id, want, last)
}

func shortTTLPolicy() service.NegotiationPolicy {
	policy := service.DefaultNegotiationPolicy()
	policy.OfferTTL = 80 * time.Millisecond
	policy.CounterTTL = 80 * time.Millisecond
	return policy
}

func TestExpiry_PendingExpiresAtDeadline(t *testing.T) {
	t.Parallel()

	f := newNegotiationFixture(shortTTLPolicy())
	defer f.expiry.Stop()
	f.addStandardTrip("trip-1")

	record, err := f.service.Open(context.Background(), service.OpenRequest{
		TripID:         "trip-1",
		InitiatorID:    "rider-1",
		ProposedAmount: 20.00,
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// Never before the deadline.
	if stored := f.repo.GetNegotiation(record.ID); stored.Status != domain.NegotiationStatusPending {
		t.Fatalf("expected PENDING before the deadline, got %s", stored.Status)
	}

	waitForStatus(t, f.repo, record.ID, domain.NegotiationStatusExpired, 2*time.Second)

	stored := f.repo.GetNegotiation(record.ID)
	if stored.ResolvedAt.Before(record.ExpiresAt) {
		t.Errorf("expired at %v, before the deadline %v", stored.ResolvedAt, record.ExpiresAt)
	}
}

func TestExpiry_CancelledOnResolution(t *testing.T) {
	t.Parallel()

	f := newNegotiationFixture(shortTTLPolicy())
	defer f.expiry.Stop()
	f.addStandardTrip("trip-1")

	record, err := f.service.Open(context.Background(), service.OpenRequest{
		TripID:         "trip-1",
		InitiatorID:    "rider-1",
		ProposedAmount: 20.00,
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	outcome, err := f.service.Respond(context.Background(), service.RespondRequest{
		NegotiationID: record.ID,
		ResponderID:   "driver-1",
		Decision:      domain.DecisionAccept,
	})
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if !outcome.Applied {
		t.Fatal("expected the responder's write to apply")
	}

	// Outlive the timer; the accepted record must stay accepted.
	time.Sleep(200 * time.Millisecond)

	stored := f.repo.GetNegotiation(record.ID)
	if stored.Status != domain.NegotiationStatusAccepted {
		t.Errorf("expected ACCEPTED to stick, got %s", stored.Status)
	}
}

func TestExpiry_CounterRoundExpires(t *testing.T) {
	t.Parallel()

	f := newNegotiationFixture(shortTTLPolicy())
	defer f.expiry.Stop()
	f.addStandardTrip("trip-1")

	_, round2 := openCountered(t, f, 25.00)

	// The initiator never answers; the counter window closes on its own.
	waitForStatus(t, f.repo, round2.ID, domain.NegotiationStatusExpired, 2*time.Second)
}

func TestExpiry_RetriesAfterStoreError(t *testing.T) {
	t.Parallel()

	f := newNegotiationFixture(shortTTLPolicy())
	defer f.expiry.Stop()
	f.addStandardTrip("trip-1")

	record, err := f.service.Open(context.Background(), service.OpenRequest{
		TripID:         "trip-1",
		InitiatorID:    "rider-1",
		ProposedAmount: 20.00,
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// The store is down when the deadline passes.
	f.repo.SetResolveError(errors.New("connection refused"))
	time.Sleep(150 * time.Millisecond)

	if stored := f.repo.GetNegotiation(record.ID); stored.Status != domain.NegotiationStatusPending {
		t.Fatalf("expected PENDING while the store is down, got %s", stored.Status)
	}

	// Once the store recovers the scheduler must still get the record to
	// EXPIRED without a restart.
	f.repo.SetResolveError(nil)
	waitForStatus(t, f.repo, record.ID, domain.NegotiationStatusExpired, 5*time.Second)
}

func TestExpiry_RescanReArmsFromStoredDeadlines(t *testing.T) {
	t.Parallel()

	repo := NewMockNegotiationRepository()
	arbitrator := service.NewArbitrator(repo)

	now := time.Now()
	overdue := &domain.Negotiation{
		ID:             "n-overdue",
		TripID:         "trip-1",
		InitiatorID:    "rider-1",
		ProposedAmount: 20.00,
		ReferenceFare:  22.33,
		Status:         domain.NegotiationStatusPending,
		Round:          domain.RoundInitialOffer,
		CreatedAt:      now.Add(-time.Hour),
		ExpiresAt:      now.Add(-30 * time.Minute),
	}
	upcoming := &domain.Negotiation{
		ID:             "n-upcoming",
		TripID:         "trip-2",
		InitiatorID:    "rider-2",
		ProposedAmount: 18.00,
		ReferenceFare:  22.33,
		Status:         domain.NegotiationStatusPending,
		Round:          domain.RoundInitialOffer,
		CreatedAt:      now,
		ExpiresAt:      now.Add(60 * time.Millisecond),
	}
	resolved := &domain.Negotiation{
		ID:             "n-resolved",
		TripID:         "trip-3",
		InitiatorID:    "rider-3",
		ProposedAmount: 19.00,
		ReferenceFare:  22.33,
		Status:         domain.NegotiationStatusAccepted,
		Round:          domain.RoundInitialOffer,
		CreatedAt:      now.Add(-time.Hour),
		ExpiresAt:      now.Add(-30 * time.Minute),
		ResolvedAt:     now.Add(-45 * time.Minute),
	}
	repo.AddNegotiation(overdue)
	repo.AddNegotiation(upcoming)
	repo.AddNegotiation(resolved)

	// A fresh scheduler, as after a restart.
	expiry := service.NewExpiryScheduler(arbitrator, repo)
	defer expiry.Stop()

	if err := expiry.Rescan(context.Background()); err != nil {
		t.Fatalf("rescan failed: %v", err)
	}

	// The overdue record fires immediately, the upcoming one at its deadline.
	waitForStatus(t, repo, "n-overdue", domain.NegotiationStatusExpired, 2*time.Second)
	waitForStatus(t, repo, "n-upcoming", domain.NegotiationStatusExpired, 2*time.Second)

	// Already-resolved records are untouched.
	if r := repo.GetNegotiation("n-resolved"); r.Status != domain.NegotiationStatusAccepted {
		t.Errorf("expected resolved record untouched, got %s", r.Status)
	}
}

func TestExpiry_CancelUnknownIDIsNoOp(t *testing.T) {
	t.Parallel()

	repo := NewMockNegotiationRepository()
	expiry := service.NewExpiryScheduler(service.NewArbitrator(repo), repo)
	defer expiry.Stop()

	expiry.Cancel("never-armed")
}

func TestExpiry_StopPreventsFurtherArming(t *testing.T) {
	t.Parallel()

	repo := NewMockNegotiationRepository()
	expiry := service.NewExpiryScheduler(service.NewArbitrator(repo), repo)

	record := &domain.Negotiation{
		ID:        "n-after-stop",
		TripID:    "trip-1",
		Status:    domain.NegotiationStatusPending,
		Round:     domain.RoundInitialOffer,
		ExpiresAt: time.Now().Add(20 * time.Millisecond),
	}
	repo.AddNegotiation(record)

	expiry.Stop()
	expiry.Arm(record.ID, record.ExpiresAt)

	time.Sleep(100 * time.Millisecond)

	if r := repo.GetNegotiation(record.ID); r.Status != domain.NegotiationStatusPending {
		t.Errorf("expected record untouched after Stop, got %s", r.Status)
	}
}
