package tests

import (
	"context"
	"testing"
	"time"

	"negotiation/internal/domain"
	"negotiation/internal/provider"
	"negotiation/internal/service"
)

// negotiationFixture bundles the service under test with its mocks.
type negotiationFixture struct {
	service    *service.NegotiationService
	repo       *MockNegotiationRepository
	attrs      *MockTripAttributesProvider
	conditions *MockConditionsProvider
	lock       *MockTripLockStore
	arbitrator *service.Arbitrator
	expiry     *service.ExpiryScheduler
	policy     service.NegotiationPolicy
}

func newNegotiationFixture(policy service.NegotiationPolicy) *negotiationFixture {
	repo := NewMockNegotiationRepository()
	attrs := NewMockTripAttributesProvider()
	conditions := NewMockConditionsProvider(domain.ConditionClear)
	lock := NewMockTripLockStore()
	arbitrator := service.NewArbitrator(repo)
	expiry := service.NewExpiryScheduler(arbitrator, repo)

	svc := service.NewNegotiationService(
		repo,
		service.NewPricingService(service.DefaultPricingConfig()),
		arbitrator,
		expiry,
		attrs,
		conditions,
		lock,
		service.NewNotificationService(),
		policy,
	)

	return &negotiationFixture{
		service:    svc,
		repo:       repo,
		attrs:      attrs,
		conditions: conditions,
		lock:       lock,
		arbitrator: arbitrator,
		expiry:     expiry,
		policy:     policy,
	}
}

// addStandardTrip registers the standard fixture trip; its reference fare
// under the default pricing policy is 22.33.
func (f *negotiationFixture) addStandardTrip(tripID string) {
	f.attrs.AddTrip(&domain.TripAttributes{
		TripID:          tripID,
		DistanceKm:      10,
		DurationMinutes: 20,
		Tier:            domain.TierStandard,
		PickupLat:       25.0330,
		PickupLng:       121.5654,
	})
}

func TestOpenNegotiation(t *testing.T) {
	t.Parallel()

	f := newNegotiationFixture(service.DefaultNegotiationPolicy())
	defer f.expiry.Stop()
	f.addStandardTrip("trip-1")

	before := time.Now()
	record, err := f.service.Open(context.Background(), service.OpenRequest{
		TripID:         "trip-1",
		InitiatorID:    "rider-1",
		ProposedAmount: 20.00,
		CandidateIDs:   []string{"driver-1", "driver-2"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if record.ID == "" {
		t.Error("expected a generated negotiation ID")
	}
	if record.Status != domain.NegotiationStatusPending {
		t.Errorf("expected status PENDING, got %s", record.Status)
	}
	if record.Round != domain.RoundInitialOffer {
		t.Errorf("expected round 1, got %d", record.Round)
	}
	if record.ReferenceFare != 22.33 {
		t.Errorf("expected reference fare 22.33, got %v", record.ReferenceFare)
	}
	if record.ExpiresAt.Before(before.Add(f.policy.OfferTTL)) {
		t.Errorf("expected deadline at least %v out, got %v", f.policy.OfferTTL, record.ExpiresAt)
	}
	if count := f.repo.CountNegotiations(); count != 1 {
		t.Errorf("expected 1 stored record, got %d", count)
	}
	if f.lock.ReleaseCallCount != 1 {
		t.Errorf("expected trip lock released once, got %d", f.lock.ReleaseCallCount)
	}
}

func TestOpenNegotiation_OfferBounds(t *testing.T) {
	t.Parallel()

	// Reference fare for the fixture trip is 22.33; the admissible band is
	// [11.165, 22.33].
	tests := []struct {
		name     string
		proposed float64
		wantErr  error
	}{
		{"at the floor", 11.17, nil},
		{"mid band", 18.00, nil},
		{"at the reference fare", 22.33, nil},
		{"below the floor", 11.16, service.ErrOfferOutOfBounds},
		{"above the reference fare", 22.34, service.ErrOfferOutOfBounds},
		{"zero", 0, service.ErrOfferOutOfBounds},
		{"negative", -5, service.ErrOfferOutOfBounds},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newNegotiationFixture(service.DefaultNegotiationPolicy())
			defer f.expiry.Stop()
			f.addStandardTrip("trip-1")

			_, err := f.service.Open(context.Background(), service.OpenRequest{
				TripID:         "trip-1",
				InitiatorID:    "rider-1",
				ProposedAmount: tt.proposed,
			})
			if err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOpenNegotiation_SinglePendingPerTrip(t *testing.T) {
	t.Parallel()

	f := newNegotiationFixture(service.DefaultNegotiationPolicy())
	defer f.expiry.Stop()
	f.addStandardTrip("trip-1")

	first, err := f.service.Open(context.Background(), service.OpenRequest{
		TripID:         "trip-1",
		InitiatorID:    "rider-1",
		ProposedAmount: 20.00,
	})
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}

	_, err = f.service.Open(context.Background(), service.OpenRequest{
		TripID:         "trip-1",
		InitiatorID:    "rider-2",
		ProposedAmount: 18.00,
	})
	if err != service.ErrActiveNegotiationExists {
		t.Fatalf("expected ErrActiveNegotiationExists, got %v", err)
	}

	// Once the pending offer resolves, the trip is open for a new chain.
	if _, err := f.service.Respond(context.Background(), service.RespondRequest{
		NegotiationID: first.ID,
		ResponderID:   "driver-1",
		Decision:      domain.DecisionReject,
	}); err != nil {
		t.Fatalf("respond failed: %v", err)
	}

	second, err := f.service.Open(context.Background(), service.OpenRequest{
		TripID:         "trip-1",
		InitiatorID:    "rider-1",
		ProposedAmount: 21.00,
	})
	if err != nil {
		t.Fatalf("open after resolution failed: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected a new negotiation record")
	}
}

func TestOpenNegotiation_TripLockHeld(t *testing.T) {
	t.Parallel()

	f := newNegotiationFixture(service.DefaultNegotiationPolicy())
	defer f.expiry.Stop()
	f.addStandardTrip("trip-1")
	f.lock.ForceAcquireFailure = true

	_, err := f.service.Open(context.Background(), service.OpenRequest{
		TripID:         "trip-1",
		InitiatorID:    "rider-1",
		ProposedAmount: 20.00,
	})
	if err != service.ErrActiveNegotiationExists {
		t.Fatalf("expected ErrActiveNegotiationExists, got %v", err)
	}
	if count := f.repo.CountNegotiations(); count != 0 {
		t.Errorf("expected no stored record, got %d", count)
	}
}

func TestOpenNegotiation_UpstreamFailsClosed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(f *negotiationFixture)
	}{
		{
			"trip attributes unavailable",
			func(f *negotiationFixture) { f.attrs.GetError = provider.ErrUpstreamUnavailable },
		},
		{
			"conditions unavailable",
			func(f *negotiationFixture) { f.conditions.GetError = provider.ErrUpstreamUnavailable },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newNegotiationFixture(service.DefaultNegotiationPolicy())
			defer f.expiry.Stop()
			f.addStandardTrip("trip-1")
			tt.setup(f)

			_, err := f.service.Open(context.Background(), service.OpenRequest{
				TripID:         "trip-1",
				InitiatorID:    "rider-1",
				ProposedAmount: 20.00,
			})
			if err != provider.ErrUpstreamUnavailable {
				t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
			}

			// Fail closed: nothing persisted, nothing armed.
			if count := f.repo.CountNegotiations(); count != 0 {
				t.Errorf("expected no stored record, got %d", count)
			}
			if f.repo.CreateCallCount != 0 {
				t.Errorf("expected no create call, got %d", f.repo.CreateCallCount)
			}
		})
	}
}

func TestOpenNegotiation_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     service.OpenRequest
		wantErr error
	}{
		{"missing trip ID", service.OpenRequest{InitiatorID: "rider-1", ProposedAmount: 20}, service.ErrInvalidTripID},
		{"missing initiator ID", service.OpenRequest{TripID: "trip-1", ProposedAmount: 20}, service.ErrInvalidInitiatorID},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newNegotiationFixture(service.DefaultNegotiationPolicy())
			defer f.expiry.Stop()

			_, err := f.service.Open(context.Background(), tt.req)
			if err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetAndListByTrip(t *testing.T) {
	t.Parallel()

	f := newNegotiationFixture(service.DefaultNegotiationPolicy())
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

	got, err := f.service.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ID != record.ID {
		t.Errorf("expected record %s, got %s", record.ID, got.ID)
	}

	history, err := f.service.ListByTrip(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(history) != 1 || history[0].ID != record.ID {
		t.Errorf("expected history of 1 record %s, got %v", record.ID, history)
	}
}

func TestQuoteFare(t *testing.T) {
	t.Parallel()

	f := newNegotiationFixture(service.DefaultNegotiationPolicy())
	defer f.expiry.Stop()
	f.addStandardTrip("trip-1")

	quote, err := f.service.QuoteFare(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	if quote.ReferenceFare != 22.33 {
		t.Errorf("expected reference fare 22.33, got %v", quote.ReferenceFare)
	}
	if quote.OfferFloor != 11.17 {
		t.Errorf("expected offer floor 11.17, got %v", quote.OfferFloor)
	}
	if quote.OfferCeiling != 22.33 {
		t.Errorf("expected offer ceiling 22.33, got %v", quote.OfferCeiling)
	}
	if quote.Condition != domain.ConditionClear {
		t.Errorf("expected condition CLEAR, got %s", quote.Condition)
	}

	// Quoting opens nothing.
	if count := f.repo.CountNegotiations(); count != 0 {
		t.Errorf("expected no stored record, got %d", count)
	}
}
