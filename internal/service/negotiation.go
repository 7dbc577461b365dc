package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"negotiation/internal/domain"
	"negotiation/internal/provider"
	"negotiation/internal/redis"
	"negotiation/internal/repository"
)

const tripLockTTL = 5 * time.Second // Lock trip while opening a negotiation

// NegotiationPolicy holds the negotiation policy knobs.
type NegotiationPolicy struct {
	OfferTTL       time.Duration // Round-1 offer lifetime
	CounterTTL     time.Duration // Round-2 counter-accept lifetime
	FloorFraction  float64       // Minimum offer as fraction of reference fare
	CounterCeiling float64       // Maximum counter as fraction of reference fare
}

// DefaultNegotiationPolicy returns the default negotiation policy.
func DefaultNegotiationPolicy() NegotiationPolicy {
	return NegotiationPolicy{
		OfferTTL:       30 * time.Minute,
		CounterTTL:     10 * time.Minute,
		FloorFraction:  0.5,
		CounterCeiling: 1.5,
	}
}

// NegotiationService governs the fare negotiation lifecycle: a rider opens an
// offer against the reference fare, drivers race to accept/reject/counter it
// before the deadline, and a countered offer gets a second, narrower round for
// the rider's decision.
type NegotiationService struct {
	repo                repository.NegotiationRepository
	pricingService      *PricingService
	arbitrator          *Arbitrator
	expiry              *ExpiryScheduler
	attrsProvider       provider.TripAttributesProvider
	conditionsProvider  provider.ConditionsProvider
	lockStore           redis.TripLockInterface
	notificationService *NotificationService
	policy              NegotiationPolicy
}

// NewNegotiationService creates a new NegotiationService.
func NewNegotiationService(
	repo repository.NegotiationRepository,
	pricingService *PricingService,
	arbitrator *Arbitrator,
	expiry *ExpiryScheduler,
	attrsProvider provider.TripAttributesProvider,
	conditionsProvider provider.ConditionsProvider,
	lockStore redis.TripLockInterface,
	notificationService *NotificationService,
	policy NegotiationPolicy,
) *NegotiationService {
	return &NegotiationService{
		repo:                repo,
		pricingService:      pricingService,
		arbitrator:          arbitrator,
		expiry:              expiry,
		attrsProvider:       attrsProvider,
		conditionsProvider:  conditionsProvider,
		lockStore:           lockStore,
		notificationService: notificationService,
		policy:              policy,
	}
}

// OpenRequest contains the parameters for opening a negotiation.
type OpenRequest struct {
	TripID         string
	InitiatorID    string
	ProposedAmount float64
	CandidateIDs   []string // Responders to broadcast the offer to (optional)
}

// Open prices the trip, validates the rider's offer against the reference
// fare, and creates a PENDING round-1 negotiation with its expiration armed.
// Provider failures fail closed: no record is created.
func (s *NegotiationService) Open(ctx context.Context, req OpenRequest) (*domain.Negotiation, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.InitiatorID == "" {
		return nil, ErrInvalidInitiatorID
	}
	if req.ProposedAmount <= 0 {
		return nil, ErrOfferOutOfBounds
	}

	// Both fact lookups happen before anything is persisted.
	attrs, err := s.attrsProvider.GetTripAttributes(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	condition, err := s.conditionsProvider.GetCondition(ctx, attrs.PickupLat, attrs.PickupLng)
	if err != nil {
		return nil, err
	}
	attrs.Condition = condition

	referenceFare, err := s.pricingService.ComputeReferenceFare(attrs)
	if err != nil {
		return nil, err
	}

	if req.ProposedAmount < s.policy.FloorFraction*referenceFare || req.ProposedAmount > referenceFare {
		return nil, ErrOfferOutOfBounds
	}

	// Serialize concurrent opens for the same trip across instances.
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireTripLock(ctx, req.TripID, tripLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrActiveNegotiationExists
		}
		defer func() { _ = s.lockStore.ReleaseTripLock(ctx, req.TripID) }()
	}

	// One active negotiation chain per trip at a time.
	if _, err := s.repo.GetPendingByTrip(ctx, req.TripID); err == nil {
		return nil, ErrActiveNegotiationExists
	} else if err != repository.ErrNotFound {
		return nil, err
	}

	now := time.Now()
	record := &domain.Negotiation{
		ID:             uuid.New().String(),
		TripID:         req.TripID,
		InitiatorID:    req.InitiatorID,
		ProposedAmount: req.ProposedAmount,
		ReferenceFare:  referenceFare,
		Status:         domain.NegotiationStatusPending,
		Round:          domain.RoundInitialOffer,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.policy.OfferTTL),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.expiry.Arm(record.ID, record.ExpiresAt)

	if s.notificationService != nil && len(req.CandidateIDs) > 0 {
		_ = s.notificationService.BroadcastOffer(ctx, record, req.CandidateIDs)
	}

	return record, nil
}

// RespondRequest contains a responder's decision on a pending offer.
type RespondRequest struct {
	NegotiationID string
	ResponderID   string
	Decision      domain.ResponderDecision
	CounterAmount float64
}

// Respond applies a responder's decision through the arbitrator. Losing the
// race to another responder (or the expiration timer) returns an
// already-resolved outcome carrying the actual winner, never an error.
func (s *NegotiationService) Respond(ctx context.Context, req RespondRequest) (*Outcome, error) {
	if req.NegotiationID == "" {
		return nil, ErrInvalidNegotiationID
	}
	if req.ResponderID == "" {
		return nil, ErrInvalidResponderID
	}

	record, err := s.repo.GetByID(ctx, req.NegotiationID)
	if err != nil {
		return nil, err
	}

	// Drivers act on round-1 offers only; round 2 belongs to the initiator.
	if record.Round != domain.RoundInitialOffer {
		return nil, ErrWrongState
	}

	var to domain.NegotiationStatus
	switch req.Decision {
	case domain.DecisionAccept:
		to = domain.NegotiationStatusAccepted
	case domain.DecisionReject:
		to = domain.NegotiationStatusRejected
	case domain.DecisionCounter:
		to = domain.NegotiationStatusCountered
		if req.CounterAmount <= record.ProposedAmount ||
			req.CounterAmount > record.ReferenceFare*s.policy.CounterCeiling {
			return nil, ErrInvalidCounterAmount
		}
	default:
		return nil, ErrInvalidDecision
	}

	outcome, err := s.arbitrator.Arbitrate(ctx, req.NegotiationID, Transition{
		To:            to,
		ResponderID:   req.ResponderID,
		CounterAmount: req.CounterAmount,
	})
	if err != nil {
		return nil, err
	}

	if !outcome.Applied {
		return outcome, nil
	}

	s.expiry.Cancel(req.NegotiationID)

	// A counter opens the second round: the rider now holds a pending
	// decision on the driver's amount, under the shorter TTL.
	if to == domain.NegotiationStatusCountered {
		if err := s.openCounterRound(ctx, outcome.Record); err != nil {
			return nil, err
		}
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyResolved(ctx, outcome.Record)
	}

	return outcome, nil
}

// openCounterRound creates the round-2 PENDING record for a countered offer.
func (s *NegotiationService) openCounterRound(ctx context.Context, countered *domain.Negotiation) error {
	now := time.Now()
	record := &domain.Negotiation{
		ID:                     uuid.New().String(),
		TripID:                 countered.TripID,
		InitiatorID:            countered.InitiatorID,
		ResponderID:            countered.ResponderID,
		ProposedAmount:         countered.CounterAmount,
		ReferenceFare:          countered.ReferenceFare,
		Status:                 domain.NegotiationStatusPending,
		Round:                  domain.RoundCounterAccept,
		CounteredNegotiationID: countered.ID,
		CreatedAt:              now,
		ExpiresAt:              now.Add(s.policy.CounterTTL),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return err
	}

	s.expiry.Arm(record.ID, record.ExpiresAt)
	return nil
}

// AcceptCounter resolves the round-2 record to ACCEPTED on behalf of the
// initiator. Idempotent: accepting an already-accepted counter returns the
// same terminal record, tolerating at-least-once delivery.
func (s *NegotiationService) AcceptCounter(ctx context.Context, negotiationID, initiatorID string) (*domain.Negotiation, error) {
	return s.resolveCounterRound(ctx, negotiationID, initiatorID, domain.NegotiationStatusAccepted)
}

// DeclineCounter resolves the round-2 record to REJECTED on behalf of the
// initiator. Idempotent in the same way as AcceptCounter.
func (s *NegotiationService) DeclineCounter(ctx context.Context, negotiationID, initiatorID string) (*domain.Negotiation, error) {
	return s.resolveCounterRound(ctx, negotiationID, initiatorID, domain.NegotiationStatusRejected)
}

func (s *NegotiationService) resolveCounterRound(ctx context.Context, negotiationID, initiatorID string, to domain.NegotiationStatus) (*domain.Negotiation, error) {
	if negotiationID == "" {
		return nil, ErrInvalidNegotiationID
	}
	if initiatorID == "" {
		return nil, ErrInvalidInitiatorID
	}

	target, err := s.counterRoundTarget(ctx, negotiationID)
	if err != nil {
		return nil, err
	}

	if target.InitiatorID != initiatorID {
		return nil, ErrWrongInitiator
	}

	switch target.Status {
	case domain.NegotiationStatusPending:
		// Fall through to arbitration below.
	case to:
		return target, nil // Repeat delivery of the same decision.
	default:
		return nil, ErrWrongState
	}

	outcome, err := s.arbitrator.Arbitrate(ctx, target.ID, Transition{To: to})
	if err != nil {
		return nil, err
	}

	if outcome.Applied {
		s.expiry.Cancel(target.ID)
		if s.notificationService != nil {
			_ = s.notificationService.NotifyResolved(ctx, outcome.Record)
		}
		return outcome.Record, nil
	}

	// Lost the race; tolerate only the case where the winner wrote the
	// very decision this caller asked for.
	if outcome.Record.Status == to {
		return outcome.Record, nil
	}
	return nil, ErrWrongState
}

// counterRoundTarget resolves the record AcceptCounter/DeclineCounter should
// act on. Callers may pass either the round-2 ID or the countered round-1 ID;
// the latter is forwarded to its round-2 record.
func (s *NegotiationService) counterRoundTarget(ctx context.Context, negotiationID string) (*domain.Negotiation, error) {
	record, err := s.repo.GetByID(ctx, negotiationID)
	if err != nil {
		return nil, err
	}

	if record.Round == domain.RoundCounterAccept {
		return record, nil
	}

	if record.Status != domain.NegotiationStatusCountered {
		return nil, ErrWrongState
	}

	history, err := s.repo.ListByTrip(ctx, record.TripID)
	if err != nil {
		return nil, err
	}

	// Follow the parent link so a stale round-1 ID can never resolve a
	// later chain's counter on the same trip.
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Round == domain.RoundCounterAccept &&
			history[i].CounteredNegotiationID == record.ID {
			return history[i], nil
		}
	}

	return nil, ErrWrongState
}

// Get retrieves a negotiation by ID.
func (s *NegotiationService) Get(ctx context.Context, negotiationID string) (*domain.Negotiation, error) {
	if negotiationID == "" {
		return nil, ErrInvalidNegotiationID
	}

	return s.repo.GetByID(ctx, negotiationID)
}

// ListByTrip returns the negotiation history for a trip in creation order.
// Always a fresh read.
func (s *NegotiationService) ListByTrip(ctx context.Context, tripID string) ([]*domain.Negotiation, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	return s.repo.ListByTrip(ctx, tripID)
}

// FareQuote is the priced view of a trip before any negotiation.
type FareQuote struct {
	TripID        string
	ReferenceFare float64
	Condition     domain.ConditionTag
	Tier          domain.ServiceTier
	OfferFloor    float64
	OfferCeiling  float64
}

// QuoteFare computes the reference fare and the admissible offer band for a
// trip without opening a negotiation.
func (s *NegotiationService) QuoteFare(ctx context.Context, tripID string) (*FareQuote, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	attrs, err := s.attrsProvider.GetTripAttributes(ctx, tripID)
	if err != nil {
		return nil, err
	}

	condition, err := s.conditionsProvider.GetCondition(ctx, attrs.PickupLat, attrs.PickupLng)
	if err != nil {
		return nil, err
	}
	attrs.Condition = condition

	referenceFare, err := s.pricingService.ComputeReferenceFare(attrs)
	if err != nil {
		return nil, err
	}

	return &FareQuote{
		TripID:        tripID,
		ReferenceFare: referenceFare,
		Condition:     condition,
		Tier:          attrs.Tier,
		OfferFloor:    roundHalfUp(referenceFare * s.policy.FloorFraction),
		OfferCeiling:  referenceFare,
	}, nil
}
