package domain

import "time"

// NegotiationStatus represents the current status of a negotiation.
type NegotiationStatus string

const (
	NegotiationStatusPending   NegotiationStatus = "PENDING"
	NegotiationStatusAccepted  NegotiationStatus = "ACCEPTED"
	NegotiationStatusRejected  NegotiationStatus = "REJECTED"
	NegotiationStatusCountered NegotiationStatus = "COUNTERED"
	NegotiationStatusExpired   NegotiationStatus = "EXPIRED"
)

// ResponderDecision represents the action a responder takes on a pending offer.
type ResponderDecision string

const (
	DecisionAccept  ResponderDecision = "ACCEPT"
	DecisionReject  ResponderDecision = "REJECT"
	DecisionCounter ResponderDecision = "COUNTER"
)

// Negotiation rounds.
const (
	RoundInitialOffer  = 1
	RoundCounterAccept = 2
)

// Negotiation represents one round of fare negotiation for a trip.
// Round 1 is the rider's initial offer; round 2 is the rider's
// acceptance cycle for a driver's counter-offer.
type Negotiation struct {
	ID             string
	TripID         string
	InitiatorID    string
	ResponderID    string
	ProposedAmount float64
	ReferenceFare  float64
	CounterAmount  float64 // Only set when status is COUNTERED (round 1)
	Status         NegotiationStatus
	Round          int

	// CounteredNegotiationID links a round-2 record to the COUNTERED round-1
	// record it answers. Empty on round-1 records.
	CounteredNegotiationID string

	CreatedAt  time.Time
	ExpiresAt  time.Time
	ResolvedAt time.Time
}

// IsTerminal reports whether the negotiation has left PENDING for good.
func (n *Negotiation) IsTerminal() bool {
	return n.Status != NegotiationStatusPending
}
