package service

import "errors"

var (
	// ErrInvalidTripAttributes is returned when trip attributes are malformed.
	ErrInvalidTripAttributes = errors.New("invalid trip attributes")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidInitiatorID is returned when initiator ID is empty.
	ErrInvalidInitiatorID = errors.New("invalid initiator id")

	// ErrInvalidResponderID is returned when responder ID is empty.
	ErrInvalidResponderID = errors.New("invalid responder id")

	// ErrInvalidNegotiationID is returned when negotiation ID is empty.
	ErrInvalidNegotiationID = errors.New("invalid negotiation id")

	// ErrInvalidDecision is returned when the responder decision is unknown.
	ErrInvalidDecision = errors.New("invalid responder decision")

	// ErrOfferOutOfBounds is returned when the proposed amount is outside the
	// allowed band around the reference fare.
	ErrOfferOutOfBounds = errors.New("offer out of bounds")

	// ErrInvalidCounterAmount is returned when a counter amount is not above
	// the offer or exceeds the counter ceiling.
	ErrInvalidCounterAmount = errors.New("invalid counter amount")

	// ErrActiveNegotiationExists is returned when a trip already has a
	// pending negotiation.
	ErrActiveNegotiationExists = errors.New("trip already has an active negotiation")

	// ErrNegotiationNotPending is returned when an action requires a pending
	// negotiation but the record has already resolved.
	ErrNegotiationNotPending = errors.New("negotiation is not pending")

	// ErrWrongState is returned when an action is illegal in the record's
	// current state.
	ErrWrongState = errors.New("negotiation in wrong state for this action")

	// ErrWrongInitiator is returned when a counter-round action comes from
	// someone other than the negotiation's initiator.
	ErrWrongInitiator = errors.New("caller is not the negotiation initiator")
)
