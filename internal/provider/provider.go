package provider

import (
	"context"
	"errors"

	"negotiation/internal/domain"
)

var (
	// ErrUpstreamUnavailable is returned when a fact provider cannot supply
	// a value. Callers must fail closed rather than price with stale data.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
)

// TripAttributesProvider supplies the trip facts needed to compute a
// reference fare. Implemented outside this core; treated as a synchronous
// fact lookup.
type TripAttributesProvider interface {
	GetTripAttributes(ctx context.Context, tripID string) (*domain.TripAttributes, error)
}

// ConditionsProvider supplies the current environmental condition tag for a
// location.
type ConditionsProvider interface {
	GetCondition(ctx context.Context, lat, lng float64) (domain.ConditionTag, error)
}
