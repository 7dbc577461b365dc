package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"negotiation/internal/domain"
	"negotiation/internal/provider"
)

const (
	tripAttrsPrefix = "attrs:trip:"

	// TripAttrsTTL bounds how long published trip facts are considered fresh.
	TripAttrsTTL = 15 * time.Minute
)

// cachedTripAttributes is the wire form the booking app publishes per trip.
type cachedTripAttributes struct {
	TripID          string  `json:"trip_id"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
	Tier            string  `json:"tier"`
	Shared          bool    `json:"shared"`
	PickupLat       float64 `json:"pickup_lat"`
	PickupLng       float64 `json:"pickup_lng"`
	DropLat         float64 `json:"drop_lat"`
	DropLng         float64 `json:"drop_lng"`
}

// TripAttributesStore reads trip facts published to Redis by the booking
// application. A missing or unparsable entry is an upstream failure, not a
// default: openNegotiation must fail closed.
type TripAttributesStore struct {
	client *redis.Client
}

// NewTripAttributesStore creates a new TripAttributesStore.
func NewTripAttributesStore(client *redis.Client) *TripAttributesStore {
	return &TripAttributesStore{client: client}
}

// GetTripAttributes retrieves the published attributes for a trip.
func (s *TripAttributesStore) GetTripAttributes(ctx context.Context, tripID string) (*domain.TripAttributes, error) {
	key := tripAttrsPrefix + tripID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, provider.ErrUpstreamUnavailable
		}
		return nil, err
	}

	var cached cachedTripAttributes
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, provider.ErrUpstreamUnavailable
	}

	return &domain.TripAttributes{
		TripID:          cached.TripID,
		DistanceKm:      cached.DistanceKm,
		DurationMinutes: cached.DurationMinutes,
		Tier:            domain.ServiceTier(cached.Tier),
		Shared:          cached.Shared,
		PickupLat:       cached.PickupLat,
		PickupLng:       cached.PickupLng,
		DropLat:         cached.DropLat,
		DropLng:         cached.DropLng,
	}, nil
}

// SetTripAttributes publishes attributes for a trip (used by the booking app
// side and by integration seeding).
func (s *TripAttributesStore) SetTripAttributes(ctx context.Context, attrs *domain.TripAttributes) error {
	cached := cachedTripAttributes{
		TripID:          attrs.TripID,
		DistanceKm:      attrs.DistanceKm,
		DurationMinutes: attrs.DurationMinutes,
		Tier:            string(attrs.Tier),
		Shared:          attrs.Shared,
		PickupLat:       attrs.PickupLat,
		PickupLng:       attrs.PickupLng,
		DropLat:         attrs.DropLat,
		DropLng:         attrs.DropLng,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tripAttrsPrefix+attrs.TripID, data, TripAttrsTTL).Err()
}
