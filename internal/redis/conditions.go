package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"negotiation/internal/domain"
	"negotiation/internal/provider"
)

const (
	conditionStationsKey   = "conditions:stations"
	conditionStationPrefix = "conditions:station:"

	// ConditionTTL bounds how long a reported condition is considered live.
	ConditionTTL = 30 * time.Minute
)

// ConditionStore resolves the environmental condition at a location from
// geo-indexed weather stations. Stations are registered with GEOADD and each
// publishes its current condition tag under a TTL key; the nearest station
// within the search radius supplies the tag.
type ConditionStore struct {
	client   *redis.Client
	radiusKm float64
}

// NewConditionStore creates a new ConditionStore.
func NewConditionStore(client *redis.Client, radiusKm float64) *ConditionStore {
	return &ConditionStore{client: client, radiusKm: radiusKm}
}

// ReportStation registers or moves a condition station in the geo index.
func (s *ConditionStore) ReportStation(ctx context.Context, stationID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, conditionStationsKey, &redis.GeoLocation{
		Name:      stationID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// SetCondition publishes the current condition tag for a station.
func (s *ConditionStore) SetCondition(ctx context.Context, stationID string, tag domain.ConditionTag) error {
	return s.client.Set(ctx, conditionStationPrefix+stationID, string(tag), ConditionTTL).Err()
}

// GetCondition returns the condition reported by the nearest live station.
// No station in range, or a stale/garbled report, is an upstream failure.
func (s *ConditionStore) GetCondition(ctx context.Context, lat, lng float64) (domain.ConditionTag, error) {
	stations, err := s.client.GeoRadius(ctx, conditionStationsKey, lng, lat, &redis.GeoRadiusQuery{
		Radius: s.radiusKm,
		Unit:   "km",
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return "", err
	}

	for _, station := range stations {
		val, err := s.client.Get(ctx, conditionStationPrefix+station.Name).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Station registered but report expired.
			}
			return "", err
		}

		tag := domain.ConditionTag(val)
		if domain.ValidCondition(tag) {
			return tag, nil
		}
	}

	return "", provider.ErrUpstreamUnavailable
}
