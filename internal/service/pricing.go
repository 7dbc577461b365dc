package service

import (
	"math"

	"negotiation/internal/domain"
)

// TierRates holds the fixed rate table entry for one service tier.
type TierRates struct {
	BaseFare      float64 // Flat component
	PerKmRate     float64 // Per kilometer
	PerMinuteRate float64 // Per minute
}

// PricingConfig contains the reference fare policy constants.
type PricingConfig struct {
	Tiers      map[domain.ServiceTier]TierRates
	Conditions map[domain.ConditionTag]float64 // Environmental multipliers

	EcoDiscount float64 // Flat reduction applied to the ECO tier

	SharedDiscountPerRider float64 // Per confirmed co-rider
	SharedDiscountCap      float64 // Total shared reduction cap

	// ConditionFloor bounds how far a condition multiplier may push the fare
	// below the pre-adjustment amount.
	ConditionFloor float64
}

// DefaultPricingConfig returns the default pricing policy.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Tiers: map[domain.ServiceTier]TierRates{
			domain.TierEconomy:  {BaseFare: 2.00, PerKmRate: 1.2, PerMinuteRate: 0.25},
			domain.TierStandard: {BaseFare: 2.50, PerKmRate: 1.5, PerMinuteRate: 0.30},
			domain.TierPremium:  {BaseFare: 5.00, PerKmRate: 2.5, PerMinuteRate: 0.50},
			domain.TierEco:      {BaseFare: 2.00, PerKmRate: 1.0, PerMinuteRate: 0.20},
		},
		Conditions: map[domain.ConditionTag]float64{
			domain.ConditionClear:  0.95,
			domain.ConditionCloudy: 1.00,
			domain.ConditionFog:    1.05,
			domain.ConditionWind:   1.08,
			domain.ConditionRain:   1.12,
			domain.ConditionSnow:   1.20,
			domain.ConditionStorm:  1.30,
		},
		EcoDiscount:            0.10,
		SharedDiscountPerRider: 0.10,
		SharedDiscountCap:      0.30,
		ConditionFloor:         0.80,
	}
}

// conditionSeverity orders condition tags from mildest to harshest. Multiplier
// tables must be monotonic along this order.
var conditionSeverity = []domain.ConditionTag{
	domain.ConditionClear,
	domain.ConditionCloudy,
	domain.ConditionFog,
	domain.ConditionWind,
	domain.ConditionRain,
	domain.ConditionSnow,
	domain.ConditionStorm,
}

// Validate checks the pricing policy for structural soundness.
func (c PricingConfig) Validate() error {
	for _, tier := range []domain.ServiceTier{domain.TierEconomy, domain.TierStandard, domain.TierPremium, domain.TierEco} {
		rates, ok := c.Tiers[tier]
		if !ok || rates.BaseFare <= 0 || rates.PerKmRate <= 0 || rates.PerMinuteRate <= 0 {
			return ErrInvalidTripAttributes
		}
	}

	prev := 0.0
	for _, tag := range conditionSeverity {
		mult, ok := c.Conditions[tag]
		if !ok || mult < c.ConditionFloor || mult < prev {
			return ErrInvalidTripAttributes
		}
		prev = mult
	}

	return nil
}

// PricingService computes reference fares from trip attributes and live
// conditions. Pure: no state, no I/O, no clock.
type PricingService struct {
	config PricingConfig
}

// NewPricingService creates a new PricingService.
func NewPricingService(config PricingConfig) *PricingService {
	return &PricingService{config: config}
}

// ComputeReferenceFare derives the system's fair price for a trip.
// Deterministic for identical input.
func (s *PricingService) ComputeReferenceFare(attrs *domain.TripAttributes) (float64, error) {
	if attrs == nil || attrs.DistanceKm <= 0 || attrs.DurationMinutes <= 0 {
		return 0, ErrInvalidTripAttributes
	}
	if !domain.ValidTier(attrs.Tier) || !domain.ValidCondition(attrs.Condition) {
		return 0, ErrInvalidTripAttributes
	}

	rates := s.config.Tiers[attrs.Tier]
	fare := rates.BaseFare + attrs.DistanceKm*rates.PerKmRate + attrs.DurationMinutes*rates.PerMinuteRate

	if attrs.Tier == domain.TierEco {
		fare *= 1 - s.config.EcoDiscount
	}

	// The shared-ride flag carries no reduction at quote time: co-riders are
	// not confirmed yet. ApplySharedDiscount re-prices later.

	preAdjustment := fare
	fare *= s.config.Conditions[attrs.Condition]
	if floor := preAdjustment * s.config.ConditionFloor; fare < floor {
		fare = floor
	}

	return roundHalfUp(fare), nil
}

// ApplySharedDiscount re-prices an already-computed fare once co-riders on a
// shared trip are confirmed. Idempotent: it always discounts from the fare
// passed in, never compounds.
func (s *PricingService) ApplySharedDiscount(fare float64, confirmedCoRiders int) float64 {
	if fare <= 0 || confirmedCoRiders <= 0 {
		return roundHalfUp(fare)
	}

	discount := float64(confirmedCoRiders) * s.config.SharedDiscountPerRider
	if discount > s.config.SharedDiscountCap {
		discount = s.config.SharedDiscountCap
	}

	return roundHalfUp(fare * (1 - discount))
}

// roundHalfUp rounds to the currency minor unit (2 decimals), half up.
func roundHalfUp(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
