package domain

// ServiceTier represents the service tier requested for a trip.
type ServiceTier string

const (
	TierEconomy  ServiceTier = "ECONOMY"
	TierStandard ServiceTier = "STANDARD"
	TierPremium  ServiceTier = "PREMIUM"
	TierEco      ServiceTier = "ECO"
)

// ValidTier reports whether the tier is one of the known service tiers.
func ValidTier(t ServiceTier) bool {
	switch t {
	case TierEconomy, TierStandard, TierPremium, TierEco:
		return true
	default:
		return false
	}
}

// ConditionTag represents the environmental condition at the pickup location.
type ConditionTag string

const (
	ConditionClear  ConditionTag = "CLEAR"
	ConditionCloudy ConditionTag = "CLOUDY"
	ConditionFog    ConditionTag = "FOG"
	ConditionWind   ConditionTag = "WIND"
	ConditionRain   ConditionTag = "RAIN"
	ConditionSnow   ConditionTag = "SNOW"
	ConditionStorm  ConditionTag = "STORM"
)

// ValidCondition reports whether the tag is one of the known conditions.
func ValidCondition(c ConditionTag) bool {
	switch c {
	case ConditionClear, ConditionCloudy, ConditionFog, ConditionWind,
		ConditionRain, ConditionSnow, ConditionStorm:
		return true
	default:
		return false
	}
}

// TripAttributes are the facts about a trip that drive the reference fare.
// They are supplied by the trip attributes provider and are immutable here;
// coordinates are passed through for condition lookup, never interpreted.
type TripAttributes struct {
	TripID          string
	DistanceKm      float64
	DurationMinutes float64
	Tier            ServiceTier
	Shared          bool
	Condition       ConditionTag
	PickupLat       float64
	PickupLng       float64
	DropLat         float64
	DropLng         float64
}
