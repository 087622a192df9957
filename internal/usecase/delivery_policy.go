package usecase

import (
	"math"

	"pizza-order-bot/internal/domain/model"
)

const earthRadiusKm = 6371.0088

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b model.Point) float64 {
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// NearestPizzeria returns the pizzeria closest to p with DeliveryDistance
// set. Ties keep the earlier pizzeria. ok is false for an empty list.
func NearestPizzeria(pizzerias []model.Pizzeria, p model.Point) (model.Pizzeria, float64, bool) {
	if len(pizzerias) == 0 {
		return model.Pizzeria{}, 0, false
	}
	best := -1
	bestDist := 0.0
	for i := range pizzerias {
		d := Distance(pizzerias[i].Location, p)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	nearest := pizzerias[best]
	nearest.DeliveryDistance = bestDist
	return nearest, bestDist, true
}

// DeliveryTier is the pricing band for a delivery distance.
type DeliveryTier int

const (
	TierFree DeliveryTier = iota
	TierNear
	TierFar
	TierPickupOnly
)

// Upper bounds are inclusive.
const (
	freeDeliveryKm = 0.5
	nearDeliveryKm = 5.0
	farDeliveryKm  = 20.0
)

// TierFor maps a distance in kilometers to its delivery tier.
func TierFor(km float64) DeliveryTier {
	switch {
	case km <= freeDeliveryKm:
		return TierFree
	case km <= nearDeliveryKm:
		return TierNear
	case km <= farDeliveryKm:
		return TierFar
	default:
		return TierPickupOnly
	}
}

func (t DeliveryTier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierNear:
		return "near"
	case TierFar:
		return "far"
	}
	return "pickup_only"
}

// DeliveryType returns the courier option of the tier, if any.
func (t DeliveryTier) DeliveryType() (model.DeliveryType, bool) {
	switch t {
	case TierFree:
		return model.DeliveryFree, true
	case TierNear:
		return model.DeliveryPaid1, true
	case TierFar:
		return model.DeliveryPaid2, true
	}
	return "", false
}

// DeliveryOptions lists what the user may choose for a tier, pickup first.
func DeliveryOptions(t DeliveryTier) []model.DeliveryType {
	opts := []model.DeliveryType{model.DeliveryPickup}
	if d, ok := t.DeliveryType(); ok {
		opts = append(opts, d)
	}
	return opts
}

// Offers reports whether d is a valid choice for the tier.
func (t DeliveryTier) Offers(d model.DeliveryType) bool {
	for _, o := range DeliveryOptions(t) {
		if o == d {
			return true
		}
	}
	return false
}
