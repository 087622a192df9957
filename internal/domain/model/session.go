package model

// DeliveryType is the delivery option picked by the user. Values are the
// callback payloads themselves.
type DeliveryType string

const (
	DeliveryPickup DeliveryType = "pickup"
	DeliveryFree   DeliveryType = "free_delivery"
	DeliveryPaid1  DeliveryType = "paid_delivery_1"
	DeliveryPaid2  DeliveryType = "paid_delivery_2"
)

// ParseDeliveryType accepts only the four enumerated delivery callbacks.
func ParseDeliveryType(raw string) (DeliveryType, bool) {
	switch d := DeliveryType(raw); d {
	case DeliveryPickup, DeliveryFree, DeliveryPaid1, DeliveryPaid2:
		return d, true
	}
	return "", false
}

// Fee returns the delivery fee in whole currency units.
func (d DeliveryType) Fee() int64 {
	switch d {
	case DeliveryPaid1:
		return 100
	case DeliveryPaid2:
		return 300
	}
	return 0
}

// IsDelivery reports whether a courier brings the order.
func (d DeliveryType) IsDelivery() bool {
	return d == DeliveryFree || d == DeliveryPaid1 || d == DeliveryPaid2
}

// Session holds per-order data that lives next to the conversation state.
type Session struct {
	Pizzeria     *Pizzeria    `json:"pizzeria,omitempty"`
	DeliveryType DeliveryType `json:"delivery_type,omitempty"`
	Location     *Point       `json:"location,omitempty"`
	Category     string       `json:"category,omitempty"`
	Page         int          `json:"page,omitempty"`
}

// Reset clears all order data.
func (s *Session) Reset() {
	*s = Session{}
}
