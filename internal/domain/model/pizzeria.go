package model

// Pizzeria is a fulfillment location. DeliveryDistance is derived per
// customer location and is not persisted by the gateway.
type Pizzeria struct {
	ID               string  `json:"id"`
	Address          string  `json:"address"`
	Location         Point   `json:"location"`
	DeliverymanID    string  `json:"deliveryman_id"`
	DeliveryDistance float64 `json:"delivery_distance"`
}
