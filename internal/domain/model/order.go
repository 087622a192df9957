package model

import "time"

// Order is an archived paid order.
type Order struct {
	ID               string       `json:"id"`
	UserID           UserID       `json:"user_id"`
	PizzeriaID       string       `json:"pizzeria_id"`
	DeliveryType     DeliveryType `json:"delivery_type"`
	Lines            []CartLine   `json:"lines"`
	DeliveryFee      int64        `json:"delivery_fee"`
	TotalMinor       int64        `json:"total_minor"`
	Currency         string       `json:"currency"`
	Location         *Point       `json:"location,omitempty"`
	ProviderChargeID string       `json:"provider_charge_id"`
	PaidAt           time.Time    `json:"paid_at"`
}

// OrderPaidEvent is published when a payment succeeds.
type OrderPaidEvent struct {
	OrderID      string       `json:"order_id"`
	UserID       UserID       `json:"user_id"`
	PizzeriaID   string       `json:"pizzeria_id"`
	DeliveryType DeliveryType `json:"delivery_type"`
	TotalMinor   int64        `json:"total_minor"`
	Currency     string       `json:"currency"`
	PaidAt       time.Time    `json:"paid_at"`
}
