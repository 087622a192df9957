package model

// EventKind tags the inbound event variant.
type EventKind string

const (
	EventText              EventKind = "text"
	EventCallback          EventKind = "callback"
	EventLocation          EventKind = "location"
	EventSuccessfulPayment EventKind = "successful_payment"
	EventPreCheckout       EventKind = "pre_checkout"
)

// Point is a WGS-84 coordinate pair.
type Point struct {
	Lon float64 `json:"longitude"`
	Lat float64 `json:"latitude"`
}

// PreCheckout is a payment provider query that must be answered before charging.
type PreCheckout struct {
	QueryID     string
	Payload     string
	Currency    string
	TotalAmount int
}

// SuccessfulPayment confirms a charged invoice.
type SuccessfulPayment struct {
	Payload          string
	Currency         string
	TotalAmount      int
	ProviderChargeID string
}

// Event is a platform-agnostic inbound update.
type Event struct {
	UserID      UserID
	Kind        EventKind
	Text        string
	Data        string
	Location    *Point
	PreCheckout *PreCheckout
	Payment     *SuccessfulPayment
}

// TextEvent builds a text message event.
func TextEvent(user UserID, text string) Event {
	return Event{UserID: user, Kind: EventText, Text: text}
}

// CallbackEvent builds a button press event.
func CallbackEvent(user UserID, data string) Event {
	return Event{UserID: user, Kind: EventCallback, Data: data}
}

// LocationEvent builds a shared-location event.
func LocationEvent(user UserID, p Point) Event {
	return Event{UserID: user, Kind: EventLocation, Location: &p}
}
