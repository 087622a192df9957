package model

import "time"

// ActionKind tags the outbound descriptor variant.
type ActionKind string

const (
	ActionText              ActionKind = "text"
	ActionPhoto             ActionKind = "photo"
	ActionInvoice           ActionKind = "invoice"
	ActionLocation          ActionKind = "location"
	ActionNotice            ActionKind = "notice"
	ActionPreCheckoutAnswer ActionKind = "pre_checkout_answer"
)

// Button is an inline button. Payload comes back as callback data.
type Button struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

// LabeledPrice is an invoice line in minor currency units.
type LabeledPrice struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// Invoice describes a payment request.
type Invoice struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Payload     string         `json:"payload"`
	Currency    string         `json:"currency"`
	Prices      []LabeledPrice `json:"prices"`
}

// Total sums all invoice lines.
func (i *Invoice) Total() int64 {
	var t int64
	for _, p := range i.Prices {
		t += p.Amount
	}
	return t
}

// PreCheckoutAnswer accepts or rejects a pre-checkout query.
type PreCheckoutAnswer struct {
	QueryID      string `json:"query_id"`
	OK           bool   `json:"ok"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Action is a platform-agnostic outbound message descriptor. Transports turn
// it into API calls; the core never performs I/O to deliver it.
type Action struct {
	Kind      ActionKind
	Recipient UserID
	Text      string
	Markdown  bool
	Buttons   [][]Button
	PhotoURL  string

	Invoice     *Invoice
	Location    *Point
	PreCheckout *PreCheckoutAnswer

	// ReplaceSource asks the transport to drop the message whose button
	// triggered this action. EditSource asks to edit it in place instead.
	ReplaceSource bool
	EditSource    bool

	// Delay defers delivery; zero means immediately.
	Delay time.Duration
}

// To returns the recipient, falling back to the event user.
func (a Action) To(user UserID) UserID {
	if a.Recipient != "" {
		return a.Recipient
	}
	return user
}
