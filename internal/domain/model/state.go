package model

import "strings"

// State is a step of the pizza-order conversation.
type State string

const (
	StateStart         State = "start"
	StateMenu          State = "menu"
	StateProduct       State = "product"
	StateCart          State = "cart"
	StateAwaitLocation State = "await_location"
	StateDelivery      State = "delivery"
	StatePayment       State = "payment"
	StateFinish        State = "finish"
)

var knownStates = map[State]struct{}{
	StateStart:         {},
	StateMenu:          {},
	StateProduct:       {},
	StateCart:          {},
	StateAwaitLocation: {},
	StateDelivery:      {},
	StatePayment:       {},
	StateFinish:        {},
}

// Valid reports whether s is one of the enumerated conversation states.
func (s State) Valid() bool {
	_, ok := knownStates[s]
	return ok
}

// ParseState maps a persisted value to a State. Unknown values map to
// StateStart with ok=false. Upper-case names written by older bot versions
// ("MENU", "CART") are accepted.
func ParseState(raw string) (State, bool) {
	s := State(strings.ToLower(strings.TrimSpace(raw)))
	if s.Valid() {
		return s, true
	}
	return StateStart, false
}

// UserID is the opaque per-user key. It doubles as the commerce cart reference.
type UserID string

func (u UserID) String() string { return string(u) }

// Record is the persisted per-user value: conversation position plus session.
type Record struct {
	State   State   `json:"state"`
	Session Session `json:"session"`
}
