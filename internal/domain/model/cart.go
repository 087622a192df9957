package model

import "github.com/shopspring/decimal"

// CartLine is one cart entry. ID is the gateway line id and differs from
// ProductID; removal is always keyed by ID.
type CartLine struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	UnitPrice      string          `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	Total          decimal.Decimal `json:"total"`
	TotalFormatted string          `json:"total_formatted"`
}

// Cart is the user's remote cart as reported by the commerce gateway.
type Cart struct {
	Lines []CartLine `json:"lines"`
	Total string     `json:"total"`
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return c == nil || len(c.Lines) == 0
}

// QuantityOf sums the quantity of all lines holding productID.
func (c *Cart) QuantityOf(productID string) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, l := range c.Lines {
		if l.ProductID == productID {
			n += l.Quantity
		}
	}
	return n
}
