package cart

import "github.com/shopspring/decimal"

// Product is the product snapshot joined into a cart line by the backend.
// Prices are read from the server at fetch time and never recomputed locally.
type Product struct {
	ID    string          `json:"_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

// Line is one product+quantity pair within a cart. Lines are unique by
// product: the backend merges quantities on repeated adds.
type Line struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Cart mirrors the server-authoritative aggregate. The client treats it as an
// opaque snapshot: replaced wholesale after every successful call, never
// partially mutated.
type Cart struct {
	Items      []Line          `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Count returns the total unit count across all lines. Computed at read time
// so it can never drift from the snapshot.
func (c *Cart) Count() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, line := range c.Items {
		total += line.Quantity
	}
	return total
}

// Empty returns a fresh empty cart snapshot.
func Empty() *Cart {
	return &Cart{Items: []Line{}, TotalPrice: decimal.Zero}
}

// Clone deep-copies the snapshot so consumers never alias store-owned state.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	copied := &Cart{
		Items:      make([]Line, len(c.Items)),
		TotalPrice: c.TotalPrice,
	}
	copy(copied.Items, c.Items)
	return copied
}

// Result is the uniform outcome of a cart mutation: consumers render feedback
// from it without inspecting error internals.
type Result struct {
	Success bool
	Message string
}
