package models

import (
	"fmt"

	"codstore.dev/storefront/pkg/apperr"
)

// MaxLineQuantity caps the units of one product in a single order.
const MaxLineQuantity = 10000

// Cart models. The cart lives on the client and is untrusted; checkout
// re-validates every line against the live catalog.

type CartItem struct {
	Slug     string `json:"slug" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=10000"`
}

// Cart keeps at most one line per slug, in insertion order.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c *Cart) index(slug string) int {
	for i, item := range c.Items {
		if item.Slug == slug {
			return i
		}
	}
	return -1
}

// Add increases the quantity of an existing line or appends a new one.
func (c *Cart) Add(slug string, qty int) {
	if qty <= 0 {
		return
	}
	if i := c.index(slug); i >= 0 {
		c.Items[i].Quantity += qty
		return
	}
	c.Items = append(c.Items, CartItem{Slug: slug, Quantity: qty})
}

func (c *Cart) Remove(slug string) {
	if i := c.index(slug); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (c *Cart) UpdateQuantity(slug string, qty int) {
	if qty <= 0 {
		c.Remove(slug)
		return
	}
	if i := c.index(slug); i >= 0 {
		c.Items[i].Quantity = qty
	}
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) ItemCount() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// MergeItems collapses duplicate slugs by summing their quantities, keeping
// first-seen order.
func MergeItems(items []CartItem) []CartItem {
	var cart Cart
	for _, item := range items {
		if i := cart.index(item.Slug); i >= 0 {
			cart.Items[i].Quantity += item.Quantity
			continue
		}
		cart.Items = append(cart.Items, item)
	}
	return cart.Items
}

// CheckQuantities rejects a line, or the merged total of a slug, outside
// 1..MaxLineQuantity. Totals are compared before they are added so they
// cannot wrap.
func CheckQuantities(items []CartItem) error {
	totals := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return apperr.Validation("items", fmt.Sprintf("quantity for %q must be at least 1", item.Slug))
		}
		if item.Quantity > MaxLineQuantity-totals[item.Slug] {
			return apperr.Validation("items", fmt.Sprintf("quantity for %q must be at most %d", item.Slug, MaxLineQuantity))
		}
		totals[item.Slug] += item.Quantity
	}
	return nil
}

type QuoteRequest struct {
	Items []CartItem `json:"items" binding:"required,min=1,dive"`
}

// QuoteLine is a priced cart line. Warning is set when the line cannot be
// fulfilled as requested.
type QuoteLine struct {
	Slug      string  `json:"slug"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	BasePrice float64 `json:"base_price"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
	Available *int    `json:"available,omitempty"`
	Warning   string  `json:"warning,omitempty"`
}

type Quote struct {
	Lines           []QuoteLine `json:"lines"`
	Subtotal        float64     `json:"subtotal"`
	DeliveryFee     float64     `json:"delivery_fee"`
	Total           float64     `json:"total"`
	MinimumOrder    float64     `json:"minimum_order_value"`
	MeetsMinimum    bool        `json:"meets_minimum"`
	DisplaySubtotal string      `json:"display_subtotal"`
	DisplayTotal    string      `json:"display_total"`
}
