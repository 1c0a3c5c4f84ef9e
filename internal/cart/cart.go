// Package cart holds the customer's purchase intents before checkout.
// Items are keyed by catalog slug so checkout never remaps identifiers.
package cart

import (
	"github.com/shopspring/decimal"
)

const (
	MinQuantity = 1
	MaxQuantity = 10
)

type Item struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Months    int             `json:"months"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is price × quantity × months.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))).Mul(decimal.NewFromInt(int64(i.Months)))
}

type Cart struct {
	Lines []Item `json:"items"`
}

// AddItem bumps the quantity of an existing line by one and keeps its
// duration; otherwise it appends the item with quantity 1.
func (c *Cart) AddItem(item Item) {
	if i := c.index(item.ProductID); i >= 0 {
		c.Lines[i].Quantity++
		return
	}
	item.Quantity = 1
	c.Lines = append(c.Lines, item)
}

// UpdateQuantity removes the line when qty <= 0.
func (c *Cart) UpdateQuantity(productID string, qty int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	if qty <= 0 {
		c.removeAt(i)
		return true
	}
	c.Lines[i].Quantity = qty
	return true
}

func (c *Cart) UpdateMonths(productID string, months int) bool {
	i := c.index(productID)
	if i < 0 || months <= 0 {
		return false
	}
	c.Lines[i].Months = months
	return true
}

func (c *Cart) RemoveItem(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) Clear() { c.Lines = nil }

func (c *Cart) Items() []Item { return c.Lines }

func (c *Cart) TotalItems() int {
	n := 0
	for _, it := range c.Lines {
		n += it.Quantity
	}
	return n
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Lines {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c *Cart) index(productID string) int {
	for i, it := range c.Lines {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	if len(c.Lines) == 0 {
		c.Lines = nil
	}
}
