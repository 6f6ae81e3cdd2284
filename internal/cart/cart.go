package cart

import (
	"fmt"
	"strings"

	"engrave-queue/internal/catalog"
	"engrave-queue/internal/domain"
)

// Cart collects draft lines before submission. Not safe for concurrent use.
type Cart struct {
	lines []domain.CartLine
}

type Totals struct {
	Items   int     `json:"items"`
	Cost    float64 `json:"cost"`
	Minutes int     `json:"minutes"`
}

// Priced builds a line carrying the catalog's current price and time.
func Priced(c *catalog.Catalog, category, item string, quantity int, text string) (domain.CartLine, error) {
	if quantity < 1 {
		return domain.CartLine{}, fmt.Errorf("%w: quantity for %s/%s must be at least 1", domain.ErrValidation, category, item)
	}
	e, err := c.Lookup(category, item)
	if err != nil {
		return domain.CartLine{}, err
	}
	return domain.CartLine{
		Category:      category,
		ItemName:      item,
		Quantity:      quantity,
		CostPerItem:   e.CostPerItem,
		TimePerItem:   e.TimePerItem,
		EngravingText: strings.TrimSpace(text),
	}, nil
}

// Add merges the line into an existing one with the same category, item and text.
func (c *Cart) Add(line domain.CartLine) {
	line.EngravingText = strings.TrimSpace(line.EngravingText)
	for i := range c.lines {
		l := &c.lines[i]
		if l.Category == line.Category && l.ItemName == line.ItemName && l.EngravingText == line.EngravingText {
			l.Quantity += line.Quantity
			return
		}
	}
	c.lines = append(c.lines, line)
}

func (c *Cart) Remove(index int) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("cart: no line at index %d", index)
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

// Lines returns a copy.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) Clear() { c.lines = nil }

func (c *Cart) Totals() Totals {
	var t Totals
	for _, l := range c.lines {
		t.Items += l.Quantity
		t.Cost += l.Cost()
		t.Minutes += l.Minutes()
	}
	return t
}

// FromInputs prices and collapses request lines into a cart.
func FromInputs(c *catalog.Catalog, inputs []domain.CartLineInput) (*Cart, error) {
	var ct Cart
	for _, in := range inputs {
		line, err := Priced(c, in.Category, in.ItemName, in.Quantity, in.EngravingText)
		if err != nil {
			return nil, err
		}
		ct.Add(line)
	}
	return &ct, nil
}
