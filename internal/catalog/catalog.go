package catalog

import (
	"fmt"
	"sort"

	"engrave-queue/internal/domain"
)

// Entry is the price and bench time of one engravable item.
type Entry struct {
	CostPerItem float64 `yaml:"cost_per_item" json:"cost_per_item"`
	TimePerItem int     `yaml:"time_per_item_minutes" json:"time_per_item_minutes"`
}

// Catalog is a read-only category -> item -> Entry table.
type Catalog struct {
	entries map[string]map[string]Entry
}

// New copies the table so later changes to the caller's map cannot leak in.
func New(table map[string]map[string]Entry) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]map[string]Entry, len(table))}
	for category, items := range table {
		if category == "" {
			return nil, fmt.Errorf("catalog: empty category name")
		}
		c.entries[category] = make(map[string]Entry, len(items))
		for item, e := range items {
			if item == "" {
				return nil, fmt.Errorf("catalog: empty item name in %s", category)
			}
			if e.CostPerItem < 0 || e.TimePerItem < 0 {
				return nil, fmt.Errorf("catalog: negative cost or time for %s/%s", category, item)
			}
			c.entries[category][item] = e
		}
	}
	return c, nil
}

// Default is the shop's fencing-gear table.
func Default() *Catalog {
	blade := Entry{CostPerItem: 5, TimePerItem: 2}
	guard := Entry{CostPerItem: 20, TimePerItem: 6}
	c, _ := New(map[string]map[string]Entry{
		"Foil":  {"Blade": blade, "Guard": guard},
		"Saber": {"Blade": blade, "Guard": guard},
		"Epee":  {"Blade": blade, "Guard": guard},
	})
	return c
}

// Lookup returns a copy of the entry; the error wraps domain.ErrValidation.
func (c *Catalog) Lookup(category, item string) (Entry, error) {
	items, ok := c.entries[category]
	if !ok {
		return Entry{}, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, category)
	}
	e, ok := items[item]
	if !ok {
		return Entry{}, fmt.Errorf("%w: unknown item %q in %s", domain.ErrValidation, item, category)
	}
	return e, nil
}

func (c *Catalog) Categories() []string {
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Items(category string) []string {
	items := c.entries[category]
	out := make([]string, 0, len(items))
	for k := range items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Table returns a deep copy, used for the public catalog endpoint.
func (c *Catalog) Table() map[string]map[string]Entry {
	out := make(map[string]map[string]Entry, len(c.entries))
	for category, items := range c.entries {
		out[category] = make(map[string]Entry, len(items))
		for item, e := range items {
			out[category][item] = e
		}
	}
	return out
}
