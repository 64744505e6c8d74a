package aggregate

import (
	"github.com/okian/tradedigest/internal/domain/extract"
	"github.com/okian/tradedigest/internal/domain/model"
	"github.com/shopspring/decimal"
)

// centPlaces is the precision every amount is rounded to before it is summed.
const centPlaces = 2

// PlayerTotals sums amounts per player per day.
type PlayerTotals struct {
	Daily[decimal.Decimal]
}

// NewPlayerTotals creates an empty accumulator.
func NewPlayerTotals() *PlayerTotals {
	return &PlayerTotals{Daily: newDaily[decimal.Decimal]()}
}

// Add rounds amount half-up to cents and adds it to the player's total for date.
func (p *PlayerTotals) Add(date, player string, amount decimal.Decimal) {
	rounded := amount.Round(centPlaces)
	p.upsert(date, player, func(cur decimal.Decimal) decimal.Decimal {
		return cur.Add(rounded)
	})
}

// AddEvent adds ev.Amount to ev.Player on ev.Date.
func (p *PlayerTotals) AddEvent(ev model.Event) {
	p.Add(ev.Date, ev.Player, ev.Amount)
}

// ItemCounts counts occurrences of each item per day.
type ItemCounts struct {
	Daily[int]
	includeIdentifier bool
}

// NewItemCounts creates an empty accumulator. When includeIdentifier is false,
// items are counted under their canonical name without the parenthesised id.
func NewItemCounts(includeIdentifier bool) *ItemCounts {
	return &ItemCounts{Daily: newDaily[int](), includeIdentifier: includeIdentifier}
}

// Increment adds one occurrence of key on date.
func (c *ItemCounts) Increment(date, key string) {
	c.upsert(date, key, func(cur int) int { return cur + 1 })
}

// AddEvent counts ev.Item on ev.Date under the configured key projection.
func (c *ItemCounts) AddEvent(ev model.Event) {
	c.Increment(ev.Date, c.Key(ev.Item))
}

// Key returns the key an item is counted under.
func (c *ItemCounts) Key(item string) string {
	if c.includeIdentifier {
		return item
	}
	return extract.CanonicalItem(item)
}

// IncludeIdentifier reports whether items keep their identifier suffix.
func (c *ItemCounts) IncludeIdentifier() bool { return c.includeIdentifier }
