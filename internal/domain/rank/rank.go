// Package rank orders each day's rollup by its metric and applies result caps.
package rank

import (
	"cmp"
	"iter"
	"slices"

	"github.com/okian/tradedigest/internal/domain/aggregate"
	"github.com/okian/tradedigest/internal/domain/types"
	"github.com/shopspring/decimal"
)

// Ranked holds one ranked list per date, dates in first-seen order.
type Ranked[V any] struct {
	dates []string
	lists map[string][]types.Entry[V]
	limit int
}

// List ranks a single bucket: metric descending, ties in first-seen key order,
// truncated to limit entries when limit > 0.
func List[V any](b *aggregate.Bucket[V], compare func(a, b V) int, limit int) []types.Entry[V] {
	entries := make([]types.Entry[V], 0, b.Len())
	for k, v := range b.All() {
		entries = append(entries, types.Entry[V]{Key: k, Value: v})
	}
	slices.SortStableFunc(entries, func(a, b types.Entry[V]) int {
		return compare(b.Value, a.Value)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Daily ranks every date of d independently.
func Daily[V any](d *aggregate.Daily[V], compare func(a, b V) int, limit int) *Ranked[V] {
	r := &Ranked[V]{
		lists: make(map[string][]types.Entry[V], d.Len()),
		limit: limit,
	}
	for date, b := range d.All() {
		r.dates = append(r.dates, date)
		r.lists[date] = List(b, compare, limit)
	}
	return r
}

// Players ranks player totals by amount.
func Players(t *aggregate.PlayerTotals, limit int) *Ranked[decimal.Decimal] {
	return Daily(&t.Daily, decimal.Decimal.Cmp, limit)
}

// Items ranks item counts by occurrences.
func Items(c *aggregate.ItemCounts, limit int) *Ranked[int] {
	return Daily(&c.Daily, cmp.Compare[int], limit)
}

// Get returns the ranked list for date.
func (r *Ranked[V]) Get(date string) []types.Entry[V] {
	return r.lists[date]
}

// Dates returns the ranked dates in first-seen order.
func (r *Ranked[V]) Dates() []string {
	return slices.Clone(r.dates)
}

// Len returns the number of dates.
func (r *Ranked[V]) Len() int { return len(r.dates) }

// Limit returns the cap applied to each list; zero means none.
func (r *Ranked[V]) Limit() int { return r.limit }

// All yields each date with its ranked list.
func (r *Ranked[V]) All() iter.Seq2[string, []types.Entry[V]] {
	return func(yield func(string, []types.Entry[V]) bool) {
		for _, date := range r.dates {
			if !yield(date, r.lists[date]) {
				return
			}
		}
	}
}
