// Package aggregate folds extracted events into per-day rollups.
//
// Every accumulator remembers the order in which it first saw each date and each
// key within a date. Rankers rely on that order to break ties.
package aggregate

import "iter"

// Bucket is an insertion-ordered key -> value map for a single day.
type Bucket[V any] struct {
	keys   []string
	values map[string]V
}

func newBucket[V any]() *Bucket[V] {
	return &Bucket[V]{values: make(map[string]V)}
}

// upsert applies fn to the current value for key (the zero value on first sight).
func (b *Bucket[V]) upsert(key string, fn func(V) V) {
	cur, ok := b.values[key]
	if !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = fn(cur)
}

// Get returns the value stored for key.
func (b *Bucket[V]) Get(key string) (V, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (b *Bucket[V]) Len() int { return len(b.keys) }

// All yields keys in first-seen order.
func (b *Bucket[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range b.keys {
			if !yield(k, b.values[k]) {
				return
			}
		}
	}
}

// Daily maps a date to its Bucket, remembering date order.
type Daily[V any] struct {
	dates   []string
	buckets map[string]*Bucket[V]
}

func newDaily[V any]() Daily[V] {
	return Daily[V]{buckets: make(map[string]*Bucket[V])}
}

// upsert inserts or updates the value of key on date.
func (d *Daily[V]) upsert(date, key string, fn func(V) V) {
	b, ok := d.buckets[date]
	if !ok {
		b = newBucket[V]()
		d.buckets[date] = b
		d.dates = append(d.dates, date)
	}
	b.upsert(key, fn)
}

// Day returns the bucket for date.
func (d *Daily[V]) Day(date string) (*Bucket[V], bool) {
	b, ok := d.buckets[date]
	return b, ok
}

// Dates returns the dates in first-seen order.
func (d *Daily[V]) Dates() []string {
	out := make([]string, len(d.dates))
	copy(out, d.dates)
	return out
}

// Len returns the number of distinct dates.
func (d *Daily[V]) Len() int { return len(d.dates) }

// All yields each date with its bucket in first-seen order.
func (d *Daily[V]) All() iter.Seq2[string, *Bucket[V]] {
	return func(yield func(string, *Bucket[V]) bool) {
		for _, date := range d.dates {
			if !yield(date, d.buckets[date]) {
				return
			}
		}
	}
}
