// Package types contains common types used across the application
package types

import "github.com/shopspring/decimal"

// Entry is one ranked row: a key with its aggregated metric.
type Entry[V any] struct {
	Rank  int    `json:"rank"`
	Key   string `json:"key"`
	Value V      `json:"value"`
}

// PlayerEntry ranks a player by summed amount.
type PlayerEntry = Entry[decimal.Decimal]

// ItemEntry ranks an item by occurrence count.
type ItemEntry = Entry[int]
