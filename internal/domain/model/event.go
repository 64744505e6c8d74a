// Package model contains domain models passed between layers.
package model

import "github.com/shopspring/decimal"

// Kind tells whether a log line records a sale, a purchase, or neither.
type Kind int

// Line kinds.
const (
	Ignore Kind = iota
	Sale
	Purchase
)

// String returns the lowercase name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case Sale:
		return "sale"
	case Purchase:
		return "purchase"
	default:
		return "ignore"
	}
}

// Verb returns the log verb that marks lines of this kind.
func (k Kind) Verb() string {
	switch k {
	case Sale:
		return "sold"
	case Purchase:
		return "bought"
	default:
		return ""
	}
}

// Event is one sale or purchase extracted from a log line.
type Event struct {
	Date   string          // calendar day, YYYY-MM-DD
	Kind   Kind            // Sale or Purchase, never Ignore
	Player string          // single word actor
	Item   string          // raw item text, identifier suffix included
	Amount decimal.Decimal // non-negative, as written in the log
}
