package engine

import (
	"iter"

	"github.com/okian/tradedigest/internal/domain/model"
	"github.com/okian/tradedigest/internal/domain/rank"
	"github.com/okian/tradedigest/internal/domain/types"
	"github.com/shopspring/decimal"
)

// Stats counts what a run saw.
type Stats struct {
	Lines     int `json:"lines"`
	Sales     int `json:"sales"`
	Purchases int `json:"purchases"`
	Ignored   int `json:"ignored"`   // no verb, or both verbs
	Malformed int `json:"malformed"` // classified but a field was missing
}

// Events returns the number of extracted events.
func (s Stats) Events() int { return s.Sales + s.Purchases }

// Digest is the ranked result of one run. It is read-only once returned.
type Digest struct {
	SalePlayers     *rank.Ranked[decimal.Decimal]
	PurchasePlayers *rank.Ranked[decimal.Decimal]
	SoldItems       *rank.Ranked[int]
	BoughtItems     *rank.Ranked[int]

	PlayerLimit       int
	ItemLimit         int
	IncludeIdentifier bool

	Stats Stats
}

// Players yields the ranked player totals of kind by date.
func (d *Digest) Players(kind model.Kind) iter.Seq2[string, []types.PlayerEntry] {
	switch kind {
	case model.Sale:
		return d.SalePlayers.All()
	case model.Purchase:
		return d.PurchasePlayers.All()
	default:
		return empty[types.PlayerEntry]
	}
}

// Items yields the ranked item counts of kind by date.
func (d *Digest) Items(kind model.Kind) iter.Seq2[string, []types.ItemEntry] {
	switch kind {
	case model.Sale:
		return d.SoldItems.All()
	case model.Purchase:
		return d.BoughtItems.All()
	default:
		return empty[types.ItemEntry]
	}
}

func empty[V any](func(string, []V) bool) {}
