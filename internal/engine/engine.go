// Package engine turns a transaction log into ranked per-day rollups.
//
// A run reads the log once. Every line is classified, extracted and fanned out to
// four accumulators (sale totals, purchase totals, sold items, bought items) before
// each is ranked. Lines that cannot be interpreted are counted and skipped; only a
// failure to read the input aborts the run.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/okian/tradedigest/internal/domain/aggregate"
	"github.com/okian/tradedigest/internal/domain/classify"
	"github.com/okian/tradedigest/internal/domain/extract"
	"github.com/okian/tradedigest/internal/domain/model"
	"github.com/okian/tradedigest/internal/domain/rank"
	"github.com/okian/tradedigest/pkg/logger"
	"github.com/okian/tradedigest/pkg/metrics"
)

const (
	// cancelCheckEvery is how many lines are read between context checks.
	cancelCheckEvery = 512
	readerBufferSize = 64 * 1024
	byteOrderMark    = "\ufeff"
)

// Engine holds the ranking options of a run. It keeps no per-run state and may be
// shared; every Run builds fresh accumulators.
type Engine struct {
	playerLimit       int
	itemLimit         int
	includeIdentifier bool
	logger            logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPlayerLimit caps each day's player ranking; zero or less means no cap.
func WithPlayerLimit(n int) Option {
	return func(e *Engine) {
		e.playerLimit = max(n, 0)
	}
}

// WithItemLimit caps each day's item ranking; zero or less means no cap.
func WithItemLimit(n int) Option {
	return func(e *Engine) {
		e.itemLimit = max(n, 0)
	}
}

// WithIncludeIdentifier keeps the parenthesised id in item keys.
func WithIncludeIdentifier(include bool) Option {
	return func(e *Engine) {
		e.includeIdentifier = include
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New constructs an Engine. By default nothing is truncated and item ids are kept.
func New(opts ...Option) *Engine {
	e := &Engine{
		includeIdentifier: true,
		logger:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunFile opens path and runs the engine over it.
func (e *Engine) RunFile(ctx context.Context, path string) (*Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		metrics.RecordDigestFailure()
		return nil, fmt.Errorf("%w: %w", ErrInputUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	return e.Run(ctx, f)
}

// Run reads r to the end and returns the ranked digest.
func (e *Engine) Run(ctx context.Context, r io.Reader) (*Digest, error) {
	start := time.Now()
	acc := newAccumulators(e.includeIdentifier)

	br := bufio.NewReaderSize(r, readerBufferSize)
	for n := 0; ; n++ {
		if n%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrAborted, err)
			}
		}

		line, err := br.ReadString('\n')
		if line != "" {
			if n == 0 {
				line = strings.TrimPrefix(line, byteOrderMark)
			}
			acc.consume(ctx, e.logger, strings.TrimRight(line, "\r\n"))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.RecordDigestFailure()
			e.logger.Error(ctx, "log read failed", logger.Int("line", n+1), logger.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrInputUnavailable, err)
		}
	}

	d := &Digest{
		SalePlayers:       rank.Players(acc.saleTotals, e.playerLimit),
		PurchasePlayers:   rank.Players(acc.purchaseTotals, e.playerLimit),
		SoldItems:         rank.Items(acc.soldItems, e.itemLimit),
		BoughtItems:       rank.Items(acc.boughtItems, e.itemLimit),
		PlayerLimit:       e.playerLimit,
		ItemLimit:         e.itemLimit,
		IncludeIdentifier: e.includeIdentifier,
		Stats:             acc.stats,
	}

	elapsed := time.Since(start)
	recordStats(acc.stats, elapsed)
	e.logger.Info(ctx, "digest complete",
		logger.Int("lines", d.Stats.Lines),
		logger.Int("sales", d.Stats.Sales),
		logger.Int("purchases", d.Stats.Purchases),
		logger.Int("ignored", d.Stats.Ignored),
		logger.Int("malformed", d.Stats.Malformed),
		logger.Int("days", max(d.SalePlayers.Len(), d.PurchasePlayers.Len())),
		logger.Duration("took", elapsed),
	)
	return d, nil
}

// accumulators are the four rollups of a single run.
type accumulators struct {
	saleTotals     *aggregate.PlayerTotals
	purchaseTotals *aggregate.PlayerTotals
	soldItems      *aggregate.ItemCounts
	boughtItems    *aggregate.ItemCounts
	stats          Stats
}

func newAccumulators(includeIdentifier bool) *accumulators {
	return &accumulators{
		saleTotals:     aggregate.NewPlayerTotals(),
		purchaseTotals: aggregate.NewPlayerTotals(),
		soldItems:      aggregate.NewItemCounts(includeIdentifier),
		boughtItems:    aggregate.NewItemCounts(includeIdentifier),
	}
}

func (a *accumulators) consume(ctx context.Context, log logger.Logger, line string) {
	a.stats.Lines++

	kind := classify.Classify(line)
	if kind == model.Ignore {
		a.stats.Ignored++
		return
	}

	ev, ok := extract.Extract(line, kind)
	if !ok {
		a.stats.Malformed++
		log.Debug(ctx, "skipping line", logger.Int("line", a.stats.Lines), logger.String("kind", kind.String()))
		return
	}

	switch kind {
	case model.Sale:
		a.stats.Sales++
		a.saleTotals.AddEvent(ev)
		a.soldItems.AddEvent(ev)
	case model.Purchase:
		a.stats.Purchases++
		a.purchaseTotals.AddEvent(ev)
		a.boughtItems.AddEvent(ev)
	}
}

func recordStats(s Stats, elapsed time.Duration) {
	metrics.RecordLines(metrics.OutcomeEvent, s.Events())
	metrics.RecordLines(metrics.OutcomeIgnored, s.Ignored)
	metrics.RecordLines(metrics.OutcomeMalformed, s.Malformed)
	metrics.RecordEvents(model.Sale.String(), s.Sales)
	metrics.RecordEvents(model.Purchase.String(), s.Purchases)
	metrics.RecordDigestDuration(float64(elapsed.Milliseconds()))
}
