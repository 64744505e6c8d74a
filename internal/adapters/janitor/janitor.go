// Package janitor periodically removes expired reports.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/tradedigest/pkg/logger"
	"github.com/okian/tradedigest/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned for cron specs that cannot be parsed.
var ErrInvalidSchedule = errors.New("invalid sweep schedule")

// Store is the part of the report store the janitor needs.
type Store interface {
	Sweep(ctx context.Context, ttl time.Duration) (int, error)
	CountReports() (int, error)
}

// Janitor runs Store.Sweep on a cron schedule.
type Janitor struct {
	cron   *cron.Cron
	store  Store
	ttl    time.Duration
	logger logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithLogger sets a custom logger for the janitor.
func WithLogger(l logger.Logger) Option {
	return func(j *Janitor) {
		if l != nil {
			j.logger = l
		}
	}
}

// New registers the sweep job. schedule uses the standard five-field cron syntax
// or a descriptor such as "@every 5m".
func New(store Store, schedule string, ttl time.Duration, opts ...Option) (*Janitor, error) {
	j := &Janitor{
		cron:   cron.New(),
		store:  store,
		ttl:    ttl,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.ctx, j.cancel = context.WithCancel(context.Background())

	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, schedule, err)
	}
	return j, nil
}

// Start starts the scheduler in its own goroutine.
func (j *Janitor) Start(ctx context.Context) {
	j.cron.Start()
	j.logger.Info(ctx, "janitor started", logger.Duration("ttl", j.ttl))
}

// Stop halts the scheduler and waits for a running sweep to finish or ctx to expire.
func (j *Janitor) Stop(ctx context.Context) {
	j.cancel()
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	j.logger.Info(ctx, "janitor stopped")
}

// RunOnce sweeps immediately and refreshes the on-disk gauge.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	removed, err := j.store.Sweep(ctx, j.ttl)
	metrics.RecordReportsSwept(removed)
	if err != nil {
		return removed, err
	}
	if n, cerr := j.store.CountReports(); cerr == nil {
		metrics.UpdateReportsOnDisk(n)
	}
	return removed, nil
}

func (j *Janitor) sweep() {
	removed, err := j.RunOnce(j.ctx)
	if err != nil {
		j.logger.Error(j.ctx, "report sweep failed", logger.Error(err))
		return
	}
	if removed > 0 {
		j.logger.Info(j.ctx, "expired reports removed", logger.Int("count", removed))
	}
}
