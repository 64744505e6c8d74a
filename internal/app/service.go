// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tradedigest/internal/adapters/files"
	"github.com/okian/tradedigest/internal/adapters/janitor"
	"github.com/okian/tradedigest/internal/adapters/report"
	"github.com/okian/tradedigest/internal/domain/model"
	"github.com/okian/tradedigest/internal/domain/types"
	"github.com/okian/tradedigest/internal/engine"
	"github.com/okian/tradedigest/pkg/logger"
	"github.com/okian/tradedigest/pkg/metrics"
)

// Params are the per-request digest options.
type Params struct {
	ItemLimit         int  `json:"item_limit"`
	PlayerLimit       int  `json:"player_limit"`
	IncludeIdentifier bool `json:"include_id"`
}

// Day is one date of a digest.
type Day struct {
	Date        string              `json:"date"`
	TopSellers  []types.PlayerEntry `json:"top_sellers,omitempty"`
	TopBuyers   []types.PlayerEntry `json:"top_buyers,omitempty"`
	SoldItems   []types.ItemEntry   `json:"sold_items,omitempty"`
	BoughtItems []types.ItemEntry   `json:"bought_items,omitempty"`
}

// Summary describes a processed upload and the report it produced.
type Summary struct {
	ReportID    string       `json:"report_id"`
	ReportBytes int64        `json:"report_bytes"`
	Params      Params       `json:"params"`
	Stats       engine.Stats `json:"stats"`
	Days        []Day        `json:"days"`
}

// Service turns uploaded logs into downloadable workbooks.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *files.Store
	janitor *janitor.Janitor

	// Configuration
	uploadDir     string
	outputDir     string
	defaults      Params
	reportTTL     time.Duration
	sweepSchedule string

	// State
	started   bool
	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDirs sets where uploads and reports are kept.
func WithDirs(uploadDir, outputDir string) Option {
	return func(s *Service) {
		if uploadDir != "" {
			s.uploadDir = uploadDir
		}
		if outputDir != "" {
			s.outputDir = outputDir
		}
	}
}

// WithDefaults sets the options used when a request leaves them out.
func WithDefaults(p Params) Option {
	return func(s *Service) {
		s.defaults = Params{
			ItemLimit:         max(p.ItemLimit, 0),
			PlayerLimit:       max(p.PlayerLimit, 0),
			IncludeIdentifier: p.IncludeIdentifier,
		}
	}
}

// WithReportTTL enables the janitor; ttl <= 0 keeps reports forever.
func WithReportTTL(ttl time.Duration, schedule string) Option {
	return func(s *Service) {
		s.reportTTL = ttl
		s.sweepSchedule = schedule
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		uploadDir: "uploads",
		outputDir: "output",
		defaults: Params{
			PlayerLimit:       5,
			IncludeIdentifier: true,
		},
		logger: nil, // replaced on Start
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start prepares storage and starts the report janitor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting digest service...")

	store, err := files.New(s.uploadDir, s.outputDir, files.WithLogger(s.logger.Named("files")))
	if err != nil {
		return err
	}
	s.store = store

	if s.reportTTL > 0 {
		j, err := janitor.New(store, s.sweepSchedule, s.reportTTL, janitor.WithLogger(s.logger.Named("janitor")))
		if err != nil {
			return err
		}
		if _, err := j.RunOnce(ctx); err != nil {
			s.logger.Warn(ctx, "initial report sweep failed", logger.Error(err))
		}
		j.Start(ctx)
		s.janitor = j
	}

	s.started = true
	s.logger.Info(ctx, "digest service started",
		logger.String("uploadDir", s.uploadDir),
		logger.String("outputDir", s.outputDir),
		logger.Duration("reportTTL", s.reportTTL),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping digest service...")

	if s.janitor != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		s.janitor.Stop(stopCtx)
		cancel()
		s.janitor = nil
	}

	s.started = false
	s.logger.Info(ctx, "digest service stopped")
}

// Defaults returns the options applied when a request omits them.
func (s *Service) Defaults() Params {
	return s.defaults
}

// Process saves r, digests it with p and renders the workbook. The upload is
// removed once the run completes, whatever the outcome.
func (s *Service) Process(ctx context.Context, r io.Reader, p Params) (Summary, error) {
	store, err := s.storage()
	if err != nil {
		return Summary{}, err
	}

	upload, err := store.SaveUpload(r)
	if err != nil {
		s.failed.Add(1)
		return Summary{}, err
	}
	metrics.RecordUpload(upload.Size)
	defer func() {
		if err := store.RemoveUpload(upload); err != nil {
			s.logger.Warn(ctx, "failed to remove upload", logger.String("upload", upload.ID), logger.Error(err))
		}
	}()

	e := engine.New(
		engine.WithItemLimit(p.ItemLimit),
		engine.WithPlayerLimit(p.PlayerLimit),
		engine.WithIncludeIdentifier(p.IncludeIdentifier),
		engine.WithLogger(s.logger.Named("engine")),
	)
	d, err := e.RunFile(ctx, upload.Path)
	if err != nil {
		s.failed.Add(1)
		return Summary{}, err
	}

	id, size, err := s.render(store, d)
	if err != nil {
		s.failed.Add(1)
		metrics.RecordReportFailure()
		return Summary{}, err
	}
	metrics.RecordReportGenerated(size)
	if n, err := store.CountReports(); err == nil {
		metrics.UpdateReportsOnDisk(n)
	}
	s.processed.Add(1)

	s.logger.Info(ctx, "report generated",
		logger.String("report", id),
		logger.Int64("uploadBytes", upload.Size),
		logger.Int64("reportBytes", size),
		logger.Int("events", d.Stats.Events()),
	)

	return Summary{
		ReportID:    id,
		ReportBytes: size,
		Params: Params{
			ItemLimit:         d.ItemLimit,
			PlayerLimit:       d.PlayerLimit,
			IncludeIdentifier: d.IncludeIdentifier,
		},
		Stats: d.Stats,
		Days:  days(d),
	}, nil
}

// Download returns the path of a previously generated report.
func (s *Service) Download(_ context.Context, id string) (string, error) {
	store, err := s.storage()
	if err != nil {
		return "", err
	}
	return store.Report(id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   s.started,
		"processed": s.processed.Load(),
		"failed":    s.failed.Load(),
		"defaults":  s.defaults,
	}

	if s.started {
		if n, err := s.store.CountReports(); err == nil {
			stats["reportsOnDisk"] = n
			metrics.UpdateReportsOnDisk(n)
		}
	}

	return stats
}

func (s *Service) storage() (*files.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func (s *Service) render(store *files.Store, d *engine.Digest) (string, int64, error) {
	wb, err := report.New(d)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrReport, err)
	}
	defer func() { _ = wb.Close() }()

	id, path := store.NewReportPath()
	if err := wb.SaveAs(path); err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrReport, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrReport, err)
	}
	return id, info.Size(), nil
}

// days flattens the digest into one record per date, oldest first.
func days(d *engine.Digest) []Day {
	index := make(map[string]*Day)
	day := func(date string) *Day {
		if v, ok := index[date]; ok {
			return v
		}
		v := &Day{Date: date}
		index[date] = v
		return v
	}

	for date, entries := range d.Players(model.Sale) {
		day(date).TopSellers = entries
	}
	for date, entries := range d.Players(model.Purchase) {
		day(date).TopBuyers = entries
	}
	for date, entries := range d.Items(model.Sale) {
		day(date).SoldItems = entries
	}
	for date, entries := range d.Items(model.Purchase) {
		day(date).BoughtItems = entries
	}

	out := make([]Day, 0, len(index))
	for _, v := range index {
		out = append(out, *v)
	}
	slices.SortFunc(out, func(a, b Day) int { return cmp.Compare(a.Date, b.Date) })
	return out
}
