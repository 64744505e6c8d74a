// Package files keeps uploaded logs and rendered reports on local disk.
//
// Uploads and reports are named by uuid so an id taken from a request can never
// escape the store's directories.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/tradedigest/pkg/logger"
)

const (
	uploadExt = ".log"
	reportExt = ".xlsx"
	dirPerm   = 0o750
)

// Store manages the upload and output directories.
type Store struct {
	uploadDir string
	outputDir string
	logger    logger.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used by Sweep.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates both directories if needed.
func New(uploadDir, outputDir string, opts ...Option) (*Store, error) {
	s := &Store{
		uploadDir: uploadDir,
		outputDir: outputDir,
		logger:    logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", ErrStorage, dir, err)
		}
	}
	return s, nil
}

// Upload is a log saved to disk.
type Upload struct {
	ID   string
	Path string
	Size int64
}

// SaveUpload copies r into a fresh file in the upload directory.
func (s *Store) SaveUpload(r io.Reader) (Upload, error) {
	id := uuid.New().String()
	path := filepath.Join(s.uploadDir, id+uploadExt)

	f, err := os.Create(path)
	if err != nil {
		return Upload{}, fmt.Errorf("%w: create upload: %w", ErrStorage, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return Upload{}, fmt.Errorf("%w: write upload: %w", ErrStorage, err)
	}
	return Upload{ID: id, Path: path, Size: n}, nil
}

// RemoveUpload deletes a saved upload. A missing file is not an error.
func (s *Store) RemoveUpload(u Upload) error {
	if err := os.Remove(u.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove upload: %w", ErrStorage, err)
	}
	return nil
}

// NewReportPath allocates an id and the path its report should be written to.
func (s *Store) NewReportPath() (id, path string) {
	id = uuid.New().String()
	return id, filepath.Join(s.outputDir, id+reportExt)
}

// Report returns the path of an existing report.
func (s *Store) Report(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	path := filepath.Join(s.outputDir, parsed.String()+reportExt)

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	case err != nil:
		return "", fmt.Errorf("%w: stat report: %w", ErrStorage, err)
	case info.IsDir():
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return path, nil
}

// CountReports returns the number of reports on disk.
func (s *Store) CountReports() (int, error) {
	entries, err := s.reports()
	return len(entries), err
}

// Sweep removes reports last modified more than ttl ago and returns how many were removed.
func (s *Store) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	entries, err := s.reports()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-ttl)
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.outputDir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn(ctx, "failed to remove report", logger.String("file", e.Name()), logger.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Store) reports() ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: list reports: %w", ErrStorage, err)
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), reportExt) {
			out = append(out, e)
		}
	}
	return out, nil
}
