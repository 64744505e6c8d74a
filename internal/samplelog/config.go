package samplelog

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Generate for a config that cannot produce a log.
var ErrInvalidConfig = errors.New("invalid sample log config")

// Default generation settings.
const (
	DefaultLines   = 10000
	DefaultDays    = 3
	DefaultPlayers = 12
	DefaultSeed    = 1
)

// Config controls the shape of a generated log.
type Config struct {
	Lines   int       // total lines written, noise included
	Days    int       // calendar days the timestamps span
	Players int       // distinct player names
	Start   time.Time // timestamp of the first line
	Seed    uint64    // same seed, same log

	// Noise and Malformed are per-mille shares of non-trade and broken trade lines.
	Noise     int
	Malformed int
}

// DefaultConfig returns a config that writes DefaultLines lines starting at midnight on 2024-01-01.
func DefaultConfig() Config {
	return Config{
		Lines:     DefaultLines,
		Days:      DefaultDays,
		Players:   DefaultPlayers,
		Start:     time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Seed:      DefaultSeed,
		Noise:     80,
		Malformed: 20,
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.Lines < 0:
		return fmt.Errorf("%w: lines must be >= 0", ErrInvalidConfig)
	case c.Days < 1:
		return fmt.Errorf("%w: days must be >= 1", ErrInvalidConfig)
	case c.Players < 1:
		return fmt.Errorf("%w: players must be >= 1", ErrInvalidConfig)
	case c.Noise < 0 || c.Malformed < 0 || c.Noise+c.Malformed > perMille:
		return fmt.Errorf("%w: noise and malformed shares must sum to at most %d", ErrInvalidConfig, perMille)
	}
	return nil
}

// Stats counts what Generate wrote, by line class.
type Stats struct {
	Lines     int
	Sales     int
	Purchases int
	Noise     int
	Malformed int
}
