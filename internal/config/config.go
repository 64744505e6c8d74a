// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and DIGEST_ environment variables over the defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"time"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const bytesPerMB = 1 << 20

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// UploadDir holds uploaded logs while they are digested.
	UploadDir string `koanf:"upload_dir"`

	// OutputDir holds rendered workbooks until they are swept.
	OutputDir string `koanf:"output_dir"`

	// MaxUploadMB caps the size of an uploaded log.
	MaxUploadMB int `koanf:"max_upload_mb"`

	// ItemLimit and PlayerLimit are the default per-day caps; 0 keeps everything.
	ItemLimit   int `koanf:"item_limit"`
	PlayerLimit int `koanf:"player_limit"`

	// IncludeItemID keeps the parenthesised id in item names by default.
	IncludeItemID bool `koanf:"include_item_id"`

	// ReportTTLMinutes is how long a workbook stays downloadable; 0 keeps reports forever.
	ReportTTLMinutes int `koanf:"report_ttl_minutes"`

	// SweepSchedule is the cron spec of the report janitor.
	SweepSchedule string `koanf:"sweep_schedule"`

	// UploadRate is the sustained uploads per second the API accepts; 0 disables limiting.
	UploadRate  float64 `koanf:"upload_rate"`
	UploadBurst int     `koanf:"upload_burst"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        LogFormatText,
		Addr:             ":9080",
		UploadDir:        "uploads",
		OutputDir:        "output",
		MaxUploadMB:      32,
		ItemLimit:        0,
		PlayerLimit:      5,
		IncludeItemID:    true,
		ReportTTLMinutes: 60,
		SweepSchedule:    "@every 5m",
		UploadRate:       2,
		UploadBurst:      5,
	}
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * bytesPerMB
}

// ReportTTL returns how long a report is kept.
func (c *Config) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLMinutes) * time.Minute
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON:
		return fmt.Errorf("%w: log_format %q must be %s or %s", ErrInvalidConfig, c.LogFormat, LogFormatText, LogFormatJSON)
	case c.UploadDir == "":
		return fmt.Errorf("%w: upload_dir must not be empty", ErrInvalidConfig)
	case c.OutputDir == "":
		return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
	case c.MaxUploadMB <= 0:
		return fmt.Errorf("%w: max_upload_mb must be positive", ErrInvalidConfig)
	case c.ItemLimit < 0:
		return fmt.Errorf("%w: item_limit must not be negative", ErrInvalidConfig)
	case c.PlayerLimit < 0:
		return fmt.Errorf("%w: player_limit must not be negative", ErrInvalidConfig)
	case c.ReportTTLMinutes < 0:
		return fmt.Errorf("%w: report_ttl_minutes must not be negative", ErrInvalidConfig)
	case c.ReportTTLMinutes > 0 && c.SweepSchedule == "":
		return fmt.Errorf("%w: sweep_schedule must not be empty", ErrInvalidConfig)
	case c.UploadRate < 0:
		return fmt.Errorf("%w: upload_rate must not be negative", ErrInvalidConfig)
	case c.UploadRate > 0 && c.UploadBurst < 1:
		return fmt.Errorf("%w: upload_burst must be at least 1", ErrInvalidConfig)
	}
	return nil
}
