// Package config loads diskcheck settings from the environment.
//
// Precedence is: command-line flags > environment variables > .env file > defaults.
// Flags are applied by the cli package on top of the loaded Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for environment variables.
const EnvPrefix = "DISKCHECK"

// ErrSizeTooLarge is returned for sizes that do not fit in an int64 byte count.
var ErrSizeTooLarge = errors.New("size too large")

// DefaultEnvFile is the optional dotenv file loaded before the environment is read.
const DefaultEnvFile = ".env"

// Config holds the scheduled scan settings.
type Config struct {
	// MinSize is the reporting threshold. A bare number is megabytes.
	MinSize string `envconfig:"MIN_SIZE" default:"10" validate:"required"`
	// Roots are the directories scanned when none are given on the command line.
	Roots []string `envconfig:"ROOTS"`
	// Excludes are the path prefixes and names skipped during a scan.
	Excludes []string `envconfig:"EXCLUDES"`
	// LogDir receives the dated log files.
	LogDir string `envconfig:"LOG_DIR"`
	// DataDir receives the dated data files and the history database.
	DataDir string `envconfig:"DATA_DIR"`
	// HistoryKeep is the number of scans kept in the history database.
	HistoryKeep int `envconfig:"HISTORY_KEEP" default:"30" validate:"gte=1"`
	// KeepRecent protects files modified within this window from cleanup.
	KeepRecent time.Duration `envconfig:"KEEP_RECENT" default:"24h" validate:"gte=0"`
	// TaskName is the scheduler task name.
	TaskName string `envconfig:"TASK_NAME" default:"DiskFileCheck" validate:"required"`
	// TaskTime is the daily run time (HH:MM).
	TaskTime string `envconfig:"TASK_TIME" default:"20:00" validate:"datetime=15:04"`
}

// Load reads envFile (if it exists), then the DISKCHECK_* environment, fills
// platform defaults and validates the result.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills the platform-specific settings left empty.
func (c *Config) applyDefaults() error {
	if len(c.Roots) == 0 {
		c.Roots = DefaultRoots()
	}

	if len(c.Excludes) == 0 {
		c.Excludes = DefaultExcludes()
	}

	if c.LogDir != "" && c.DataDir != "" {
		return nil
	}

	base, err := baseDir()
	if err != nil {
		return err
	}

	if c.LogDir == "" {
		c.LogDir = filepath.Join(base, "logs")
	}

	if c.DataDir == "" {
		c.DataDir = filepath.Join(base, "data")
	}

	return nil
}

// baseDir returns the directory next to the executable, which is where the
// scheduler-run binary keeps its logs and data.
func baseDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}

	return filepath.Dir(exe), nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := ParseSize(c.MinSize); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// MinSizeBytes returns the threshold in bytes.
func (c *Config) MinSizeBytes() int64 {
	size, _ := ParseSize(c.MinSize)

	return size
}

// ParseSize parses a size threshold. A bare number is taken as megabytes
// ("10" is 10 MiB), anything else is parsed by go-humanize ("500KB", "2GiB").
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)

	if mb, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(mb) || mb < 0 {
			return 0, fmt.Errorf("size %q cannot be negative", s)
		}

		size := mb * humanize.MiByte
		if size >= math.MaxInt64 {
			return 0, fmt.Errorf("size %q: %w", s, ErrSizeTooLarge)
		}

		return int64(size), nil
	}

	size, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parsing size %q: %w", s, err)
	}

	if size > math.MaxInt64 {
		return 0, fmt.Errorf("size %q: %w", s, ErrSizeTooLarge)
	}

	return int64(size), nil
}
