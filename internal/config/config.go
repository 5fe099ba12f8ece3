package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ning0612/snapsync/internal/core/descriptor"
	"github.com/Ning0612/snapsync/internal/domain"
	"github.com/Ning0612/snapsync/internal/logger"
)

// Config is the complete snapsync configuration
type Config struct {
	// Destination is the writable directory kept in sync
	Destination string `mapstructure:"destination"`

	// Reference is the read-only snapshot directory
	Reference string `mapstructure:"reference"`

	// Descriptor is the descriptor file name inside both roots
	Descriptor string `mapstructure:"descriptor"`

	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// HistoryConfig controls the run history database
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LogConfig controls logging
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig controls the rotating log file
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// WatchConfig controls the watch command
type WatchConfig struct {
	Mode     string        `mapstructure:"mode"`
	Interval time.Duration `mapstructure:"interval"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// Watch modes
const (
	WatchModeInterval = "interval"
	WatchModeFSNotify = "fsnotify"
)

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Destination == "" {
		return fmt.Errorf("%w: destination cannot be empty", domain.ErrConfigInvalid)
	}
	if c.Reference == "" {
		return fmt.Errorf("%w: reference cannot be empty", domain.ErrConfigInvalid)
	}
	if filepath.Clean(c.Destination) == filepath.Clean(c.Reference) {
		return fmt.Errorf("%w: destination and reference must differ: %s", domain.ErrConfigInvalid, c.Destination)
	}

	if c.Descriptor == "" {
		return fmt.Errorf("%w: descriptor name cannot be empty", domain.ErrConfigInvalid)
	}
	if filepath.IsAbs(c.Descriptor) || strings.ContainsAny(c.Descriptor, `/\`) {
		return fmt.Errorf("%w: descriptor must be a plain file name: %s", domain.ErrConfigInvalid, c.Descriptor)
	}
	if _, err := descriptor.FormatFor(c.Descriptor); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	if c.History.Enabled && c.History.Dir == "" {
		return fmt.Errorf("%w: history.dir cannot be empty when history is enabled", domain.ErrConfigInvalid)
	}
	if c.Log.File.Enabled && c.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path cannot be empty when file logging is enabled", domain.ErrConfigInvalid)
	}

	switch c.Watch.Mode {
	case WatchModeInterval, WatchModeFSNotify:
	default:
		return fmt.Errorf("%w: invalid watch mode: %s", domain.ErrConfigInvalid, c.Watch.Mode)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("%w: watch.interval must be positive", domain.ErrConfigInvalid)
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("%w: watch.debounce must be positive", domain.ErrConfigInvalid)
	}

	return nil
}

// ToLoggerConfig converts the log section into a logger.Config
func (c *Config) ToLoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:   logger.ParseLevel(c.Log.Level),
		Format:  logger.ParseFormat(c.Log.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if c.Log.File.Enabled {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       c.Log.File.Path,
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			MaxBackups: c.Log.File.MaxBackups,
			Compress:   c.Log.File.Compress,
		}
	}
	return cfg
}

// expandPaths expands every path field in place
func (c *Config) expandPaths() {
	for _, p := range []*string{&c.Destination, &c.Reference, &c.History.Dir, &c.Log.File.Path} {
		if *p != "" {
			*p = ExpandPath(*p)
		}
	}
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
