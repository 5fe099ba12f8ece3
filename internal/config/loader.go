package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/Ning0612/snapsync/internal/core/descriptor"
	"github.com/Ning0612/snapsync/internal/domain"
)

// AppName names the XDG subdirectories and the env prefix
const AppName = "snapsync"

// DefaultConfigPaths returns the directories searched for config.yaml
func DefaultConfigPaths() []string {
	return []string{
		".",
		"./configs",
		filepath.Join(xdg.ConfigHome, AppName),
	}
}

// DefaultHistoryDir is where the history database lives unless configured
func DefaultHistoryDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultLogPath is the rotating log file location unless configured
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, AppName, "snapsync.log")
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("destination", "")
	v.SetDefault("reference", "")
	v.SetDefault("descriptor", descriptor.DefaultName)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dir", DefaultHistoryDir())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", DefaultLogPath())
	v.SetDefault("log.file.max_size_mb", 10)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.compress", false)
	v.SetDefault("watch.mode", WatchModeInterval)
	v.SetDefault("watch.interval", "5m")
	v.SetDefault("watch.debounce", "2s")

	// SNAPSYNC_DESTINATION, SNAPSYNC_LOG_LEVEL, ...
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads and validates the configuration.
// If path is empty, the default locations are searched for config.yaml; when
// none exists the configuration may still come entirely from the environment.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			if v.GetString("destination") == "" {
				return nil, domain.ErrConfigNotFound
			}
		case path != "" && errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	return decode(v)
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
