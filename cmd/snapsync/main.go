package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ning0612/snapsync/internal/adapter/billyfs"
	"github.com/Ning0612/snapsync/internal/adapter/local"
	"github.com/Ning0612/snapsync/internal/config"
	"github.com/Ning0612/snapsync/internal/logger"
	"github.com/Ning0612/snapsync/internal/progress"
	"github.com/Ning0612/snapsync/internal/service"
	"github.com/Ning0612/snapsync/internal/state"
)

var (
	// Set at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snapsync",
	Short: "Keep a writable directory in line with a bundled reference snapshot",
	Long: `snapsync compares the descriptor shipped with a read-only reference directory
against the descriptor last installed into a writable destination, and applies
only the files that were added, changed or removed.

A descriptor maps every relative path to its content hash; directories carry
an empty hash. Use "snapsync manifest" to produce one for a directory.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "snapsync %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., ./configs and $XDG_CONFIG_HOME/snapsync)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); overrides the config file")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// app holds everything a command needs once the config is loaded
type app struct {
	cfg     *config.Config
	syncSvc *service.SyncService
	history *state.Manager
}

// loadConfig reads the config file and applies the logging flags on top
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

// newApp loads the configuration, installs the global logger and wires the
// sync service. The caller must call close.
func newApp(ctx context.Context, reporter progress.Reporter) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.ToLoggerConfig()); err != nil {
		return nil, err
	}

	log := logger.Get()
	log.Debug("configuration loaded",
		"destination", cfg.Destination,
		"reference", cfg.Reference,
		"descriptor", cfg.Descriptor,
	)

	reference, err := billyfs.NewOS(cfg.Reference)
	if err != nil {
		logger.Shutdown()
		return nil, fmt.Errorf("opening reference %s: %w", cfg.Reference, err)
	}
	destination, err := local.NewWithCreate(cfg.Destination)
	if err != nil {
		logger.Shutdown()
		return nil, fmt.Errorf("opening destination %s: %w", cfg.Destination, err)
	}

	a := &app{cfg: cfg}
	opts := service.Options{
		DescriptorName: cfg.Descriptor,
		Reporter:       reporter,
	}

	if cfg.History.Enabled {
		history, err := state.NewManager(ctx, cfg.History.Dir)
		if err != nil {
			// A broken history database must not block syncing
			log.Warn("sync history disabled", "dir", cfg.History.Dir, "error", err)
		} else {
			a.history = history
			opts.History = history
		}
	}

	a.syncSvc = service.NewSyncService(reference, destination, opts)
	return a, nil
}

func (a *app) close() {
	if err := a.syncSvc.Close(); err != nil {
		logger.Get().Warn("failed to close adapters", "error", err)
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			logger.Get().Warn("failed to close history", "error", err)
		}
	}
	logger.Shutdown()
}

// initStandaloneLogger installs a stderr logger from the flags alone, for
// commands that do not read the config file
func initStandaloneLogger() error {
	return logger.Init(logger.Config{
		Level:   logger.ParseLevel(logLevel),
		Format:  logger.ParseFormat(logFormat),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	})
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
