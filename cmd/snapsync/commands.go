package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/snapsync/internal/config"
	"github.com/Ning0612/snapsync/internal/core/checksum"
	"github.com/Ning0612/snapsync/internal/core/descriptor"
	"github.com/Ning0612/snapsync/internal/core/manifest"
	"github.com/Ning0612/snapsync/internal/domain"
	"github.com/Ning0612/snapsync/internal/logger"
	"github.com/Ning0612/snapsync/internal/progress"
	"github.com/Ning0612/snapsync/internal/scheduler"
	"github.com/Ning0612/snapsync/internal/service"
	"github.com/Ning0612/snapsync/internal/state"
)

var (
	resetYes     bool
	historyLimit int
	manifestOut  string
	manifestAlgo string
	watchMode    string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Bring the destination in line with the reference",
	Long: `Sync loads the reference descriptor and the descriptor last installed into the
destination, computes the difference, and applies it: stale files are removed,
changed files are replaced and new files are copied from the reference. The
reference descriptor is written to the destination only after every change
succeeded.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the destination contents and reinstall the reference",
	Long: `Reset removes everything below the destination directory and performs a full
install from the reference. The reference descriptor is checked first, so a
broken reference leaves the destination untouched.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the changes a sync would apply",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sync runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var manifestCmd = &cobra.Command{
	Use:   "manifest <dir>",
	Short: "Write a descriptor for a directory",
	Long: `Manifest walks a directory, hashes every file and records every directory as
a marker, then writes the resulting descriptor. The output format follows the
extension of the output file (.json, .yaml, .yml, .toml); without -o the JSON
descriptor is printed to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runManifest,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep syncing in the foreground",
	Long: `Watch syncs once, then keeps the destination up to date until interrupted:
either on a fixed interval or whenever files in the reference directory change.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
	manifestCmd.Flags().StringVarP(&manifestOut, "output", "o", "", "output file (default stdout)")
	manifestCmd.Flags().StringVar(&manifestAlgo, "algo", string(checksum.SHA256), "hash algorithm (sha256, md5)")
	watchCmd.Flags().StringVar(&watchMode, "mode", "", "trigger mode (interval, fsnotify); overrides the config file")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	a, err := newApp(ctx, newProgressPrinter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.syncSvc.Sync(ctx)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	a, err := newApp(ctx, newProgressPrinter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer a.close()

	if !resetYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
			fmt.Sprintf("Delete everything under %s and reinstall?", a.cfg.Destination))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted")
			return nil
		}
	}

	result, err := a.syncSvc.ResetAndSync(ctx)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.close()

	plan, err := a.syncSvc.Plan(ctx)
	if err != nil {
		return err
	}
	printPlan(cmd.OutOrStdout(), plan)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.close()

	if a.history == nil {
		return fmt.Errorf("sync history is disabled")
	}

	runs, err := a.history.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), runs)
	return nil
}

func runManifest(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	if err := initStandaloneLogger(); err != nil {
		return err
	}
	defer logger.Shutdown()

	algo, err := checksum.ParseAlgorithm(manifestAlgo)
	if err != nil {
		return err
	}

	name := descriptor.DefaultName
	if manifestOut != "" {
		name = filepath.Base(manifestOut)
	}

	d, err := manifest.BuildDir(ctx, args[0], manifest.Options{
		Algorithm: algo,
		Exclude:   []string{name},
	})
	if err != nil {
		return err
	}

	data, err := descriptor.Encode(name, d)
	if err != nil {
		return err
	}

	if manifestOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(manifestOut, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", manifestOut, err)
	}
	logger.Get().Info("descriptor written", "path", manifestOut, "entries", d.Len(), "sha", d.WholeHash())
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.close()

	mode := a.cfg.Watch.Mode
	if watchMode != "" {
		mode = watchMode
	}
	if mode != config.WatchModeInterval && mode != config.WatchModeFSNotify {
		return fmt.Errorf("unknown watch mode: %s", mode)
	}

	daemon, err := service.NewDaemonService(a.syncSvc, a.history)
	if err != nil {
		return err
	}

	err = daemon.Start(ctx, scheduler.Config{
		Mode:       scheduler.Mode(mode),
		Interval:   a.cfg.Watch.Interval,
		WatchDir:   a.cfg.Reference,
		Debounce:   a.cfg.Watch.Debounce,
		RunOnStart: true,
	})
	if err != nil {
		return err
	}

	logger.Get().Info("watching", "mode", mode, "reference", a.cfg.Reference)
	<-ctx.Done()
	logger.Get().Info("shutting down")

	return daemon.Stop()
}

// confirm asks a yes/no question, defaulting to no
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// newProgressPrinter reports each finished change on out
func newProgressPrinter(out io.Writer) progress.Reporter {
	return progress.NewCallbackReporter(func(u progress.Update) {
		switch u.Type {
		case progress.UpdateComplete:
			fmt.Fprintf(out, "%s %-10s %s\n", progress.FormatCount(u.ChangesCompleted, u.ChangesTotal), u.Kind, u.Path)
		case progress.UpdateError:
			fmt.Fprintf(out, "failed %s %s: %v\n", u.Kind, u.Path, u.Error)
		}
	})
}

func printResult(out io.Writer, result *service.Result) {
	plan := result.Plan
	if len(plan.Changes) == 0 {
		fmt.Fprintf(out, "Already up to date (%s)\n", shortHash(plan.ReferenceHash))
		return
	}
	fmt.Fprintf(out, "Synced to %s in %s: %d created, %d modified, %d removed, %d directories removed\n",
		shortHash(plan.ReferenceHash),
		result.Duration.Round(time.Millisecond),
		plan.Stats.Creates, plan.Stats.Modifies, plan.Stats.Removes, plan.Stats.DirRemoves,
	)
}

func printPlan(out io.Writer, plan *domain.SyncPlan) {
	fmt.Fprintf(out, "destination: %s\nreference:   %s\n", shortHash(plan.DestinationHash), shortHash(plan.ReferenceHash))
	if len(plan.Changes) == 0 {
		fmt.Fprintln(out, "No changes")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range plan.Changes {
		fmt.Fprintf(w, "%s\t%s\n", c.Kind, c.Path)
	}
	w.Flush()

	fmt.Fprintf(out, "%d changes\n", plan.Stats.Total)
}

func printHistory(out io.Writer, runs []state.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tOPERATION\tSTATUS\tREFERENCE\tCHANGES\tDURATION\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.StartTime.Local().Format(time.DateTime),
			r.Operation,
			r.Status,
			shortHash(r.ReferenceHash),
			r.Changes(),
			r.Duration().Round(time.Millisecond),
			r.Error,
		)
	}
	w.Flush()
}

func shortHash(h string) string {
	switch {
	case h == "":
		return "(none)"
	case len(h) > 12:
		return h[:12]
	default:
		return h
	}
}
