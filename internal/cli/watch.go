package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dgallion1/i94days/internal/report"
)

const watchDebounce = 250 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-print the report whenever the history file changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&reportAsOf, "as-of", "", "reference date, YYYY-MM-DD (default today)")
	watchCmd.Flags().StringVarP(&reportFormat, "format", "f", "", "output format: table or json (default from config)")
	watchCmd.Flags().BoolVar(&reportTrips, "trips", false, "list the paired trips")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := renderOptions(cfg.OutputFormat)
	if err != nil {
		return err
	}
	asOf, err := parseAsOf(reportAsOf)
	if err != nil {
		return err
	}
	log := newLogger(cfg, os.Stderr)
	ctx := cmd.Context()
	path := args[0]

	render := func() {
		rep, err := buildFileReport(ctx, cfg, log, path, asOf)
		if err != nil {
			log.Error("build report", "file", path, "error", err)
			return
		}
		if err := report.Render(cmd.OutOrStdout(), rep, opts); err != nil {
			log.Error("render report", "file", path, "error", err)
		}
	}

	render()
	log.Info("watching for changes", "file", path)
	return watchFile(ctx, path, watchDebounce, render)
}

// watchFile calls onChange once per burst of writes to path until ctx is
// done. The parent directory is watched so editors that replace the file
// on save are still seen.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}
