// Package cli wires the i94days commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/i94days/internal/config"
	"github.com/dgallion1/i94days/internal/report"
	"github.com/dgallion1/i94days/internal/source"
	"github.com/dgallion1/i94days/internal/trips"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "i94days",
	Short: "Count days of US presence from an I-94 travel history",
	Long: `i94days reads an I-94 travel history export (PDF, HTML, DOCX, Markdown,
CSV or text), pairs arrivals with departures and reports the days spent in
the country per year, weighted over the last three years.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default $I94DAYS_CONFIG)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// parseAsOf accepts the same layouts as travel dates; empty means today.
func parseAsOf(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return trips.Today(time.Now()), nil
	}
	t, ok := trips.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid --as-of date %q", s)
	}
	return t, nil
}

// buildFileReport runs one document on disk through the pipeline.
func buildFileReport(ctx context.Context, cfg config.Config, log *slog.Logger, path string, asOf time.Time) (*report.Report, error) {
	src, err := source.ForFile(path, source.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	rep, err := report.Build(ctx, src, f, filepath.Base(path), asOf)
	if err != nil {
		return nil, err
	}
	for _, msg := range rep.Warnings {
		log.Warn("report warning", "file", rep.Filename, "warning", msg)
	}
	return rep, nil
}
