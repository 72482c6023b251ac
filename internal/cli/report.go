package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/i94days/internal/report"
)

var (
	reportAsOf   string
	reportFormat string
	reportTrips  bool
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Print the days spent per year for a travel history",
	Long: `Reads the travel history, prints the days spent in each year and the
weighted total over the reference year and the two years before it.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportAsOf, "as-of", "", "reference date, YYYY-MM-DD (default today)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "", "output format: table or json (default from config)")
	reportCmd.Flags().BoolVar(&reportTrips, "trips", false, "list the paired trips")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
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
	rep, err := buildFileReport(cmd.Context(), cfg, log, args[0], asOf)
	if err != nil {
		return err
	}
	return report.Render(cmd.OutOrStdout(), rep, opts)
}

func renderOptions(configured string) (report.Options, error) {
	name := reportFormat
	if name == "" {
		name = configured
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{Format: format, ShowTrips: reportTrips}, nil
}
