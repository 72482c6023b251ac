package report

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Format selects an output rendering.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or json)", s)
	}
}

// Options control what Render prints.
type Options struct {
	Format    Format
	ShowTrips bool
}

// Render writes rep to w in the requested format.
func Render(w io.Writer, rep *Report, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return RenderJSON(w, rep)
	default:
		return RenderTable(w, rep, opts.ShowTrips)
	}
}

// RenderJSON writes rep as indented JSON.
func RenderJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// RenderTable writes the console report: days per year, the weighted last
// three years and the combined total.
func RenderTable(w io.Writer, rep *Report, showTrips bool) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("i94 RESULTS") + "\n")
	fmt.Fprintf(&b, "%s as of %s\n\n", rep.Filename, rep.AsOf.Format("2006-01-02"))

	if showTrips {
		b.WriteString(titleStyle.Render("Trips") + "\n")
		t := newTable("Arrival", "From", "Departure", "To", "Days")
		for _, trip := range rep.Trips {
			row := []string{"-", "", "-", "", "-"}
			if trip.Arrival != nil {
				row[0], row[1] = trip.Arrival.Date, trip.Arrival.Location
			}
			if trip.Departure != nil {
				row[2], row[3] = trip.Departure.Date, trip.Departure.Location
			}
			if trip.Duration != nil {
				row[4] = strconv.Itoa(*trip.Duration)
			}
			t.Row(row...)
		}
		b.WriteString(t.String() + "\n\n")
	}

	b.WriteString(titleStyle.Render("Days Spent") + "\n")
	yearly := newTable("Year", "Days")
	for _, year := range slices.Sorted(maps.Keys(rep.Yearly)) {
		yearly.Row(strconv.Itoa(year), strconv.Itoa(rep.Yearly[year]))
	}
	b.WriteString(yearly.String() + "\n\n")

	b.WriteString(titleStyle.Render("Adjusted Days Spent in Last 3 Years") + "\n")
	adjusted := newTable("Year", "Days", "Weight", "Adjusted")
	weights := []string{"1", "1/3", "1/6"}
	for i, y := range rep.Weighted.Years {
		adjusted.Row(strconv.Itoa(y.Year), y.Raw.String(), weights[i], y.Weighted.String())
	}
	b.WriteString(adjusted.String() + "\n")
	fmt.Fprintf(&b, "Total: %s\n", rep.Weighted.Total)
	fmt.Fprintf(&b, "Substantial presence test: %s\n", rep.Verdict)

	if len(rep.Warnings) > 0 {
		b.WriteString("\n")
		for _, msg := range rep.Warnings {
			b.WriteString(warnStyle.Render("warning: "+msg) + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
