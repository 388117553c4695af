// Package format provides console rendering for forecast/score reports.
// It adapts column widths to the terminal and supports color and
// truncation, carried over from the dependency-report tooling this
// module was adapted from.
package format

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"github.com/gitpulse-dev/gitpulse/pkg/report"
	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// scoreBand thresholds split the 0-100 score scale into green (>= 70),
// yellow (>= 45) and red bands, used only to pick a display color — they
// carry no computational weight.
const (
	scoreBandGood    = 70.0
	scoreBandWarning = 45.0
)

// ConsoleFormatter renders a Report in a terminal-friendly table that
// adapts to the current console width.
type ConsoleFormatter struct {
	// RepoColWidth constrains the repository-identifier column. If 0, a
	// dynamic width is chosen based on terminal width.
	RepoColWidth int

	// EnableColors toggles ANSI color output for score/error cells.
	EnableColors bool
}

// NewConsoleFormatter creates a formatter with sensible defaults.
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{EnableColors: true}
}

// Render writes the formatted report to writer: one table of per-repository
// score dimensions and forecast summary, followed by a summary/errors
// section.
func (f *ConsoleFormatter) Render(rpt *report.Report, writer io.Writer) error {
	if rpt == nil {
		return fmt.Errorf("nil report")
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(writer)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.DrawBorder = true

	header := table.Row{"Repository", "Overall"}
	for _, name := range schema.DimensionNames {
		header = append(header, name)
	}
	header = append(header, "Forecast", "Confidence", "Model")
	tw.AppendHeader(header)

	if configs := f.buildColumnConfig(rpt, writer); len(configs) > 0 {
		tw.SetColumnConfigs(configs)
	}

	for _, rr := range rpt.Repositories {
		tw.AppendRow(f.repoRow(&rr))
	}

	tw.Render()

	return f.renderSummary(rpt, writer)
}

func (f *ConsoleFormatter) repoRow(rr *report.RepositoryReport) table.Row {
	row := table.Row{rr.GetRepoIdentifier()}

	if rr.ScoreError != nil {
		row = append(row, f.color("ERROR", text.FgRed))
		for range schema.DimensionNames {
			row = append(row, f.color("ERROR", text.FgRed))
		}
	} else {
		row = append(row, f.scoreCell(rr.Score.Overall))
		for d := range schema.DimensionNames {
			row = append(row, f.scoreCell(rr.Score.Dimensions[d].Aggregate))
		}
	}

	if rr.ForecastError != nil {
		row = append(row, f.color("ERROR", text.FgRed), "—", "—")
	} else {
		row = append(row,
			fmt.Sprintf("%d mo", rr.Forecast.HorizonMonths),
			fmt.Sprintf("%.2f", rr.Forecast.Confidence),
			rr.Forecast.ModelVersion,
		)
	}

	return row
}

func (f *ConsoleFormatter) scoreCell(score float64) string {
	s := fmt.Sprintf("%.1f", score)
	switch {
	case score >= scoreBandGood:
		return f.color(s, text.FgGreen)
	case score >= scoreBandWarning:
		return f.color(s, text.FgYellow)
	default:
		return f.color(s, text.FgRed)
	}
}

func (f *ConsoleFormatter) renderSummary(rpt *report.Report, writer io.Writer) error {
	scored, forecast := 0, 0
	for _, rr := range rpt.Repositories {
		if rr.ScoreError == nil {
			scored++
		}
		if rr.ForecastError == nil {
			forecast++
		}
	}

	if _, err := fmt.Fprintln(writer); err != nil {
		return fmt.Errorf("failed writing summary spacer newline: %w", err)
	}
	if _, err := fmt.Fprintf(writer, "Summary:\n"); err != nil {
		return fmt.Errorf("failed writing summary header: %w", err)
	}
	if _, err := fmt.Fprintf(writer, "  Repositories scored: %d/%d successful\n", scored, len(rpt.Repositories)); err != nil {
		return fmt.Errorf("failed writing scored line: %w", err)
	}
	if _, err := fmt.Fprintf(writer, "  Repositories forecast: %d/%d successful\n", forecast, len(rpt.Repositories)); err != nil {
		return fmt.Errorf("failed writing forecast line: %w", err)
	}

	if !rpt.HasErrors() {
		return nil
	}

	if _, err := fmt.Fprintln(writer); err != nil {
		return fmt.Errorf("failed writing errors spacer newline: %w", err)
	}
	if _, err := fmt.Fprintf(writer, "Errors:\n"); err != nil {
		return fmt.Errorf("failed writing errors header: %w", err)
	}
	for label, e := range rpt.GetErrors() {
		if _, err := fmt.Fprintf(writer, "  %-40s %v\n", label, e); err != nil {
			return fmt.Errorf("failed writing error line for %s: %w", label, err)
		}
	}
	return nil
}

// buildColumnConfig constrains the repository-identifier column to fit the
// terminal; the remaining columns are few and fixed-width enough not to
// need dynamic sizing.
func (f *ConsoleFormatter) buildColumnConfig(rpt *report.Report, w io.Writer) []table.ColumnConfig {
	termWidth := detectTerminalWidth(w)
	if termWidth <= 0 {
		return nil
	}
	if termWidth < 60 {
		termWidth = 60
	}

	repoColWidth := f.RepoColWidth
	if repoColWidth <= 0 {
		repoColWidth = dynamicRepoWidth(rpt, termWidth)
	}

	return []table.ColumnConfig{
		{
			Number:      1,
			WidthMax:    repoColWidth,
			WidthMin:    minInt(10, repoColWidth),
			Transformer: truncTransformer(repoColWidth),
		},
	}
}

// dynamicRepoWidth estimates a good repository-identifier column width:
// the longest observed identifier, capped by how much of the terminal the
// fixed-width score/forecast columns leave available.
func dynamicRepoWidth(rpt *report.Report, termWidth int) int {
	const fixedColumns = 10 // Overall + 6 dimensions + Forecast + Confidence + Model
	const perFixedCol = 9

	reserved := fixedColumns * perFixedCol
	available := termWidth - reserved
	if available < 15 {
		available = 15
	}

	maxLen := 0
	for _, rr := range rpt.Repositories {
		if l := utf8.RuneCountInString(rr.GetRepoIdentifier()); l > maxLen {
			maxLen = l
		}
	}
	if maxLen == 0 {
		maxLen = 20
	}
	if maxLen > available {
		return available
	}
	return maxLen
}

func detectTerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			return width
		}
	}
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		return width
	}
	return -1
}

func truncTransformer(max int) text.Transformer {
	return func(val interface{}) string {
		s := fmt.Sprint(val)
		if runeLen := utf8.RuneCountInString(s); runeLen > max {
			if max <= 1 {
				return "…"
			}
			return truncateRunes(s, max)
		}
		return s
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	var b strings.Builder
	count := 0
	for _, r := range s {
		if count >= max-1 {
			break
		}
		b.WriteRune(r)
		count++
	}
	b.WriteRune('…')
	return b.String()
}

func (f *ConsoleFormatter) color(s string, c text.Color) string {
	if !f.EnableColors {
		return s
	}
	return text.Colors{c}.Sprint(s)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// RenderConsole renders the provided Report to the writer using the
// default console formatter.
func RenderConsole(rpt *report.Report, w io.Writer) error {
	return NewConsoleFormatter().Render(rpt, w)
}
