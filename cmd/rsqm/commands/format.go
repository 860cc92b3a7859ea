package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/rsqm/internal/brain"
	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/export"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const separatorWidth = 59

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("─", separatorWidth))
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("═", separatorWidth))
}

// PrintHeader prints a titled block
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row; the first column is left-aligned, the rest right-aligned
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		if i == 0 {
			fmt.Fprintf(w, "%-*s", widths[i], val)
		} else {
			fmt.Fprintf(w, "%*s", widths[i], val)
		}
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintWatchlist renders the ranked table rounded to 2 decimals.
// Unavailable values print as "-".
func PrintWatchlist(w io.Writer, table *contracts.RankedTable) {
	columns := table.Columns()
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
		if widths[i] < 8 {
			widths[i] = 8
		}
	}
	widths[0] = 14

	rows := make([][]string, 0, len(table.Rows))
	for _, rec := range table.Rows {
		row := []string{rec.Symbol}
		for _, lb := range table.Lookbacks {
			row = append(row, cell(rec.AbsReturns[lb.Label]), cell(rec.RelStrengths[lb.Label]))
		}
		row = append(row, cell(rec.Score), strconv.Itoa(rec.Rank))
		if len(rec.Symbol) > widths[0] {
			widths[0] = len(rec.Symbol)
		}
		rows = append(rows, row)
	}

	PrintTableHeader(w, columns, widths)
	for _, row := range rows {
		PrintTableRow(w, row, widths)
	}
}

func cell(v contracts.NullFloat) string {
	if s := export.FormatValue(v); s != "" {
		return s
	}
	return "-"
}

// PrintRunResult prints the summary of a pipeline run
func PrintRunResult(w io.Writer, result *brain.RunResult) {
	PrintHeader(w, fmt.Sprintf("RSQM Watchlist - Nifty %d", result.Scope))
	fmt.Fprintf(w, "  Run ID    : %s\n", result.RunID)
	fmt.Fprintf(w, "  Date      : %s\n", result.Date.Format("2006-01-02"))
	fmt.Fprintf(w, "  Status    : %s\n", result.Status)
	fmt.Fprintf(w, "  Stages    : %s\n", strings.Join(result.CompletedStages, " → "))
	if result.Universe != nil {
		fmt.Fprintf(w, "  Universe  : %d symbols (%s)\n", result.Universe.Count(), result.Universe.Source)
	}
	if q := result.QualitySnapshot; q != nil {
		fmt.Fprintf(w, "  Quality   : %.2f (price coverage %.0f%%)\n", q.QualityScore, q.Coverage["price"]*100)
	}
	if result.Benchmark != nil && result.Full != nil {
		parts := make([]string, 0, len(result.Full.Lookbacks))
		for _, lb := range result.Full.Lookbacks {
			parts = append(parts, fmt.Sprintf("%s %s", lb.Label, cell(result.Benchmark.Return(lb.Label))))
		}
		fmt.Fprintf(w, "  Benchmark : %s (%s)\n", result.Benchmark.Symbol, strings.Join(parts, ", "))
	}
	fmt.Fprintf(w, "  Duration  : %.2fs\n", result.Duration.Seconds())
	PrintSeparator(w)

	if len(result.Skipped) > 0 {
		PrintWarning(w, fmt.Sprintf("%d symbols skipped (no usable data)", len(result.Skipped)))
	}

	if result.Top == nil || result.Top.IsEmpty() {
		PrintWarning(w, "No instrument could be scored")
	} else {
		fmt.Fprintln(w)
		PrintWatchlist(w, result.Top)
	}

	if len(result.Exported) > 0 {
		fmt.Fprintln(w)
		for _, format := range sortedKeys(result.Exported) {
			PrintSuccess(w, fmt.Sprintf("%-8s → %s", format, result.Exported[format]))
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
