// Package reporting renders import run results for operators: a plain text
// summary for the console and a per-file CSV for spreadsheets.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"futures-tick-lab/internal/importer"
)

const timeLayout = "2006-01-02 15:04:05.000"

// RenderSummary renders an import run as plain text.
func RenderSummary(stats *importer.Stats) string {
	var sb strings.Builder

	sb.WriteString("Import summary\n")
	sb.WriteString(fmt.Sprintf("  files:      %d (%d failed)\n", len(stats.Files), stats.FilesFailed))
	sb.WriteString(fmt.Sprintf("  rows:       %d total, %d valid, %d rejected\n", stats.RowsTotal, stats.RowsValid, stats.RowsRejected))
	sb.WriteString(fmt.Sprintf("  duplicates: %d removed\n", stats.Duplicates))
	sb.WriteString(fmt.Sprintf("  skipped:    %d already stored\n", stats.Skipped))
	sb.WriteString(fmt.Sprintf("  saved:      %d\n", stats.Saved))

	for _, f := range stats.Files {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", f.Path))
		if f.Fatal != nil {
			sb.WriteString(fmt.Sprintf("  FAILED: %v\n", f.Fatal))
			continue
		}
		sb.WriteString(fmt.Sprintf("  encoding: %s\n", f.Encoding))
		if symbols := f.SymbolList(); len(symbols) > 0 {
			sb.WriteString(fmt.Sprintf("  symbols:  %s\n", strings.Join(symbols, ", ")))
		}
		if !f.MinTime.IsZero() {
			sb.WriteString(fmt.Sprintf("  range:    %s .. %s\n", f.MinTime.Format(timeLayout), f.MaxTime.Format(timeLayout)))
		}
		sb.WriteString(fmt.Sprintf("  rows: %d total, %d valid, %d rejected, %d duplicates, %d skipped, %d saved\n",
			f.RowsTotal, f.RowsValid, f.RowsRejected, f.Duplicates, f.Skipped, f.Saved))
	}

	if errs := stats.Errors(); len(errs) > 0 {
		sb.WriteString("\nRow errors\n")
		for _, e := range errs {
			if e.Index >= 0 {
				sb.WriteString(fmt.Sprintf("  %s row %d: %s\n", e.File, e.Index, e.Reason))
			} else {
				sb.WriteString(fmt.Sprintf("  %s: %s\n", e.File, e.Reason))
			}
		}
	}

	return sb.String()
}

// RenderCSV renders per-file results as CSV string, one row per file.
func RenderCSV(stats *importer.Stats) string {
	var sb strings.Builder

	sb.WriteString("file,status,encoding,rows_total,rows_valid,rows_rejected,duplicates,skipped,saved,symbols,range_start,range_end,duration_ms\n")

	for _, f := range stats.Files {
		status := "ok"
		if f.Fatal != nil {
			status = "failed"
		}
		var rangeStart, rangeEnd string
		if !f.MinTime.IsZero() {
			rangeStart = f.MinTime.Format(timeLayout)
			rangeEnd = f.MaxTime.Format(timeLayout)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%d,%d,%d,%d,%s,%s,%s,%d\n",
			f.Path,
			status,
			f.Encoding,
			f.RowsTotal,
			f.RowsValid,
			f.RowsRejected,
			f.Duplicates,
			f.Skipped,
			f.Saved,
			strings.Join(f.SymbolList(), ";"),
			rangeStart,
			rangeEnd,
			f.Duration/time.Millisecond,
		))
	}

	return sb.String()
}
