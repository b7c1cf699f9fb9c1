package importer

import (
	"sort"
	"time"
)

// RowError records one rejected or unsaveable row. Index is the 1-based data
// row number within the source file (the header is row 0).
type RowError struct {
	File   string
	Index  int
	Reason string
}

// FileStats accumulates counters for one vendor file.
type FileStats struct {
	Path     string
	Encoding string

	RowsTotal    int
	RowsValid    int
	RowsRejected int
	Duplicates   int
	Skipped      int
	Saved        int

	Symbols  map[string]struct{}
	MinTime  time.Time
	MaxTime  time.Time
	Errors   []RowError
	Fatal    error // encoding or schema failure, file produced nothing
	Duration time.Duration
}

func newFileStats(path string) *FileStats {
	return &FileStats{Path: path, Symbols: make(map[string]struct{})}
}

// observe widens the instant range and records the symbol for one record.
func (f *FileStats) observe(symbol string, dt time.Time) {
	f.Symbols[symbol] = struct{}{}
	if f.MinTime.IsZero() || dt.Before(f.MinTime) {
		f.MinTime = dt
	}
	if f.MaxTime.IsZero() || dt.After(f.MaxTime) {
		f.MaxTime = dt
	}
}

// SymbolList returns the symbols seen in this file, sorted.
func (f *FileStats) SymbolList() []string {
	out := make([]string, 0, len(f.Symbols))
	for s := range f.Symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Stats aggregates the outcome of a whole import run.
type Stats struct {
	Files []*FileStats

	RowsTotal    int
	RowsValid    int
	RowsRejected int
	Duplicates   int
	Skipped      int
	Saved        int
	FilesFailed  int
}

// Add folds one file's counters into the run totals.
func (s *Stats) Add(f *FileStats) {
	s.Files = append(s.Files, f)
	s.RowsTotal += f.RowsTotal
	s.RowsValid += f.RowsValid
	s.RowsRejected += f.RowsRejected
	s.Duplicates += f.Duplicates
	s.Skipped += f.Skipped
	s.Saved += f.Saved
	if f.Fatal != nil {
		s.FilesFailed++
	}
}

// Errors returns every row error across all files in file order.
func (s *Stats) Errors() []RowError {
	var out []RowError
	for _, f := range s.Files {
		out = append(out, f.Errors...)
	}
	return out
}
