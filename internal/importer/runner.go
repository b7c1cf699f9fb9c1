// Package importer drives the vendor CSV ingestion pipeline: decode, map,
// validate, deduplicate and persist, collecting per-file statistics along
// the way.
package importer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"futures-tick-lab/internal/domain"
	"futures-tick-lab/internal/normalize"
	"futures-tick-lab/internal/observability"
	"futures-tick-lab/internal/vendorcsv"
)

// Kind selects which record type an import run produces.
type Kind string

const (
	KindTick Kind = "tick"
	KindBar  Kind = "bar"
)

// Coordinator runs imports over single files or whole directories. A file
// that cannot be decoded or is missing required columns fails alone; the run
// continues with the remaining files.
type Coordinator struct {
	persister *BatchPersister
	mapping   normalize.ColumnMapping
	ts        *normalize.TimestampNormalizer
	exchange  string
	interval  domain.Interval
	opts      Options
	logger    *log.Logger
	metrics   *observability.Metrics
	clock     func() time.Time
}

// NewCoordinator creates a coordinator. The mapping must already include any
// caller overrides; interval applies only to bar imports.
func NewCoordinator(
	persister *BatchPersister,
	mapping normalize.ColumnMapping,
	ts *normalize.TimestampNormalizer,
	exchange string,
	interval domain.Interval,
	opts Options,
	logger *log.Logger,
	metrics *observability.Metrics,
) *Coordinator {
	return &Coordinator{
		persister: persister,
		mapping:   mapping,
		ts:        ts,
		exchange:  exchange,
		interval:  interval,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		clock:     time.Now,
	}
}

// Run imports path, which may be a single CSV file or a directory of them.
// Directory entries are processed in lexical order. The returned Stats always
// covers every attempted file, including failed ones.
func (c *Coordinator) Run(ctx context.Context, path string, kind Kind) (*Stats, error) {
	files, err := c.expand(path)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, file := range files {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		fs := c.importFile(ctx, file, kind)
		stats.Add(fs)

		if c.metrics != nil {
			status := observability.FileOK
			if fs.Fatal != nil {
				status = observability.FileFailed
			}
			c.metrics.FilesProcessed.WithLabelValues(status).Inc()
			c.metrics.ImportDuration.WithLabelValues(string(kind)).Observe(fs.Duration.Seconds())
		}

		if fs.Fatal != nil {
			c.logger.Printf("file %s failed: %v", file, fs.Fatal)
			continue
		}
		c.logger.Printf("file %s: %d rows, %d valid, %d rejected, %d duplicates, %d skipped, %d saved (%s)",
			file, fs.RowsTotal, fs.RowsValid, fs.RowsRejected, fs.Duplicates, fs.Skipped, fs.Saved, fs.Duration.Round(time.Millisecond))
	}
	return stats, nil
}

// expand resolves a path argument into the ordered list of CSV files to import.
func (c *Coordinator) expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	matches, err := filepath.Glob(filepath.Join(path, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no csv files under %s", path)
	}
	sort.Strings(matches)
	return matches, nil
}

func (c *Coordinator) importFile(ctx context.Context, path string, kind Kind) *FileStats {
	fs := newFileStats(path)
	start := c.clock()
	defer func() { fs.Duration = c.clock().Sub(start) }()

	file, err := vendorcsv.Read(path)
	if err != nil {
		fs.Fatal = err
		return fs
	}
	fs.Encoding = file.Encoding
	fs.RowsTotal = len(file.Rows)
	if len(file.Rows) == 0 {
		return fs
	}

	switch kind {
	case KindTick:
		c.importTicks(ctx, file, fs)
	case KindBar:
		c.importBars(ctx, file, fs)
	default:
		fs.Fatal = fmt.Errorf("unknown record kind %q", kind)
	}
	return fs
}

func (c *Coordinator) importTicks(ctx context.Context, file *vendorcsv.File, fs *FileStats) {
	mapper, err := normalize.NewTickMapper(c.mapping, file.Header, c.exchange, c.ts)
	if err != nil {
		fs.Fatal = err
		return
	}

	ticks := make([]*domain.Tick, 0, len(file.Rows))
	for i, row := range file.Rows {
		t, err := mapper.Map(row)
		if err != nil {
			c.reject(fs, i+1, err)
			continue
		}
		fs.RowsValid++
		fs.observe(t.Symbol, t.Datetime)
		if c.metrics != nil {
			c.metrics.RowsProcessed.WithLabelValues(observability.RowValid).Inc()
		}
		ticks = append(ticks, t)
	}

	deduped, removed := normalize.DedupTicks(ticks)
	c.recordDuplicates(fs, removed)

	for symbol, group := range groupTicks(deduped) {
		res, err := c.persister.PersistTicks(ctx, c.exchange, symbol, group, c.opts)
		if res != nil {
			c.fold(fs, res)
		}
		if err != nil {
			fs.Fatal = err
			return
		}
	}
}

func (c *Coordinator) importBars(ctx context.Context, file *vendorcsv.File, fs *FileStats) {
	mapper, err := normalize.NewBarMapper(c.mapping, file.Header, c.exchange, c.interval, c.ts)
	if err != nil {
		fs.Fatal = err
		return
	}

	bars := make([]*domain.Bar, 0, len(file.Rows))
	for i, row := range file.Rows {
		b, err := mapper.Map(row)
		if err != nil {
			c.reject(fs, i+1, err)
			continue
		}
		fs.RowsValid++
		fs.observe(b.Symbol, b.Datetime)
		if c.metrics != nil {
			c.metrics.RowsProcessed.WithLabelValues(observability.RowValid).Inc()
		}
		bars = append(bars, b)
	}

	deduped, removed := normalize.DedupBars(bars)
	c.recordDuplicates(fs, removed)

	for symbol, group := range groupBars(deduped) {
		res, err := c.persister.PersistBars(ctx, c.exchange, symbol, c.interval, group, c.opts)
		if res != nil {
			c.fold(fs, res)
		}
		if err != nil {
			fs.Fatal = err
			return
		}
	}
}

func (c *Coordinator) reject(fs *FileStats, index int, err error) {
	fs.RowsRejected++
	fs.Errors = append(fs.Errors, RowError{File: fs.Path, Index: index, Reason: err.Error()})
	if c.metrics != nil {
		c.metrics.RowsProcessed.WithLabelValues(observability.RowRejected).Inc()
	}
}

func (c *Coordinator) recordDuplicates(fs *FileStats, removed int) {
	fs.Duplicates += removed
	if c.metrics != nil && removed > 0 {
		c.metrics.DuplicatesRemoved.Add(float64(removed))
		c.metrics.RowsProcessed.WithLabelValues(observability.RowDuplicate).Add(float64(removed))
	}
}

// fold merges one symbol's persistence result into the file stats. Records
// that failed even individual retry become row errors without a source index;
// their key identifies them instead.
func (c *Coordinator) fold(fs *FileStats, res *Result) {
	fs.Saved += res.Saved
	fs.Skipped += res.Skipped
	for _, fr := range res.Failed {
		fs.Errors = append(fs.Errors, RowError{
			File:   fs.Path,
			Index:  -1,
			Reason: fmt.Sprintf("save %s@%s: %v", fr.Symbol, fr.Datetime.Format("2006-01-02 15:04:05.000"), fr.Err),
		})
	}
}

func groupTicks(ticks []*domain.Tick) map[string][]*domain.Tick {
	groups := make(map[string][]*domain.Tick)
	for _, t := range ticks {
		groups[t.Symbol] = append(groups[t.Symbol], t)
	}
	return groups
}

func groupBars(bars []*domain.Bar) map[string][]*domain.Bar {
	groups := make(map[string][]*domain.Bar)
	for _, b := range bars {
		groups[b.Symbol] = append(groups[b.Symbol], b)
	}
	return groups
}
