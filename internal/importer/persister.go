package importer

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"futures-tick-lab/internal/domain"
	"futures-tick-lab/internal/observability"
	"futures-tick-lab/internal/storage"
)

// DefaultBatchSize is the persistence window applied when the caller does not
// choose one.
const DefaultBatchSize = 10000

// Options controls one persistence pass.
type Options struct {
	// BatchSize is the number of records saved per storage call.
	BatchSize int
	// SkipExisting elides records whose (symbol, instant) is already stored
	// before writing, making re-imports idempotent.
	SkipExisting bool
}

func (o Options) batchSize() int {
	if o.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

// FailedRecord identifies one record that could not be persisted even on
// individual retry.
type FailedRecord struct {
	Symbol   string
	Datetime time.Time
	Err      error
}

// Result summarizes one persistence pass.
type Result struct {
	Saved   int
	Skipped int
	Retries int
	Failed  []FailedRecord
}

// BatchPersister writes normalized records through a storage backend in fixed
// windows, degrading to record-by-record retry when a window fails. One bad
// record costs one record, not its whole window.
type BatchPersister struct {
	ticks   storage.TickStore
	bars    storage.BarStore
	logger  *log.Logger
	metrics *observability.Metrics
}

// NewBatchPersister creates a persister over the given stores. Either store
// may be nil when only the other record kind is imported.
func NewBatchPersister(ticks storage.TickStore, bars storage.BarStore, logger *log.Logger, metrics *observability.Metrics) *BatchPersister {
	return &BatchPersister{ticks: ticks, bars: bars, logger: logger, metrics: metrics}
}

// PersistTicks saves one symbol's ticks, sorted by instant ascending.
func (p *BatchPersister) PersistTicks(ctx context.Context, exchange, symbol string, ticks []*domain.Tick, opts Options) (*Result, error) {
	if p.ticks == nil {
		return nil, fmt.Errorf("no tick store configured")
	}

	sorted := make([]*domain.Tick, len(ticks))
	copy(sorted, ticks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Datetime.Before(sorted[j].Datetime)
	})

	res := &Result{}
	if opts.SkipExisting && len(sorted) > 0 {
		existing, err := p.existingTickInstants(ctx, exchange, symbol, sorted[0].Datetime, sorted[len(sorted)-1].Datetime)
		if err != nil {
			// The pre-check is an optimization; without it duplicates fail
			// per-record instead of being elided.
			p.logger.Printf("skip-existing pre-check failed for %s, continuing without: %v", symbol, err)
		} else if len(existing) > 0 {
			kept := sorted[:0]
			for _, t := range sorted {
				if _, ok := existing[t.Datetime.UnixMilli()]; ok {
					res.Skipped++
					continue
				}
				kept = append(kept, t)
			}
			sorted = kept
		}
	}

	batch := opts.batchSize()
	for start := 0; start < len(sorted); start += batch {
		end := start + batch
		if end > len(sorted) {
			end = len(sorted)
		}
		window := sorted[start:end]

		if err := p.ticks.SaveTicks(ctx, window); err == nil {
			res.Saved += len(window)
			continue
		} else if ctx.Err() != nil {
			return res, ctx.Err()
		}

		// Window failed; isolate the offending records one by one.
		res.Retries++
		if p.metrics != nil {
			p.metrics.BatchRetries.Inc()
		}
		p.logger.Printf("batch of %d ticks for %s failed, retrying record by record", len(window), symbol)
		for _, t := range window {
			if err := p.ticks.SaveTicks(ctx, []*domain.Tick{t}); err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Failed = append(res.Failed, FailedRecord{Symbol: t.Symbol, Datetime: t.Datetime, Err: err})
				continue
			}
			res.Saved++
		}
	}

	p.count(res, "tick")
	return res, nil
}

// PersistBars saves one symbol's bars, sorted by instant ascending.
func (p *BatchPersister) PersistBars(ctx context.Context, exchange, symbol string, interval domain.Interval, bars []*domain.Bar, opts Options) (*Result, error) {
	if p.bars == nil {
		return nil, fmt.Errorf("no bar store configured")
	}

	sorted := make([]*domain.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Datetime.Before(sorted[j].Datetime)
	})

	res := &Result{}
	if opts.SkipExisting && len(sorted) > 0 {
		existing, err := p.existingBarInstants(ctx, exchange, symbol, interval, sorted[0].Datetime, sorted[len(sorted)-1].Datetime)
		if err != nil {
			p.logger.Printf("skip-existing pre-check failed for %s, continuing without: %v", symbol, err)
		} else if len(existing) > 0 {
			kept := sorted[:0]
			for _, b := range sorted {
				if _, ok := existing[b.Datetime.UnixMilli()]; ok {
					res.Skipped++
					continue
				}
				kept = append(kept, b)
			}
			sorted = kept
		}
	}

	batch := opts.batchSize()
	for start := 0; start < len(sorted); start += batch {
		end := start + batch
		if end > len(sorted) {
			end = len(sorted)
		}
		window := sorted[start:end]

		if err := p.bars.SaveBars(ctx, window); err == nil {
			res.Saved += len(window)
			continue
		} else if ctx.Err() != nil {
			return res, ctx.Err()
		}

		res.Retries++
		if p.metrics != nil {
			p.metrics.BatchRetries.Inc()
		}
		p.logger.Printf("batch of %d bars for %s failed, retrying record by record", len(window), symbol)
		for _, b := range window {
			if err := p.bars.SaveBars(ctx, []*domain.Bar{b}); err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Failed = append(res.Failed, FailedRecord{Symbol: b.Symbol, Datetime: b.Datetime, Err: err})
				continue
			}
			res.Saved++
		}
	}

	p.count(res, "bar")
	return res, nil
}

func (p *BatchPersister) count(res *Result, kind string) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordsSaved.WithLabelValues(kind).Add(float64(res.Saved))
	if res.Skipped > 0 {
		p.metrics.RecordsSkipped.Add(float64(res.Skipped))
	}
}

func (p *BatchPersister) existingTickInstants(ctx context.Context, exchange, symbol string, from, to time.Time) (map[int64]struct{}, error) {
	stored, err := p.ticks.LoadTicks(ctx, symbol, exchange, from, to, 0)
	if err != nil {
		return nil, err
	}
	instants := make(map[int64]struct{}, len(stored))
	for _, t := range stored {
		instants[t.Datetime.UnixMilli()] = struct{}{}
	}
	return instants, nil
}

func (p *BatchPersister) existingBarInstants(ctx context.Context, exchange, symbol string, interval domain.Interval, from, to time.Time) (map[int64]struct{}, error) {
	stored, err := p.bars.LoadBars(ctx, symbol, exchange, interval, from, to, 0)
	if err != nil {
		return nil, err
	}
	instants := make(map[int64]struct{}, len(stored))
	for _, b := range stored {
		instants[b.Datetime.UnixMilli()] = struct{}{}
	}
	return instants, nil
}
