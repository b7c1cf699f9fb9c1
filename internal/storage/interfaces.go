package storage

import (
	"context"
	"time"

	"futures-tick-lab/internal/domain"
)

// TickStore provides access to tick storage.
type TickStore interface {
	// SaveTicks bulk-inserts ticks. Returns ErrDuplicateKey if any
	// (symbol, exchange, datetime) key already exists; the whole batch
	// is rejected in that case.
	SaveTicks(ctx context.Context, ticks []*domain.Tick) error

	// LoadTicks retrieves ticks for a symbol within [start, end]
	// (inclusive), ordered by datetime ASC. limit <= 0 means no limit.
	// An empty result is not an error.
	LoadTicks(ctx context.Context, symbol, exchange string, start, end time.Time, limit int) ([]*domain.Tick, error)

	// DeleteTicks removes all ticks for a symbol. Returns the number removed.
	DeleteTicks(ctx context.Context, symbol, exchange string) (int64, error)
}

// BarStore provides access to bar storage.
type BarStore interface {
	// SaveBars bulk-inserts bars. Returns ErrDuplicateKey if any
	// (symbol, exchange, interval, datetime) key already exists; the whole
	// batch is rejected in that case.
	SaveBars(ctx context.Context, bars []*domain.Bar) error

	// LoadBars retrieves bars for a symbol and interval within [start, end]
	// (inclusive), ordered by datetime ASC. limit <= 0 means no limit.
	LoadBars(ctx context.Context, symbol, exchange string, interval domain.Interval, start, end time.Time, limit int) ([]*domain.Bar, error)

	// DeleteBars removes all bars for a symbol and interval. Returns the
	// number removed.
	DeleteBars(ctx context.Context, symbol, exchange string, interval domain.Interval) (int64, error)
}
