package postgres

import (
	"context"
	"fmt"
	"time"

	"futures-tick-lab/internal/domain"
	"futures-tick-lab/internal/storage"
)

// BarStore implements storage.BarStore using PostgreSQL.
type BarStore struct {
	pool *Pool
}

// NewBarStore creates a new BarStore.
func NewBarStore(pool *Pool) *BarStore {
	return &BarStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

const insertBarQuery = `
	INSERT INTO bars (
		symbol, exchange, bar_interval, datetime,
		open_price, high_price, low_price, close_price,
		volume, turnover, open_interest
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// SaveBars bulk-inserts bars in one transaction. Fails the entire batch with
// storage.ErrDuplicateKey on any (symbol, exchange, interval, datetime) collision.
func (s *BarStore) SaveBars(ctx context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertBarQuery,
			b.Symbol, b.Exchange, string(b.Interval), b.Datetime.UTC(),
			b.OpenPrice, b.HighPrice, b.LowPrice, b.ClosePrice,
			b.Volume, b.Turnover, b.OpenInterest,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert bar in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// LoadBars retrieves bars for a symbol and interval within [start, end] (inclusive).
func (s *BarStore) LoadBars(ctx context.Context, symbol, exchange string, interval domain.Interval, start, end time.Time, limit int) ([]*domain.Bar, error) {
	query := `
		SELECT symbol, exchange, bar_interval, datetime,
		       open_price, high_price, low_price, close_price,
		       volume, turnover, open_interest
		FROM bars
		WHERE symbol = $1 AND exchange = $2 AND bar_interval = $3
		  AND datetime >= $4 AND datetime <= $5
		ORDER BY datetime ASC
	`
	args := []interface{}{symbol, exchange, string(interval), start.UTC(), end.UTC()}
	if limit > 0 {
		query += " LIMIT $6"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []*domain.Bar
	for rows.Next() {
		var b domain.Bar
		var iv string

		err := rows.Scan(
			&b.Symbol, &b.Exchange, &iv, &b.Datetime,
			&b.OpenPrice, &b.HighPrice, &b.LowPrice, &b.ClosePrice,
			&b.Volume, &b.Turnover, &b.OpenInterest,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		b.Interval = domain.Interval(iv)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}

// DeleteBars removes all bars for a symbol and interval. Returns the number removed.
func (s *BarStore) DeleteBars(ctx context.Context, symbol, exchange string, interval domain.Interval) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM bars WHERE symbol = $1 AND exchange = $2 AND bar_interval = $3`,
		symbol, exchange, string(interval),
	)
	if err != nil {
		return 0, fmt.Errorf("delete bars: %w", err)
	}
	return tag.RowsAffected(), nil
}
