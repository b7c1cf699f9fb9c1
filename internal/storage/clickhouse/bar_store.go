package clickhouse

import (
	"context"
	"fmt"
	"time"

	"futures-tick-lab/internal/domain"
	"futures-tick-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// SaveBars bulk-inserts bars. The (symbol, exchange, interval, datetime) key
// is checked explicitly before the insert; fails the entire batch with
// storage.ErrDuplicateKey on any collision.
func (s *BarStore) SaveBars(ctx context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol   string
		exchange string
		interval domain.Interval
		ms       int64
	}
	seen := make(map[key]struct{}, len(bars))
	ranges := make(map[[3]string][2]time.Time)
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{b.Symbol, b.Exchange, b.Interval, b.Datetime.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		sk := [3]string{b.Symbol, b.Exchange, string(b.Interval)}
		r, ok := ranges[sk]
		if !ok {
			ranges[sk] = [2]time.Time{b.Datetime, b.Datetime}
			continue
		}
		if b.Datetime.Before(r[0]) {
			r[0] = b.Datetime
		}
		if b.Datetime.After(r[1]) {
			r[1] = b.Datetime
		}
		ranges[sk] = r
	}

	for sk, r := range ranges {
		existing, err := s.existingInstants(ctx, sk[0], sk[1], domain.Interval(sk[2]), r[0], r[1])
		if err != nil {
			return fmt.Errorf("check existing range: %w", err)
		}
		for ms := range existing {
			if _, clash := seen[key{sk[0], sk[1], domain.Interval(sk[2]), ms}]; clash {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, exchange, bar_interval, datetime,
			open_price, high_price, low_price, close_price,
			volume, turnover, open_interest
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, b.Exchange, string(b.Interval), b.Datetime,
			b.OpenPrice, b.HighPrice, b.LowPrice, b.ClosePrice,
			b.Volume, b.Turnover, b.OpenInterest,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
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
		WHERE symbol = ? AND exchange = ? AND bar_interval = ?
		  AND datetime >= ? AND datetime <= ?
		ORDER BY datetime ASC
	`
	args := []interface{}{symbol, exchange, string(interval), start, end}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// DeleteBars removes all bars for a symbol and interval.
func (s *BarStore) DeleteBars(ctx context.Context, symbol, exchange string, interval domain.Interval) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM bars WHERE symbol = ? AND exchange = ? AND bar_interval = ?`,
		symbol, exchange, string(interval),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}

	err = s.conn.Exec(ctx,
		`DELETE FROM bars WHERE symbol = ? AND exchange = ? AND bar_interval = ?`,
		symbol, exchange, string(interval),
	)
	if err != nil {
		return 0, fmt.Errorf("delete bars: %w", err)
	}
	return int64(count), nil
}

// existingInstants returns the set of stored instants (unix ms) for a symbol
// and interval within [start, end].
func (s *BarStore) existingInstants(ctx context.Context, symbol, exchange string, interval domain.Interval, start, end time.Time) (map[int64]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT datetime FROM bars
		WHERE symbol = ? AND exchange = ? AND bar_interval = ?
		  AND datetime >= ? AND datetime <= ?
	`, symbol, exchange, string(interval), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	instants := make(map[int64]struct{})
	for rows.Next() {
		var dt time.Time
		if err := rows.Scan(&dt); err != nil {
			return nil, err
		}
		instants[dt.UnixMilli()] = struct{}{}
	}
	return instants, rows.Err()
}

// scanBars scans multiple rows.
func scanBars(rows chRows) ([]*domain.Bar, error) {
	var bars []*domain.Bar

	for rows.Next() {
		var b domain.Bar
		var interval string

		err := rows.Scan(
			&b.Symbol, &b.Exchange, &interval, &b.Datetime,
			&b.OpenPrice, &b.HighPrice, &b.LowPrice, &b.ClosePrice,
			&b.Volume, &b.Turnover, &b.OpenInterest,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		b.Interval = domain.Interval(interval)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
