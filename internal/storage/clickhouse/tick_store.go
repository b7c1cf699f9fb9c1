package clickhouse

import (
	"context"
	"fmt"
	"time"

	"futures-tick-lab/internal/domain"
	"futures-tick-lab/internal/storage"
)

// TickStore implements storage.TickStore using ClickHouse.
type TickStore struct {
	conn *Conn
}

// NewTickStore creates a new TickStore.
func NewTickStore(conn *Conn) *TickStore {
	return &TickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// SaveTicks bulk-inserts ticks. MergeTree does not enforce uniqueness, so the
// (symbol, exchange, datetime) key is checked explicitly before the insert:
// intra-batch first, then against the covered range in the table. Fails the
// entire batch with storage.ErrDuplicateKey on any collision.
func (s *TickStore) SaveTicks(ctx context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	type key struct {
		symbol   string
		exchange string
		ms       int64
	}
	seen := make(map[key]struct{}, len(ticks))
	ranges := make(map[[2]string][2]time.Time)
	for _, t := range ticks {
		if t == nil || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{t.Symbol, t.Exchange, t.Datetime.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		sk := [2]string{t.Symbol, t.Exchange}
		r, ok := ranges[sk]
		if !ok {
			ranges[sk] = [2]time.Time{t.Datetime, t.Datetime}
			continue
		}
		if t.Datetime.Before(r[0]) {
			r[0] = t.Datetime
		}
		if t.Datetime.After(r[1]) {
			r[1] = t.Datetime
		}
		ranges[sk] = r
	}

	// Check for collisions against existing rows, one range query per symbol
	for sk, r := range ranges {
		existing, err := s.existingInstants(ctx, sk[0], sk[1], r[0], r[1])
		if err != nil {
			return fmt.Errorf("check existing range: %w", err)
		}
		for ms := range existing {
			if _, clash := seen[key{sk[0], sk[1], ms}]; clash {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ticks (
			symbol, exchange, datetime,
			last_price, volume, turnover, open_interest,
			limit_up, limit_down,
			open_price, high_price, low_price, close_price,
			pre_close, pre_settlement, settlement,
			bid_price, bid_volume, ask_price, ask_volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		err = batch.Append(
			t.Symbol, t.Exchange, t.Datetime,
			t.LastPrice, t.Volume, t.Turnover, t.OpenInterest,
			t.LimitUp, t.LimitDown,
			t.OpenPrice, t.HighPrice, t.LowPrice, t.ClosePrice,
			t.PreClose, t.PreSettlement, t.Settlement,
			t.BidPrice[:], t.BidVolume[:], t.AskPrice[:], t.AskVolume[:],
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

// LoadTicks retrieves ticks for a symbol within [start, end] (inclusive).
func (s *TickStore) LoadTicks(ctx context.Context, symbol, exchange string, start, end time.Time, limit int) ([]*domain.Tick, error) {
	query := `
		SELECT symbol, exchange, datetime,
		       last_price, volume, turnover, open_interest,
		       limit_up, limit_down,
		       open_price, high_price, low_price, close_price,
		       pre_close, pre_settlement, settlement,
		       bid_price, bid_volume, ask_price, ask_volume
		FROM ticks
		WHERE symbol = ? AND exchange = ? AND datetime >= ? AND datetime <= ?
		ORDER BY datetime ASC
	`
	args := []interface{}{symbol, exchange, start, end}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// DeleteTicks removes all ticks for a symbol via a lightweight delete mutation.
func (s *TickStore) DeleteTicks(ctx context.Context, symbol, exchange string) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM ticks WHERE symbol = ? AND exchange = ?`,
		symbol, exchange,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ticks: %w", err)
	}

	err = s.conn.Exec(ctx,
		`DELETE FROM ticks WHERE symbol = ? AND exchange = ?`,
		symbol, exchange,
	)
	if err != nil {
		return 0, fmt.Errorf("delete ticks: %w", err)
	}
	return int64(count), nil
}

// existingInstants returns the set of stored instants (unix ms) for a symbol
// within [start, end].
func (s *TickStore) existingInstants(ctx context.Context, symbol, exchange string, start, end time.Time) (map[int64]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT datetime FROM ticks
		WHERE symbol = ? AND exchange = ? AND datetime >= ? AND datetime <= ?
	`, symbol, exchange, start, end)
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

// scanTicks scans multiple rows.
func scanTicks(rows chRows) ([]*domain.Tick, error) {
	var ticks []*domain.Tick

	for rows.Next() {
		var t domain.Tick
		var bidPrice, bidVolume, askPrice, askVolume []float64

		err := rows.Scan(
			&t.Symbol, &t.Exchange, &t.Datetime,
			&t.LastPrice, &t.Volume, &t.Turnover, &t.OpenInterest,
			&t.LimitUp, &t.LimitDown,
			&t.OpenPrice, &t.HighPrice, &t.LowPrice, &t.ClosePrice,
			&t.PreClose, &t.PreSettlement, &t.Settlement,
			&bidPrice, &bidVolume, &askPrice, &askVolume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}

		copyLevels(&t.BidPrice, bidPrice)
		copyLevels(&t.BidVolume, bidVolume)
		copyLevels(&t.AskPrice, askPrice)
		copyLevels(&t.AskVolume, askVolume)
		ticks = append(ticks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick rows: %w", err)
	}

	return ticks, nil
}
