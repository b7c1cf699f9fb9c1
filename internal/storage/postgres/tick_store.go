package postgres

import (
	"context"
	"fmt"
	"time"

	"futures-tick-lab/internal/domain"
	"futures-tick-lab/internal/storage"
)

// TickStore implements storage.TickStore using PostgreSQL.
type TickStore struct {
	pool *Pool
}

// NewTickStore creates a new TickStore.
func NewTickStore(pool *Pool) *TickStore {
	return &TickStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

const insertTickQuery = `
	INSERT INTO ticks (
		symbol, exchange, datetime,
		last_price, volume, turnover, open_interest,
		limit_up, limit_down,
		open_price, high_price, low_price, close_price,
		pre_close, pre_settlement, settlement,
		bid_price, bid_volume, ask_price, ask_volume
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
	)
`

func tickArgs(t *domain.Tick) []interface{} {
	return []interface{}{
		t.Symbol, t.Exchange, t.Datetime.UTC(),
		t.LastPrice, t.Volume, t.Turnover, t.OpenInterest,
		t.LimitUp, t.LimitDown,
		t.OpenPrice, t.HighPrice, t.LowPrice, t.ClosePrice,
		t.PreClose, t.PreSettlement, t.Settlement,
		t.BidPrice[:], t.BidVolume[:], t.AskPrice[:], t.AskVolume[:],
	}
}

// SaveTicks bulk-inserts ticks in one transaction. Fails the entire batch
// with storage.ErrDuplicateKey on any (symbol, exchange, datetime) collision.
func (s *TickStore) SaveTicks(ctx context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range ticks {
		if t == nil || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertTickQuery, tickArgs(t)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert tick in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
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
		WHERE symbol = $1 AND exchange = $2 AND datetime >= $3 AND datetime <= $4
		ORDER BY datetime ASC
	`
	args := []interface{}{symbol, exchange, start.UTC(), end.UTC()}
	if limit > 0 {
		query += " LIMIT $5"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

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

// DeleteTicks removes all ticks for a symbol. Returns the number removed.
func (s *TickStore) DeleteTicks(ctx context.Context, symbol, exchange string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM ticks WHERE symbol = $1 AND exchange = $2`,
		symbol, exchange,
	)
	if err != nil {
		return 0, fmt.Errorf("delete ticks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// copyLevels copies a variable-length array column into fixed depth levels.
func copyLevels(dst *[5]float64, src []float64) {
	for i := 0; i < len(dst) && i < len(src); i++ {
		dst[i] = src[i]
	}
}
