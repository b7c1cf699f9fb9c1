package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"futures-tick-lab/internal/domain"
	"futures-tick-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Bar // keyed by (symbol, exchange, interval, datetime)
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]*domain.Bar),
	}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// barKey generates a unique key for a bar.
func barKey(symbol, exchange string, interval domain.Interval, dt time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%d", symbol, exchange, interval, dt.UnixMilli())
}

// SaveBars bulk-inserts bars. Fails the entire batch on any duplicate.
func (s *BarStore) SaveBars(_ context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(b.Symbol, b.Exchange, b.Interval, b.Datetime)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, b := range bars {
		barCopy := *b
		s.data[barKey(b.Symbol, b.Exchange, b.Interval, b.Datetime)] = &barCopy
	}

	return nil
}

// LoadBars retrieves bars within [start, end], ordered by datetime ASC.
func (s *BarStore) LoadBars(_ context.Context, symbol, exchange string, interval domain.Interval, start, end time.Time, limit int) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for _, b := range s.data {
		if b.Symbol != symbol || b.Exchange != exchange || b.Interval != interval {
			continue
		}
		if b.Datetime.Before(start) || b.Datetime.After(end) {
			continue
		}
		barCopy := *b
		result = append(result, &barCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Datetime.Before(result[j].Datetime)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DeleteBars removes all bars for a symbol and interval. Returns the number removed.
func (s *BarStore) DeleteBars(_ context.Context, symbol, exchange string, interval domain.Interval) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, b := range s.data {
		if b.Symbol == symbol && b.Exchange == exchange && b.Interval == interval {
			delete(s.data, key)
			removed++
		}
	}
	return removed, nil
}
