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

// TickStore is an in-memory implementation of storage.TickStore.
type TickStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Tick // keyed by (symbol, exchange, datetime)
}

// NewTickStore creates a new in-memory tick store.
func NewTickStore() *TickStore {
	return &TickStore{
		data: make(map[string]*domain.Tick),
	}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// tickKey generates a unique key for a tick.
func tickKey(symbol, exchange string, dt time.Time) string {
	return fmt.Sprintf("%s|%s|%d", symbol, exchange, dt.UnixMilli())
}

// SaveTicks bulk-inserts ticks. Fails the entire batch on any duplicate.
func (s *TickStore) SaveTicks(_ context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(ticks))
	for _, t := range ticks {
		if t == nil || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := tickKey(t.Symbol, t.Exchange, t.Datetime)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, t := range ticks {
		tickCopy := *t
		s.data[tickKey(t.Symbol, t.Exchange, t.Datetime)] = &tickCopy
	}

	return nil
}

// LoadTicks retrieves ticks within [start, end], ordered by datetime ASC.
func (s *TickStore) LoadTicks(_ context.Context, symbol, exchange string, start, end time.Time, limit int) ([]*domain.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Tick
	for _, t := range s.data {
		if t.Symbol != symbol || t.Exchange != exchange {
			continue
		}
		if t.Datetime.Before(start) || t.Datetime.After(end) {
			continue
		}
		tickCopy := *t
		result = append(result, &tickCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Datetime.Before(result[j].Datetime)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DeleteTicks removes all ticks for a symbol. Returns the number removed.
func (s *TickStore) DeleteTicks(_ context.Context, symbol, exchange string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, t := range s.data {
		if t.Symbol == symbol && t.Exchange == exchange {
			delete(s.data, key)
			removed++
		}
	}
	return removed, nil
}
