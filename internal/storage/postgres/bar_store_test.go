package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-tick-lab/internal/domain"
	"futures-tick-lab/internal/storage"
)

func pgBar(symbol string, interval domain.Interval, dt time.Time) *domain.Bar {
	return &domain.Bar{
		Symbol:     symbol,
		Exchange:   domain.ExchangeCFFEX,
		Interval:   interval,
		Datetime:   dt,
		OpenPrice:  3430,
		HighPrice:  3455,
		LowPrice:   3425,
		ClosePrice: 3440,
		Volume:     1000,
		Turnover:   3440000,
	}
}

func TestBarStore_SaveAndLoad(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	require.NoError(t, store.SaveBars(ctx, []*domain.Bar{
		pgBar("IF2401", domain.IntervalMinute, base),
		pgBar("IF2401", domain.IntervalMinute, base.Add(time.Minute)),
	}))

	got, err := store.LoadBars(ctx, "IF2401", domain.ExchangeCFFEX, domain.IntervalMinute, base, base.Add(time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.IntervalMinute, got[0].Interval)
	assert.Equal(t, 3440.0, got[0].ClosePrice)
	assert.True(t, got[0].Datetime.Equal(base), "got %v", got[0].Datetime)
}

func TestBarStore_IntervalsAreSeparateSeries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	require.NoError(t, store.SaveBars(ctx, []*domain.Bar{
		pgBar("IF2401", domain.IntervalMinute, base),
		pgBar("IF2401", domain.IntervalHour, base),
	}))

	got, err := store.LoadBars(ctx, "IF2401", domain.ExchangeCFFEX, domain.IntervalHour, base, base.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBarStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	require.NoError(t, store.SaveBars(ctx, []*domain.Bar{pgBar("IF2401", domain.IntervalMinute, base)}))

	err := store.SaveBars(ctx, []*domain.Bar{pgBar("IF2401", domain.IntervalMinute, base)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBarStore_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	require.NoError(t, store.SaveBars(ctx, []*domain.Bar{
		pgBar("IF2401", domain.IntervalMinute, base),
		pgBar("IF2401", domain.IntervalMinute, base.Add(time.Minute)),
		pgBar("IF2401", domain.IntervalHour, base),
	}))

	removed, err := store.DeleteBars(ctx, "IF2401", domain.ExchangeCFFEX, domain.IntervalMinute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	got, err := store.LoadBars(ctx, "IF2401", domain.ExchangeCFFEX, domain.IntervalHour, base, base.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
