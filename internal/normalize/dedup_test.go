package normalize

import (
	"testing"
	"time"

	"futures-tick-lab/internal/domain"
)

func tickAt(symbol string, dt time.Time, last float64) *domain.Tick {
	return &domain.Tick{Symbol: symbol, Exchange: domain.ExchangeCFFEX, Datetime: dt, LastPrice: last}
}

func TestDedupTicks_KeepsFirstOccurrence(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	ticks := []*domain.Tick{
		tickAt("IF2401", base, 3450),
		tickAt("IF2401", base.Add(500*time.Millisecond), 3451),
		tickAt("IF2401", base, 999), // retransmission of the first instant
		tickAt("IF2401", base.Add(time.Second), 3452),
	}

	got, removed := DedupTicks(ticks)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].LastPrice != 3450 {
		t.Errorf("kept the later duplicate: LastPrice = %v, want 3450", got[0].LastPrice)
	}
}

func TestDedupTicks_SortsByInstant(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	ticks := []*domain.Tick{
		tickAt("IF2401", base.Add(2*time.Second), 3452),
		tickAt("IF2401", base, 3450),
		tickAt("IF2401", base.Add(time.Second), 3451),
	}

	got, removed := DedupTicks(ticks)
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Datetime.Before(got[i-1].Datetime) {
			t.Fatalf("output not sorted at %d: %v before %v", i, got[i].Datetime, got[i-1].Datetime)
		}
	}
}

func TestDedupTicks_SymbolsDoNotCollide(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	ticks := []*domain.Tick{
		tickAt("IF2401", base, 3450),
		tickAt("IH2401", base, 2400),
	}

	got, removed := DedupTicks(ticks)
	if removed != 0 || len(got) != 2 {
		t.Fatalf("removed = %d, len = %d, want 0 and 2", removed, len(got))
	}
}

func TestDedupBars(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	bar := func(dt time.Time, close float64) *domain.Bar {
		return &domain.Bar{Symbol: "IF2401", Exchange: domain.ExchangeCFFEX, Interval: domain.IntervalMinute, Datetime: dt, ClosePrice: close}
	}

	bars := []*domain.Bar{
		bar(base, 3450),
		bar(base.Add(time.Minute), 3451),
		bar(base, 999),
	}

	got, removed := DedupBars(bars)
	if removed != 1 || len(got) != 2 {
		t.Fatalf("removed = %d, len = %d, want 1 and 2", removed, len(got))
	}
	if got[0].ClosePrice != 3450 {
		t.Errorf("kept the later duplicate: ClosePrice = %v, want 3450", got[0].ClosePrice)
	}
}
