package normalize

import (
	"sort"
	"time"

	"futures-tick-lab/internal/domain"
)

// Dedup policy: records are stably sorted by instant ascending, then the
// FIRST occurrence of each (symbol, instant) key is kept and later ones
// dropped. Later duplicate rows in these vendor exports are typically
// truncated retransmissions, not corrections, so keep-first is the contract.

type dedupKey struct {
	symbol string
	ms     int64
}

// DedupTicks returns the deduplicated sequence and the number of duplicates
// removed. The input slice is not modified.
func DedupTicks(ticks []*domain.Tick) ([]*domain.Tick, int) {
	sorted := make([]*domain.Tick, len(ticks))
	copy(sorted, ticks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Datetime.Before(sorted[j].Datetime)
	})

	seen := make(map[dedupKey]struct{}, len(sorted))
	kept := sorted[:0]
	for _, t := range sorted {
		k := dedupKey{t.Symbol, instantMs(t.Datetime)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, t)
	}
	return kept, len(sorted) - len(kept)
}

// DedupBars returns the deduplicated sequence and the number of duplicates
// removed. The input slice is not modified.
func DedupBars(bars []*domain.Bar) ([]*domain.Bar, int) {
	sorted := make([]*domain.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Datetime.Before(sorted[j].Datetime)
	})

	seen := make(map[dedupKey]struct{}, len(sorted))
	kept := sorted[:0]
	for _, b := range sorted {
		k := dedupKey{b.Symbol, instantMs(b.Datetime)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, b)
	}
	return kept, len(sorted) - len(kept)
}

func instantMs(t time.Time) int64 {
	return t.UnixMilli()
}
