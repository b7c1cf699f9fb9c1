package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"futures-tick-lab/internal/domain"
	"futures-tick-lab/internal/normalize"
	"futures-tick-lab/internal/storage/memory"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func newTestCoordinator(tickStore *memory.TickStore, barStore *memory.BarStore, kind Kind, opts Options) *Coordinator {
	mapping := normalize.DefaultTickMapping()
	if kind == KindBar {
		mapping = normalize.DefaultBarMapping()
	}
	persister := NewBatchPersister(tickStore, barStore, testLogger(), nil)
	return NewCoordinator(
		persister,
		mapping,
		normalize.NewTimestampNormalizer(nil),
		domain.ExchangeCFFEX,
		domain.IntervalMinute,
		opts,
		testLogger(),
		nil,
	)
}

const tickCSV = `InstrumentID,ActionDay,UpdateTime,LastPrice,Volume,BidPrice1,BidVolume1,AskPrice1,AskVolume1
if2401,20240102,09:30:00.500,3450.0,120,3449.8,3,3450.2,5
if2401,20240102,09:30:01.000,3450.4,20,3450.0,2,3450.6,4
if2401,20240102,09:30:00.500,9999.0,1,9999.0,1,9999.0,1
ih2401,20240102,09:30:00.500,2400.0,10,2399.8,1,2400.2,2
2401,20240102,09:30:02.000,3450.0,1,3449.8,1,3450.2,1
if2401,20240102,09:30:03.000,0,0,0,0,0,0
`

func TestCoordinator_TickImport(t *testing.T) {
	tickStore := memory.NewTickStore()
	c := newTestCoordinator(tickStore, nil, KindTick, Options{})
	dir := t.TempDir()
	path := writeFile(t, dir, "ticks.csv", tickCSV)

	stats, err := c.Run(context.Background(), path, KindTick)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.RowsTotal != 6 {
		t.Errorf("RowsTotal = %d, want 6", stats.RowsTotal)
	}
	// Bad symbol row and no-usable-price row are rejected.
	if stats.RowsRejected != 2 {
		t.Errorf("RowsRejected = %d, want 2", stats.RowsRejected)
	}
	// The retransmitted 09:30:00.500 row is removed.
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
	if stats.Saved != 3 {
		t.Errorf("Saved = %d, want 3", stats.Saved)
	}
	if len(stats.Errors()) != 2 {
		t.Errorf("Errors = %v, want 2 entries", stats.Errors())
	}

	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	got, _ := tickStore.LoadTicks(context.Background(), "IF2401", domain.ExchangeCFFEX, base, base.Add(time.Hour), 0)
	if len(got) != 2 {
		t.Fatalf("stored IF2401 ticks = %d, want 2", len(got))
	}
	// Keep-first dedup: the original price survives, not the retransmission.
	if got[0].LastPrice != 3450.0 {
		t.Errorf("first tick LastPrice = %v, want 3450.0", got[0].LastPrice)
	}

	got, _ = tickStore.LoadTicks(context.Background(), "IH2401", domain.ExchangeCFFEX, base, base.Add(time.Hour), 0)
	if len(got) != 1 {
		t.Errorf("stored IH2401 ticks = %d, want 1", len(got))
	}
}

func TestCoordinator_ReimportIsIdempotent(t *testing.T) {
	tickStore := memory.NewTickStore()
	c := newTestCoordinator(tickStore, nil, KindTick, Options{SkipExisting: true})
	dir := t.TempDir()
	path := writeFile(t, dir, "ticks.csv", tickCSV)

	first, err := c.Run(context.Background(), path, KindTick)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := c.Run(context.Background(), path, KindTick)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if second.Saved != 0 {
		t.Errorf("second run Saved = %d, want 0", second.Saved)
	}
	if second.Skipped != first.Saved {
		t.Errorf("second run Skipped = %d, want %d", second.Skipped, first.Saved)
	}
}

func TestCoordinator_DirectoryModeContinuesPastBadFile(t *testing.T) {
	tickStore := memory.NewTickStore()
	c := newTestCoordinator(tickStore, nil, KindTick, Options{})
	dir := t.TempDir()

	// One undecodable file, one missing required columns, one good file.
	if err := os.WriteFile(filepath.Join(dir, "a_garbage.csv"), []byte{0xFF, 0xFF, 0xFE}, 0o644); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "b_schema.csv", "Foo,Bar\n1,2\n")
	writeFile(t, dir, "c_good.csv", tickCSV)

	stats, err := c.Run(context.Background(), dir, KindTick)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(stats.Files) != 3 {
		t.Fatalf("Files = %d, want 3", len(stats.Files))
	}
	if stats.FilesFailed != 2 {
		t.Errorf("FilesFailed = %d, want 2", stats.FilesFailed)
	}
	if stats.Saved != 3 {
		t.Errorf("Saved = %d, want 3 from the good file", stats.Saved)
	}
}

func TestCoordinator_EmptyDirectory(t *testing.T) {
	c := newTestCoordinator(memory.NewTickStore(), nil, KindTick, Options{})

	if _, err := c.Run(context.Background(), t.TempDir(), KindTick); err == nil {
		t.Error("expected an error for a directory without csv files")
	}
}

func TestCoordinator_BarImport(t *testing.T) {
	barStore := memory.NewBarStore()
	c := newTestCoordinator(nil, barStore, KindBar, Options{})
	dir := t.TempDir()

	const barCSV = `InstrumentID,Datetime,OpenPrice,HighPrice,LowPrice,ClosePrice,Volume,Turnover
if2401,2024-01-02 09:30:00,3430,3455,3425,3440,1000,
if2401,2024-01-02 09:31:00,3440,3460,3438,3455,800,2764000
`
	path := writeFile(t, dir, "bars.csv", barCSV)

	stats, err := c.Run(context.Background(), path, KindBar)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Saved != 2 || stats.RowsRejected != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	got, _ := barStore.LoadBars(context.Background(), "IF2401", domain.ExchangeCFFEX, domain.IntervalMinute, base, base.Add(time.Hour), 0)
	if len(got) != 2 {
		t.Fatalf("stored bars = %d, want 2", len(got))
	}
	// Missing turnover is estimated as volume * close.
	if got[0].Turnover != 1000*3440.0 {
		t.Errorf("Turnover = %v, want %v", got[0].Turnover, 1000*3440.0)
	}
}

func TestCoordinator_FileStatsRange(t *testing.T) {
	tickStore := memory.NewTickStore()
	c := newTestCoordinator(tickStore, nil, KindTick, Options{})
	dir := t.TempDir()
	path := writeFile(t, dir, "ticks.csv", tickCSV)

	stats, err := c.Run(context.Background(), path, KindTick)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	fs := stats.Files[0]
	if fs.Encoding != "utf-8" {
		t.Errorf("Encoding = %q, want utf-8", fs.Encoding)
	}
	symbols := fs.SymbolList()
	if len(symbols) != 2 || symbols[0] != "IF2401" || symbols[1] != "IH2401" {
		t.Errorf("SymbolList = %v", symbols)
	}
	wantMin := time.Date(2024, 1, 2, 9, 30, 0, 500e6, time.UTC)
	if !fs.MinTime.Equal(wantMin) {
		t.Errorf("MinTime = %v, want %v", fs.MinTime, wantMin)
	}
}
