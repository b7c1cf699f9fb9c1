package normalize

import (
	"errors"
	"testing"
	"time"
)

func mustParse(t *testing.T, n *TimestampNormalizer, date, clock string) time.Time {
	t.Helper()
	got, err := n.Normalize(date, clock)
	if err != nil {
		t.Fatalf("Normalize(%q, %q) failed: %v", date, clock, err)
	}
	return got
}

func TestNormalize_DateFormats(t *testing.T) {
	n := NewTimestampNormalizer(nil)

	want := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	for _, date := range []string{"20240102", "2024-01-02", "2024/01/02"} {
		got := mustParse(t, n, date, "09:30:00")
		if !got.Equal(want) {
			t.Errorf("date %q: got %v, want %v", date, got, want)
		}
	}
}

func TestNormalize_TimeFormats(t *testing.T) {
	n := NewTimestampNormalizer(nil)

	tests := []struct {
		clock string
		want  time.Time
	}{
		{"09:30:00", time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)},
		{"09:30:15.500", time.Date(2024, 1, 2, 9, 30, 15, 500e6, time.UTC)},
		{"09:30:15.5", time.Date(2024, 1, 2, 9, 30, 15, 500e6, time.UTC)},
		{"09/30/15", time.Date(2024, 1, 2, 9, 30, 15, 0, time.UTC)},
		{"09:30", time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)},
		{"930", time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)},
		{"0930", time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)},
		{"9h30m15s", time.Date(2024, 1, 2, 9, 30, 15, 0, time.UTC)},
	}
	for _, tc := range tests {
		got := mustParse(t, n, "20240102", tc.clock)
		if !got.Equal(tc.want) {
			t.Errorf("time %q: got %v, want %v", tc.clock, got, tc.want)
		}
	}
}

func TestNormalize_FractionalMinuteAnomaly(t *testing.T) {
	n := NewTimestampNormalizer(nil)

	// First digit after the dot is whole seconds, the rest are hundredths.
	tests := []struct {
		clock string
		want  time.Time
	}{
		{"03:06.1", time.Date(2010, 4, 20, 3, 6, 1, 0, time.UTC)},
		{"03:06.15", time.Date(2010, 4, 20, 3, 6, 1, 500e6, time.UTC)},
		{"03:06.159", time.Date(2010, 4, 20, 3, 6, 1, 590e6, time.UTC)},
		{"10:45.0", time.Date(2010, 4, 20, 10, 45, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got := mustParse(t, n, "20100420", tc.clock)
		if !got.Equal(tc.want) {
			t.Errorf("time %q: got %v, want %v", tc.clock, got, tc.want)
		}
	}
}

func TestNormalize_NightSessionRollover(t *testing.T) {
	n := NewTimestampNormalizer(nil)

	got := mustParse(t, n, "20100420", "29:00.1")
	want := time.Date(2010, 4, 21, 5, 0, 1, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got = mustParse(t, n, "20240102", "25:15:30")
	want = time.Date(2024, 1, 3, 1, 15, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalize_CombinedDatetimeInTimeField(t *testing.T) {
	n := NewTimestampNormalizer(nil)

	got := mustParse(t, n, "", "2024-01-02 09:30:15")
	want := time.Date(2024, 1, 2, 9, 30, 15, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalize_DateOnlyFallsBackToSessionOpen(t *testing.T) {
	n := NewTimestampNormalizer(nil)

	want := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	for _, clock := range []string{"", "--", "::"} {
		got := mustParse(t, n, "20240102", clock)
		if !got.Equal(want) {
			t.Errorf("time %q: got %v, want %v", clock, got, want)
		}
	}

	// Date alone in the time column
	got := mustParse(t, n, "", "2024-01-02")
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalize_Rejections(t *testing.T) {
	n := NewTimestampNormalizer(nil)

	tests := []struct {
		date, clock string
	}{
		{"", ""},
		{"not-a-date", "09:30:00"},
		{"20241301", "09:30:00"}, // month 13
		{"20240132", "09:30:00"}, // day 32
		{"20240102", "09:61:00"}, // minute out of range
		{"20240102", "09:30:61"}, // second out of range
		{"20240102", "abc"},
	}
	for _, tc := range tests {
		_, err := n.Normalize(tc.date, tc.clock)
		if !errors.Is(err, ErrBadTimestamp) {
			t.Errorf("Normalize(%q, %q): expected ErrBadTimestamp, got %v", tc.date, tc.clock, err)
		}
	}
}

func TestNormalize_Location(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	n := NewTimestampNormalizer(loc)

	got := mustParse(t, n, "20240102", "09:30:00")
	if got.Location() != loc {
		t.Errorf("location: got %v, want %v", got.Location(), loc)
	}
	if got.Hour() != 9 || got.Minute() != 30 {
		t.Errorf("wall clock moved: got %v", got)
	}
}
