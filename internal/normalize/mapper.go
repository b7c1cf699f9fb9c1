package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"futures-tick-lab/internal/domain"
)

// ErrNoUsablePrice marks a tick that has no last price and no quote level to
// derive one from. Such a tick is meaningless and is dropped.
var ErrNoUsablePrice = errors.New("no usable price")

// ErrMissingColumns is returned when required vendor columns are absent from
// the header entirely. This is fatal for the file and reported before any
// row processing begins.
var ErrMissingColumns = errors.New("required columns absent")

// ErrBadNumeric marks a row whose gating numeric field failed to parse.
var ErrBadNumeric = errors.New("unparseable numeric field")

// TickMapper converts vendor tick rows into canonical ticks.
type TickMapper struct {
	resolved Resolved
	ts       *TimestampNormalizer
	exchange string
}

// NewTickMapper resolves the mapping against a file header. Returns
// ErrMissingColumns (wrapped) when the symbol or time column is missing.
func NewTickMapper(mapping ColumnMapping, header []string, exchange string, ts *TimestampNormalizer) (*TickMapper, error) {
	resolved := mapping.Resolve(header)
	var missing []string
	for _, field := range []string{FieldSymbol, FieldTime} {
		if !resolved.Has(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return &TickMapper{resolved: resolved, ts: ts, exchange: exchange}, nil
}

// Map builds one canonical tick from a raw row, applying the derivation
// rules in order:
//  1. a missing/zero last price is substituted from bid 1, then ask 1,
//     and the row is rejected when neither is positive
//  2. missing/zero bid 1 and ask 1 prices take the last price
//  3. missing/zero level-1 volumes become 1 (quote exists, depth unknown)
func (m *TickMapper) Map(row []string) (*domain.Tick, error) {
	symbol, err := NormalizeSymbol(m.resolved.Get(row, FieldSymbol))
	if err != nil {
		return nil, err
	}

	dt, err := m.ts.Normalize(m.resolved.Get(row, FieldDate), m.resolved.Get(row, FieldTime))
	if err != nil {
		return nil, err
	}

	t := &domain.Tick{
		Symbol:   symbol,
		Exchange: m.exchange,
		Datetime: dt,

		LastPrice:     m.optionalFloat(row, FieldLastPrice),
		Volume:        m.optionalFloat(row, FieldVolume),
		Turnover:      m.optionalFloat(row, FieldTurnover),
		OpenInterest:  m.optionalFloat(row, FieldOpenInterest),
		LimitUp:       m.optionalFloat(row, FieldLimitUp),
		LimitDown:     m.optionalFloat(row, FieldLimitDown),
		OpenPrice:     m.optionalFloat(row, FieldOpenPrice),
		HighPrice:     m.optionalFloat(row, FieldHighPrice),
		LowPrice:      m.optionalFloat(row, FieldLowPrice),
		ClosePrice:    m.optionalFloat(row, FieldClosePrice),
		PreClose:      m.optionalFloat(row, FieldPreClose),
		PreSettlement: m.optionalFloat(row, FieldPreSettle),
		Settlement:    m.optionalFloat(row, FieldSettlement),
	}

	for i := 0; i < domain.MaxDepth; i++ {
		n := i + 1
		t.BidPrice[i] = m.optionalFloat(row, levelField("bid", "price", n))
		t.BidVolume[i] = m.optionalFloat(row, levelField("bid", "volume", n))
		t.AskPrice[i] = m.optionalFloat(row, levelField("ask", "price", n))
		t.AskVolume[i] = m.optionalFloat(row, levelField("ask", "volume", n))
	}

	// Rule 1: last price gates validity
	if t.LastPrice <= 0 {
		switch {
		case t.BidPrice[0] > 0:
			t.LastPrice = t.BidPrice[0]
		case t.AskPrice[0] > 0:
			t.LastPrice = t.AskPrice[0]
		default:
			return nil, ErrNoUsablePrice
		}
	}

	// Rules 2-3: top of book is always populated
	if t.BidPrice[0] <= 0 {
		t.BidPrice[0] = t.LastPrice
	}
	if t.AskPrice[0] <= 0 {
		t.AskPrice[0] = t.LastPrice
	}

	// Rule 4: level-1 volume placeholder
	if t.BidVolume[0] <= 0 {
		t.BidVolume[0] = 1
	}
	if t.AskVolume[0] <= 0 {
		t.AskVolume[0] = 1
	}

	return t, nil
}

// optionalFloat parses an enrichment field, defaulting to 0 on absence or
// parse failure. Never used for fields that gate validity.
func (m *TickMapper) optionalFloat(row []string, field string) float64 {
	v, _ := parseFloat(m.resolved.Get(row, field))
	return v
}

// BarMapper converts vendor bar rows into canonical bars.
type BarMapper struct {
	resolved Resolved
	ts       *TimestampNormalizer
	exchange string
	interval domain.Interval
}

// NewBarMapper resolves the mapping against a file header. Returns
// ErrMissingColumns (wrapped) when any required bar column is missing.
func NewBarMapper(mapping ColumnMapping, header []string, exchange string, interval domain.Interval, ts *TimestampNormalizer) (*BarMapper, error) {
	resolved := mapping.Resolve(header)
	var missing []string
	for _, field := range []string{
		FieldSymbol, FieldTime,
		FieldOpenPrice, FieldHighPrice, FieldLowPrice, FieldClosePrice,
		FieldVolume,
	} {
		if !resolved.Has(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return &BarMapper{resolved: resolved, ts: ts, exchange: exchange, interval: interval}, nil
}

// Map builds one canonical bar from a raw row. OHLC and volume must parse as
// non-negative numbers (empty cells read as 0, representing missing data);
// a missing turnover is estimated as volume * close.
func (m *BarMapper) Map(row []string) (*domain.Bar, error) {
	symbol, err := NormalizeSymbol(m.resolved.Get(row, FieldSymbol))
	if err != nil {
		return nil, err
	}

	dt, err := m.ts.Normalize("", m.resolved.Get(row, FieldTime))
	if err != nil {
		return nil, err
	}
	// Minute data carries no seconds
	if m.interval == domain.IntervalMinute {
		dt = dt.Truncate(time.Minute)
	}

	b := &domain.Bar{
		Symbol:   symbol,
		Exchange: m.exchange,
		Interval: m.interval,
		Datetime: dt,
	}

	for _, f := range []struct {
		field string
		dst   *float64
	}{
		{FieldOpenPrice, &b.OpenPrice},
		{FieldHighPrice, &b.HighPrice},
		{FieldLowPrice, &b.LowPrice},
		{FieldClosePrice, &b.ClosePrice},
		{FieldVolume, &b.Volume},
	} {
		raw := m.resolved.Get(row, f.field)
		v, ok := parseFloat(raw)
		if !ok && strings.TrimSpace(raw) != "" {
			return nil, fmt.Errorf("%w: %s=%q", ErrBadNumeric, f.field, raw)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: %s=%q is negative", ErrBadNumeric, f.field, raw)
		}
		*f.dst = v
	}

	if turnover, ok := parseFloat(m.resolved.Get(row, FieldTurnover)); ok {
		b.Turnover = turnover
	} else {
		// Documented approximation, not measured truth
		b.Turnover = b.Volume * b.ClosePrice
	}
	b.OpenInterest, _ = parseFloat(m.resolved.Get(row, FieldOpenInterest))

	return b, nil
}

// parseFloat parses a raw cell, reporting whether a numeric value was present.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
