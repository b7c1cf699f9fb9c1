package normalize

import (
	"encoding/json"
	"fmt"
	"os"
)

// Canonical field names used by the mappers. Vendor columns are bound to
// these through a ColumnMapping.
const (
	FieldSymbol       = "symbol"
	FieldDate         = "date"
	FieldTime         = "time"
	FieldLastPrice    = "last_price"
	FieldVolume       = "volume"
	FieldTurnover     = "turnover"
	FieldOpenInterest = "open_interest"
	FieldLimitUp      = "limit_up"
	FieldLimitDown    = "limit_down"
	FieldOpenPrice    = "open_price"
	FieldHighPrice    = "high_price"
	FieldLowPrice     = "low_price"
	FieldClosePrice   = "close_price"
	FieldPreClose     = "pre_close"
	FieldPreSettle    = "pre_settlement"
	FieldSettlement   = "settlement"
)

// Level field names are formed as bid_price_1 .. ask_volume_5.
func levelField(side, kind string, level int) string {
	return fmt.Sprintf("%s_%s_%d", side, kind, level)
}

// ColumnMapping enumerates, per canonical field, the vendor column names that
// may carry it. Aliases are tried in declaration order; the defaults pair the
// CTP protocol name with the CFFEX Chinese display name.
type ColumnMapping map[string][]string

// chineseLevels spells out the quote levels as they appear in display-name
// exports (买一价, 卖五量, ...).
var chineseLevels = [5]string{"一", "二", "三", "四", "五"}

// DefaultTickMapping returns the built-in mapping for tick exports.
func DefaultTickMapping() ColumnMapping {
	m := ColumnMapping{
		FieldSymbol:       {"InstrumentID", "合约代码"},
		FieldDate:         {"ActionDay", "TradingDay", "日期"},
		FieldTime:         {"UpdateTime", "时间"},
		FieldLastPrice:    {"LastPrice", "最新价"},
		FieldVolume:       {"Volume", "成交量"},
		FieldTurnover:     {"Turnover", "成交额"},
		FieldOpenInterest: {"OpenInterest", "持仓量"},
		FieldLimitUp:      {"UpperLimitPrice", "涨停价"},
		FieldLimitDown:    {"LowerLimitPrice", "跌停价"},
		FieldOpenPrice:    {"OpenPrice", "开盘价"},
		FieldHighPrice:    {"HighPrice", "最高价"},
		FieldLowPrice:     {"LowPrice", "最低价"},
		FieldClosePrice:   {"ClosePrice", "收盘价"},
		FieldPreClose:     {"PreClosePrice", "昨收"},
		FieldPreSettle:    {"PreSettlementPrice", "昨结算"},
		FieldSettlement:   {"SettlementPrice", "结算价"},
	}
	for i := 0; i < 5; i++ {
		n := i + 1
		zh := chineseLevels[i]
		m[levelField("bid", "price", n)] = []string{fmt.Sprintf("BidPrice%d", n), fmt.Sprintf("买%s价", zh)}
		m[levelField("bid", "volume", n)] = []string{fmt.Sprintf("BidVolume%d", n), fmt.Sprintf("买%s量", zh)}
		m[levelField("ask", "price", n)] = []string{fmt.Sprintf("AskPrice%d", n), fmt.Sprintf("卖%s价", zh)}
		m[levelField("ask", "volume", n)] = []string{fmt.Sprintf("AskVolume%d", n), fmt.Sprintf("卖%s量", zh)}
	}
	return m
}

// DefaultBarMapping returns the built-in mapping for minute-bar exports.
func DefaultBarMapping() ColumnMapping {
	return ColumnMapping{
		FieldSymbol:       {"InstrumentID", "合约代码"},
		FieldTime:         {"Datetime", "UpdateTime", "时间"},
		FieldOpenPrice:    {"OpenPrice", "开盘价"},
		FieldHighPrice:    {"HighPrice", "最高价"},
		FieldLowPrice:     {"LowPrice", "最低价"},
		FieldClosePrice:   {"ClosePrice", "收盘价"},
		FieldVolume:       {"Volume", "成交量"},
		FieldTurnover:     {"Turnover", "成交额"},
		FieldOpenInterest: {"OpenInterest", "持仓量"},
	}
}

// Merge returns a copy of m with override entries taking precedence. Fields
// present in the override replace the default alias list entirely.
func (m ColumnMapping) Merge(override ColumnMapping) ColumnMapping {
	merged := make(ColumnMapping, len(m))
	for field, aliases := range m {
		merged[field] = append([]string(nil), aliases...)
	}
	for field, aliases := range override {
		merged[field] = append([]string(nil), aliases...)
	}
	return merged
}

// LoadMappingOverride reads a caller-supplied JSON mapping file of the form
// {"last_price": ["LAST", "最新价"], ...}.
func LoadMappingOverride(path string) (ColumnMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping override: %w", err)
	}

	var m ColumnMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping override: %w", err)
	}
	return m, nil
}

// Resolved binds canonical fields to column indexes for one specific header.
type Resolved map[string]int

// Resolve matches the header against the mapping once per file. Fields whose
// aliases are all absent are simply missing from the result.
func (m ColumnMapping) Resolve(header []string) Resolved {
	byName := make(map[string]int, len(header))
	for i, col := range header {
		if _, taken := byName[col]; !taken {
			byName[col] = i
		}
	}

	resolved := make(Resolved)
	for field, aliases := range m {
		for _, alias := range aliases {
			if idx, ok := byName[alias]; ok {
				resolved[field] = idx
				break
			}
		}
	}
	return resolved
}

// Has reports whether a canonical field was found in the header.
func (r Resolved) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Get returns the raw cell for a canonical field, or "" when the field or
// the cell is absent from this row.
func (r Resolved) Get(row []string, field string) string {
	idx, ok := r[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
