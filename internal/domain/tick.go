package domain

import "time"

// MaxDepth is the deepest quote level present in CTP-style exports.
const MaxDepth = 5

// Tick is a canonical per-tick quote snapshot, independent of any vendor's
// column naming. Datetime has millisecond resolution.
//
// Invariants after mapping:
//   - LastPrice > 0
//   - BidPrice[0] and AskPrice[0] are populated (possibly from LastPrice)
//   - BidVolume[0] and AskVolume[0] are at least 1
type Tick struct {
	Symbol   string
	Exchange string
	Datetime time.Time

	LastPrice    float64
	Volume       float64
	Turnover     float64
	OpenInterest float64

	// Session price bounds
	LimitUp   float64
	LimitDown float64

	// Daily OHLC so far
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64

	// Previous session references
	PreClose      float64
	PreSettlement float64
	Settlement    float64

	// Quote levels, index 0 is the top of book. Zero means the level
	// was absent in the export.
	BidPrice  [MaxDepth]float64
	BidVolume [MaxDepth]float64
	AskPrice  [MaxDepth]float64
	AskVolume [MaxDepth]float64
}
