package domain

import "time"

// Interval is a bar aggregation window.
type Interval string

// Supported bar intervals.
const (
	IntervalMinute Interval = "1m"
	IntervalHour   Interval = "1h"
	IntervalDaily  Interval = "d"
)

// Bar is a canonical aggregated bar. Datetime marks the bar start.
//
// Open/High/Low/Close are non-negative; zero represents missing data and
// callers must tolerate it. One Datetime is unique per (Symbol, Interval)
// in the persisted set.
type Bar struct {
	Symbol   string
	Exchange string
	Interval Interval
	Datetime time.Time

	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64

	Volume       float64
	Turnover     float64
	OpenInterest float64
}
