package types

import "time"

type Bar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

// TrendCategory classifies where the last price sits relative to the
// 20-session simple moving average.
type TrendCategory string

const (
	TrendBullish         TrendCategory = "bullish"
	TrendModerateBullish TrendCategory = "moderate_bullish"
	TrendSideways        TrendCategory = "sideways"
	TrendModerateBearish TrendCategory = "moderate_bearish"
	TrendBearish         TrendCategory = "bearish"
	TrendUnknown         TrendCategory = "unknown"
)

// TrendCategories lists the classifiable categories from most bullish to
// most bearish. TrendUnknown is excluded: it marks snapshots without
// enough history to classify and is never a preferred category.
var TrendCategories = []TrendCategory{
	TrendBullish,
	TrendModerateBullish,
	TrendSideways,
	TrendModerateBearish,
	TrendBearish,
}

// Snapshot captures pre-market activity for a single symbol at a point in
// time. A provider builds it once; everything downstream reads it.
type Snapshot struct {
	Symbol             string
	Timestamp          time.Time
	LastPrice          float64
	PreviousClose      float64
	PremarketVolume    int64
	Average30DayVolume int64
	FloatShares        int64
	VWAP               *float64
	SMA20              *float64
}

// GapPercent is the percentage gap relative to the previous regular
// session close. A zero previous close yields 0 rather than Inf/NaN.
func (s *Snapshot) GapPercent() float64 {
	if s.PreviousClose == 0 {
		return 0
	}
	return (s.LastPrice - s.PreviousClose) / s.PreviousClose * 100
}

// RelativeVolume is the pre-market volume as a multiple of the 30-session
// average regular session volume. A zero average yields 0.
func (s *Snapshot) RelativeVolume() float64 {
	if s.Average30DayVolume == 0 {
		return 0
	}
	return float64(s.PremarketVolume) / float64(s.Average30DayVolume)
}

// IsAboveVWAP reports whether the last price holds at or above VWAP. A
// missing VWAP is treated as vacuously satisfied.
func (s *Snapshot) IsAboveVWAP() bool {
	if s.VWAP == nil {
		return true
	}
	return s.LastPrice >= *s.VWAP
}

// SMAPercentDiff returns the percentage displacement of the last price
// from the 20-session SMA. The second return is false when the snapshot
// carries no usable SMA.
func (s *Snapshot) SMAPercentDiff() (float64, bool) {
	if s.SMA20 == nil || *s.SMA20 == 0 {
		return 0, false
	}
	return (s.LastPrice - *s.SMA20) / *s.SMA20 * 100, true
}

// Result is the outcome for a single symbol after applying all filters.
// Exactly one of Snapshot or Err is set once the engine has processed the
// symbol; a failed fetch leaves PassedFilters empty.
type Result struct {
	Symbol        string
	Snapshot      *Snapshot
	PassedFilters map[string]bool
	Trend         TrendCategory
	Err           error
}

// IsActionable reports whether the symbol satisfied every configured
// filter. Fetch failures and empty filter maps are never actionable.
func (r Result) IsActionable() bool {
	if r.Err != nil || len(r.PassedFilters) == 0 {
		return false
	}
	for _, passed := range r.PassedFilters {
		if !passed {
			return false
		}
	}
	return true
}

// PassCount returns how many of the evaluated filters passed.
func (r Result) PassCount() int {
	n := 0
	for _, passed := range r.PassedFilters {
		if passed {
			n++
		}
	}
	return n
}
