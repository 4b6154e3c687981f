package analyzer

import (
	"time"

	"github.com/fazecat/gapscreener/Internal/types"
)

// ComputeVWAP returns the volume weighted average price over the supplied
// bars, using the typical price (H+L+C)/3 per bar. Nil is returned when
// the bars carry no volume at all.
func ComputeVWAP(bars []types.Bar) *float64 {
	var cumulativePV float64
	var cumulativeVolume int64
	for _, bar := range bars {
		typical := (bar.High + bar.Low + bar.Close) / 3
		cumulativePV += typical * float64(bar.Volume)
		cumulativeVolume += bar.Volume
	}
	if cumulativeVolume == 0 {
		return nil
	}
	vwap := cumulativePV / float64(cumulativeVolume)
	return &vwap
}

// ComputeSMA returns the simple moving average of the last `window`
// closes. Nil is returned when fewer than `window` bars are available.
func ComputeSMA(closes []float64, window int) *float64 {
	if window <= 0 || len(closes) < window {
		return nil
	}
	sum := 0.0
	for _, close := range closes[len(closes)-window:] {
		sum += close
	}
	sma := sum / float64(window)
	return &sma
}

// AverageVolume returns the integer mean of the supplied daily volume
// samples, 0 when no samples are available.
func AverageVolume(samples []int64) int64 {
	if len(samples) == 0 {
		return 0
	}
	var total int64
	for _, v := range samples {
		total += v
	}
	return total / int64(len(samples))
}

// BuildSnapshot assembles a Snapshot from raw provider data, deriving the
// 30-day average volume, VWAP and SMA-20 along the way.
func BuildSnapshot(
	symbol string,
	asOf time.Time,
	lastPrice float64,
	previousClose float64,
	premarketVolume int64,
	thirtyDayVolumeSamples []int64,
	floatShares int64,
	dailyCloses []float64,
	intradayBars []types.Bar,
) *types.Snapshot {
	var vwap *float64
	if len(intradayBars) > 0 {
		vwap = ComputeVWAP(intradayBars)
	}
	return &types.Snapshot{
		Symbol:             symbol,
		Timestamp:          asOf,
		LastPrice:          lastPrice,
		PreviousClose:      previousClose,
		PremarketVolume:    premarketVolume,
		Average30DayVolume: AverageVolume(thirtyDayVolumeSamples),
		FloatShares:        floatShares,
		VWAP:               vwap,
		SMA20:              ComputeSMA(dailyCloses, 20),
	}
}
