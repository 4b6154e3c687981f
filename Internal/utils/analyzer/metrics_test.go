package analyzer

import (
	"testing"
	"time"

	"github.com/fazecat/gapscreener/Internal/types"
)

func bar(high, low, close float64, volume int64) types.Bar {
	return types.Bar{
		Timestamp: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Open:      close,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}

func TestComputeVWAP(t *testing.T) {
	bars := []types.Bar{
		bar(12, 10, 11, 100), // typical 11
		bar(14, 12, 13, 300), // typical 13
	}
	vwap := ComputeVWAP(bars)
	if vwap == nil {
		t.Fatal("ComputeVWAP() = nil, want value")
	}
	want := (11.0*100 + 13.0*300) / 400
	if *vwap != want {
		t.Errorf("ComputeVWAP() = %v, want %v", *vwap, want)
	}
}

func TestComputeVWAPZeroVolume(t *testing.T) {
	bars := []types.Bar{bar(12, 10, 11, 0), bar(14, 12, 13, 0)}
	if vwap := ComputeVWAP(bars); vwap != nil {
		t.Errorf("ComputeVWAP() = %v for zero volume, want nil", *vwap)
	}
}

func TestComputeSMA(t *testing.T) {
	closes := make([]float64, 0, 25)
	for i := 0; i < 25; i++ {
		closes = append(closes, float64(i+1))
	}
	// Last 20 values are 6..25 → mean 15.5.
	sma := ComputeSMA(closes, 20)
	if sma == nil {
		t.Fatal("ComputeSMA() = nil, want value")
	}
	if *sma != 15.5 {
		t.Errorf("ComputeSMA() = %v, want 15.5", *sma)
	}
}

func TestComputeSMAInsufficientHistory(t *testing.T) {
	if sma := ComputeSMA([]float64{1, 2, 3}, 20); sma != nil {
		t.Errorf("ComputeSMA() = %v for short history, want nil", *sma)
	}
}

func TestAverageVolume(t *testing.T) {
	if got := AverageVolume([]int64{100, 200, 300}); got != 200 {
		t.Errorf("AverageVolume() = %d, want 200", got)
	}
	if got := AverageVolume(nil); got != 0 {
		t.Errorf("AverageVolume(nil) = %d, want 0", got)
	}
}

func TestBuildSnapshot(t *testing.T) {
	asOf := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	closes := make([]float64, 0, 20)
	for i := 0; i < 20; i++ {
		closes = append(closes, 10.0)
	}
	bars := []types.Bar{bar(10.6, 10.2, 10.5, 50_000)}

	snap := BuildSnapshot("AAPL", asOf, 10.5, 10.0, 50_000, []int64{100_000, 200_000}, 25_000_000, closes, bars)

	if snap.Symbol != "AAPL" {
		t.Errorf("Symbol = %q", snap.Symbol)
	}
	if !snap.Timestamp.Equal(asOf) {
		t.Errorf("Timestamp = %v, want %v", snap.Timestamp, asOf)
	}
	if snap.Average30DayVolume != 150_000 {
		t.Errorf("Average30DayVolume = %d, want 150000", snap.Average30DayVolume)
	}
	if snap.VWAP == nil {
		t.Error("VWAP = nil, want computed value")
	}
	if snap.SMA20 == nil || *snap.SMA20 != 10.0 {
		t.Errorf("SMA20 = %v, want 10.0", snap.SMA20)
	}
}

func TestBuildSnapshotWithoutIntradayBars(t *testing.T) {
	snap := BuildSnapshot("AAPL", time.Now(), 10.5, 10.0, 0, nil, 0, nil, nil)
	if snap.VWAP != nil {
		t.Errorf("VWAP = %v without bars, want nil", *snap.VWAP)
	}
	if snap.SMA20 != nil {
		t.Errorf("SMA20 = %v without closes, want nil", *snap.SMA20)
	}
	if snap.Average30DayVolume != 0 {
		t.Errorf("Average30DayVolume = %d, want 0", snap.Average30DayVolume)
	}
}
