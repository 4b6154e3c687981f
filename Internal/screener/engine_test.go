package screener

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fazecat/gapscreener/Internal/datafeed"
	"github.com/fazecat/gapscreener/Internal/types"
	"github.com/fazecat/gapscreener/Internal/utils/config"
)

func testConfig(symbols ...string) *config.Config {
	cfg := config.Default()
	cfg.Universe.Symbols = symbols
	cfg.MaxConcurrentRequests = 4
	return cfg
}

func snapshotWith(symbol string, gapPct float64, volume int64) *types.Snapshot {
	prev := 10.0
	return &types.Snapshot{
		Symbol:             symbol,
		Timestamp:          time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		LastPrice:          prev * (1 + gapPct/100),
		PreviousClose:      prev,
		PremarketVolume:    volume,
		Average30DayVolume: volume / 2,
		FloatShares:        25_000_000,
		VWAP:               floatPtr(prev),
	}
}

func TestEngineProducesOneResultPerSymbol(t *testing.T) {
	provider := datafeed.NewInMemoryProvider()
	symbols := make([]string, 0, 20)
	failing := map[string]bool{}
	for i := 0; i < 20; i++ {
		symbol := fmt.Sprintf("SYM%02d", i)
		symbols = append(symbols, symbol)
		if i%3 == 0 {
			provider.FailWith(symbol, errors.New("upstream unavailable"))
			failing[symbol] = true
			continue
		}
		provider.AddSnapshot(snapshotWith(symbol, 5.0, 400_000))
	}

	engine := NewEngine(testConfig(symbols...), provider)
	results, err := engine.Run(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, results, len(symbols))

	seen := map[string]bool{}
	for _, result := range results {
		assert.False(t, seen[result.Symbol], "duplicate result for %s", result.Symbol)
		seen[result.Symbol] = true

		if failing[result.Symbol] {
			assert.Error(t, result.Err)
			assert.Nil(t, result.Snapshot)
			assert.Empty(t, result.PassedFilters)
		} else {
			assert.NoError(t, result.Err)
			require.NotNil(t, result.Snapshot)
			assert.NotEmpty(t, result.PassedFilters)
		}
	}
}

func TestEngineResultInvariant(t *testing.T) {
	provider := datafeed.NewInMemoryProvider()
	provider.AddSnapshot(snapshotWith("GOOD", 4.0, 300_000))
	provider.FailWith("BAD", errors.New("no data"))

	engine := NewEngine(testConfig("GOOD", "BAD"), provider)
	results, err := engine.Run(context.Background(), time.Time{})
	require.NoError(t, err)

	for _, result := range results {
		hasSnapshot := result.Snapshot != nil
		hasError := result.Err != nil
		assert.True(t, hasSnapshot != hasError,
			"%s: exactly one of snapshot/error must be set", result.Symbol)
	}
}

func TestEngineEmptyUniverse(t *testing.T) {
	cfg := config.Default()
	cfg.Universe.Symbols = nil
	cfg.Universe.CapBucket = ""

	engine := NewEngine(cfg, datafeed.NewInMemoryProvider())
	results, err := engine.Run(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngineDedupesAndNormalizesSymbols(t *testing.T) {
	provider := datafeed.NewInMemoryProvider()
	provider.AddSnapshot(snapshotWith("AAPL", 5.0, 400_000))

	engine := NewEngine(testConfig("aapl", " AAPL ", "AAPL"), provider)
	results, err := engine.Run(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AAPL", results[0].Symbol)
}

func TestEngineDiscoversUniverseByBucket(t *testing.T) {
	provider := datafeed.NewInMemoryProvider()
	provider.SetBucket("small", []string{"SOFI", "MARA"})
	provider.AddSnapshot(snapshotWith("SOFI", 5.0, 400_000))
	provider.AddSnapshot(snapshotWith("MARA", 2.0, 100_000))

	cfg := config.Default()
	cfg.Universe.CapBucket = "small"
	cfg.Universe.DiscoveryLimit = 10

	engine := NewEngine(cfg, provider)
	results, err := engine.Run(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestEngineDiscoveryErrorsSurface(t *testing.T) {
	provider := datafeed.NewInMemoryProvider()

	cfg := config.Default()
	cfg.Universe.CapBucket = "galactic"

	engine := NewEngine(cfg, provider)
	_, err := engine.Run(context.Background(), time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "galactic")
}

func TestEngineWarmsCacheBeforeFetching(t *testing.T) {
	provider := datafeed.NewInMemoryProvider()
	provider.AddSnapshot(snapshotWith("AAPL", 5.0, 400_000))

	engine := NewEngine(testConfig("AAPL"), provider)
	_, err := engine.Run(context.Background(), time.Time{})
	require.NoError(t, err)

	batches := provider.WarmedBatches()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"AAPL"}, batches[0])
}

func TestRankingOrder(t *testing.T) {
	// Crafted so each ranking key breaks exactly one tie.
	actionableBigGap := types.Result{
		Symbol:        "BIGGAP",
		Snapshot:      snapshotWith("BIGGAP", 8.0, 500_000),
		PassedFilters: map[string]bool{"a": true, "b": true},
	}
	actionableSmallGap := types.Result{
		Symbol:        "SMGAP",
		Snapshot:      snapshotWith("SMGAP", 4.0, 500_000),
		PassedFilters: map[string]bool{"a": true, "b": true},
	}
	actionableDownGap := types.Result{
		Symbol:        "DOWN",
		Snapshot:      snapshotWith("DOWN", -6.0, 500_000),
		PassedFilters: map[string]bool{"a": true, "b": true},
	}
	partialMorePasses := types.Result{
		Symbol:        "PARTA",
		Snapshot:      snapshotWith("PARTA", 9.0, 500_000),
		PassedFilters: map[string]bool{"a": true, "b": true, "c": false},
	}
	partialFewerPasses := types.Result{
		Symbol:        "PARTB",
		Snapshot:      snapshotWith("PARTB", 9.0, 500_000),
		PassedFilters: map[string]bool{"a": true, "b": false, "c": false},
	}
	failed := types.Result{
		Symbol:        "FAIL",
		PassedFilters: map[string]bool{},
		Err:           errors.New("fetch failed"),
	}

	results := []types.Result{failed, partialFewerPasses, actionableSmallGap, actionableDownGap, partialMorePasses, actionableBigGap}
	SortResults(results)

	wantOrder := []string{"BIGGAP", "DOWN", "SMGAP", "PARTA", "PARTB", "FAIL"}
	gotOrder := make([]string, len(results))
	for i, r := range results {
		gotOrder[i] = r.Symbol
	}
	assert.Equal(t, wantOrder, gotOrder)
}

func TestRankingTiebreaks(t *testing.T) {
	makeResult := func(symbol string, volume int64) types.Result {
		return types.Result{
			Symbol:        symbol,
			Snapshot:      snapshotWith(symbol, 5.0, volume),
			PassedFilters: map[string]bool{"a": true},
		}
	}

	// Same actionable status, pass count and gap: volume then symbol decide.
	results := []types.Result{
		makeResult("ZETA", 100_000),
		makeResult("ALPHA", 100_000),
		makeResult("MID", 200_000),
	}
	SortResults(results)

	assert.Equal(t, "MID", results[0].Symbol)
	assert.Equal(t, "ALPHA", results[1].Symbol)
	assert.Equal(t, "ZETA", results[2].Symbol)
}

func TestRankingReproducibleUnderShuffle(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := make([]types.Result, 0, 30)
	for i := 0; i < 30; i++ {
		symbol := fmt.Sprintf("S%02d", i)
		result := types.Result{
			Symbol:        symbol,
			Snapshot:      snapshotWith(symbol, float64(i%5), int64(1000*(i%7+1))),
			PassedFilters: map[string]bool{"a": i%2 == 0, "b": true},
		}
		base = append(base, result)
	}

	reference := make([]types.Result, len(base))
	copy(reference, base)
	SortResults(reference)
	wantOrder := make([]string, len(reference))
	for i, r := range reference {
		wantOrder[i] = r.Symbol
	}

	for trial := 0; trial < 5; trial++ {
		shuffled := make([]types.Result, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		SortResults(shuffled)
		for i, r := range shuffled {
			assert.Equal(t, wantOrder[i], r.Symbol, "trial %d position %d", trial, i)
		}
	}
}

func TestEngineEndToEndScenario(t *testing.T) {
	// Three symbols: two fetch fine, one provider failure. GAINER passes
	// everything; QUIET fails liquidity; DEAD errors.
	provider := datafeed.NewInMemoryProvider()
	provider.AddSnapshot(&types.Snapshot{
		Symbol:             "GAINER",
		Timestamp:          time.Now(),
		LastPrice:          10.5,
		PreviousClose:      10.0,
		PremarketVolume:    300_000,
		Average30DayVolume: 150_000,
		FloatShares:        25_000_000,
		VWAP:               floatPtr(10.2),
	})
	provider.AddSnapshot(&types.Snapshot{
		Symbol:             "QUIET",
		Timestamp:          time.Now(),
		LastPrice:          10.4,
		PreviousClose:      10.0,
		PremarketVolume:    40_000,
		Average30DayVolume: 150_000,
		FloatShares:        25_000_000,
		VWAP:               floatPtr(10.2),
	})
	provider.FailWith("DEAD", errors.New("no premarket data returned for DEAD"))

	cfg := testConfig("GAINER", "QUIET", "DEAD")
	engine := NewEngine(cfg, provider)
	results, err := engine.Run(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "GAINER", results[0].Symbol)
	assert.True(t, results[0].IsActionable())
	assert.Equal(t, "QUIET", results[1].Symbol)
	assert.False(t, results[1].IsActionable())
	assert.Equal(t, "DEAD", results[2].Symbol)
	require.Error(t, results[2].Err)
	assert.Empty(t, results[2].PassedFilters)
}

func TestEngineSingleWorkerStillCompletes(t *testing.T) {
	provider := datafeed.NewInMemoryProvider()
	for i := 0; i < 5; i++ {
		provider.AddSnapshot(snapshotWith(fmt.Sprintf("W%d", i), 5.0, 300_000))
	}
	cfg := testConfig("W0", "W1", "W2", "W3", "W4")
	cfg.MaxConcurrentRequests = 1

	engine := NewEngine(cfg, provider)
	results, err := engine.Run(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, results, 5)
}
