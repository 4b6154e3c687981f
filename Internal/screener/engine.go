package screener

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fazecat/gapscreener/Internal/datafeed"
	"github.com/fazecat/gapscreener/Internal/types"
	"github.com/fazecat/gapscreener/Internal/utils/config"
)

// Engine coordinates per-symbol data fetching and filter evaluation for a
// single run. Fetches fan out over a bounded worker pool; individual
// failures are captured per symbol and never abort the run.
type Engine struct {
	cfg      *config.Config
	provider datafeed.Provider
}

func NewEngine(cfg *config.Config, provider datafeed.Provider) *Engine {
	return &Engine{cfg: cfg, provider: provider}
}

// Run screens the configured universe as of the given timestamp and
// returns results in the canonical ranking order. A zero asOf means now.
// The only run-level failure is invalid criteria reaching the filter
// build; anything per symbol becomes a Result carrying the error.
func (e *Engine) Run(ctx context.Context, asOf time.Time) ([]types.Result, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	symbols, err := e.resolveUniverse(ctx)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		log.Info().Msg("universe resolved to zero symbols, nothing to screen")
		return []types.Result{}, nil
	}

	filters, err := BuildFilters(e.cfg.Criteria)
	if err != nil {
		return nil, err
	}

	e.provider.WarmCache(ctx, symbols, asOf)

	workers := e.cfg.MaxConcurrentRequests
	if workers > len(symbols) {
		workers = len(symbols)
	}
	timeout := e.cfg.Data.RequestTimeout()

	log.Info().
		Int("symbols", len(symbols)).
		Int("workers", workers).
		Time("as_of", asOf).
		Msg("starting screen run")

	jobs := make(chan string)
	results := make([]types.Result, 0, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				result := e.screenSymbol(ctx, symbol, asOf, timeout, filters)
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}
		}()
	}
	for _, symbol := range symbols {
		jobs <- symbol
	}
	close(jobs)
	wg.Wait()

	SortResults(results)

	actionable := 0
	failed := 0
	for _, r := range results {
		if r.IsActionable() {
			actionable++
		}
		if r.Err != nil {
			failed++
		}
	}
	log.Info().
		Int("results", len(results)).
		Int("actionable", actionable).
		Int("fetch_failures", failed).
		Msg("screen run complete")

	return results, nil
}

func (e *Engine) screenSymbol(ctx context.Context, symbol string, asOf time.Time, timeout time.Duration, filters *FilterSet) types.Result {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snapshot, err := e.provider.FetchSnapshot(fetchCtx, symbol, asOf)
	if err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("snapshot fetch failed")
		return types.Result{
			Symbol:        symbol,
			PassedFilters: map[string]bool{},
			Err:           err,
		}
	}
	return filters.Apply(snapshot)
}

// resolveUniverse normalizes the explicit symbol list, or discovers one by
// market-cap bucket when the provider supports it. First-seen order is
// preserved through de-duplication.
func (e *Engine) resolveUniverse(ctx context.Context) ([]string, error) {
	universe := e.cfg.Universe
	if len(universe.Symbols) > 0 {
		return dedupeSymbols(universe.Symbols), nil
	}
	if universe.CapBucket == "" {
		return nil, nil
	}
	discoverer, ok := e.provider.(datafeed.SymbolDiscoverer)
	if !ok {
		return nil, &DiscoveryUnsupportedError{Provider: e.cfg.Data.Provider}
	}
	discovered, err := discoverer.DiscoverSymbols(ctx, universe.CapBucket, universe.DiscoveryLimit)
	if err != nil {
		return nil, err
	}
	return dedupeSymbols(discovered), nil
}

// DiscoveryUnsupportedError is returned when the universe asks for
// bucket discovery but the selected provider cannot enumerate symbols.
type DiscoveryUnsupportedError struct {
	Provider string
}

func (e *DiscoveryUnsupportedError) Error() string {
	return "data provider \"" + e.Provider + "\" does not support symbol discovery"
}

func dedupeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

// SortResults orders results into the canonical ranking: fully passing
// results first, then by descending pass count, descending absolute gap,
// descending pre-market volume, and finally symbol for a stable order on
// equal inputs.
func SortResults(results []types.Result) {
	sort.Slice(results, func(i, j int) bool {
		return rankLess(results[i], results[j])
	})
}

func rankLess(a, b types.Result) bool {
	aPartial := !a.IsActionable()
	bPartial := !b.IsActionable()
	if aPartial != bPartial {
		return !aPartial
	}
	if ac, bc := a.PassCount(), b.PassCount(); ac != bc {
		return ac > bc
	}
	if ag, bg := absGap(a), absGap(b); ag != bg {
		return ag > bg
	}
	if av, bv := premarketVolume(a), premarketVolume(b); av != bv {
		return av > bv
	}
	return a.Symbol < b.Symbol
}

func absGap(r types.Result) float64 {
	if r.Snapshot == nil {
		return 0
	}
	return math.Abs(r.Snapshot.GapPercent())
}

func premarketVolume(r types.Result) int64 {
	if r.Snapshot == nil {
		return 0
	}
	return r.Snapshot.PremarketVolume
}
