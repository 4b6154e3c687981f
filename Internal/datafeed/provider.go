package datafeed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fazecat/gapscreener/Internal/types"
	"github.com/fazecat/gapscreener/Internal/utils/config"
)

// Provider fetches the market data the screener needs. FetchSnapshot must
// fail on any unrecoverable condition rather than return a partial
// snapshot; WarmCache is a best-effort hint and never fails.
type Provider interface {
	FetchSnapshot(ctx context.Context, symbol string, asOf time.Time) (*types.Snapshot, error)
	WarmCache(ctx context.Context, symbols []string, asOf time.Time)
}

// SymbolDiscoverer is the optional capability of resolving a symbol
// universe from a market-cap bucket instead of an explicit list.
type SymbolDiscoverer interface {
	DiscoverSymbols(ctx context.Context, capBucket string, limit int) ([]string, error)
}

// Factory builds a provider from the data section of the run config.
type Factory func(cfg config.Data) (Provider, error)

// Registry returns the provider factories selectable via data.provider.
func Registry() map[string]Factory {
	return map[string]Factory{
		"polygon": func(cfg config.Data) (Provider, error) { return NewPolygonProvider(cfg) },
		"alpaca":  func(cfg config.Data) (Provider, error) { return NewAlpacaProvider(cfg) },
	}
}

// ResolveFactory looks up a provider factory by name.
func ResolveFactory(name string) (Factory, error) {
	registry := Registry()
	factory, ok := registry[name]
	if !ok {
		available := make([]string, 0, len(registry))
		for key := range registry {
			available = append(available, key)
		}
		sort.Strings(available)
		return nil, fmt.Errorf("unknown data provider %q, available: %s", name, strings.Join(available, ", "))
	}
	return factory, nil
}
