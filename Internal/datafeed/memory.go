package datafeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fazecat/gapscreener/Internal/types"
)

// InMemoryProvider serves deterministic data from maps. It doubles as the
// test double for the engine and the screen endpoint.
type InMemoryProvider struct {
	mu         sync.Mutex
	snapshots  map[string]*types.Snapshot
	failures   map[string]error
	discovered map[string][]string
	warmed     [][]string
}

func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{
		snapshots:  make(map[string]*types.Snapshot),
		failures:   make(map[string]error),
		discovered: make(map[string][]string),
	}
}

// AddSnapshot registers the snapshot served for its symbol.
func (p *InMemoryProvider) AddSnapshot(snap *types.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[snap.Symbol] = snap
}

// FailWith makes fetches for the symbol return err.
func (p *InMemoryProvider) FailWith(symbol string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[symbol] = err
}

// SetBucket registers the symbols discovered for a market-cap bucket.
func (p *InMemoryProvider) SetBucket(bucket string, symbols []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discovered[bucket] = symbols
}

func (p *InMemoryProvider) FetchSnapshot(ctx context.Context, symbol string, asOf time.Time) (*types.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failures[symbol]; ok {
		return nil, err
	}
	snap, ok := p.snapshots[symbol]
	if !ok {
		return nil, fmt.Errorf("missing snapshot for symbol %s", symbol)
	}
	return snap, nil
}

func (p *InMemoryProvider) WarmCache(ctx context.Context, symbols []string, asOf time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warmed = append(p.warmed, symbols)
}

// WarmedBatches returns the symbol batches passed to WarmCache.
func (p *InMemoryProvider) WarmedBatches() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]string, len(p.warmed))
	copy(out, p.warmed)
	return out
}

func (p *InMemoryProvider) DiscoverSymbols(ctx context.Context, capBucket string, limit int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	symbols, ok := p.discovered[capBucket]
	if !ok {
		return nil, fmt.Errorf("unknown market-cap bucket %q", capBucket)
	}
	if limit > 0 && len(symbols) > limit {
		symbols = symbols[:limit]
	}
	out := make([]string, len(symbols))
	copy(out, symbols)
	return out, nil
}
