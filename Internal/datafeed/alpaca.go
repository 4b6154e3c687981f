package datafeed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/fazecat/gapscreener/Internal/tickers"
	"github.com/fazecat/gapscreener/Internal/types"
	"github.com/fazecat/gapscreener/Internal/utils/analyzer"
	"github.com/fazecat/gapscreener/Internal/utils/config"
)

// AlpacaProvider sources pre-market data from the Alpaca market data API
// and resolves discovery queries against the tradable asset list.
type AlpacaProvider struct {
	md          *marketdata.Client
	trading     *alpaca.Client
	loc         *time.Location
	windowStart config.Clock
	windowEnd   config.Clock
	catalog     *tickers.Catalog
}

func NewAlpacaProvider(cfg config.Data) (*AlpacaProvider, error) {
	apiKey := os.Getenv("ALPACA_API_KEY")
	secretKey := os.Getenv("ALPACA_API_SECRET")
	if apiKey == "" || secretKey == "" {
		return nil, fmt.Errorf("alpaca provider requires ALPACA_API_KEY and ALPACA_API_SECRET")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}
	windowStart, err := config.ParseClock(cfg.PremarketWindowStart)
	if err != nil {
		return nil, err
	}
	windowEnd, err := config.ParseClock(cfg.PremarketWindowEnd)
	if err != nil {
		return nil, err
	}
	catalog, err := tickers.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("loading ticker catalog: %w", err)
	}

	baseURL := cfg.ProviderOptions["base_url"]
	if baseURL == "" {
		baseURL = "https://paper-api.alpaca.markets"
	}

	return &AlpacaProvider{
		md: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: secretKey,
		}),
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: secretKey,
			BaseURL:   baseURL,
		}),
		loc:         loc,
		windowStart: windowStart,
		windowEnd:   windowEnd,
		catalog:     catalog,
	}, nil
}

// WarmCache is a no-op: the SDK issues plain REST calls with no local
// cache to prime.
func (p *AlpacaProvider) WarmCache(ctx context.Context, symbols []string, asOf time.Time) {}

func (p *AlpacaProvider) FetchSnapshot(ctx context.Context, symbol string, asOf time.Time) (*types.Snapshot, error) {
	// The SDK does not thread contexts through its calls, so honor
	// cancellation between the sequential requests instead.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sessionDay := asOf.In(p.loc).Truncate(24 * time.Hour)
	daily, err := p.md.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     asOf.AddDate(0, 0, -120),
		End:       asOf,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca daily bars for %s: %w", symbol, err)
	}

	var closes []float64
	var volumes []int64
	for _, bar := range daily {
		if !bar.Timestamp.In(p.loc).Before(sessionDay) {
			continue
		}
		closes = append(closes, bar.Close)
		volumes = append(volumes, int64(bar.Volume))
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("no historical data returned for %s", symbol)
	}
	previousClose := closes[len(closes)-1]
	if len(volumes) > 30 {
		volumes = volumes[len(volumes)-30:]
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := p.fetchPremarketBars(symbol, asOf)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no premarket data returned for %s", symbol)
	}

	var premarketVolume int64
	for _, bar := range bars {
		premarketVolume += bar.Volume
	}
	lastPrice := bars[len(bars)-1].Close

	// Alpaca does not expose float or outstanding share counts, so the
	// snapshot carries 0 and the float filter treats the name as
	// illiquid. Use the polygon provider when float screening matters.
	return analyzer.BuildSnapshot(
		symbol,
		asOf,
		lastPrice,
		previousClose,
		premarketVolume,
		volumes,
		0,
		closes,
		bars,
	), nil
}

func (p *AlpacaProvider) fetchPremarketBars(symbol string, asOf time.Time) ([]types.Bar, error) {
	sessionLocal := asOf.In(p.loc)
	windowStart := p.windowStart.On(sessionLocal, p.loc)
	windowEnd := p.windowEnd.On(sessionLocal, p.loc)
	if sessionLocal.After(windowStart) && sessionLocal.Before(windowEnd) {
		windowEnd = sessionLocal
	}

	minute, err := p.md.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneMin,
		Start:     windowStart.UTC(),
		End:       windowEnd.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca minute bars for %s: %w", symbol, err)
	}

	bars := make([]types.Bar, 0, len(minute))
	for _, bar := range minute {
		ts := bar.Timestamp.In(p.loc)
		if ts.Before(windowStart) || ts.After(windowEnd) {
			continue
		}
		bars = append(bars, types.Bar{
			Timestamp: ts,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    int64(bar.Volume),
		})
	}
	return bars, nil
}

// DiscoverSymbols intersects the catalog's market-cap bucket with
// Alpaca's active tradable equity list, preserving cap order.
func (p *AlpacaProvider) DiscoverSymbols(ctx context.Context, capBucket string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bucketSymbols, err := p.catalog.Bucket(capBucket, 0)
	if err != nil {
		return nil, err
	}

	assets, err := p.trading.GetAssets(alpaca.GetAssetsRequest{Status: "active"})
	if err != nil {
		return nil, fmt.Errorf("fetching assets from alpaca: %w", err)
	}
	tradable := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		if asset.Class == "us_equity" && asset.Tradable {
			tradable[asset.Symbol] = struct{}{}
		}
	}

	out := make([]string, 0, len(bucketSymbols))
	for _, symbol := range bucketSymbols {
		if _, ok := tradable[symbol]; !ok {
			continue
		}
		out = append(out, symbol)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
