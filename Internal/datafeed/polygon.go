package datafeed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/fazecat/gapscreener/Internal/tickers"
	"github.com/fazecat/gapscreener/Internal/types"
	"github.com/fazecat/gapscreener/Internal/utils/analyzer"
	"github.com/fazecat/gapscreener/Internal/utils/config"
)

const polygonBaseURL = "https://api.polygon.io"

// PolygonProvider fetches pre-market data from the Polygon.io REST API.
// It talks to the documented aggregate and reference endpoints directly.
type PolygonProvider struct {
	client      *resty.Client
	loc         *time.Location
	windowStart config.Clock
	windowEnd   config.Clock
	catalog     *tickers.Catalog
}

func NewPolygonProvider(cfg config.Data) (*PolygonProvider, error) {
	apiKey := resolvePolygonKey(cfg.ProviderOptions)
	if apiKey == "" {
		return nil, fmt.Errorf("polygon provider requires an API key via provider_options.api_key, provider_options.api_key_env, or POLYGON_API_KEY")
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

	client := resty.New().
		SetBaseURL(polygonBaseURL).
		SetQueryParam("apiKey", apiKey).
		SetTimeout(cfg.RequestTimeout())

	return &PolygonProvider{
		client:      client,
		loc:         loc,
		windowStart: windowStart,
		windowEnd:   windowEnd,
		catalog:     catalog,
	}, nil
}

func resolvePolygonKey(options map[string]string) string {
	if key := options["api_key"]; key != "" {
		return key
	}
	if envVar := options["api_key_env"]; envVar != "" {
		if key := os.Getenv(envVar); key != "" {
			return key
		}
	}
	return os.Getenv("POLYGON_API_KEY")
}

// WarmCache is a no-op: the REST API has no cache to prime.
func (p *PolygonProvider) WarmCache(ctx context.Context, symbols []string, asOf time.Time) {}

func (p *PolygonProvider) FetchSnapshot(ctx context.Context, symbol string, asOf time.Time) (*types.Snapshot, error) {
	previousClose, err := p.fetchPreviousClose(ctx, symbol, asOf)
	if err != nil {
		return nil, err
	}

	volumes, closes, err := p.fetchDailyHistory(ctx, symbol, asOf)
	if err != nil {
		return nil, err
	}

	bars, err := p.fetchPremarketBars(ctx, symbol, asOf)
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

	floatShares, err := p.fetchFloatShares(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return analyzer.BuildSnapshot(
		symbol,
		asOf,
		lastPrice,
		previousClose,
		premarketVolume,
		volumes,
		floatShares,
		closes,
		bars,
	), nil
}

// DiscoverSymbols answers market-cap bucket queries from the packaged
// ticker catalog.
func (p *PolygonProvider) DiscoverSymbols(ctx context.Context, capBucket string, limit int) ([]string, error) {
	return p.catalog.Bucket(capBucket, limit)
}

type polygonAgg struct {
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
	Timestamp int64   `json:"t"`
}

type polygonAggsResponse struct {
	Status  string       `json:"status"`
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Results []polygonAgg `json:"results"`
}

func (r *polygonAggsResponse) err(path string) error {
	if r.Status == "ERROR" {
		detail := r.Error
		if detail == "" {
			detail = r.Message
		}
		if detail == "" {
			detail = "unknown error"
		}
		return fmt.Errorf("polygon error for %s: %s", path, detail)
	}
	return nil
}

func (p *PolygonProvider) getAggs(ctx context.Context, path string, params map[string]string) ([]polygonAgg, error) {
	var payload polygonAggsResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&payload).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("polygon request %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("polygon request %s: status %d: %s", path, resp.StatusCode(), resp.String())
	}
	if err := payload.err(path); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

func (p *PolygonProvider) fetchPreviousClose(ctx context.Context, symbol string, asOf time.Time) (float64, error) {
	asOfDate := asOf.UTC()
	results, err := p.getAggs(ctx, "/v2/aggs/ticker/"+symbol+"/prev", map[string]string{
		"adjusted": "true",
	})
	if err != nil {
		return 0, err
	}
	if len(results) > 0 && results[0].Close > 0 {
		return results[0].Close, nil
	}

	// Fall back to scanning recent daily aggregates for the last session
	// that closed before the as-of date.
	start := asOfDate.AddDate(0, 0, -45).Format("2006-01-02")
	end := asOfDate.AddDate(0, 0, -1).Format("2006-01-02")
	results, err = p.getAggs(ctx, "/v2/aggs/ticker/"+symbol+"/range/1/day/"+start+"/"+end, map[string]string{
		"adjusted": "true",
		"sort":     "desc",
		"limit":    "45",
	})
	if err != nil {
		return 0, err
	}
	for _, entry := range results {
		sessionDay := time.UnixMilli(entry.Timestamp).UTC()
		if sessionDay.Before(asOfDate.Truncate(24*time.Hour)) && entry.Close > 0 {
			return entry.Close, nil
		}
	}
	return 0, fmt.Errorf("no previous close data returned for %s", symbol)
}

// fetchDailyHistory returns the last 30 daily volumes and the closing
// prices needed for the SMA-20.
func (p *PolygonProvider) fetchDailyHistory(ctx context.Context, symbol string, asOf time.Time) ([]int64, []float64, error) {
	asOfDate := asOf.UTC()
	start := asOfDate.AddDate(0, 0, -120).Format("2006-01-02")
	end := asOfDate.Format("2006-01-02")
	results, err := p.getAggs(ctx, "/v2/aggs/ticker/"+symbol+"/range/1/day/"+start+"/"+end, map[string]string{
		"adjusted": "true",
		"sort":     "asc",
		"limit":    "180",
	})
	if err != nil {
		return nil, nil, err
	}
	if len(results) == 0 {
		return nil, nil, fmt.Errorf("no historical daily data returned for %s", symbol)
	}

	closes := make([]float64, 0, len(results))
	for _, entry := range results {
		closes = append(closes, entry.Close)
	}

	tail := results
	if len(tail) > 30 {
		tail = tail[len(tail)-30:]
	}
	volumes := make([]int64, 0, len(tail))
	for _, entry := range tail {
		volumes = append(volumes, int64(entry.Volume))
	}
	return volumes, closes, nil
}

func (p *PolygonProvider) fetchPremarketBars(ctx context.Context, symbol string, asOf time.Time) ([]types.Bar, error) {
	sessionLocal := asOf.In(p.loc)
	windowStart := p.windowStart.On(sessionLocal, p.loc)
	windowEnd := p.windowEnd.On(sessionLocal, p.loc)
	// Screening mid-window only looks at bars printed so far.
	if sessionLocal.After(windowStart) && sessionLocal.Before(windowEnd) {
		windowEnd = sessionLocal
	}

	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/minute/%d/%d",
		symbol, windowStart.UTC().UnixMilli(), windowEnd.UTC().UnixMilli())
	results, err := p.getAggs(ctx, path, map[string]string{
		"adjusted": "true",
		"sort":     "asc",
		"limit":    "5000",
	})
	if err != nil {
		return nil, err
	}

	bars := make([]types.Bar, 0, len(results))
	for _, entry := range results {
		ts := time.UnixMilli(entry.Timestamp).In(p.loc)
		if ts.Before(windowStart) || ts.After(windowEnd) {
			continue
		}
		bars = append(bars, types.Bar{
			Timestamp: ts,
			Open:      entry.Open,
			High:      entry.High,
			Low:       entry.Low,
			Close:     entry.Close,
			Volume:    int64(entry.Volume),
		})
	}
	return bars, nil
}

type polygonTickerResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Results struct {
		ShareClassSharesOutstanding int64 `json:"share_class_shares_outstanding"`
		WeightedSharesOutstanding   int64 `json:"weighted_shares_outstanding"`
		SharesOutstanding           int64 `json:"shares_outstanding"`
	} `json:"results"`
}

func (p *PolygonProvider) fetchFloatShares(ctx context.Context, symbol string) (int64, error) {
	var payload polygonTickerResponse
	path := "/v3/reference/tickers/" + symbol
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(path)
	if err != nil {
		return 0, fmt.Errorf("polygon request %s: %w", path, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("polygon request %s: status %d: %s", path, resp.StatusCode(), resp.String())
	}
	if payload.Status == "ERROR" {
		return 0, fmt.Errorf("polygon error for %s: %s", path, payload.Error)
	}

	for _, candidate := range []int64{
		payload.Results.ShareClassSharesOutstanding,
		payload.Results.WeightedSharesOutstanding,
		payload.Results.SharesOutstanding,
	} {
		if candidate > 0 {
			return candidate, nil
		}
	}
	log.Debug().Str("symbol", symbol).Msg("polygon reference data carried no share count")
	return 0, nil
}
