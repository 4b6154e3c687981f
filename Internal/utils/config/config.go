package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fazecat/gapscreener/Internal/types"
)

const (
	DefaultRelativeVolume      = 1.5
	DefaultAbsoluteVolume      = 100_000
	DefaultMinimumGapPercent   = 3.0
	DefaultMinimumFloatShares  = 10_000_000
	DefaultMaxConcurrent       = 8
	DefaultRequestTimeoutSecs  = 30
	DefaultPremarketOpen       = "04:00"
	DefaultPremarketClose      = "09:29"
	DefaultExchangeTimezone    = "America/New_York"
	DefaultProvider            = "polygon"
	DefaultModerateTrendPct    = 1.0
	DefaultStrongTrendPct      = 3.0
)

type Config struct {
	Universe              Universe `yaml:"universe"`
	Criteria              Criteria `yaml:"criteria"`
	Data                  Data     `yaml:"data"`
	MaxConcurrentRequests int      `yaml:"max_concurrent_requests"`
}

// Universe describes which tickers a run evaluates: either an explicit
// symbol list or a market-cap bucket resolved through symbol discovery.
type Universe struct {
	Symbols        []string `yaml:"symbols"`
	IncludeETFs    bool     `yaml:"include_etfs"`
	CapBucket      string   `yaml:"cap_bucket"`
	DiscoveryLimit int      `yaml:"discovery_limit"`
}

type Criteria struct {
	Volume             VolumeThresholds `yaml:"volume"`
	Gap                GapThresholds    `yaml:"gap"`
	Trend              *TrendThresholds `yaml:"trend,omitempty"`
	MinimumFloatShares int64            `yaml:"minimum_float_shares"`
}

type VolumeThresholds struct {
	RelativeTo30DayAvg      float64 `yaml:"relative_to_30day_avg"`
	AbsolutePreMarketShares int64   `yaml:"absolute_pre_market_shares"`
}

type GapThresholds struct {
	MinimumGapPercent float64 `yaml:"minimum_gap_percent"`
	RequireAboveVWAP  bool    `yaml:"require_above_vwap"`
}

// TrendThresholds configures the SMA-20 trend filter. ModeratePercent and
// StrongPercent split the SMA displacement into the five trend categories
// (symmetric on the bearish side); Preferred names the categories that
// pass the filter.
type TrendThresholds struct {
	ModeratePercent float64  `yaml:"moderate_percent"`
	StrongPercent   float64  `yaml:"strong_percent"`
	Preferred       []string `yaml:"preferred"`
}

type Data struct {
	Provider              string            `yaml:"provider"`
	PremarketWindowStart  string            `yaml:"premarket_window_start"`
	PremarketWindowEnd    string            `yaml:"premarket_window_end"`
	Timezone              string            `yaml:"timezone"`
	RequestTimeoutSeconds int               `yaml:"request_timeout_seconds"`
	ProviderOptions       map[string]string `yaml:"provider_options"`
}

func (d Data) RequestTimeout() time.Duration {
	secs := d.RequestTimeoutSeconds
	if secs <= 0 {
		secs = DefaultRequestTimeoutSecs
	}
	return time.Duration(secs) * time.Second
}

// Default returns a config populated with the desk's standard thresholds.
func Default() *Config {
	return &Config{
		Criteria: Criteria{
			Volume: VolumeThresholds{
				RelativeTo30DayAvg:      DefaultRelativeVolume,
				AbsolutePreMarketShares: DefaultAbsoluteVolume,
			},
			Gap: GapThresholds{
				MinimumGapPercent: DefaultMinimumGapPercent,
				RequireAboveVWAP:  true,
			},
			MinimumFloatShares: DefaultMinimumFloatShares,
		},
		Data: Data{
			Provider:              DefaultProvider,
			PremarketWindowStart:  DefaultPremarketOpen,
			PremarketWindowEnd:    DefaultPremarketClose,
			Timezone:              DefaultExchangeTimezone,
			RequestTimeoutSeconds: DefaultRequestTimeoutSecs,
		},
		MaxConcurrentRequests: DefaultMaxConcurrent,
	}
}

// Load reads a YAML config file, layers it over the defaults and
// validates the merged result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Universe.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (u *Universe) normalize() {
	cleaned := make([]string, 0, len(u.Symbols))
	for _, sym := range u.Symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			cleaned = append(cleaned, sym)
		}
	}
	u.Symbols = cleaned
	u.CapBucket = strings.ToLower(strings.TrimSpace(u.CapBucket))
}

func (c *Config) Validate() error {
	if len(c.Universe.Symbols) == 0 && c.Universe.CapBucket == "" {
		return fmt.Errorf("universe: either symbols or cap_bucket must be set")
	}
	if err := c.Criteria.Validate(); err != nil {
		return err
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("max_concurrent_requests must be positive, got %d", c.MaxConcurrentRequests)
	}
	if _, err := ParseClock(c.Data.PremarketWindowStart); err != nil {
		return fmt.Errorf("data.premarket_window_start: %w", err)
	}
	if _, err := ParseClock(c.Data.PremarketWindowEnd); err != nil {
		return fmt.Errorf("data.premarket_window_end: %w", err)
	}
	if _, err := time.LoadLocation(c.Data.Timezone); err != nil {
		return fmt.Errorf("data.timezone %q: %w", c.Data.Timezone, err)
	}
	return nil
}

func (c Criteria) Validate() error {
	if c.Volume.RelativeTo30DayAvg <= 0 {
		return fmt.Errorf("criteria.volume.relative_to_30day_avg must be positive")
	}
	if c.Volume.AbsolutePreMarketShares <= 0 {
		return fmt.Errorf("criteria.volume.absolute_pre_market_shares must be positive")
	}
	if c.Gap.MinimumGapPercent < 0 {
		return fmt.Errorf("criteria.gap.minimum_gap_percent must be non-negative")
	}
	if c.MinimumFloatShares <= 0 {
		return fmt.Errorf("criteria.minimum_float_shares must be positive")
	}
	if c.Trend != nil {
		return c.Trend.Validate()
	}
	return nil
}

func (t TrendThresholds) Validate() error {
	if t.ModeratePercent <= 0 || t.StrongPercent <= 0 {
		return fmt.Errorf("criteria.trend thresholds must be positive")
	}
	if t.StrongPercent <= t.ModeratePercent {
		return fmt.Errorf("criteria.trend.strong_percent must exceed moderate_percent")
	}
	if len(t.Preferred) == 0 {
		return fmt.Errorf("criteria.trend.preferred must name at least one category")
	}
	for _, name := range t.Preferred {
		if !isKnownCategory(name) {
			return fmt.Errorf("criteria.trend.preferred: unknown category %q", name)
		}
	}
	return nil
}

func isKnownCategory(name string) bool {
	for _, cat := range types.TrendCategories {
		if string(cat) == name {
			return true
		}
	}
	return false
}

// Clock is a wall-clock time of day in the exchange timezone.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an HH:MM string.
func ParseClock(value string) (Clock, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On anchors the clock to a calendar date in the given location.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, loc)
}
