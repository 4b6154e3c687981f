// Package scanners holds the desk's catalogue of named scanners and the
// reusable baseline queries they are composed from. The core screener
// covers pre-market gap and volume filters; these definitions let
// downstream tools enumerate and apply higher-level combinations without
// hard-coding them.
package scanners

import (
	"errors"
	"fmt"
)

// Params carries the numeric/boolean/string parameters of a baseline.
type Params map[string]any

// BaselineQuery is an atomic, parameterized condition template.
type BaselineQuery struct {
	Key         string
	Description string
	Parameters  Params
}

// WithOverrides returns a copy of the baseline with the given parameters
// merged over the defaults. Unspecified keys retain their defaults.
func (b BaselineQuery) WithOverrides(overrides Params) BaselineQuery {
	merged := make(Params, len(b.Parameters)+len(overrides))
	for k, v := range b.Parameters {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return BaselineQuery{Key: b.Key, Description: b.Description, Parameters: merged}
}

// ScannerDefinition is a named scanner composed from one or more
// baseline queries, evaluated in declaration order.
type ScannerDefinition struct {
	Name      string
	Group     string
	Baselines []BaselineQuery
	Notes     string
}

// BaselineRegistry builds the full set of baseline query templates, keyed
// by baseline key. Callers receive a fresh copy; the catalog itself is
// never mutated after construction.
func BaselineRegistry() map[string]BaselineQuery {
	baselines := []BaselineQuery{
		{
			Key:         "premarket_gap",
			Description: "Pre-market gap percentage with VWAP confirmation",
			Parameters:  Params{"min_gap_percent": 3.0, "require_above_vwap": true},
		},
		{
			Key:         "after_hours_gap",
			Description: "After-hours price displacement relative to prior close",
			Parameters:  Params{"min_gap_percent": 2.0, "session": "post"},
		},
		{
			Key:         "premarket_liquidity",
			Description: "Pre-market participation filters",
			Parameters:  Params{"min_relative_volume": 1.5, "min_absolute_volume": int64(100_000)},
		},
		{
			Key:         "after_hours_liquidity",
			Description: "After-hours participation filters",
			Parameters:  Params{"min_relative_volume": 1.2, "min_absolute_volume": int64(50_000)},
		},
		{
			Key:         "earnings_upcoming",
			Description: "Earnings scheduled within the next few sessions",
			Parameters:  Params{"days_ahead": 1, "session": "after_close"},
		},
		{
			Key:         "post_earnings_followthrough",
			Description: "Tracking price and volume behaviour after an earnings event",
			Parameters:  Params{"days_since_report": 1, "min_gain_percent": 2.5},
		},
		{
			Key:         "multi_day_momentum",
			Description: "Stacked green candles with higher highs",
			Parameters:  Params{"green_days": 3, "require_higher_highs": true},
		},
		{
			Key:         "breakout",
			Description: "Price clearing recent resistance with volume",
			Parameters:  Params{"lookback_days": 20, "volume_multiple": 1.5, "buffer_percent": 1.5},
		},
		{
			Key:         "double_breakout",
			Description: "Breakout validated on two different lookbacks",
			Parameters:  Params{"first_lookback": 20, "second_lookback": 50, "min_volume_multiple": 2.0},
		},
		{
			Key:         "moving_average_cross",
			Description: "Fast MA crossing above a slower MA",
			Parameters:  Params{"fast_window": 10, "slow_window": 20},
		},
		{
			Key:         "sma_cross",
			Description: "Simple moving-average cross",
			Parameters:  Params{"fast_window": 20, "slow_window": 50},
		},
		{
			Key:         "golden_cross",
			Description: "50-day moving average crossing above the 200-day",
			Parameters:  Params{"fast_window": 50, "slow_window": 200},
		},
		{
			Key:         "bullish_reversal",
			Description: "Oversold bounce reclaiming short-term resistance",
			Parameters:  Params{"rsi_max": 35, "reclaim_days": 3, "min_wick_percent": 1.0},
		},
		{
			Key:         "volume_spike",
			Description: "Sudden increase in intraday volume",
			Parameters:  Params{"min_multiple": 2.0},
		},
		{
			Key:         "relative_strength",
			Description: "Relative strength versus peers over the last N sessions",
			Parameters:  Params{"lookback_days": 30, "percentile": 70},
		},
		{
			Key:         "intraday_momentum",
			Description: "Intraday gain over a short timeframe",
			Parameters:  Params{"timeframe_minutes": 15, "min_gain_percent": 3.0},
		},
		{
			Key:         "short_squeeze",
			Description: "Elevated short interest with supportive volume",
			Parameters:  Params{"min_short_float_percent": 10, "max_days_to_cover": 4, "volume_multiple": 2.5},
		},
	}

	registry := make(map[string]BaselineQuery, len(baselines))
	for _, b := range baselines {
		registry[b.Key] = b
	}
	return registry
}

func mustBaseline(registry map[string]BaselineQuery, key string, overrides Params) BaselineQuery {
	base, ok := registry[key]
	if !ok {
		panic(fmt.Sprintf("scanner catalog references undefined baseline %q", key))
	}
	if len(overrides) == 0 {
		return base
	}
	return base.WithOverrides(overrides)
}

// BuildScannerDefinitions returns the scanner catalog requested by the
// trading desk, keyed by scanner name.
func BuildScannerDefinitions() map[string]ScannerDefinition {
	registry := BaselineRegistry()
	get := func(key string, overrides Params) BaselineQuery {
		return mustBaseline(registry, key, overrides)
	}

	scanners := []ScannerDefinition{
		// Pre-Open Gainers
		{
			Name:  "Gainers",
			Group: "Pre-Open Gainers",
			Baselines: []BaselineQuery{
				get("premarket_gap", Params{"min_gap_percent": 1.5}),
				get("premarket_liquidity", nil),
			},
		},
		{
			Name:  "After-Hours Gainers",
			Group: "Pre-Open Gainers",
			Baselines: []BaselineQuery{
				get("after_hours_gap", Params{"min_gap_percent": 1.5}),
				get("after_hours_liquidity", nil),
			},
		},
		{
			Name:  "Gap-up",
			Group: "Pre-Open Gainers",
			Baselines: []BaselineQuery{
				get("premarket_gap", Params{"min_gap_percent": 4.0}),
				get("premarket_liquidity", Params{"min_absolute_volume": int64(150_000)}),
			},
		},
		{
			Name:  "Earnings Tonight",
			Group: "Pre-Open Gainers",
			Baselines: []BaselineQuery{
				get("earnings_upcoming", Params{"days_ahead": 0, "session": "after_close"}),
				get("premarket_liquidity", nil),
			},
			Notes: "Filters for names reporting after today's close.",
		},
		{
			Name:  "After Earnings",
			Group: "Pre-Open Gainers",
			Baselines: []BaselineQuery{
				get("post_earnings_followthrough", Params{"days_since_report": 2}),
				get("premarket_liquidity", nil),
			},
		},
		// Swing
		{
			Name:  "Green Royal Flush",
			Group: "Swing",
			Baselines: []BaselineQuery{
				get("multi_day_momentum", Params{"green_days": 5}),
				get("relative_strength", Params{"percentile": 80}),
				get("volume_spike", Params{"min_multiple": 2.5}),
			},
		},
		{
			Name:  "Pop Bull",
			Group: "Swing",
			Baselines: []BaselineQuery{
				get("multi_day_momentum", Params{"green_days": 2}),
				get("breakout", Params{"buffer_percent": 0.5}),
			},
		},
		{
			Name:  "Pop+Bull",
			Group: "Swing",
			Baselines: []BaselineQuery{
				get("multi_day_momentum", Params{"green_days": 3}),
				get("breakout", nil),
				get("relative_strength", Params{"percentile": 75}),
			},
		},
		{
			Name:  "Buy Into Eam",
			Group: "Swing",
			Baselines: []BaselineQuery{
				get("earnings_upcoming", Params{"days_ahead": 3}),
				get("multi_day_momentum", Params{"green_days": 2}),
			},
			Notes: "Positions building into the earnings catalyst.",
		},
		{
			Name:  "Strong After Eam",
			Group: "Swing",
			Baselines: []BaselineQuery{
				get("post_earnings_followthrough", Params{"min_gain_percent": 3.0}),
				get("breakout", Params{"volume_multiple": 2.0}),
			},
		},
		{
			Name:  "Breakout Strong",
			Group: "Swing",
			Baselines: []BaselineQuery{
				get("breakout", Params{"lookback_days": 30, "volume_multiple": 2.0}),
				get("relative_strength", Params{"percentile": 75}),
			},
		},
		{
			Name:  "Breakout x 2",
			Group: "Swing",
			Baselines: []BaselineQuery{
				get("double_breakout", nil),
				get("volume_spike", Params{"min_multiple": 2.5}),
			},
		},
		{
			Name:  "Bullish Reversal",
			Group: "Swing",
			Baselines: []BaselineQuery{
				get("bullish_reversal", nil),
				get("volume_spike", Params{"min_multiple": 1.5}),
			},
		},
		{
			Name:      "Golden Cross",
			Group:     "Swing",
			Baselines: []BaselineQuery{get("golden_cross", nil)},
		},
		{
			Name:      "Bullish SMA Cross",
			Group:     "Swing",
			Baselines: []BaselineQuery{get("sma_cross", nil)},
		},
		// Day
		{
			Name:  "Heavy Buying",
			Group: "Day",
			Baselines: []BaselineQuery{
				get("volume_spike", Params{"min_multiple": 3.0}),
				get("premarket_liquidity", nil),
			},
		},
		{
			Name:  "Relative Str30",
			Group: "Day",
			Baselines: []BaselineQuery{
				get("relative_strength", Params{"lookback_days": 30, "percentile": 80}),
			},
		},
		{
			Name:  "Bullish Explosion",
			Group: "Day",
			Baselines: []BaselineQuery{
				get("intraday_momentum", Params{"min_gain_percent": 5.0}),
				get("volume_spike", Params{"min_multiple": 2.5}),
			},
		},
		{
			Name:  "Red Hot",
			Group: "Day",
			Baselines: []BaselineQuery{
				get("multi_day_momentum", Params{"green_days": 4, "require_higher_highs": true}),
				get("relative_strength", Params{"percentile": 85}),
			},
		},
		{
			Name:  "Breakout",
			Group: "Day",
			Baselines: []BaselineQuery{
				get("breakout", nil),
				get("volume_spike", nil),
			},
		},
		{
			Name:  "Breakout Plus",
			Group: "Day",
			Baselines: []BaselineQuery{
				get("breakout", Params{"lookback_days": 40, "buffer_percent": 0.5}),
				get("volume_spike", Params{"min_multiple": 2.0}),
				get("relative_strength", Params{"percentile": 75}),
			},
		},
		{
			Name:  "M15 Gain",
			Group: "Day",
			Baselines: []BaselineQuery{
				get("intraday_momentum", Params{"timeframe_minutes": 15, "min_gain_percent": 2.5}),
				get("volume_spike", Params{"min_multiple": 1.8}),
			},
		},
		{
			Name:  "Bull Run",
			Group: "Day",
			Baselines: []BaselineQuery{
				get("multi_day_momentum", Params{"green_days": 4}),
				get("moving_average_cross", Params{"fast_window": 8, "slow_window": 21}),
			},
		},
		{
			Name:  "Short Squeeze",
			Group: "Day",
			Baselines: []BaselineQuery{
				get("short_squeeze", nil),
				get("volume_spike", Params{"min_multiple": 3.0}),
			},
		},
	}

	catalog := make(map[string]ScannerDefinition, len(scanners))
	for _, s := range scanners {
		catalog[s.Name] = s
	}
	return catalog
}

var ErrEmptyCatalog = errors.New("at least one scanner definition must be provided")

// ValidateScanners checks catalog integrity against the baseline
// registry: a non-empty catalog, at least one baseline per scanner, and
// no references to undefined baseline keys. Run it once at startup
// before trusting any listing or discovery operation.
func ValidateScanners(catalog map[string]ScannerDefinition, registry map[string]BaselineQuery) error {
	if len(catalog) == 0 {
		return ErrEmptyCatalog
	}
	for name, scanner := range catalog {
		if len(scanner.Baselines) == 0 {
			return fmt.Errorf("scanner %q must include at least one baseline query", name)
		}
		for _, baseline := range scanner.Baselines {
			if _, ok := registry[baseline.Key]; !ok {
				return fmt.Errorf("scanner %q references undefined baseline %q", name, baseline.Key)
			}
		}
	}
	return nil
}
