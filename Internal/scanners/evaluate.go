package scanners

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fazecat/gapscreener/Internal/types"
)

// BaselineOutcome is the result of checking one baseline query against a
// snapshot.
type BaselineOutcome struct {
	Key    string
	Passed bool
	Reason string
}

// UnsupportedReason marks baselines whose required metrics a pre-market
// snapshot does not carry (multi-day history, short interest, intraday
// windows). They always report this defined failure instead of passing
// silently or erroring. This is a permanent limitation of the snapshot
// data model, not a transient condition.
const UnsupportedReason = "baseline evaluation not supported by available snapshot data"

// EvaluateBaseline checks whether the snapshot satisfies a baseline
// query. Only gap and liquidity baselines are answerable from snapshot
// data; everything else yields the unsupported outcome.
func EvaluateBaseline(snap *types.Snapshot, baseline BaselineQuery) BaselineOutcome {
	params := baseline.Parameters

	switch baseline.Key {
	case "premarket_gap":
		minGapPercent := floatParam(params, "min_gap_percent", 0)
		requireAboveVWAP := boolParam(params, "require_above_vwap", false)
		meetsGap := snap.GapPercent() >= minGapPercent
		meetsVWAP := !requireAboveVWAP || snap.IsAboveVWAP()
		return BaselineOutcome{
			Key:    baseline.Key,
			Passed: meetsGap && meetsVWAP,
			Reason: failureReason("Gap", []check{
				{meetsGap, fmt.Sprintf("gap<%.2f%%", minGapPercent)},
				{meetsVWAP, "below VWAP"},
			}),
		}

	case "premarket_liquidity":
		minRelVol := floatParam(params, "min_relative_volume", 0)
		minAbsVol := intParam(params, "min_absolute_volume", 0)
		meetsRel := snap.RelativeVolume() >= minRelVol
		meetsAbs := snap.PremarketVolume >= minAbsVol
		return BaselineOutcome{
			Key:    baseline.Key,
			Passed: meetsRel && meetsAbs,
			Reason: failureReason("Liquidity", []check{
				{meetsRel, fmt.Sprintf("rel_vol<%.2f", minRelVol)},
				{meetsAbs, fmt.Sprintf("volume<%s", groupDigits(minAbsVol))},
			}),
		}
	}

	return BaselineOutcome{Key: baseline.Key, Passed: false, Reason: UnsupportedReason}
}

// EvaluateScanner evaluates every baseline of the scanner in declaration
// order. No aggregate pass/fail is computed here; callers combine the
// outcomes as needed.
func EvaluateScanner(snap *types.Snapshot, scanner ScannerDefinition) []BaselineOutcome {
	outcomes := make([]BaselineOutcome, len(scanner.Baselines))
	for i, baseline := range scanner.Baselines {
		outcomes[i] = EvaluateBaseline(snap, baseline)
	}
	return outcomes
}

type check struct {
	passed bool
	label  string
}

func failureReason(label string, checks []check) string {
	var failures []string
	for _, c := range checks {
		if !c.passed {
			failures = append(failures, c.label)
		}
	}
	if len(failures) == 0 {
		return label + " satisfied"
	}
	return label + " failed: " + strings.Join(failures, ", ")
}

func floatParam(params Params, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

func intParam(params Params, key string, fallback int64) int64 {
	switch v := params[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return fallback
	}
}

func boolParam(params Params, key string, fallback bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return fallback
}

// groupDigits formats n with comma thousands separators for reasons.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
