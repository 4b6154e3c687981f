package screener

import (
	"fmt"
	"math"

	"github.com/fazecat/gapscreener/Internal/types"
	"github.com/fazecat/gapscreener/Internal/utils/config"
)

// Filter is a single named screening rule over a snapshot. Predicates are
// pure and total: every comparison is defined for any snapshot the
// providers can produce.
type Filter struct {
	Name      string
	Predicate func(*types.Snapshot) bool
}

// FilterSet is the ordered collection of filters built from criteria for
// one run. It is immutable once built and safe to share across workers.
type FilterSet struct {
	filters []Filter
	trend   *config.TrendThresholds
}

// Names returns the filter names in evaluation order.
func (fs *FilterSet) Names() []string {
	names := make([]string, len(fs.filters))
	for i, f := range fs.filters {
		names[i] = f.Name
	}
	return names
}

// BuildFilters turns validated criteria into the ordered filter set. The
// order only affects reporting; every filter is evaluated independently
// with no short-circuiting.
func BuildFilters(criteria config.Criteria) (*FilterSet, error) {
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("building filters: %w", err)
	}

	volume := criteria.Volume
	gap := criteria.Gap

	filters := []Filter{
		{
			Name: "float_liquidity",
			Predicate: func(snap *types.Snapshot) bool {
				return snap.FloatShares >= criteria.MinimumFloatShares
			},
		},
		{
			Name: "relative_volume",
			Predicate: func(snap *types.Snapshot) bool {
				return snap.RelativeVolume() >= volume.RelativeTo30DayAvg
			},
		},
		{
			Name: "absolute_volume",
			Predicate: func(snap *types.Snapshot) bool {
				return snap.PremarketVolume >= volume.AbsolutePreMarketShares
			},
		},
		{
			// Both up- and down-gaps qualify.
			Name: "gap_size",
			Predicate: func(snap *types.Snapshot) bool {
				return math.Abs(snap.GapPercent()) >= gap.MinimumGapPercent
			},
		},
	}

	if gap.RequireAboveVWAP {
		filters = append(filters, Filter{
			Name: "above_vwap",
			Predicate: func(snap *types.Snapshot) bool {
				return snap.IsAboveVWAP()
			},
		})
	}

	var trend *config.TrendThresholds
	if criteria.Trend != nil {
		thresholds := *criteria.Trend
		trend = &thresholds
		filters = append(filters, Filter{
			Name: "sma_20_trend",
			Predicate: func(snap *types.Snapshot) bool {
				_, preferred := ClassifyTrend(snap, thresholds)
				return preferred
			},
		})
	}

	return &FilterSet{filters: filters, trend: trend}, nil
}

// ClassifyTrend buckets the snapshot's SMA-20 displacement into a trend
// category and reports whether that category is in the preferred set.
// Snapshots without a usable SMA classify as TrendUnknown, which never
// passes.
func ClassifyTrend(snap *types.Snapshot, thresholds config.TrendThresholds) (types.TrendCategory, bool) {
	diff, ok := snap.SMAPercentDiff()
	if !ok {
		return types.TrendUnknown, false
	}

	var category types.TrendCategory
	switch {
	case diff >= thresholds.StrongPercent:
		category = types.TrendBullish
	case diff >= thresholds.ModeratePercent:
		category = types.TrendModerateBullish
	case diff <= -thresholds.StrongPercent:
		category = types.TrendBearish
	case diff <= -thresholds.ModeratePercent:
		category = types.TrendModerateBearish
	default:
		category = types.TrendSideways
	}

	for _, name := range thresholds.Preferred {
		if string(category) == name {
			return category, true
		}
	}
	return category, false
}

// Apply evaluates every filter against the snapshot and packages the
// outcomes. When trend criteria are configured the classified category is
// recorded on the result so reporting does not have to re-derive it.
func (fs *FilterSet) Apply(snap *types.Snapshot) types.Result {
	outcomes := make(map[string]bool, len(fs.filters))
	for _, f := range fs.filters {
		outcomes[f.Name] = f.Predicate(snap)
	}
	result := types.Result{
		Symbol:        snap.Symbol,
		Snapshot:      snap,
		PassedFilters: outcomes,
	}
	if fs.trend != nil {
		result.Trend, _ = ClassifyTrend(snap, *fs.trend)
	}
	return result
}
