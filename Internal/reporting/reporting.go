// Package reporting turns ordered screener results into rows suitable
// for console tables and CSV exports.
package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fazecat/gapscreener/Internal/types"
)

// ReportRow is a flattened, display-ready view of one result. Pointer
// fields are nil when the fetch failed and no snapshot exists.
type ReportRow struct {
	Symbol          string
	GapPercent      *float64
	PremarketVolume *int64
	RelativeVolume  *float64
	FloatShares     *int64
	Trend           string
	Notes           string
}

// Summarize flattens a result into a report row.
func Summarize(result types.Result) ReportRow {
	if result.Err != nil {
		return ReportRow{
			Symbol: result.Symbol,
			Notes:  fmt.Sprintf("error: %v", result.Err),
		}
	}

	snap := result.Snapshot
	gap := snap.GapPercent()
	relVol := snap.RelativeVolume()
	volume := snap.PremarketVolume
	floatShares := snap.FloatShares

	var failing []string
	for name, passed := range result.PassedFilters {
		if !passed {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)
	notes := "PASS"
	if len(failing) > 0 {
		notes = "Fail: " + strings.Join(failing, ", ")
	}

	return ReportRow{
		Symbol:          snap.Symbol,
		GapPercent:      &gap,
		PremarketVolume: &volume,
		RelativeVolume:  &relVol,
		FloatShares:     &floatShares,
		Trend:           string(result.Trend),
		Notes:           notes,
	}
}

// SummarizeAll maps Summarize over an ordered result collection.
func SummarizeAll(results []types.Result) []ReportRow {
	rows := make([]ReportRow, len(results))
	for i, result := range results {
		rows[i] = Summarize(result)
	}
	return rows
}

var tableHeaders = []string{"Symbol", "Gap %", "Premkt Vol", "Rel Vol", "Float", "Trend", "Notes"}

// RenderTable renders rows as an aligned text table for console output.
func RenderTable(rows []ReportRow) string {
	widths := make([]int, len(tableHeaders))
	for i, h := range tableHeaders {
		widths[i] = len(h)
	}

	formatted := make([][]string, len(rows))
	for i, row := range rows {
		cells := row.cells()
		for j, cell := range cells {
			if len(cell) > widths[j] {
				widths[j] = len(cell)
			}
		}
		formatted[i] = cells
	}

	formatLine := func(cells []string) string {
		padded := make([]string, len(cells))
		for i, cell := range cells {
			padded[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}
		return strings.Join(padded, " | ")
	}

	separators := make([]string, len(widths))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}

	lines := []string{formatLine(tableHeaders), strings.Join(separators, "-+-")}
	for _, cells := range formatted {
		lines = append(lines, formatLine(cells))
	}
	return strings.Join(lines, "\n")
}

// WriteCSV writes rows with a header line. Empty cells stand in for
// missing values on failed fetches.
func WriteCSV(w io.Writer, rows []ReportRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"symbol", "gap_percent", "premarket_volume", "relative_volume", "float_shares", "trend", "notes"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Symbol,
			formatFloatPtr(row.GapPercent),
			formatIntPtr(row.PremarketVolume, false),
			formatFloatPtr(row.RelativeVolume),
			formatIntPtr(row.FloatShares, false),
			row.Trend,
			row.Notes,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (r ReportRow) cells() []string {
	return []string{
		r.Symbol,
		formatFloatPtr(r.GapPercent),
		formatIntPtr(r.PremarketVolume, true),
		formatFloatPtr(r.RelativeVolume),
		formatIntPtr(r.FloatShares, true),
		r.Trend,
		r.Notes,
	}
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatIntPtr(v *int64, grouped bool) string {
	if v == nil {
		return ""
	}
	if !grouped {
		return strconv.FormatInt(*v, 10)
	}
	return groupDigits(*v)
}

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
