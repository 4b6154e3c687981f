// Package tickers loads the static ticker catalog packaged with the
// screener and answers market-cap bucket queries against it.
package tickers

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

//go:embed tickers.csv
var defaultCatalogCSV []byte

// Record is a single entry from the ticker catalog. MarketCap is 0 when
// the source row carried no usable figure.
type Record struct {
	Symbol    string
	MarketCap int64
}

// Catalog is the loaded, immutable ticker universe.
type Catalog struct {
	records []Record
}

// Market-cap bucket boundaries in USD.
const (
	microCapCeiling = 300_000_000
	smallCapCeiling = 2_000_000_000
	midCapCeiling   = 10_000_000_000
	nanoCapCeiling  = 50_000_000
)

// BucketNames lists the recognized cap buckets from smallest to largest.
var BucketNames = []string{"nano", "micro", "small", "mid", "large"}

// LoadDefault parses the catalog packaged with the binary.
func LoadDefault() (*Catalog, error) {
	return parse(bytes.NewReader(defaultCatalogCSV))
}

// LoadFile parses a catalog CSV from disk. The file must have a header
// row with symbol and market_cap columns.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ticker catalog: %w", err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading ticker catalog header: %w", err)
	}
	symbolIdx, capIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "symbol":
			symbolIdx = i
		case "market_cap":
			capIdx = i
		}
	}
	if symbolIdx < 0 {
		return nil, fmt.Errorf("ticker catalog is missing a symbol column")
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ticker catalog row: %w", err)
		}
		symbol := strings.ToUpper(strings.TrimSpace(row[symbolIdx]))
		if symbol == "" {
			continue
		}
		var marketCap int64
		if capIdx >= 0 && capIdx < len(row) {
			marketCap = parseMarketCap(row[capIdx])
		}
		records = append(records, Record{Symbol: symbol, MarketCap: marketCap})
	}
	return &Catalog{records: records}, nil
}

// parseMarketCap tolerates grouped digits and scientific notation, since
// catalog exports vary by vendor. Unparseable values become 0.
func parseMarketCap(raw string) int64 {
	text := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if text == "" {
		return 0
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f)
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Symbols returns every catalog symbol in file order.
func (c *Catalog) Symbols() []string {
	out := make([]string, len(c.records))
	for i, rec := range c.records {
		out[i] = rec.Symbol
	}
	return out
}

// Bucket returns the symbols whose market cap falls into the named
// bucket, largest cap first, capped at limit when limit > 0. Entries
// without a market cap are excluded from every bucket.
func (c *Catalog) Bucket(name string, limit int) ([]string, error) {
	lower, upper, err := bucketBounds(name)
	if err != nil {
		return nil, err
	}

	matched := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		if rec.MarketCap <= 0 {
			continue
		}
		if rec.MarketCap >= lower && (upper == 0 || rec.MarketCap < upper) {
			matched = append(matched, rec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].MarketCap > matched[j].MarketCap
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	symbols := make([]string, len(matched))
	for i, rec := range matched {
		symbols[i] = rec.Symbol
	}
	return symbols, nil
}

func bucketBounds(name string) (lower, upper int64, err error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nano":
		return 1, nanoCapCeiling, nil
	case "micro":
		return nanoCapCeiling, microCapCeiling, nil
	case "small":
		return microCapCeiling, smallCapCeiling, nil
	case "mid":
		return smallCapCeiling, midCapCeiling, nil
	case "large":
		return midCapCeiling, 0, nil
	default:
		return 0, 0, fmt.Errorf("unknown market-cap bucket %q, available: %s", name, strings.Join(BucketNames, ", "))
	}
}
