package tickers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultCatalog(t *testing.T) {
	catalog, err := LoadDefault()
	require.NoError(t, err)
	assert.Greater(t, catalog.Len(), 0)
}

func TestLoadFileParsesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.csv")
	content := "symbol,market_cap\n" +
		"aapl,3400000000000\n" +
		"WKHS,95000000\n" +
		"NOCAP,\n" +
		"SCI,1.5e9\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	catalog, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, catalog.Len())
	assert.Equal(t, []string{"AAPL", "WKHS", "NOCAP", "SCI"}, catalog.Symbols())
}

func TestBucketFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.csv")
	content := "symbol,market_cap\n" +
		"MEGA,3000000000000\n" + // large
		"MIDC,5000000000\n" + // mid
		"SMALL1,1500000000\n" + // small
		"SMALL2,400000000\n" + // small
		"MICRO,100000000\n" + // micro
		"NANO,20000000\n" + // nano
		"UNKNOWN,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	catalog, err := LoadFile(path)
	require.NoError(t, err)

	tests := []struct {
		bucket string
		want   []string
	}{
		{"large", []string{"MEGA"}},
		{"mid", []string{"MIDC"}},
		{"small", []string{"SMALL1", "SMALL2"}}, // largest cap first
		{"micro", []string{"MICRO"}},
		{"nano", []string{"NANO"}},
	}
	for _, tt := range tests {
		t.Run(tt.bucket, func(t *testing.T) {
			got, err := catalog.Bucket(tt.bucket, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBucketLimit(t *testing.T) {
	catalog, err := LoadDefault()
	require.NoError(t, err)

	symbols, err := catalog.Bucket("large", 3)
	require.NoError(t, err)
	assert.Len(t, symbols, 3)
}

func TestBucketUnknownName(t *testing.T) {
	catalog, err := LoadDefault()
	require.NoError(t, err)

	_, err = catalog.Bucket("galactic", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "galactic")
	assert.Contains(t, err.Error(), "nano, micro, small, mid, large")
}

func TestBucketExcludesUnknownCaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.csv")
	content := "symbol,market_cap\nKNOWN,100000000\nMYSTERY,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	catalog, err := LoadFile(path)
	require.NoError(t, err)

	for _, bucket := range BucketNames {
		symbols, err := catalog.Bucket(bucket, 0)
		require.NoError(t, err)
		assert.NotContains(t, symbols, "MYSTERY")
	}
}
