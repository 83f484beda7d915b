package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFileType(t *testing.T) {
	ft, err := DetectFileType("export.CSV")
	require.NoError(t, err)
	assert.Equal(t, CSV, ft)

	ft, err = DetectFileType("/tmp/aave-history.json")
	require.NoError(t, err)
	assert.Equal(t, JSON, ft)

	_, err = DetectFileType("export.xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = DetectFileType("export")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestParseCSV_QuotedComma(t *testing.T) {
	data := []byte("symbol,action,amount,assetPriceUSD,timestamp\n" +
		`WBTC,Supply,"1,234.5",60000,1700000000` + "\n")

	rows, err := Parse(data, CSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1,234.5", rows[0].String("amount"))
	assert.Equal(t, "60000", rows[0].String("assetPriceUSD"))
	assert.Equal(t, "1700000000", rows[0].String("timestamp"))
}

func TestParseCSV_SkipsEmptyRows(t *testing.T) {
	data := []byte("symbol,action\n,\nWBTC,Supply\n\n")

	rows, err := Parse(data, CSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "WBTC", rows[0].String("symbol"))
}

func TestParseCSV_ShortRecord(t *testing.T) {
	data := []byte("symbol,action,amount\nWBTC,Supply\n")

	rows, err := Parse(data, CSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].String("amount"))
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := Parse(nil, CSV)
	assert.ErrorIs(t, err, ErrMalformedFile)
}

func TestParseJSON_NestedSymbol(t *testing.T) {
	data := []byte(`[
		{"action":"Supply","reserve":{"symbol":"cbBTC"},"amount":"0.25","assetPriceUSD":64000.5,"timestamp":1700000000},
		{}
	]`)

	rows, err := Parse(data, JSON)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "cbBTC", rows[0].String("reserve.symbol"))
	assert.Equal(t, "64000.5", rows[0].String("assetPriceUSD"))
	assert.Equal(t, "1700000000", rows[0].String("timestamp"))
}

func TestParseJSON_NotAnArray(t *testing.T) {
	_, err := Parse([]byte(`{"action":"Supply"}`), JSON)
	assert.ErrorIs(t, err, ErrMalformedFile)
}

func TestRowLookup_FlatDottedKey(t *testing.T) {
	row := Row{"reserve.symbol": "WBTC"}
	v, ok := row.Lookup("reserve.symbol")
	require.True(t, ok)
	assert.Equal(t, "WBTC", v)

	_, ok = Row{"reserve": map[string]any{"name": "x"}}.Lookup("reserve.symbol")
	assert.False(t, ok)
}

func TestRowString_Float(t *testing.T) {
	row := Row{"amount": 0.12345678}
	assert.Equal(t, "0.12345678", row.String("amount"))
}
