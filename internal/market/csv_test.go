package market

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, "timestamp,open,high,low,close,volume\n"+
		"1000,1.0,1.5,0.5,1.2,10\n"+
		"2000,1.2,1.6,1.0,1.4,12\n")
	bars, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	require.Equal(t, int64(1000), bars[0].Ts)
	require.Equal(t, 1.2, bars[0].Close)
	require.Equal(t, 12.0, bars[1].Volume)
}

func TestLoadCSVSortsAndDeduplicates(t *testing.T) {
	path := writeCSV(t, "2000,1.2,1.6,1.0,1.4\n"+
		"1000,1.0,1.5,0.5,1.2\n"+
		"2000,2.2,2.6,2.0,2.4\n")
	bars, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	require.Equal(t, int64(1000), bars[0].Ts)
	// the later row for a duplicate timestamp wins
	require.Equal(t, 2.4, bars[1].Close)
	require.NoError(t, ValidateSeries(bars))
}

func TestLoadCSVNegativeTimestamps(t *testing.T) {
	path := writeCSV(t, "-1,1.0,1.5,0.5,1.2\n"+
		"-1,2.0,2.5,1.5,2.2\n"+
		"1000,1.2,1.6,1.0,1.4\n")
	bars, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	require.Equal(t, int64(-1), bars[0].Ts)
	require.Equal(t, 2.2, bars[0].Close)
}

func TestLoadCSVSkipsBadRows(t *testing.T) {
	path := writeCSV(t, "1000,1.0,1.5,0.5,1.2\n"+
		"garbage,x,y,z,w\n"+
		"2000,1.2,1.6,1.0,1.4\n")
	bars, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
}

func TestLoadCSVByteOrderMark(t *testing.T) {
	path := writeCSV(t, "\xEF\xBB\xBF1000,1.0,1.5,0.5,1.2\n")
	bars, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	require.Equal(t, int64(1000), bars[0].Ts)
}

func TestLoadCSVEmptyFileFails(t *testing.T) {
	path := writeCSV(t, "timestamp,open,high,low,close\n")
	_, err := LoadCSV(path)
	require.Error(t, err)
}

func TestValidateSeriesRejectsOutOfOrder(t *testing.T) {
	bars := []Bar{{Ts: 2000}, {Ts: 1000}}
	require.Error(t, ValidateSeries(bars))
	require.Error(t, ValidateSeries([]Bar{{Ts: 1000}, {Ts: 1000}}))
}

func TestBarHelpers(t *testing.T) {
	b := Bar{Ts: 0, Open: 1, Close: 2}
	require.True(t, b.Bullish())
	require.False(t, Bar{Open: 2, Close: 1}.Bullish())
	require.Equal(t, 1970, b.Time().Year())
}
