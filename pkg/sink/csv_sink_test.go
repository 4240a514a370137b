package sink

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efhkdmbc/honkey-pi/pkg/buffer"
	"github.com/efhkdmbc/honkey-pi/pkg/schema"
	"github.com/efhkdmbc/honkey-pi/pkg/serial"
)

var testStart = time.Date(2021, time.November, 14, 1, 0, 0, 0, time.UTC)

func openTestSink(t *testing.T, cfg Config) *CSVSink {
	t.Helper()
	if cfg.Directory == "" {
		cfg.Directory = t.TempDir()
	}
	s, err := Open(cfg, testStart)
	require.NoError(t, err)
	return s
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestOpenWritesHeaderAndVersion(t *testing.T) {
	s := openTestSink(t, Config{})
	defer s.Close()

	lines := readLines(t, s.Path())
	require.GreaterOrEqual(t, len(lines), 2)

	header := strings.Split(lines[0], ",")
	assert.Len(t, header, schema.ColumnCount)
	assert.Equal(t, "Boat", header[0])
	assert.Equal(t, "Utc", header[1])
	assert.Equal(t, "Charge%", header[schema.ColumnCount-1])

	assert.Equal(t, "!v11.10.18", lines[1])
}

func TestFilenamePattern(t *testing.T) {
	s := openTestSink(t, Config{})
	defer s.Close()

	assert.Equal(t, "2021Nov14_010000.csv", filepath.Base(s.Path()))
}

func TestWriteRowRendersCells(t *testing.T) {
	s := openTestSink(t, Config{FlushEvery: 1})
	defer s.Close()

	var row Row
	row.Target = testStart.Add(time.Second)
	row.Entries[schema.MustIndex("BSP")] = buffer.Entry{Value: 12.5, Unit: "knots", Seen: true}

	require.NoError(t, s.WriteRow(row))

	lines := readLines(t, s.Path())
	require.Len(t, lines, 3)

	cells := strings.Split(lines[2], ",")
	require.Len(t, cells, schema.ColumnCount)

	assert.Equal(t, "0", cells[schema.ColBoat])
	assert.Equal(t, "12.5", cells[schema.MustIndex("BSP")])

	// Every other cell is the empty string, not "0" or "NaN".
	for i, cell := range cells {
		if i == schema.ColBoat || i == schema.ColUtc || i == schema.MustIndex("BSP") {
			continue
		}
		assert.Empty(t, cell, "cell %d (%s)", i, schema.Columns[i])
	}

	got, err := strconv.ParseFloat(cells[schema.ColUtc], 64)
	require.NoError(t, err)
	assert.InDelta(t, serial.FromTime(row.Target), got, 1e-9)
}

func TestWriteRowUsesConfiguredBoatID(t *testing.T) {
	s := openTestSink(t, Config{BoatID: "7", FlushEvery: 1})
	defer s.Close()

	require.NoError(t, s.WriteRow(Row{Target: testStart}))

	lines := readLines(t, s.Path())
	assert.True(t, strings.HasPrefix(lines[2], "7,"))
}

func TestFlushCadence(t *testing.T) {
	s := openTestSink(t, Config{FlushEvery: 2})
	defer s.Close()

	require.NoError(t, s.WriteRow(Row{Target: testStart}))

	// One row written, flush threshold not reached: the row may still be
	// sitting in the csv writer's buffer.
	require.NoError(t, s.WriteRow(Row{Target: testStart.Add(time.Second)}))

	// Second write crossed the threshold; both rows must be on disk now,
	// without Close having been called.
	lines := readLines(t, s.Path())
	assert.Len(t, lines, 4)
}

func TestCloseFlushesRemainingRows(t *testing.T) {
	s := openTestSink(t, Config{FlushEvery: 100})

	require.NoError(t, s.WriteRow(Row{Target: testStart}))
	require.NoError(t, s.Close())

	lines := readLines(t, s.Path())
	assert.Len(t, lines, 3)
	assert.Equal(t, int64(1), s.RowsWritten())
}

func TestCloseIdempotent(t *testing.T) {
	s := openTestSink(t, Config{})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestCompressOnClose(t *testing.T) {
	dir := t.TempDir()
	s := openTestSink(t, Config{Directory: dir, FlushEvery: 1, CompressOnClose: true})

	require.NoError(t, s.WriteRow(Row{Target: testStart}))

	plainPath := s.Path()
	require.NoError(t, s.Close())

	_, err := os.Stat(plainPath)
	assert.True(t, os.IsNotExist(err), "plain file should be removed after compression")

	f, err := os.Open(plainPath + ".gz")
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	content, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "Boat,Utc,BSP"))
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"float64", 12.5, "12.5"},
		{"float64 integral", 45.0, "45"},
		{"int", 7, "7"},
		{"int64", int64(-3), "-3"},
		{"uint64", uint64(9), "9"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCell(tt.value))
		})
	}
}
