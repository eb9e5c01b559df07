package loader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpen_ParsesCSVHeaderAliases(t *testing.T) {
	path := writeTempFile(t, "points.csv", "MMSI,BaseDateTime,LAT,LON,SOG,COG,Heading\n"+
		"367123450,2025-01-01T00:00:00,40.0,-70.0,12.5,90.0,90.0\n")

	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	p, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, "367123450", p.VesselID)
	assert.Equal(t, 40.0, p.Latitude)
	require.NotNil(t, p.SOG)
	assert.Equal(t, 12.5, *p.SOG)

	_, err = l.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpen_TabDelimitedDat(t *testing.T) {
	path := writeTempFile(t, "points.dat", "mmsi\ttimestamp\tlat\tlon\n"+
		"200000001\t2025-01-01 00:00:00\t10.0\t20.0\n")

	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	p, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, "200000001", p.VesselID)
	assert.Nil(t, p.SOG)
}

func TestOpen_MissingRequiredColumnFails(t *testing.T) {
	path := writeTempFile(t, "bad.csv", "lat,lon\n10,20\n")

	_, err := Open(path)
	assert.Error(t, err)
}

func TestNext_SkipsUnparseableRows(t *testing.T) {
	path := writeTempFile(t, "points.csv", "mmsi,timestamp,lat,lon\n"+
		"367123450,not-a-time,40.0,-70.0\n"+
		"367123451,2025-01-01T00:00:00,41.0,-71.0\n")

	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	p, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, "367123451", p.VesselID)

	_, err = l.Next()
	assert.Equal(t, io.EOF, err)
}

func TestLoadAll_ReturnsEveryPoint(t *testing.T) {
	path := writeTempFile(t, "points.csv", "mmsi,timestamp,lat,lon\n"+
		"1,2025-01-01T00:00:00,1,1\n"+
		"2,2025-01-01T00:01:00,2,2\n"+
		"3,2025-01-01T00:02:00,3,3\n")

	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	points, err := l.LoadAll()
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestStreamChunks_RespectsChunkSize(t *testing.T) {
	path := writeTempFile(t, "points.csv", "mmsi,timestamp,lat,lon\n"+
		"1,2025-01-01T00:00:00,1,1\n"+
		"2,2025-01-01T00:01:00,2,2\n"+
		"3,2025-01-01T00:02:00,3,3\n")

	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	chunks, errCh := l.StreamChunks(context.Background(), 2)
	var total int
	for chunk := range chunks {
		total += len(chunk)
		assert.LessOrEqual(t, len(chunk), 2)
	}
	select {
	case err := <-errCh:
		t.Fatalf("unexpected stream error: %v", err)
	default:
	}
	assert.Equal(t, 3, total)
}

func TestHeadingUnavailableSentinelPreserved(t *testing.T) {
	path := writeTempFile(t, "points.csv", "mmsi,timestamp,lat,lon,heading\n"+
		"1,2025-01-01T00:00:00,1,1,511\n")

	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	p, err := l.Next()
	require.NoError(t, err)
	require.NotNil(t, p.Heading)
	assert.Equal(t, 511.0, *p.Heading)
	assert.False(t, p.HeadingAvailable())
}
