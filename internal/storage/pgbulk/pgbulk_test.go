package pgbulk

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seawatch/trackwatch/internal/domain"
)

// CopyFrom speaks the Postgres wire protocol directly, so there is no
// in-memory substitute the way gorm+sqlite stands in for
// internal/storage's tests. Set PGBULK_TEST_DSN to run this against a
// real instance; otherwise it's skipped.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PGBULK_TEST_DSN")
	if dsn == "" {
		t.Skip("PGBULK_TEST_DSN not set, skipping pgbulk integration test")
	}
	return dsn
}

func TestImportPositions_CopiesRowsIntoVesselPositions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	importer, err := Open(ctx, testDSN(t))
	require.NoError(t, err)
	defer importer.Close()

	now := time.Now().UTC()
	points := []domain.AisPoint{
		{VesselID: "200000099", Timestamp: now, Latitude: 10.0, Longitude: 20.0},
		{VesselID: "200000099", Timestamp: now.Add(time.Minute), Latitude: 10.1, Longitude: 20.1},
	}

	n, err := importer.ImportPositions(ctx, points)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestImportPositions_EmptyInputIsNoop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	importer, err := Open(ctx, testDSN(t))
	require.NoError(t, err)
	defer importer.Close()

	n, err := importer.ImportPositions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
