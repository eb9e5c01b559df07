package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seawatch/trackwatch/internal/config"
	"github.com/seawatch/trackwatch/internal/cooldown"
	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/testinfra"
)

func newRepo(t *testing.T, policy config.OutOfOrderPolicy) (*Repository, *testing.T) {
	db := testinfra.NewDB(t)
	gate := cooldown.New(db, nil, 300)
	return New(db, gate, policy), t
}

func f(v float64) *float64 { return &v }

func TestPersistPoint_WritesLatestPositionAndAlert(t *testing.T) {
	repo, _ := newRepo(t, config.OutOfOrderSkipLatest)
	ctx := context.Background()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	point := domain.AisPoint{VesselID: "200000001", Timestamp: ts, Latitude: 40, Longitude: -70, SOG: f(12)}
	candidates := []domain.Candidate{{Type: domain.RuleTeleport, Severity: 100, Summary: "s", Evidence: domain.Evidence{"a": 1.0}}}

	alerts, err := repo.PersistPoint(ctx, point, candidates)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.NotZero(t, alerts[0].ID)

	var latest domain.VesselLatest
	require.NoError(t, repo.db.First(&latest, "mmsi = ?", "200000001").Error)
	assert.Equal(t, 100, latest.LastAlertSeverity)

	var positions []domain.VesselPosition
	require.NoError(t, repo.db.Find(&positions).Error)
	assert.Len(t, positions, 1)

	var stored []domain.Alert
	require.NoError(t, repo.db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.RuleTeleport, stored[0].Type)

	var cds []domain.AlertCooldown
	require.NoError(t, repo.db.Find(&cds).Error)
	assert.Len(t, cds, 1)
}

func TestPersistPoint_MaxSeverityIsMonotoneAcrossPoints(t *testing.T) {
	repo, _ := newRepo(t, config.OutOfOrderSkipLatest)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.PersistPoint(ctx, domain.AisPoint{VesselID: "1", Timestamp: base}, []domain.Candidate{{Type: domain.RuleTeleport, Severity: 90}})
	require.NoError(t, err)
	_, err = repo.PersistPoint(ctx, domain.AisPoint{VesselID: "1", Timestamp: base.Add(time.Minute)}, nil)
	require.NoError(t, err)

	var latest domain.VesselLatest
	require.NoError(t, repo.db.First(&latest, "mmsi = ?", "1").Error)
	assert.Equal(t, 90, latest.LastAlertSeverity)
}

func TestPersistPoint_OutOfOrderSkipLatest(t *testing.T) {
	repo, _ := newRepo(t, config.OutOfOrderSkipLatest)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 10, 0, 0, time.UTC)

	_, err := repo.PersistPoint(ctx, domain.AisPoint{VesselID: "1", Timestamp: base, Latitude: 5}, nil)
	require.NoError(t, err)
	_, err = repo.PersistPoint(ctx, domain.AisPoint{VesselID: "1", Timestamp: base.Add(-time.Minute), Latitude: 1}, nil)
	require.NoError(t, err)

	var latest domain.VesselLatest
	require.NoError(t, repo.db.First(&latest, "mmsi = ?", "1").Error)
	assert.Equal(t, 5.0, latest.Latitude, "latest snapshot should not move backwards")

	var positions []domain.VesselPosition
	require.NoError(t, repo.db.Find(&positions).Error)
	assert.Len(t, positions, 2, "out-of-order point should still be appended to history")
}

func TestPersistPoint_OutOfOrderDiscard(t *testing.T) {
	repo, _ := newRepo(t, config.OutOfOrderDiscard)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 10, 0, 0, time.UTC)

	_, err := repo.PersistPoint(ctx, domain.AisPoint{VesselID: "1", Timestamp: base}, nil)
	require.NoError(t, err)
	_, err = repo.PersistPoint(ctx, domain.AisPoint{VesselID: "1", Timestamp: base.Add(-time.Minute)}, nil)
	require.NoError(t, err)

	var positions []domain.VesselPosition
	require.NoError(t, repo.db.Find(&positions).Error)
	assert.Len(t, positions, 1, "discarded out-of-order point must leave no trace")
}
