package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/testinfra"
)

func TestAllow_NoPriorEntryAlwaysAllows(t *testing.T) {
	db := testinfra.NewDB(t)
	g := New(db, nil, 300)

	ok, err := g.Allow(context.Background(), "200000001", domain.RuleTeleport, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllow_WithinCooldownIsSuppressed(t *testing.T) {
	db := testinfra.NewDB(t)
	g := New(db, nil, 300)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, g.Record(ctx, nil, "200000002", domain.RuleTeleport, base))

	ok, err := g.Allow(ctx, "200000002", domain.RuleTeleport, base.Add(100*time.Second))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllow_AfterCooldownWindowAllows(t *testing.T) {
	db := testinfra.NewDB(t)
	g := New(db, nil, 300)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, g.Record(ctx, nil, "200000003", domain.RuleTeleport, base))

	ok, err := g.Allow(ctx, "200000003", domain.RuleTeleport, base.Add(301*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllow_PerRuleTypeIsolation(t *testing.T) {
	db := testinfra.NewDB(t)
	g := New(db, nil, 300)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, g.Record(ctx, nil, "200000004", domain.RuleTeleport, base))

	ok, err := g.Allow(ctx, "200000004", domain.RuleTurnRate, base.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecord_UpsertsRatherThanDuplicates(t *testing.T) {
	db := testinfra.NewDB(t)
	g := New(db, nil, 300)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, g.Record(ctx, nil, "200000005", domain.RuleTeleport, base))
	require.NoError(t, g.Record(ctx, nil, "200000005", domain.RuleTeleport, base.Add(time.Hour)))

	var rows []domain.AlertCooldown
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 1)
}

func TestCleanup_RemovesStaleRows(t *testing.T) {
	db := testinfra.NewDB(t)
	g := New(db, nil, 300)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, g.Record(ctx, nil, "200000006", domain.RuleTeleport, base))
	require.NoError(t, g.Record(ctx, nil, "200000007", domain.RuleAcceleration, base.Add(48*time.Hour)))

	n, err := g.Cleanup(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var rows []domain.AlertCooldown
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 1)
	assert.Equal(t, "200000007", rows[0].VesselID)
}
