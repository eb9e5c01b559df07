// Package pgbulk adapts the teacher's TimescaleStore.BatchInsert
// (internal/store/timescale.go) into a bulk `COPY`-based importer for
// vessel_positions. It exists alongside the gorm-based
// internal/storage repository, not instead of it: the per-point
// transaction in storage.Repository is the path that runs detection
// and cooldown gating, per spec §4.6, and nothing here bypasses that
// for live replay. pgbulk is a separate, explicitly invoked utility
// for seeding vessel_positions history without running each
// historical point back through the Rule Engine. Imported rows do not
// reach the Track Store, which every replay session starts empty.
package pgbulk

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/errs"
)

// Importer holds a dedicated connection pool for bulk COPY operations,
// kept separate from the gorm pool storage.Repository uses so a large
// import can't starve the detection pipeline's transactions.
type Importer struct {
	pool *pgxpool.Pool
}

// Open connects a new Importer to dsn (the same DSN shape as
// config.Config.DSN).
func Open(ctx context.Context, dsn string) (*Importer, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.PersistenceError("pgbulk: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.PersistenceError("pgbulk: pinging db: %w", err)
	}
	return &Importer{pool: pool}, nil
}

func (i *Importer) Close() {
	i.pool.Close()
}

var positionColumns = []string{"mmsi", "timestamp", "latitude", "longitude", "sog", "cog", "heading"}

// ImportPositions bulk-appends points to vessel_positions via COPY,
// returning the number of rows written. It never touches
// vessels_latest, alerts, or alert_cooldowns — those only exist as a
// byproduct of the detection pipeline.
func (i *Importer) ImportPositions(ctx context.Context, points []domain.AisPoint) (int64, error) {
	if len(points) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(points))
	for idx, p := range points {
		rows[idx] = []any{p.VesselID, p.Timestamp, p.Latitude, p.Longitude, p.SOG, p.COG, p.Heading}
	}

	n, err := i.pool.CopyFrom(
		ctx,
		pgx.Identifier{"vessel_positions"},
		positionColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return n, errs.PersistenceError("pgbulk: copy of %d positions: %w", len(points), err)
	}
	return n, nil
}
