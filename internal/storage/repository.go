// Package storage implements the atomic per-point persistence unit
// from spec §4.6: upsert the vessel's latest snapshot, append a
// position history row, insert every accepted alert plus its cooldown
// marker, and roll forward the vessel's running max severity — all in
// one transaction, grounded on the teacher's gorm usage pattern
// (store/timescale.go's per-call error wrapping) generalized from raw
// SQL to gorm models.
package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seawatch/trackwatch/internal/config"
	"github.com/seawatch/trackwatch/internal/cooldown"
	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/errs"
)

// Repository persists the outcome of evaluating one AisPoint: the
// point itself, and whichever candidate alerts survived the Cooldown
// Gate.
type Repository struct {
	db       *gorm.DB
	cooldown *cooldown.Gate
	policy   config.OutOfOrderPolicy
}

// New returns a Repository. db must already have AutoMigrate run
// against it (see Migrate).
func New(db *gorm.DB, gate *cooldown.Gate, policy config.OutOfOrderPolicy) *Repository {
	return &Repository{db: db, cooldown: gate, policy: policy}
}

// Migrate creates or updates every table this package owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.VesselLatest{},
		&domain.VesselPosition{},
		&domain.Alert{},
		&domain.AlertCooldown{},
	)
}

// PersistPoint commits the point, its accepted alerts, and their
// cooldown markers as a single transaction, per spec §4.6 — a partial
// write (e.g. the alert inserted but the cooldown marker lost) must
// never be observable.
func (r *Repository) PersistPoint(ctx context.Context, point domain.AisPoint, accepted []domain.Candidate) ([]domain.Alert, error) {
	var persisted []domain.Alert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prevLatest domain.VesselLatest
		hasPrevLatest := tx.Where("mmsi = ?", point.VesselID).First(&prevLatest).Error == nil
		outOfOrder := hasPrevLatest && point.Timestamp.Before(prevLatest.Timestamp)

		if outOfOrder && r.policy == config.OutOfOrderDiscard {
			return nil
		}

		maxSeverity := 0
		if hasPrevLatest {
			maxSeverity = prevLatest.LastAlertSeverity
		}
		for _, c := range accepted {
			if c.Severity > maxSeverity {
				maxSeverity = c.Severity
			}
		}

		if !outOfOrder || r.policy == config.OutOfOrderUpdateLatest {
			latest := domain.VesselLatest{
				VesselID:          point.VesselID,
				Timestamp:         point.Timestamp,
				Latitude:          point.Latitude,
				Longitude:         point.Longitude,
				SOG:               point.SOG,
				COG:               point.COG,
				Heading:           point.Heading,
				LastAlertSeverity: maxSeverity,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "mmsi"}},
				UpdateAll: true,
			}).Create(&latest).Error; err != nil {
				return err
			}
		}

		position := domain.VesselPosition{
			VesselID:  point.VesselID,
			Timestamp: point.Timestamp,
			Latitude:  point.Latitude,
			Longitude: point.Longitude,
			SOG:       point.SOG,
			COG:       point.COG,
			Heading:   point.Heading,
		}
		if err := tx.Create(&position).Error; err != nil {
			return err
		}

		for _, c := range accepted {
			alert := domain.Alert{
				Timestamp: point.Timestamp,
				VesselID:  point.VesselID,
				Type:      c.Type,
				Severity:  c.Severity,
				Summary:   c.Summary,
				Evidence:  domain.FromEvidence(c.Evidence),
				Status:    domain.StatusNew,
			}
			if err := tx.Create(&alert).Error; err != nil {
				return err
			}
			if err := r.cooldown.Record(ctx, tx, point.VesselID, c.Type, point.Timestamp); err != nil {
				return err
			}
			persisted = append(persisted, alert)
		}
		return nil
	})
	if err != nil {
		return nil, errs.PersistenceError("persisting point for vessel %s at %s: %w", point.VesselID, point.Timestamp, err)
	}
	return persisted, nil
}
