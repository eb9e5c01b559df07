// Package alerts exposes the alert review surface: the one mutation
// an otherwise append-only Alert row supports, per spec §3's
// new/reviewed/resolved/false_positive lifecycle.
package alerts

import (
	"context"

	"gorm.io/gorm"

	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/errs"
)

// Repository mutates alert review state. It never touches Timestamp,
// Type, Severity, Summary, or Evidence — those are fixed at insert.
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpdateStatus sets an alert's status and optional review notes. It
// rejects unknown status values before touching the database.
func (r *Repository) UpdateStatus(ctx context.Context, alertID int64, status domain.AlertStatus, notes string) error {
	if !status.Valid() {
		return errs.RecordError("alert %d: unknown status %q", alertID, status)
	}

	res := r.db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("id = ?", alertID).
		Updates(map[string]any{"status": status, "notes": notes})
	if res.Error != nil {
		return errs.PersistenceError("updating alert %d status: %w", alertID, res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.RecordError("alert %d not found", alertID)
	}
	return nil
}

// Get returns a single alert by ID.
func (r *Repository) Get(ctx context.Context, alertID int64) (domain.Alert, error) {
	var a domain.Alert
	err := r.db.WithContext(ctx).First(&a, alertID).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Alert{}, errs.RecordError("alert %d not found", alertID)
	}
	if err != nil {
		return domain.Alert{}, errs.PersistenceError("loading alert %d: %w", alertID, err)
	}
	return a, nil
}
