// Package cooldown implements the per-(vessel, rule) dedup gate from
// spec §4.5: a durable Postgres table as the source of truth, with a
// Redis fast-path cache mirroring the teacher's
// store.CheckAlertDedup/SetAlertDedup pattern adapted from wall-clock
// TTLs to source-timestamp comparisons.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/errs"
	"github.com/seawatch/trackwatch/internal/logging"
)

// Gate decides whether a candidate alert is accepted or suppressed as
// a duplicate, per spec §4.5. All comparisons use the triggering
// point's timestamp, never wall clock.
type Gate struct {
	db        *gorm.DB
	redis     *redis.Client
	cooldown  time.Duration
}

// New returns a Gate backed by db (durable) and redis (fast path,
// optional: a nil client disables the cache and every check reads
// through to Postgres).
func New(db *gorm.DB, redisClient *redis.Client, cooldownSec float64) *Gate {
	return &Gate{db: db, redis: redisClient, cooldown: time.Duration(cooldownSec * float64(time.Second))}
}

// Allow reports whether a candidate of ruleType for vesselID, observed
// at pointTime, is outside the cooldown window and should be accepted.
// It does not record the acceptance — Record is called inside the same
// transaction that inserts the accepted alert (see
// storage.Repository.PersistPoint), per spec §4.6's atomic unit.
func (g *Gate) Allow(ctx context.Context, vesselID string, ruleType domain.RuleType, pointTime time.Time) (bool, error) {
	last, found, err := g.lastAlertTime(ctx, vesselID, ruleType)
	if err != nil {
		return false, errs.PersistenceError("cooldown lookup for %s/%s: %w", vesselID, ruleType, err)
	}
	if !found {
		return true, nil
	}
	return pointTime.Sub(last) >= g.cooldown, nil
}

func (g *Gate) lastAlertTime(ctx context.Context, vesselID string, ruleType domain.RuleType) (time.Time, bool, error) {
	if g.redis != nil {
		if t, ok, err := g.readCache(ctx, vesselID, ruleType); err == nil && ok {
			return t, true, nil
		}
	}

	var row domain.AlertCooldown
	err := g.db.WithContext(ctx).
		Where("mmsi = ? AND rule_type = ?", vesselID, ruleType).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if g.redis != nil {
		g.writeCache(ctx, vesselID, ruleType, row.LastAlertTimestamp)
	}
	return row.LastAlertTimestamp, true, nil
}

// Record upserts the cooldown entry for (vesselID, ruleType) so the
// next Allow call sees pointTime as the new baseline.
func (g *Gate) Record(ctx context.Context, tx *gorm.DB, vesselID string, ruleType domain.RuleType, pointTime time.Time) error {
	db := tx
	if db == nil {
		db = g.db
	}
	row := domain.AlertCooldown{VesselID: vesselID, RuleType: ruleType, LastAlertTimestamp: pointTime}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mmsi"}, {Name: "rule_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_alert_timestamp"}),
	}).Create(&row).Error
	if err != nil {
		return errs.PersistenceError("cooldown upsert for %s/%s: %w", vesselID, ruleType, err)
	}
	if g.redis != nil {
		g.writeCache(ctx, vesselID, ruleType, pointTime)
	}
	return nil
}

// Cleanup removes durable cooldown rows whose last alert timestamp is
// older than cutoff, per spec §4.5's bound on unbounded table growth.
// last_alert_timestamp holds source timestamps and is compared with
// cutoff as given; cmd/trackwatchd runs this from an hourly ticker with
// cutoff = wall-clock now minus CooldownMaxAge.
func (g *Gate) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	res := g.db.WithContext(ctx).
		Where("last_alert_timestamp < ?", cutoff).
		Delete(&domain.AlertCooldown{})
	if res.Error != nil {
		return 0, errs.PersistenceError("cooldown cleanup: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		logging.Ctx(ctx).Info().Int64("rows", res.RowsAffected).Msg("cooldown cleanup removed stale entries")
	}
	return res.RowsAffected, nil
}

func cacheKey(vesselID string, ruleType domain.RuleType) string {
	return fmt.Sprintf("cooldown:%s:%s", vesselID, ruleType)
}

func (g *Gate) readCache(ctx context.Context, vesselID string, ruleType domain.RuleType) (time.Time, bool, error) {
	val, err := g.redis.Get(ctx, cacheKey(vesselID, ruleType)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func (g *Gate) writeCache(ctx context.Context, vesselID string, ruleType domain.RuleType, t time.Time) {
	// Cache TTL is generous and independent of the cooldown window
	// itself — the cache is an optimization, Postgres is the source
	// of truth for correctness.
	_ = g.redis.Set(ctx, cacheKey(vesselID, ruleType), t.Format(time.RFC3339Nano), time.Hour).Err()
}
