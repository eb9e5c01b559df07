package domain

import "time"

// RuleType is the closed enum of detection rules from spec §4.4.
type RuleType string

const (
	RuleTeleport               RuleType = "TELEPORT"
	RuleTeleportT2             RuleType = "TELEPORT_T2"
	RulePositionInvalid        RuleType = "POSITION_INVALID"
	RuleTurnRate               RuleType = "TURN_RATE"
	RuleTurnRateT2             RuleType = "TURN_RATE_T2"
	RuleAcceleration           RuleType = "ACCELERATION"
	RuleHeadingCogConsistency  RuleType = "HEADING_COG_CONSISTENCY"
)

// AllRuleTypes lists every valid RuleType, in the fixed evaluation
// order from spec §4.4.
var AllRuleTypes = []RuleType{
	RuleTeleport,
	RuleTeleportT2,
	RulePositionInvalid,
	RuleTurnRate,
	RuleTurnRateT2,
	RuleAcceleration,
	RuleHeadingCogConsistency,
}

func (r RuleType) Valid() bool {
	for _, v := range AllRuleTypes {
		if v == r {
			return true
		}
	}
	return false
}

// AlertStatus is the closed enum of alert review states from spec §3.
type AlertStatus string

const (
	StatusNew          AlertStatus = "new"
	StatusReviewed     AlertStatus = "reviewed"
	StatusResolved     AlertStatus = "resolved"
	StatusFalsePositive AlertStatus = "false_positive"
)

func (s AlertStatus) Valid() bool {
	switch s {
	case StatusNew, StatusReviewed, StatusResolved, StatusFalsePositive:
		return true
	default:
		return false
	}
}

// Evidence is the semi-structured per-rule metric bag. Only the fields
// enumerated per rule in spec §4.4 belong here — never raw AisPoint
// values beyond what a rule names explicitly.
type Evidence map[string]any

// Alert is an append-only row (only Status/Notes are mutable post
// insert). Timestamp is the triggering point's timestamp, not wall
// clock.
type Alert struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"index:idx_alerts_mmsi_ts,priority:2;index:idx_alerts_type_ts,priority:2;index:idx_alerts_sev_ts,priority:2;index:idx_alerts_ts"`
	VesselID  string `gorm:"column:mmsi;index:idx_alerts_mmsi_ts,priority:1;index:idx_alerts_mmsi"`
	Type      RuleType `gorm:"column:type;index:idx_alerts_type;index:idx_alerts_type_ts,priority:1"`
	Severity  int `gorm:"index:idx_alerts_severity;index:idx_alerts_sev_ts,priority:1"`
	Summary   string
	Evidence  JSONMap `gorm:"type:jsonb"`
	Status    AlertStatus `gorm:"default:new"`
	Notes     string
}

func (Alert) TableName() string { return "alerts" }

// AlertCooldown tracks, per (vessel, rule), the timestamp of the last
// accepted alert of that kind. Entries are best-effort: absence means
// "no recent alert of this kind", never an error.
type AlertCooldown struct {
	VesselID          string `gorm:"primaryKey;column:mmsi"`
	RuleType          RuleType `gorm:"primaryKey;column:rule_type"`
	LastAlertTimestamp time.Time `gorm:"index:idx_cooldown_last_alert"`
}

func (AlertCooldown) TableName() string { return "alert_cooldowns" }

// Candidate is a would-be alert produced by a rule, before the
// Cooldown Gate decides whether it is accepted. It carries no storage
// concerns (ID, Status) — those only exist once persisted.
type Candidate struct {
	Type     RuleType
	Severity int
	Summary  string
	Evidence Evidence
}
