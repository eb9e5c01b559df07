// Package domain holds the in-flight and persisted record shapes that
// flow through the ingestion pipeline. AisPoint is the teacher's
// TelemetryMessage reshaped for AIS position reports; the rest of the
// package is new, grounded on spec §3.
package domain

import "time"

// HeadingUnavailable is the AIS sentinel value meaning "heading not
// reported". It must never be treated as a real 511-degree heading.
const HeadingUnavailable = 511.0

// AisPoint is an immutable in-flight position report. It is never
// persisted as-is — the Loader produces it, the pipeline consumes it,
// and derived rows (VesselPosition, VesselLatest, Alert) are what get
// written to storage.
type AisPoint struct {
	VesselID  string // exactly 9 digits (MMSI)
	Timestamp time.Time

	Latitude  float64
	Longitude float64

	SOG     *float64 // knots
	COG     *float64 // degrees [0,360)
	Heading *float64 // degrees [0,360) or 511 ("unavailable")
}

// HasValidPosition reports whether lat/lon fall within their valid
// ranges. It does not check for the null-island or stuck-position
// cases — those are POSITION_INVALID concerns, not parse-time ones.
func (p AisPoint) HasValidPosition() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// HeadingAvailable reports whether Heading is present and not the 511
// sentinel.
func (p AisPoint) HeadingAvailable() bool {
	return p.Heading != nil && *p.Heading != HeadingUnavailable
}

// VesselLatest mirrors the most recent persisted point for a vessel.
type VesselLatest struct {
	VesselID          string `gorm:"primaryKey;column:mmsi"`
	Timestamp         time.Time
	Latitude          float64
	Longitude         float64
	SOG               *float64
	COG               *float64
	Heading           *float64
	LastAlertSeverity int `gorm:"column:last_alert_severity"`
}

func (VesselLatest) TableName() string { return "vessels_latest" }

// VesselPosition is an append-only history row. Rows are never
// mutated after insert.
type VesselPosition struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	VesselID  string `gorm:"column:mmsi;index:idx_positions_mmsi_ts,priority:1"`
	Timestamp time.Time `gorm:"index:idx_positions_mmsi_ts,priority:2;index:idx_positions_ts"`
	Latitude  float64
	Longitude float64
	SOG       *float64
	COG       *float64
	Heading   *float64
}

func (VesselPosition) TableName() string { return "vessel_positions" }
