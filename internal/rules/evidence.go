package rules

import (
	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/features"
)

// teleportEvidence builds the evidence bag shared by TELEPORT and
// TELEPORT_T2 (spec §4.4 rules 1-2).
func teleportEvidence(in pairInput, dt, speed float64, tier string) domain.Evidence {
	return domain.Evidence{
		"dt_sec":            dt,
		"distance_m":        features.DistanceM(in.prev, in.curr),
		"implied_speed_kn":  speed,
		"tier":              tier,
		"p1_lat":            in.prev.Latitude,
		"p1_lon":            in.prev.Longitude,
		"p1_timestamp":      in.prev.Timestamp,
		"p2_lat":            in.curr.Latitude,
		"p2_lon":            in.curr.Longitude,
		"p2_timestamp":      in.curr.Timestamp,
	}
}

// turnEvidence builds the evidence bag for TURN_RATE and
// TURN_RATE_T2 (spec §4.4 rules 4,5).
func turnEvidence(in pairInput, dt, deltaAngle, turnRate, speedKn float64, angleType, tier string) domain.Evidence {
	return domain.Evidence{
		"dt_sec":          dt,
		"delta_angle_deg": deltaAngle,
		"turn_rate_deg_s": turnRate,
		"speed_kn":        speedKn,
		"angle_type":      angleType,
		"tier":            tier,
		"p1_lat":          in.prev.Latitude,
		"p1_lon":          in.prev.Longitude,
		"p1_timestamp":    in.prev.Timestamp,
		"p2_lat":          in.curr.Latitude,
		"p2_lon":          in.curr.Longitude,
		"p2_timestamp":    in.curr.Timestamp,
	}
}

// headingCogEvidence builds the evidence bag for
// HEADING_COG_CONSISTENCY (spec §4.4 rule 7) — a narrower field set
// than turnEvidence, per spec.
func headingCogEvidence(dt, angleChangeDeg, turnRate, speedKn float64, angleType string) domain.Evidence {
	return domain.Evidence{
		"dt_sec":          dt,
		"angle_change_deg": angleChangeDeg,
		"turn_rate_deg_s":  turnRate,
		"speed_kn":         speedKn,
		"angle_type":       angleType,
	}
}
