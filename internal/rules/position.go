package rules

import (
	"math"

	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/features"
)

// evalPositionInvalid implements POSITION_INVALID (spec §4.4 rule 3).
// Unlike every other rule, it can fire with no prev point at all — an
// out-of-bounds or null-island position is wrong on its own.
func evalPositionInvalid(in pairInput) (*domain.Candidate, bool) {
	curr := in.curr

	outOfBounds := curr.Latitude < -90 || curr.Latitude > 90 || curr.Longitude < -180 || curr.Longitude > 180
	nullIsland := math.Abs(curr.Latitude) < 0.001 && math.Abs(curr.Longitude) < 0.001

	if outOfBounds {
		return &domain.Candidate{
			Type:     domain.RulePositionInvalid,
			Severity: 75,
			Summary:  "position outside valid latitude/longitude range",
			Evidence: positionEvidence(curr, 0, "out_of_bounds"),
		}, true
	}
	if nullIsland {
		return &domain.Candidate{
			Type:     domain.RulePositionInvalid,
			Severity: 75,
			Summary:  "position at or near (0,0)",
			Evidence: positionEvidence(curr, 0, "null_island"),
		}, true
	}

	if !in.hasPrev {
		return nil, false
	}

	dt := features.DtSec(in.prev, in.curr)
	if dt < 60 {
		return nil, false
	}
	dist := features.DistanceM(in.prev, in.curr)
	if dist >= 1 {
		return nil, false
	}
	if in.prev.SOG == nil || *in.prev.SOG < 1 {
		return nil, false
	}

	return &domain.Candidate{
		Type:     domain.RulePositionInvalid,
		Severity: 70,
		Summary:  "position stuck while vessel reports non-zero speed",
		Evidence: positionEvidenceSOG(curr, *in.prev.SOG, dt, "stuck"),
	}, true
}

func positionEvidence(curr domain.AisPoint, dt float64, reason string) domain.Evidence {
	var sog float64
	if curr.SOG != nil {
		sog = *curr.SOG
	}
	return positionEvidenceSOG(curr, sog, dt, reason)
}

func positionEvidenceSOG(curr domain.AisPoint, sog, dt float64, reason string) domain.Evidence {
	return domain.Evidence{
		"lat":    curr.Latitude,
		"lon":    curr.Longitude,
		"sog":    sog,
		"dt_sec": dt,
		"reason": reason,
	}
}
