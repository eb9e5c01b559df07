package rules

import (
	"math"

	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/features"
)

// evalAcceleration implements ACCELERATION (spec §4.4 rule 6).
func evalAcceleration(in pairInput) (*domain.Candidate, bool) {
	if !in.hasPrev {
		return nil, false
	}
	if in.prev.SOG == nil || in.curr.SOG == nil {
		return nil, false
	}
	dt := features.DtSec(in.prev, in.curr)
	if dt <= 1 || dt > 300 {
		return nil, false
	}
	implied, ok := features.ImpliedSpeedKn(in.prev, in.curr)
	if !ok || !features.Finite(implied) {
		return nil, false
	}

	diff := math.Abs(*in.curr.SOG - implied)
	accel := math.Abs(*in.curr.SOG-*in.prev.SOG) / dt

	if diff < 15 && accel < 1.0 {
		return nil, false
	}

	severity := clamp(20+diff, 25, 85)
	return &domain.Candidate{
		Type:     domain.RuleAcceleration,
		Severity: severity,
		Summary:  "reported speed inconsistent with implied or prior speed",
		Evidence: domain.Evidence{
			"difference_kn":       diff,
			"implied_speed_kn":    implied,
			"sog_reported":        *in.curr.SOG,
			"accel_knots_per_sec": accel,
		},
	}, true
}
