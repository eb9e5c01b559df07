package rules

import (
	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/features"
)

// evalTeleport implements TELEPORT (spec §4.4 rule 1): a tier-1
// integrity check for implied speeds that are physically impossible
// even across short evaluation windows.
func evalTeleport(in pairInput) (*domain.Candidate, bool) {
	if !in.hasPrev {
		return nil, false
	}
	dt := features.DtSec(in.prev, in.curr)
	speed, ok := features.ImpliedSpeedKn(in.prev, in.curr)
	if !ok || !features.Finite(speed) {
		return nil, false
	}

	shortThresh := in.cfg.TeleportSpeedKnotsShort
	mediumThresh := in.cfg.TeleportSpeedKnotsMedium

	var tier string
	var threshold float64
	switch {
	case dt > 0 && dt <= 120 && speed >= shortThresh:
		tier, threshold = "short", shortThresh
	case dt > 120 && dt <= 1800 && speed >= mediumThresh:
		tier, threshold = "medium", mediumThresh
	default:
		return nil, false
	}

	severity := clamp(40+0.4*(speed-threshold), 70, 100)
	return &domain.Candidate{
		Type:     domain.RuleTeleport,
		Severity: severity,
		Summary:  "implied speed physically impossible between successive reports",
		Evidence: teleportEvidence(in, dt, speed, tier),
	}, true
}

// evalTeleportT2 implements TELEPORT_T2 (spec §4.4 rule 2): the tier-2
// sibling for suspicious-but-not-impossible implied speeds, and for
// long gaps whose average speed still exceeds ~40 knots.
func evalTeleportT2(in pairInput) (*domain.Candidate, bool) {
	if !in.hasPrev || in.priorFired[domain.RuleTeleport] {
		return nil, false
	}
	dt := features.DtSec(in.prev, in.curr)
	shortOrMediumThresh := in.cfg.TeleportSpeedKnotsMedium
	if dt > 0 && dt <= 120 {
		shortOrMediumThresh = in.cfg.TeleportSpeedKnotsShort
	}

	var tier string
	var speed float64

	switch {
	case dt > 0 && dt <= 1800:
		s, ok := features.ImpliedSpeedKn(in.prev, in.curr)
		if !ok || !features.Finite(s) {
			return nil, false
		}
		if s < 25 || s >= shortOrMediumThresh {
			return nil, false
		}
		speed = s
		if dt <= 120 {
			tier = "short"
		} else {
			tier = "medium"
		}
	case dt > 1800:
		dist := features.DistanceM(in.prev, in.curr)
		if !(dist > 20*dt) {
			return nil, false
		}
		s, ok := features.ImpliedSpeedKn(in.prev, in.curr)
		if !ok || !features.Finite(s) {
			return nil, false
		}
		speed = s
		tier = "long_gap"
	default:
		return nil, false
	}

	severity := clamp(15+0.3*speed, 15, 60)
	return &domain.Candidate{
		Type:     domain.RuleTeleportT2,
		Severity: severity,
		Summary:  "implied speed unusually high between successive reports",
		Evidence: teleportEvidence(in, dt, speed, tier),
	}, true
}
