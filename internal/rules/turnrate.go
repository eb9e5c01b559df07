package rules

import (
	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/features"
)

// angleChannel picks which of heading/cog both points have available,
// preferring heading, per spec §4.4 rules 4/5/7. ok=false means
// neither channel is usable (either missing, or the 511 sentinel).
func angleChannel(prev, curr domain.AisPoint) (prevAngle, currAngle float64, angleType string, ok bool) {
	if prev.HeadingAvailable() && curr.HeadingAvailable() {
		return *prev.Heading, *curr.Heading, "heading", true
	}
	if prev.COG != nil && curr.COG != nil {
		return *prev.COG, *curr.COG, "cog", true
	}
	return 0, 0, "", false
}

// speedKn returns curr.SOG if present, else the implied speed between
// prev and curr, matching the "curr.sog or implied_speed" language used
// throughout spec §4.4.
func speedKn(prev, curr domain.AisPoint) (float64, bool) {
	if curr.SOG != nil {
		return *curr.SOG, true
	}
	return features.ImpliedSpeedKn(prev, curr)
}

// evalTurnRate implements TURN_RATE (spec §4.4 rule 4).
func evalTurnRate(in pairInput) (*domain.Candidate, bool) {
	if !in.hasPrev {
		return nil, false
	}
	prevAngle, currAngle, angleType, ok := angleChannel(in.prev, in.curr)
	if !ok {
		return nil, false
	}
	dt := features.DtSec(in.prev, in.curr)
	if dt <= 0 || dt > 120 {
		return nil, false
	}
	speed, ok := speedKn(in.prev, in.curr)
	if !ok || !features.Finite(speed) || speed < in.cfg.MinSpeedForTurnCheckKnots {
		return nil, false
	}
	delta := features.AngleDiffDeg(currAngle, prevAngle)
	rate, ok := features.TurnRateDegS(delta, dt)
	if !ok || !features.Finite(rate) || rate < in.cfg.MaxTurnRateDegPerSec {
		return nil, false
	}

	severity := clamp(50+10*(rate-in.cfg.MaxTurnRateDegPerSec), 70, 95)
	return &domain.Candidate{
		Type:     domain.RuleTurnRate,
		Severity: severity,
		Summary:  "turn rate exceeds physically plausible maximum",
		Evidence: turnEvidence(in, dt, delta, rate, speed, angleType, "normal"),
	}, true
}

// evalTurnRateT2 implements TURN_RATE_T2 (spec §4.4 rule 5).
func evalTurnRateT2(in pairInput) (*domain.Candidate, bool) {
	if !in.hasPrev || in.priorFired[domain.RuleTurnRate] {
		return nil, false
	}
	prevAngle, currAngle, angleType, ok := angleChannel(in.prev, in.curr)
	if !ok {
		return nil, false
	}
	dt := features.DtSec(in.prev, in.curr)
	if dt <= 0 || dt > 120 {
		return nil, false
	}
	speed, ok := speedKn(in.prev, in.curr)
	if !ok || !features.Finite(speed) || speed < 5 {
		return nil, false
	}
	delta := features.AngleDiffDeg(currAngle, prevAngle)
	rate, ok := features.TurnRateDegS(delta, dt)
	if !ok || !features.Finite(rate) || rate < 1 {
		return nil, false
	}

	tier := "normal"
	if speed < in.cfg.MinSpeedForTurnCheckKnots {
		tier = "low_speed"
	}

	severity := clamp(25+10*rate, 25, 55)
	return &domain.Candidate{
		Type:     domain.RuleTurnRateT2,
		Severity: severity,
		Summary:  "turn rate unusually high for reported speed",
		Evidence: turnEvidence(in, dt, delta, rate, speed, angleType, tier),
	}, true
}
