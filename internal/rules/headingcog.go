package rules

import (
	"math"

	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/features"
)

// evalHeadingCogConsistency implements HEADING_COG_CONSISTENCY (spec
// §4.4 rule 7). Unlike rules 4/5, both heading and cog must be present
// on curr (it is checking whether the two curr channels agree with
// each other), while the turn rate is derived from whichever angle
// channel is usable across (prev, curr).
func evalHeadingCogConsistency(in pairInput) (*domain.Candidate, bool) {
	if !in.hasPrev {
		return nil, false
	}
	if !in.curr.HeadingAvailable() || in.curr.COG == nil {
		return nil, false
	}
	speed, ok := speedKn(in.prev, in.curr)
	if !ok || !features.Finite(speed) || speed < 10 {
		return nil, false
	}

	angleDiff := features.AngleDiffDeg(*in.curr.Heading, *in.curr.COG)
	if math.Abs(angleDiff) < 90 {
		return nil, false
	}

	prevAngle, currAngle, angleType, ok := angleChannel(in.prev, in.curr)
	if !ok {
		return nil, false
	}
	dt := features.DtSec(in.prev, in.curr)
	delta := features.AngleDiffDeg(currAngle, prevAngle)
	rate, ok := features.TurnRateDegS(delta, dt)
	if !ok || !features.Finite(rate) || rate < 2 {
		return nil, false
	}

	severity := clamp(60+0.2*math.Abs(angleDiff), 70, 85)
	return &domain.Candidate{
		Type:     domain.RuleHeadingCogConsistency,
		Severity: severity,
		Summary:  "heading and course over ground disagree while turning",
		Evidence: headingCogEvidence(dt, angleDiff, rate, speed, angleType),
	}, true
}
