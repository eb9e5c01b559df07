// Package rules implements the seven detection rules of spec §4.4. It
// is grounded on the teacher's domain.DefaultAlertRules /
// AlertEvaluator shape (a fixed-order list of independent evaluators,
// each producing zero-or-more alerts per point) generalized from a
// single-point boolean predicate to a pairwise (prev, curr) evaluator
// that returns rich evidence.
package rules

import (
	"github.com/seawatch/trackwatch/internal/config"
	"github.com/seawatch/trackwatch/internal/domain"
)

// Engine evaluates all seven rules, in the fixed order from spec
// §4.4, against a (prev, curr) pair drawn from the Track Store.
type Engine struct {
	cfg *config.Config
}

// New returns a rule Engine bound to cfg's thresholds. cfg must
// already have passed config.Validate.
func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// pairInput bundles everything a rule needs to decide and explain
// itself, computed once per point so individual rules don't
// re-derive shared features. priorFired lets TELEPORT_T2 and
// TURN_RATE_T2 see whether their tier-1 sibling already fired on this
// same point, per spec §4.4 ("Fires when TELEPORT did not fire...").
type pairInput struct {
	prev       domain.AisPoint
	curr       domain.AisPoint
	hasPrev    bool
	cfg        *config.Config
	priorFired map[domain.RuleType]bool
}

type ruleFunc func(pairInput) (*domain.Candidate, bool)

var rulesInOrder = []struct {
	ruleType domain.RuleType
	fn       ruleFunc
}{
	{domain.RuleTeleport, evalTeleport},
	{domain.RuleTeleportT2, evalTeleportT2},
	{domain.RulePositionInvalid, evalPositionInvalid},
	{domain.RuleTurnRate, evalTurnRate},
	{domain.RuleTurnRateT2, evalTurnRateT2},
	{domain.RuleAcceleration, evalAcceleration},
	{domain.RuleHeadingCogConsistency, evalHeadingCogConsistency},
}

// Evaluate runs every rule against curr (and prev, if any) and returns
// the candidate alerts that fired, in rule order, plus the set of
// rules whose evaluator panicked (a DetectionError per spec §4.8: it
// is caught, skipped, and the caller logs it with the point identity).
func (e *Engine) Evaluate(prev domain.AisPoint, hasPrev bool, curr domain.AisPoint) (candidates []domain.Candidate, failed []domain.RuleType) {
	in := pairInput{
		prev:       prev,
		curr:       curr,
		hasPrev:    hasPrev,
		cfg:        e.cfg,
		priorFired: make(map[domain.RuleType]bool, len(rulesInOrder)),
	}

	for _, r := range rulesInOrder {
		cand, panicked := safeEval(r.fn, in)
		if panicked {
			failed = append(failed, r.ruleType)
			continue
		}
		if cand != nil {
			in.priorFired[r.ruleType] = true
			candidates = append(candidates, *cand)
		}
	}
	return candidates, failed
}

// safeEval recovers a panic from an individual rule so one broken
// rule never takes down the others or the driver.
func safeEval(fn ruleFunc, in pairInput) (cand *domain.Candidate, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			cand, panicked = nil, true
		}
	}()
	c, fired := fn(in)
	if !fired {
		return nil, false
	}
	return c, false
}

func clamp(v, lo, hi float64) int {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return int(v + 0.5)
}
