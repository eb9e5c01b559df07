package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seawatch/trackwatch/internal/config"
	"github.com/seawatch/trackwatch/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		TeleportSpeedKnotsShort:   60,
		TeleportSpeedKnotsMedium:  100,
		MaxTurnRateDegPerSec:      3,
		MinSpeedForTurnCheckKnots: 10,
	}
}

func f(v float64) *float64 { return &v }

func findCandidate(cands []domain.Candidate, t domain.RuleType) *domain.Candidate {
	for i := range cands {
		if cands[i].Type == t {
			return &cands[i]
		}
	}
	return nil
}

func TestS1_TeleportShortGap(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := domain.AisPoint{VesselID: "200000001", Timestamp: base, Latitude: 40.0, Longitude: -70.0, SOG: f(12), COG: f(90), Heading: f(90)}
	curr := domain.AisPoint{VesselID: "200000001", Timestamp: base.Add(60 * time.Second), Latitude: 40.0, Longitude: -68.0, SOG: f(12), COG: f(90), Heading: f(90)}

	e := New(testConfig())
	cands, failed := e.Evaluate(prev, true, curr)
	require.Empty(t, failed)

	c := findCandidate(cands, domain.RuleTeleport)
	require.NotNil(t, c)
	assert.Equal(t, 100, c.Severity)
	assert.Equal(t, "short", c.Evidence["tier"])
	assert.Greater(t, c.Evidence["implied_speed_kn"].(float64), 5000.0)
	assert.Nil(t, findCandidate(cands, domain.RuleTeleportT2))
}

func TestS2_TeleportT2Medium(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := domain.AisPoint{VesselID: "200000002", Timestamp: base, Latitude: 40.0, Longitude: -70.0}
	// 300 s, 15 km => implied ~97.2 kn: below medium threshold (100), dt>120 so short
	// threshold doesn't apply (it's the medium window), so TELEPORT does not fire.
	curr := domain.AisPoint{VesselID: "200000002", Timestamp: base.Add(300 * time.Second), Latitude: 40.135, Longitude: -70.0}

	e := New(testConfig())
	cands, failed := e.Evaluate(prev, true, curr)
	require.Empty(t, failed)

	assert.Nil(t, findCandidate(cands, domain.RuleTeleport))
	c := findCandidate(cands, domain.RuleTeleportT2)
	require.NotNil(t, c)
	assert.GreaterOrEqual(t, c.Severity, 15)
	assert.LessOrEqual(t, c.Severity, 60)
}

func TestS4_PositionInvalidOutOfBounds(t *testing.T) {
	curr := domain.AisPoint{VesselID: "200000004", Timestamp: time.Now(), Latitude: 95.0, Longitude: 0.0}

	e := New(testConfig())
	cands, failed := e.Evaluate(domain.AisPoint{}, false, curr)
	require.Empty(t, failed)

	c := findCandidate(cands, domain.RulePositionInvalid)
	require.NotNil(t, c)
	assert.Equal(t, 75, c.Severity)
	assert.Equal(t, "out_of_bounds", c.Evidence["reason"])
}

func TestS5_TurnRate(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := domain.AisPoint{VesselID: "300000001", Timestamp: base, Heading: f(0), SOG: f(25)}
	curr := domain.AisPoint{VesselID: "300000001", Timestamp: base.Add(10 * time.Second), Heading: f(60), SOG: f(25)}

	e := New(testConfig())
	cands, failed := e.Evaluate(prev, true, curr)
	require.Empty(t, failed)

	c := findCandidate(cands, domain.RuleTurnRate)
	require.NotNil(t, c)
	assert.GreaterOrEqual(t, c.Severity, 80)
	assert.Equal(t, "heading", c.Evidence["angle_type"])
}

func TestS6_Acceleration(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := domain.AisPoint{VesselID: "400000001", Timestamp: base, Latitude: 10, Longitude: 10, SOG: f(5)}
	curr := domain.AisPoint{VesselID: "400000001", Timestamp: base.Add(10 * time.Second), Latitude: 10, Longitude: 10, SOG: f(50)}

	e := New(testConfig())
	cands, failed := e.Evaluate(prev, true, curr)
	require.Empty(t, failed)

	c := findCandidate(cands, domain.RuleAcceleration)
	require.NotNil(t, c)
	assert.InDelta(t, 4.5, c.Evidence["accel_knots_per_sec"], 0.01)
}

func TestS7_HeadingCogConsistency(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := domain.AisPoint{VesselID: "500000001", Timestamp: base, Heading: f(150), COG: f(330), SOG: f(20)}
	curr := domain.AisPoint{VesselID: "500000001", Timestamp: base.Add(5 * time.Second), Heading: f(180), COG: f(0), SOG: f(20)}

	e := New(testConfig())
	cands, failed := e.Evaluate(prev, true, curr)
	require.Empty(t, failed)

	c := findCandidate(cands, domain.RuleHeadingCogConsistency)
	require.NotNil(t, c)
	assert.GreaterOrEqual(t, c.Severity, 70)
}

func TestDtZero_NoPairwiseRulesFire(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := domain.AisPoint{VesselID: "600000001", Timestamp: base, Latitude: 1, Longitude: 1, SOG: f(20), Heading: f(10), COG: f(10)}
	curr := domain.AisPoint{VesselID: "600000001", Timestamp: base, Latitude: 1, Longitude: 1, SOG: f(90), Heading: f(200), COG: f(200)}

	e := New(testConfig())
	cands, failed := e.Evaluate(prev, true, curr)
	require.Empty(t, failed)
	for _, c := range cands {
		assert.NotEqual(t, domain.RuleTeleport, c.Type)
		assert.NotEqual(t, domain.RuleTeleportT2, c.Type)
		assert.NotEqual(t, domain.RuleTurnRate, c.Type)
		assert.NotEqual(t, domain.RuleTurnRateT2, c.Type)
		assert.NotEqual(t, domain.RuleAcceleration, c.Type)
		assert.NotEqual(t, domain.RuleHeadingCogConsistency, c.Type)
	}
}

func TestHeading511IsTreatedAsAbsent(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := domain.AisPoint{VesselID: "700000001", Timestamp: base, Heading: f(511), COG: nil, SOG: f(20)}
	curr := domain.AisPoint{VesselID: "700000001", Timestamp: base.Add(5 * time.Second), Heading: f(511), COG: nil, SOG: f(20)}

	e := New(testConfig())
	cands, failed := e.Evaluate(prev, true, curr)
	require.Empty(t, failed)
	assert.Nil(t, findCandidate(cands, domain.RuleTurnRate))
	assert.Nil(t, findCandidate(cands, domain.RuleTurnRateT2))
}

func TestNoPrev_OnlyPositionInvalidCanFire(t *testing.T) {
	curr := domain.AisPoint{VesselID: "800000001", Timestamp: time.Now(), Latitude: 10, Longitude: 10, SOG: f(20)}

	e := New(testConfig())
	cands, failed := e.Evaluate(domain.AisPoint{}, false, curr)
	require.Empty(t, failed)
	for _, c := range cands {
		assert.Equal(t, domain.RulePositionInvalid, c.Type)
	}
}

func TestValidPointWithNoPrev_ProducesNoAlert(t *testing.T) {
	curr := domain.AisPoint{VesselID: "900000001", Timestamp: time.Now(), Latitude: 10, Longitude: 10, SOG: f(20)}

	e := New(testConfig())
	cands, failed := e.Evaluate(domain.AisPoint{}, false, curr)
	require.Empty(t, failed)
	assert.Empty(t, cands)
}
