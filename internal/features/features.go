// Package features implements the pure kinematic derivations the rule
// engine evaluates pairwise AisPoints against (spec §4.3). Every
// function here is total and side-effect-free: undefined results are
// signalled with a boolean "ok", never with NaN/Inf escaping to a
// caller.
package features

import (
	"math"

	"github.com/seawatch/trackwatch/internal/domain"
)

const (
	earthRadiusM  = 6_371_000.0 // WGS-84 mean radius
	knotsPerMPerS = 1.9438445   // m/s -> knots
)

// DtSec returns curr's timestamp minus prev's, in seconds. Negative
// when curr precedes prev.
func DtSec(prev, curr domain.AisPoint) float64 {
	return curr.Timestamp.Sub(prev.Timestamp).Seconds()
}

// DistanceM returns the great-circle distance between two points using
// the haversine formula on the WGS-84 mean radius.
func DistanceM(prev, curr domain.AisPoint) float64 {
	lat1, lon1 := degToRad(prev.Latitude), degToRad(prev.Longitude)
	lat2, lon2 := degToRad(curr.Latitude), degToRad(curr.Longitude)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	sinDLat2 := math.Sin(dLat / 2)
	sinDLon2 := math.Sin(dLon / 2)

	a := sinDLat2*sinDLat2 + math.Cos(lat1)*math.Cos(lat2)*sinDLon2*sinDLon2
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// ImpliedSpeedKn returns the speed implied by distance/time, in knots,
// and ok=false when dt_sec <= 0 (undefined, per spec).
func ImpliedSpeedKn(prev, curr domain.AisPoint) (float64, bool) {
	dt := DtSec(prev, curr)
	if dt <= 0 {
		return 0, false
	}
	dist := DistanceM(prev, curr)
	mPerS := dist / dt
	return mPerS * knotsPerMPerS, true
}

// AngleDiffDeg returns the smallest signed difference a-b, modulo 360,
// normalized to [-180, 180].
func AngleDiffDeg(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}

// TurnRateDegS returns |angleDiffDeg| / dt, and ok=false when dt <= 0.
func TurnRateDegS(angleDiffDeg, dtSec float64) (float64, bool) {
	if dtSec <= 0 {
		return 0, false
	}
	return math.Abs(angleDiffDeg) / dtSec, true
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }

// Finite reports whether v is neither NaN nor +/-Inf. Rules use this
// as a final guard before a computed feature reaches severity or
// persistence.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
