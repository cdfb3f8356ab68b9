// Package orbital implements the per-shell propagator of spec.md §4.1: a
// closed-form SGP4-lite mapping from a shell's orbital parameters and a
// tick's elapsed seconds to the ECI position of every satellite in the
// shell. It is capability-based per spec.md §9 (InitPositions/Propagate
// only) so a Keplerian, TLE-backed or higher-fidelity SGP4 implementation
// could plug in without the caller downcasting.
//
// Grounded on internal/platform/satellite/propagator.go's Kepler-equation
// Newton-Raphson solve and J2 secular RAAN/argument-of-perigee drift,
// generalised from TLE-parsed elements to shell-parameter-derived mean
// elements.
package orbital

import (
	"math"
	"time"

	"github.com/OpenFogStack/celestial/internal/config"
	"github.com/OpenFogStack/celestial/internal/types"
)

// Epoch is the fixed SGP4 epoch of spec.md §4.1.
var Epoch = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// j2 is the WGS-72 J2 gravitational perturbation coefficient.
const j2 = 1.08263e-3

// elements is the mean-elements record constructed once per satellite from
// its shell's parameters, spec.md §4.1.
type elements struct {
	semiMajorAxisM float64
	eccentricity   float64
	inclinationRad float64
	raan0Rad       float64
	argPerigeeRad  float64
	meanAnomaly0   float64
	meanMotion     float64 // rad/min
	raanDotRad     float64 // rad/min, J2 secular drift
	argpDotRad     float64 // rad/min, J2 secular drift
}

// Propagator computes ECI positions for every satellite of one shell.
// Propagate reports SGP4 instability (non-converging Kepler solve or
// non-positive radius) through its bool return whether or not Diagnostics
// is set; this package never reads Diagnostics and logs nothing itself.
type Propagator struct {
	sats        []elements
	Diagnostics bool
}

// NewShellPropagator builds the mean-elements record for every satellite of
// shell, per spec.md §4.1's construction rules.
func NewShellPropagator(shell config.Shell) *Propagator {
	p := &Propagator{sats: make([]elements, 0, shell.TotalSats())}

	a := shell.SemiMajorAxisM()
	period := shell.PeriodSeconds() // seconds
	inc := shell.InclinationDeg * math.Pi / 180
	ecc := shell.Eccentricity

	semiLatusRectum := a * (1 - ecc*ecc)
	n := 2 * math.Pi / (period / 60.0) // rad/min, spec.md §4.1

	// J2 secular drift rates, rad/min.
	raanDot := -1.5 * n * j2 * math.Pow(config.EarthRadiusM/semiLatusRectum, 2) * math.Cos(inc)
	argpDot := 0.75 * n * j2 * math.Pow(config.EarthRadiusM/semiLatusRectum, 2) * (5*math.Cos(inc)*math.Cos(inc) - 1)

	for plane := 0; plane < shell.Planes; plane++ {
		raan := (shell.ArcOfAscendingDeg / float64(shell.Planes)) * float64(plane) * math.Pi / 180

		for slot := 0; slot < shell.Sats; slot++ {
			dt := (period / float64(shell.Sats)) * float64(slot)
			mDeg := float64(slot)*360.0/float64(shell.Sats) + dt/period
			m0 := mDeg * math.Pi / 180

			p.sats = append(p.sats, elements{
				semiMajorAxisM: a,
				eccentricity:   ecc,
				inclinationRad: inc,
				raan0Rad:       raan,
				argPerigeeRad:  0,
				meanAnomaly0:   m0,
				meanMotion:     n,
				raanDotRad:     raanDot,
				argpDotRad:     argpDot,
			})
		}
	}

	return p
}

// InitPositions returns the t=0 ECI positions of every satellite in the
// shell, spec.md §4.1.
func (p *Propagator) InitPositions() []types.Position {
	out := make([]types.Position, len(p.sats))
	p.propagateInto(0, out)
	return out
}

// Propagate mutates out in place with the ECI positions at tSeconds since
// Epoch, spec.md §4.1. It returns true if any satellite's Kepler solve
// failed to converge or produced a non-physical radius. The positions are
// written either way; shell.Step discards the flag, so no instability is
// logged anywhere.
func (p *Propagator) Propagate(tSeconds float64, out []types.Position) bool {
	return p.propagateInto(tSeconds, out)
}

func (p *Propagator) propagateInto(tSeconds float64, out []types.Position) bool {
	unstable := false
	minutes := tSeconds / 60.0

	for idx, el := range p.sats {
		raan := el.raan0Rad + el.raanDotRad*minutes
		argp := el.argPerigeeRad + el.argpDotRad*minutes

		m := el.meanAnomaly0 + el.meanMotion*minutes
		m = math.Mod(m, 2*math.Pi)
		if m < 0 {
			m += 2 * math.Pi
		}

		e, converged := solveKepler(m, el.eccentricity)
		if !converged {
			unstable = true
		}

		ecc := el.eccentricity
		sinNu := math.Sqrt(1-ecc*ecc) * math.Sin(e) / (1 - ecc*math.Cos(e))
		cosNu := (math.Cos(e) - ecc) / (1 - ecc*math.Cos(e))
		nu := math.Atan2(sinNu, cosNu)

		r := el.semiMajorAxisM * (1 - ecc*math.Cos(e))
		if r <= 0 {
			unstable = true
		}

		u := argp + nu
		xpf := r * math.Cos(u)
		ypf := r * math.Sin(u)

		cosO, sinO := math.Cos(raan), math.Sin(raan)
		cosI, sinI := math.Cos(el.inclinationRad), math.Sin(el.inclinationRad)

		v := types.Vec3{
			X: xpf*cosO - ypf*sinO*cosI,
			Y: xpf*sinO + ypf*cosO*cosI,
			Z: ypf * sinI,
		}

		out[idx] = v.ToPosition()
	}

	return unstable
}

// solveKepler solves Kepler's equation E - e*sin(E) = M by Newton-Raphson,
// returning the eccentric anomaly and whether the iteration converged.
func solveKepler(m, e float64) (float64, bool) {
	ea := m
	for iter := 0; iter < 20; iter++ {
		delta := (ea - e*math.Sin(ea) - m) / (1 - e*math.Cos(ea))
		ea -= delta
		if math.Abs(delta) < 1e-12 {
			return ea, true
		}
	}
	return ea, false
}
