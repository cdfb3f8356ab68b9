// Package topology builds and updates the +GRID inter-satellite-link mesh
// and the ground-station uplink candidate lists of spec.md §4.3.
//
// Grounded on celestial/shell.py's numba_init_plus_grid_links /
// numba_update_plus_grid_links for the topology and activation rule, and on
// internal/platform/dtn/router.go's candidate-accumulation scoring loop
// (nearest-by-metric with explicit tie-break) for the ONE-policy uplink
// selection shape.
package topology

import (
	"math"
	"sort"

	"github.com/OpenFogStack/celestial/internal/config"
	"github.com/OpenFogStack/celestial/internal/types"
)

// DefaultMinCommsAltitudeM is the default top-of-thermosphere bound of
// spec.md §4.3.
const DefaultMinCommsAltitudeM = 80_000.0

// Link is one entry of the fixed +GRID ISL list, spec.md §3. NodeA/NodeB
// are satellite indices within [0, total_sats) of one shell. The list
// itself never changes after BuildLinks; only Active/DistanceM mutate.
type Link struct {
	NodeA, NodeB int
	Active       bool
	DistanceM    float64
}

// BuildLinks constructs the fixed +GRID topology for shell: an intra-plane
// ring link and a cross-plane link per slot, spec.md §4.3. Degenerate
// self-links (a single plane's cross-link, or a single-satellite plane's
// intra-link) are omitted.
func BuildLinks(shell config.Shell) []Link {
	p, s := shell.Planes, shell.Sats
	links := make([]Link, 0, p*s*2)

	for plane := 0; plane < p; plane++ {
		for slot := 0; slot < s; slot++ {
			node := plane*s + slot

			if s > 1 {
				intra := plane*s + (slot+1)%s
				links = append(links, Link{NodeA: node, NodeB: intra})
			}
			if p > 1 {
				cross := ((plane+1)%p)*s + slot
				links = append(links, Link{NodeA: node, NodeB: cross})
			}
		}
	}
	return links
}

// MaxISLDistanceM derives, once, the maximum line-of-sight distance between
// two satellites of shell whose sight line must clear a sphere of radius
// EARTH_RADIUS_M+minCommsAltitudeM: twice the tangent length
// sqrt(rSat² - rLimit²) from the right triangle formed by the Earth's
// centre, the tangent point and one satellite, spec.md §4.3.
func MaxISLDistanceM(shell config.Shell, minCommsAltitudeM float64) float64 {
	rSat := shell.SemiMajorAxisM()
	rLimit := config.EarthRadiusM + minCommsAltitudeM
	if rLimit >= rSat {
		return 0
	}
	return 2 * math.Sqrt(rSat*rSat-rLimit*rLimit)
}

// MaxUplinkRangeM derives, once, the maximum ground-to-satellite slant
// range for a station requiring minElevationDeg above its local horizon,
// via the law of sines on the Earth-centre/ground-station/satellite
// triangle, spec.md §4.3.
func MaxUplinkRangeM(shell config.Shell, minElevationDeg float64) float64 {
	rSat := shell.SemiMajorAxisM()
	rEarth := config.EarthRadiusM
	eps := minElevationDeg * math.Pi / 180

	sinAngleAtSat := rEarth * math.Cos(eps) / rSat
	sinAngleAtSat = math.Max(-1, math.Min(1, sinAngleAtSat))
	angleAtSat := math.Asin(sinAngleAtSat)

	return rSat * math.Cos(eps+angleAtSat) / math.Cos(eps)
}

// Update recomputes every link's distance and activity from the shell's
// current satellite positions, spec.md §4.3.
func Update(links []Link, positions []types.Position, maxISLDistanceM float64) {
	for i := range links {
		l := &links[i]
		distSq := positions[l.NodeA].DistanceSq(positions[l.NodeB])
		l.DistanceM = math.Sqrt(float64(distSq))
		l.Active = l.DistanceM <= maxISLDistanceM
	}
}

// GroundStationPlacement is a ground station's fixed t=0 ECI position,
// from which its current position is derived each tick by
// earthframe.RotateGroundStation.
func GroundStationPlacement(gs config.GroundStation) types.Vec3 {
	latRad := gs.LatDeg * math.Pi / 180
	lonRad := gs.LonDeg * math.Pi / 180
	r := config.EarthRadiusM
	return types.Vec3{
		X: r * math.Cos(latRad) * math.Cos(lonRad),
		Y: r * math.Cos(latRad) * math.Sin(lonRad),
		Z: r * math.Sin(latRad),
	}
}

// Uplink is one ground-to-satellite candidate, spec.md §3: the list is
// rebuilt fresh from current positions every tick.
type Uplink struct {
	SatIndex  int
	DistanceM float64
}

// SelectUplinks computes the accepted uplink candidates for one ground
// station against one shell's current satellite positions, applying the
// connection_type policy (ALL keeps every accepted satellite; ONE keeps
// only the nearest, ties broken by lower id) and the inclusive range
// boundary decided in DESIGN.md, spec.md §4.3.
func SelectUplinks(gsPos types.Vec3, satPositions []types.Position, connType types.ConnectionType, maxRangeM float64) []Uplink {
	var candidates []Uplink
	for i, sp := range satPositions {
		dx := float64(sp.X) - gsPos.X
		dy := float64(sp.Y) - gsPos.Y
		dz := float64(sp.Z) - gsPos.Z
		d := math.Sqrt(dx*dx + dy*dy + dz*dz)
		if d <= maxRangeM {
			candidates = append(candidates, Uplink{SatIndex: i, DistanceM: d})
		}
	}

	if connType == types.ConnectionAll || len(candidates) == 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].SatIndex < candidates[j].SatIndex })
		return candidates
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.DistanceM < best.DistanceM || (c.DistanceM == best.DistanceM && c.SatIndex < best.SatIndex) {
			best = c
		}
	}
	return []Uplink{best}
}
