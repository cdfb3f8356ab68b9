// Package earthframe implements spec.md §4.2: the per-tick Earth-rotation
// model that places ground stations in the current ECI frame and classifies
// each satellite's sub-satellite point as ACTIVE or STOPPED against the
// configured bounding box.
//
// Grounded on celestial/shell.py's get_rotation_matrix/is_in_bbox for the
// exact rotation and membership formulas, and on
// internal/simulation/orbital/mechanics.go's Vector3 for the matrix/vector
// idiom.
package earthframe

import (
	"math"

	"github.com/OpenFogStack/celestial/internal/types"
)

const secondsPerDay = 86_400.0

// Matrix3 is a 3x3 rotation matrix, row-major.
type Matrix3 [3][3]float64

// Apply rotates v by m.
func (m Matrix3) Apply(v types.Vec3) types.Vec3 {
	return types.Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// ThetaDegrees returns the Z-axis rotation angle at tick t, spec.md §4.2:
// theta = 360 * (t mod 86400) / 86400.
func ThetaDegrees(tSeconds float64) float64 {
	tm := math.Mod(tSeconds, secondsPerDay)
	if tm < 0 {
		tm += secondsPerDay
	}
	return 360.0 * tm / secondsPerDay
}

// RotationZ builds the Z-axis rotation matrix for the given angle in
// degrees, positive rotating from +X toward +Y.
func RotationZ(degrees float64) Matrix3 {
	r := degrees * math.Pi / 180
	cos, sin := math.Cos(r), math.Sin(r)
	return Matrix3{
		{cos, -sin, 0},
		{sin, cos, 0},
		{0, 0, 1},
	}
}

// RotateGroundStation computes a ground station's current ECI position
// given its t=0 position, spec.md §4.2: pos(t) = R(theta) * pos(0).
func RotateGroundStation(initial types.Vec3, tSeconds float64) types.Vec3 {
	return RotationZ(ThetaDegrees(tSeconds)).Apply(initial)
}

// SubSatellitePoint returns the latitude/longitude (degrees) of a
// satellite's sub-satellite point at tick t, by rotating its ECI position
// into the Earth-fixed frame with R(-theta), spec.md §4.2. lat is
// asin(z / semiMajorAxisM) against the shell's own semi-major axis, not the
// rotated vector's norm, matching celestial/shell.py's is_in_bbox: for an
// eccentric orbit the instantaneous radius varies with true anomaly and is
// not equal to a.
func SubSatellitePoint(pos types.Position, semiMajorAxisM, tSeconds float64) (lat, lon float64) {
	v := types.Vec3{X: float64(pos.X), Y: float64(pos.Y), Z: float64(pos.Z)}
	rotated := RotationZ(-ThetaDegrees(tSeconds)).Apply(v)

	if semiMajorAxisM == 0 {
		return 0, 0
	}
	sinLat := rotated.Z / semiMajorAxisM
	sinLat = math.Max(-1, math.Min(1, sinLat))
	lat = math.Asin(sinLat) * 180 / math.Pi
	lon = math.Atan2(rotated.Y, rotated.X) * 180 / math.Pi
	return lat, lon
}

// Classify reports whether the satellite at pos is ACTIVE (its
// sub-satellite point lies in bbox) at tick t. semiMajorAxisM is the owning
// shell's semi-major axis, spec.md §3.
func Classify(pos types.Position, semiMajorAxisM float64, bbox types.BoundingBox, tSeconds float64) types.VMState {
	lat, lon := SubSatellitePoint(pos, semiMajorAxisM, tSeconds)
	if bbox.Contains(lat, lon) {
		return types.StateActive
	}
	return types.StateStopped
}
