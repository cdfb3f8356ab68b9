// Package types holds the value types shared by every stage of the
// trajectory-and-topology pipeline: machine identity, VM state, positions
// and the bounding box used for ACTIVE/STOPPED classification.
package types

import "fmt"

// VMState is the ACTIVE/STOPPED state of a machine, driven exclusively by
// bounding-box membership for satellites and always ACTIVE for ground
// stations.
type VMState uint8

const (
	StateStopped VMState = 0
	StateActive  VMState = 1
)

func (s VMState) String() string {
	if s == StateActive {
		return "ACTIVE"
	}
	return "STOPPED"
}

// MachineID is the stable (group, id) composite identity of spec.md §3.
// Ground stations use group 0 and are additionally addressed by Name;
// satellites use group = shell index (>= 1) and id = plane*S + slot.
type MachineID struct {
	Group uint8
	ID    uint16
}

func (m MachineID) String() string {
	return fmt.Sprintf("%d.%d", m.Group, m.ID)
}

// IsGroundStation reports whether this id addresses a ground station.
func (m MachineID) IsGroundStation() bool {
	return m.Group == 0
}

// Position is an ECI Cartesian position in metres, stored as signed 32-bit
// integers per spec.md §9 (sufficient below geostationary altitude).
type Position struct {
	X, Y, Z int32
}

// Vec3 is the floating-point working representation used by the propagator,
// earth-frame and link stages before positions are rounded into Position.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) ToPosition() Position {
	return Position{
		X: int32(roundHalfAwayFromZero(v.X)),
		Y: int32(roundHalfAwayFromZero(v.Y)),
		Z: int32(roundHalfAwayFromZero(v.Z)),
	}
}

func roundHalfAwayFromZero(x float64) float64 {
	if x >= 0 {
		return float64(int64(x + 0.5))
	}
	return float64(int64(x - 0.5))
}

func (p Position) DistanceSq(o Position) int64 {
	dx := int64(p.X) - int64(o.X)
	dy := int64(p.Y) - int64(o.Y)
	dz := int64(p.Z) - int64(o.Z)
	return dx*dx + dy*dy + dz*dz
}

// BoundingBox is the geographic ACTIVE region of spec.md §3/§4.2. Lon2 < Lon1
// denotes a region wrapping the antimeridian.
type BoundingBox struct {
	Lat1 float64
	Lon1 float64
	Lat2 float64
	Lon2 float64
}

// Contains implements the membership rule of spec.md §4.2.
func (b BoundingBox) Contains(lat, lon float64) bool {
	if lat < b.Lat1 || lat > b.Lat2 {
		return false
	}
	if b.Lon2 >= b.Lon1 {
		return lon >= b.Lon1 && lon <= b.Lon2
	}
	return lon >= b.Lon1 || lon <= b.Lon2
}

// ConnectionType is the ground-station uplink policy of spec.md §3.
type ConnectionType uint8

const (
	ConnectionAll ConnectionType = iota
	ConnectionOne
)

func (c ConnectionType) String() string {
	if c == ConnectionOne {
		return "ONE"
	}
	return "ALL"
}
