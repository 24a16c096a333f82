// Package math provides pose, rotation and projection helpers shared by the
// engine wrappers. Vectors, quaternions and matrices are mgl64 types; this
// package adds the conventions the physics engine uses on top of them.
package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Axis unit vectors.
var (
	UnitX = mgl64.Vec3{1, 0, 0}
	UnitY = mgl64.Vec3{0, 1, 0}
	UnitZ = mgl64.Vec3{0, 0, 1}
)

// Vec3FromSlice converts a 3-element slice into a vector.
// Missing elements are left at zero.
func Vec3FromSlice(s []float64) mgl64.Vec3 {
	var v mgl64.Vec3
	copy(v[:], s)
	return v
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b mgl64.Vec3) float64 {
	return a.Sub(b).Len()
}

// Vec3ApproxEqual reports whether a and b are at most eps apart.
func Vec3ApproxEqual(a, b mgl64.Vec3, eps float64) bool {
	return a.Sub(b).Len() <= eps
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// AnyPerpendicular returns a unit vector perpendicular to v.
// v must be non-zero.
func AnyPerpendicular(v mgl64.Vec3) mgl64.Vec3 {
	// Cross with the axis least aligned with v
	axis := UnitX
	if math.Abs(v.X()) > 0.9*v.Len() {
		axis = UnitY
	}
	return v.Cross(axis).Normalize()
}
