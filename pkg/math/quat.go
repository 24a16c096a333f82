package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// QuatFromXYZW converts an engine quaternion (x, y, z, w order) to mgl64.
func QuatFromXYZW(q [4]float64) mgl64.Quat {
	return mgl64.Quat{W: q[3], V: mgl64.Vec3{q[0], q[1], q[2]}}
}

// QuatToXYZW converts a quaternion to the engine's x, y, z, w order.
func QuatToXYZW(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V.X(), q.V.Y(), q.V.Z(), q.W}
}

// QuatFromRPY builds an orientation from roll, pitch and yaw in radians.
// Rotations are about the fixed X, Y and Z axes, applied in that order.
func QuatFromRPY(roll, pitch, yaw float64) mgl64.Quat {
	qx := mgl64.QuatRotate(roll, UnitX)
	qy := mgl64.QuatRotate(pitch, UnitY)
	qz := mgl64.QuatRotate(yaw, UnitZ)
	return qz.Mul(qy).Mul(qx).Normalize()
}

// QuatToRPY returns the fixed-axis roll, pitch and yaw of q in radians.
func QuatToRPY(q mgl64.Quat) (roll, pitch, yaw float64) {
	q = q.Normalize()
	x, y, z, w := q.V.X(), q.V.Y(), q.V.Z(), q.W

	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	pitch = math.Asin(Clamp(2*(w*y-z*x), -1, 1))
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

// QuatBetween returns the shortest rotation taking direction from onto
// direction to. Antiparallel inputs rotate by pi about a perpendicular axis.
func QuatBetween(from, to mgl64.Vec3) mgl64.Quat {
	from = from.Normalize()
	to = to.Normalize()

	d := from.Dot(to)
	if d > 1-1e-9 {
		return mgl64.QuatIdent()
	}
	if d < -1+1e-9 {
		return mgl64.QuatRotate(math.Pi, AnyPerpendicular(from))
	}
	return mgl64.QuatBetweenVectors(from, to)
}

// QuatApproxEqual reports whether a and b describe the same rotation
// within eps. q and -q are treated as equal.
func QuatApproxEqual(a, b mgl64.Quat, eps float64) bool {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return a.Sub(b).Len() <= eps
}

// LerpVec3 performs linear interpolation between two 3D vectors.
func LerpVec3(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
