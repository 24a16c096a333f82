package math

import "github.com/go-gl/mathgl/mgl64"

// Pose is a rigid transform: a position plus an orientation.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// IdentityPose returns the pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// NewPose builds a pose from a position and an orientation.
// A zero quaternion is replaced by the identity rotation.
func NewPose(position mgl64.Vec3, orientation mgl64.Quat) Pose {
	if orientation.Len() == 0 {
		orientation = mgl64.QuatIdent()
	}
	return Pose{Position: position, Orientation: orientation.Normalize()}
}

// At returns an unrotated pose at the given position.
func At(position mgl64.Vec3) Pose {
	return Pose{Position: position, Orientation: mgl64.QuatIdent()}
}

// Mul composes p with other, so that p.Mul(other) maps a point
// from other's frame through p into the parent frame.
func (p Pose) Mul(other Pose) Pose {
	return Pose{
		Position:    p.Position.Add(p.Orientation.Rotate(other.Position)),
		Orientation: p.Orientation.Mul(other.Orientation).Normalize(),
	}
}

// Inverse returns the inverse transform.
func (p Pose) Inverse() Pose {
	inv := p.Orientation.Inverse()
	return Pose{
		Position:    inv.Rotate(p.Position).Mul(-1),
		Orientation: inv,
	}
}

// TransformPoint maps a point from the local frame into the parent frame.
func (p Pose) TransformPoint(v mgl64.Vec3) mgl64.Vec3 {
	return p.Position.Add(p.Orientation.Rotate(v))
}

// TransformDirection rotates a direction into the parent frame.
func (p Pose) TransformDirection(v mgl64.Vec3) mgl64.Vec3 {
	return p.Orientation.Rotate(v)
}

// Mat4 returns the homogeneous matrix of the pose.
func (p Pose) Mat4() mgl64.Mat4 {
	t := mgl64.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z())
	return t.Mul4(p.Orientation.Normalize().Mat4())
}

// ApproxEqual reports whether two poses match within eps.
func (p Pose) ApproxEqual(other Pose, eps float64) bool {
	return Vec3ApproxEqual(p.Position, other.Position, eps) &&
		QuatApproxEqual(p.Orientation, other.Orientation, eps)
}

// Axes returns the world-frame x, y and z unit axes of the pose.
func (p Pose) Axes() [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{
		p.Orientation.Rotate(UnitX),
		p.Orientation.Rotate(UnitY),
		p.Orientation.Rotate(UnitZ),
	}
}
