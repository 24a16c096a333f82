package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Matrices are column-major (OpenGL compatible), the layout the engine's
// renderer expects.
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]

// PerspectiveFOV returns a perspective projection matrix.
// fovDeg is the vertical field of view in degrees, aspect is width/height.
func PerspectiveFOV(fovDeg, aspect, near, far float64) mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(fovDeg), aspect, near, far)
}

// LookAt returns a view matrix looking from eye to target with up direction.
func LookAt(eye, target, up mgl64.Vec3) mgl64.Mat4 {
	return mgl64.LookAtV(eye, target, up)
}

// ViewFromYawPitchRoll returns a Z-up view matrix orbiting target.
// Angles are in degrees: yaw turns about Z, a negative pitch looks down
// on the target, roll spins the camera about its forward axis.
func ViewFromYawPitchRoll(target mgl64.Vec3, distance, yaw, pitch, roll float64) mgl64.Mat4 {
	eye := OrbitEye(target, distance, yaw, pitch)

	forward := target.Sub(eye)
	up := UnitZ
	if forward.Len() > 1e-9 && roll != 0 {
		up = mgl64.QuatRotate(mgl64.DegToRad(roll), forward.Normalize()).Rotate(up)
	}
	return mgl64.LookAtV(eye, target, up)
}

// OrbitEye returns the camera position at distance from target for the
// given yaw and pitch in degrees.
func OrbitEye(target mgl64.Vec3, distance, yaw, pitch float64) mgl64.Vec3 {
	yawRad := mgl64.DegToRad(yaw)
	pitchRad := mgl64.DegToRad(pitch)

	// Start behind the target along -Y, tilt by pitch, then turn by yaw
	offset := mgl64.Vec3{0, -distance, 0}
	offset = mgl64.QuatRotate(pitchRad, UnitX).Rotate(offset)
	offset = mgl64.QuatRotate(yawRad, UnitZ).Rotate(offset)
	return target.Add(offset)
}

// EyeFromView recovers the camera position from a view matrix.
func EyeFromView(view mgl64.Mat4) mgl64.Vec3 {
	return view.Inv().Col(3).Vec3()
}

// ToFloat32 converts a matrix to the engine's single-precision layout.
func ToFloat32(m mgl64.Mat4) [16]float32 {
	var out [16]float32
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// FromFloat32 converts an engine single-precision matrix to mgl64.
func FromFloat32(m [16]float32) mgl64.Mat4 {
	var out mgl64.Mat4
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}

// FocalLength returns the focal length in pixels for a vertical field of
// view in degrees and an image height in pixels.
func FocalLength(fovDeg float64, height int) float64 {
	return float64(height) / (2 * math.Tan(mgl64.DegToRad(fovDeg)/2))
}

// FOVFromFocalLength is the inverse of FocalLength.
func FOVFromFocalLength(focal float64, height int) float64 {
	return mgl64.RadToDeg(2 * math.Atan(float64(height)/(2*focal)))
}
