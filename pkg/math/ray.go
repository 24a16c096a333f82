package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3 // Normalized direction
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ScreenToRay converts pixel coordinates to a world-space ray.
// screenX, screenY are pixel coordinates with the origin at the top-left,
// viewportW/H are the image dimensions.
// invViewProj is the inverse of projection * view.
func ScreenToRay(screenX, screenY, viewportW, viewportH float64, invViewProj mgl64.Mat4) Ray {
	// Convert screen coords to normalized device coords (-1 to 1)
	ndcX := 2.0*screenX/viewportW - 1.0
	ndcY := 1.0 - 2.0*screenY/viewportH // Flip Y

	nearWorld := Unproject(mgl64.Vec3{ndcX, ndcY, -1}, invViewProj)
	farWorld := Unproject(mgl64.Vec3{ndcX, ndcY, 1}, invViewProj)

	dir := farWorld.Sub(nearWorld)
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(1 / l)
	}
	return Ray{Origin: nearWorld, Direction: dir}
}

// Unproject maps a point in normalized device coordinates back to world
// space through invViewProj, including the perspective divide.
func Unproject(ndc mgl64.Vec3, invViewProj mgl64.Mat4) mgl64.Vec3 {
	p := invViewProj.Mul4x1(ndc.Vec4(1))
	if w := p.W(); w != 0 {
		return p.Vec3().Mul(1 / w)
	}
	return p.Vec3()
}

// IntersectPlaneZ intersects a ray with a horizontal plane at the given height.
// Returns the intersection point (X, Y) and whether the intersection is valid.
func (r Ray) IntersectPlaneZ(planeZ float64) (x, y float64, ok bool) {
	if math.Abs(r.Direction.Z()) < 1e-9 {
		return 0, 0, false // Ray parallel to plane
	}

	t := (planeZ - r.Origin.Z()) / r.Direction.Z()
	if t < 0 {
		return 0, 0, false // Intersection behind ray origin
	}

	p := r.At(t)
	return p.X(), p.Y(), true
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float64, hit bool) {
	tmin := -math.MaxFloat64
	tmax := math.MaxFloat64

	for axis := 0; axis < 3; axis++ {
		o, d := r.Origin[axis], r.Direction[axis]
		if d == 0 {
			if o < box.Min[axis] || o > box.Max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (box.Min[axis] - o) / d
		t2 := (box.Max[axis] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// IntersectSphere tests ray intersection with a sphere.
// Returns the nearest non-negative distance along the ray.
func (r Ray) IntersectSphere(center mgl64.Vec3, radius float64) (t float64, hit bool) {
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Direction)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}

	sq := math.Sqrt(disc)
	t = -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

// NewAABB creates an AABB from two corners, ordering each axis.
func NewAABB(a, b mgl64.Vec3) AABB {
	box := AABB{Min: a, Max: b}
	for i := 0; i < 3; i++ {
		if box.Min[i] > box.Max[i] {
			box.Min[i], box.Max[i] = box.Max[i], box.Min[i]
		}
	}
	return box
}

// CenteredAABB returns the box centered on the origin with the given half extents.
func CenteredAABB(halfExtents mgl64.Vec3) AABB {
	return NewAABB(halfExtents.Mul(-1), halfExtents)
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfExtents returns half the size of the box on each axis.
func (b AABB) HalfExtents() mgl64.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Contains reports whether p is inside or on the box.
func (b AABB) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// ClosestPoint returns the point of the box nearest to p.
func (b AABB) ClosestPoint(p mgl64.Vec3) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := 0; i < 3; i++ {
		out[i] = Clamp(p[i], b.Min[i], b.Max[i])
	}
	return out
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		out[i] = c
	}
	return out
}

// Transform returns the world-aligned bounds of the box moved by pose.
func (b AABB) Transform(pose Pose) AABB {
	corners := b.Corners()
	first := pose.TransformPoint(corners[0])
	out := AABB{Min: first, Max: first}
	for _, c := range corners[1:] {
		w := pose.TransformPoint(c)
		for i := 0; i < 3; i++ {
			out.Min[i] = math.Min(out.Min[i], w[i])
			out.Max[i] = math.Max(out.Max[i], w[i])
		}
	}
	return out
}

// Expand grows the box by padding on all sides.
func (b AABB) Expand(padding float64) AABB {
	p := mgl64.Vec3{padding, padding, padding}
	return AABB{Min: b.Min.Sub(p), Max: b.Max.Add(p)}
}

// Distance returns the separation between two boxes along their
// closest points, and zero when they overlap.
func (b AABB) Distance(other AABB) float64 {
	var sq float64
	for i := 0; i < 3; i++ {
		gap := math.Max(other.Min[i]-b.Max[i], b.Min[i]-other.Max[i])
		if gap > 0 {
			sq += gap * gap
		}
	}
	return math.Sqrt(sq)
}
