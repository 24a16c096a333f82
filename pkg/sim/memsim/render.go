package memsim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// drawable is a visual shape posed in the world.
type drawable struct {
	body  sim.BodyID
	link  sim.LinkIndex
	geom  sim.Geometry
	pose  kmath.Pose
	color sim.Color
}

// drawables lists every visible shape. Bodies without a visual shape are
// drawn with their collision shape in gray.
func (e *Engine) drawables() []drawable {
	var out []drawable
	add := func(b *body, index sim.LinkIndex, visual, collision sim.ShapeID, frame kmath.Pose) {
		if vs, ok := e.visualShapes[visual]; ok {
			out = append(out, drawable{b.id, index, vs.Geometry, frame.Mul(vs.Offset), vs.Color})
			return
		}
		if cs, ok := e.collisionShapes[collision]; ok {
			out = append(out, drawable{b.id, index, cs.Geometry, frame.Mul(cs.Offset), sim.Gray})
		}
	}
	for _, id := range e.sortedIDs() {
		b := e.bodies[id]
		add(b, sim.BaseLink, b.visual, b.collision, b.pose)
		for i, l := range b.links {
			index := sim.LinkIndex(i)
			add(b, index, l.spec.VisualShape, l.spec.CollisionShape, b.linkFrame(index, nil))
		}
	}
	return out
}

// intersect returns the ray distance to the shape surface.
func (d drawable) intersect(r kmath.Ray) (float64, bool) {
	switch d.geom.Type {
	case sim.ShapeSphere:
		return r.IntersectSphere(d.pose.Position, d.geom.Radius)
	case sim.ShapePlane:
		n := d.pose.TransformDirection(d.geom.PlaneNormal())
		denom := n.Dot(r.Direction)
		if math.Abs(denom) < 1e-12 {
			return 0, false
		}
		t := n.Dot(d.pose.Position.Sub(r.Origin)) / denom
		return t, t >= 0
	}
	// Rotations keep lengths, so the local hit distance is the world one.
	inv := d.pose.Inverse()
	local := kmath.Ray{Origin: inv.TransformPoint(r.Origin), Direction: inv.TransformDirection(r.Direction)}
	return local.IntersectAABB(d.geom.Bounds())
}

// CameraImage ray casts one ray through every pixel center. Depth values
// are the non-linear buffer values the projection assigns to the nearest
// hit; pixels that hit nothing keep depth 1 and segmentation -1.
func (e *Engine) CameraImage(req sim.CameraRequest) (sim.RawImage, error) {
	if err := e.checkOpen(); err != nil {
		return sim.RawImage{}, err
	}
	if err := req.Validate(); err != nil {
		return sim.RawImage{}, err
	}

	w, h := req.Width, req.Height
	img := sim.RawImage{
		Width:        w,
		Height:       h,
		RGBA:         make([]byte, w*h*4),
		Depth:        make([]float32, w*h),
		Segmentation: make([]int32, w*h),
	}
	viewProj := req.Projection.Mul4(req.View)
	inv := viewProj.Inv()
	shapes := e.drawables()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			ray := kmath.ScreenToRay(float64(x)+0.5, float64(y)+0.5, float64(w), float64(h), inv)

			color, depth, seg := e.background, 1.0, int32(-1)
			bestT := math.Inf(1)
			for _, d := range shapes {
				t, ok := d.intersect(ray)
				if !ok || t >= bestT {
					continue
				}
				b, visible := bufferDepth(viewProj, ray.At(t))
				if !visible {
					continue
				}
				bestT, depth = t, b
				color, seg = d.color, sim.EncodeSegment(d.body, d.link)
			}

			img.Depth[i] = float32(depth)
			img.Segmentation[i] = seg
			for c := 0; c < 4; c++ {
				img.RGBA[i*4+c] = uint8(math.Round(kmath.Clamp(color[c], 0, 1) * 255))
			}
		}
	}
	return img, nil
}

// bufferDepth projects p and maps its NDC depth to [0, 1]. Points in
// front of the near plane or past the far plane are not visible.
func bufferDepth(viewProj mgl64.Mat4, p mgl64.Vec3) (float64, bool) {
	clip := viewProj.Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, false
	}
	b := (clip.Z()/clip.W() + 1) / 2
	if b < 0 || b > 1 {
		return 0, false
	}
	return b, true
}
