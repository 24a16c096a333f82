package debug

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// BoxEdgeCount is the number of lines in a wireframe box.
const BoxEdgeCount = 12

// Box draws a wireframe box as twelve debug lines.
type Box struct {
	lines
}

// NewBox returns an undrawn box.
func NewBox(engine sim.DebugDrawer, opts ...Option) (*Box, error) {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &Box{lines{engine: engine, s: s}}, nil
}

// DrawAABB draws an axis-aligned box, or moves it when already drawn.
func (b *Box) DrawAABB(box kmath.AABB) error {
	return b.Draw(box, kmath.IdentityPose())
}

// Draw draws box transformed by pose, or moves it when already drawn.
func (b *Box) Draw(box kmath.AABB, pose kmath.Pose) error {
	edges := BoxEdges(box.Min, box.Max)
	segs := make([]segment, len(edges))
	colors := make([][3]float64, len(edges))
	for i, e := range edges {
		segs[i] = segment{pose.TransformPoint(e[0]), pose.TransformPoint(e[1])}
		colors[i] = b.s.color
	}
	if err := b.draw(segs, colors); err != nil {
		return err
	}
	b.s.log.Debug("box drawn", zap.Float64s("min", box.Min[:]), zap.Float64s("max", box.Max[:]))
	return nil
}

// IDs returns the line handles, empty when the box is not drawn.
func (b *Box) IDs() []sim.DebugItemID {
	return append([]sim.DebugItemID(nil), b.ids...)
}

// Remove erases the box. Removing an undrawn box does nothing.
func (b *Box) Remove() error { return b.remove() }

// BoxEdges returns the twelve edges of the box spanned by lo and hi:
// four around the bottom face, four around the top and four verticals.
func BoxEdges(lo, hi mgl64.Vec3) [BoxEdgeCount][2]mgl64.Vec3 {
	c := func(x, y, z float64) mgl64.Vec3 { return mgl64.Vec3{x, y, z} }
	x0, y0, z0 := lo.X(), lo.Y(), lo.Z()
	x1, y1, z1 := hi.X(), hi.Y(), hi.Z()
	return [BoxEdgeCount][2]mgl64.Vec3{
		// Bottom face
		{c(x0, y0, z0), c(x1, y0, z0)},
		{c(x1, y0, z0), c(x1, y1, z0)},
		{c(x1, y1, z0), c(x0, y1, z0)},
		{c(x0, y1, z0), c(x0, y0, z0)},
		// Top face
		{c(x0, y0, z1), c(x1, y0, z1)},
		{c(x1, y0, z1), c(x1, y1, z1)},
		{c(x1, y1, z1), c(x0, y1, z1)},
		{c(x0, y1, z1), c(x0, y0, z1)},
		// Vertical edges
		{c(x0, y0, z0), c(x0, y0, z1)},
		{c(x1, y0, z0), c(x1, y0, z1)},
		{c(x1, y1, z0), c(x1, y1, z1)},
		{c(x0, y1, z0), c(x0, y1, z1)},
	}
}
