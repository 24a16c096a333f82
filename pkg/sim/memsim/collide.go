package memsim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// Distance queries reduce every geometry to one of three kinds. Cylinders,
// capsules and meshes collide as their bounding boxes.
type kind int

const (
	kindSphere kind = iota
	kindBox
	kindPlane
)

// placed is a collision shape posed in the world.
type placed struct {
	body sim.BodyID
	link sim.LinkIndex
	kind kind

	radius      float64
	halfExtents mgl64.Vec3
	normal      mgl64.Vec3
	pose        kmath.Pose
}

func place(id sim.BodyID, index sim.LinkIndex, shape sim.CollisionShape, frame kmath.Pose) placed {
	p := placed{body: id, link: index, pose: frame.Mul(shape.Offset)}
	switch shape.Type {
	case sim.ShapeSphere:
		p.kind, p.radius = kindSphere, shape.Radius
	case sim.ShapePlane:
		p.kind, p.normal = kindPlane, p.pose.TransformDirection(shape.PlaneNormal())
	default:
		p.kind, p.halfExtents = kindBox, shape.Bounds().HalfExtents()
	}
	return p
}

// placedShapes lists the collision shapes of body b that pass the link
// filter, base first.
func (e *Engine) placedShapes(b *body, filter sim.LinkIndex) []placed {
	var out []placed
	if filter == sim.AnyLink || filter == sim.BaseLink {
		if cs, ok := e.collisionShapes[b.collision]; ok {
			out = append(out, place(b.id, sim.BaseLink, cs, b.pose))
		}
	}
	for i, l := range b.links {
		index := sim.LinkIndex(i)
		if filter != sim.AnyLink && filter != index {
			continue
		}
		if cs, ok := e.collisionShapes[l.spec.CollisionShape]; ok {
			out = append(out, place(b.id, index, cs, b.linkFrame(index, nil)))
		}
	}
	return out
}

func checkLinkFilter(b *body, filter sim.LinkIndex) error {
	if filter == sim.AnyLink || filter == sim.BaseLink {
		return nil
	}
	_, err := b.link(filter)
	return err
}

// ClosestPoints reports one point pair for every pair of shapes of the two
// bodies that are at most q.MaxDistance apart.
func (e *Engine) ClosestPoints(q sim.ClosestPointsQuery) ([]sim.ContactPoint, error) {
	e.stats.ClosestPointsCalls++
	if err := q.Validate(); err != nil {
		return nil, err
	}
	a, err := e.body(q.BodyA)
	if err != nil {
		return nil, err
	}
	b, err := e.body(q.BodyB)
	if err != nil {
		return nil, err
	}
	if err := checkLinkFilter(a, q.LinkA); err != nil {
		return nil, err
	}
	if err := checkLinkFilter(b, q.LinkB); err != nil {
		return nil, err
	}

	var out []sim.ContactPoint
	for _, sa := range e.placedShapes(a, q.LinkA) {
		for _, sb := range e.placedShapes(b, q.LinkB) {
			if sa.body == sb.body && sa.link == sb.link {
				continue
			}
			c, ok := closest(sa, sb)
			if ok && c.Distance <= q.MaxDistance {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// computeContacts finds penetrating shape pairs between different bodies.
func (e *Engine) computeContacts() []sim.ContactPoint {
	ids := e.sortedIDs()
	var out []sim.ContactPoint
	for i, idA := range ids {
		shapesA := e.placedShapes(e.bodies[idA], sim.AnyLink)
		if len(shapesA) == 0 {
			continue
		}
		for _, idB := range ids[i+1:] {
			for _, sb := range e.placedShapes(e.bodies[idB], sim.AnyLink) {
				for _, sa := range shapesA {
					if c, ok := closest(sa, sb); ok && c.Distance < 0 {
						out = append(out, c)
					}
				}
			}
		}
	}
	return out
}

// closest computes the closest points between two shapes. The pair is
// evaluated in a fixed order, so closest(a, b) and closest(b, a) agree
// on the distance bit for bit.
func closest(a, b placed) (sim.ContactPoint, bool) {
	if b.before(a) {
		c, ok := closest(b, a)
		return c.Swap(), ok
	}

	var (
		c  sim.ContactPoint
		ok = true
	)
	switch {
	case a.kind == kindSphere && b.kind == kindSphere:
		c = sphereSphere(a, b)
	case a.kind == kindSphere && b.kind == kindBox:
		c = sphereBox(a, b)
	case a.kind == kindSphere && b.kind == kindPlane:
		c = sphereOrBoxPlane([]mgl64.Vec3{a.pose.Position}, a.radius, b)
	case a.kind == kindBox && b.kind == kindBox:
		c = boxBox(a, b)
	case a.kind == kindBox && b.kind == kindPlane:
		corners := kmath.CenteredAABB(a.halfExtents).Corners()
		world := make([]mgl64.Vec3, 0, len(corners))
		for _, p := range corners {
			world = append(world, a.pose.TransformPoint(p))
		}
		c = sphereOrBoxPlane(world, 0, b)
	default:
		ok = false
	}
	c.BodyA, c.BodyB = a.body, b.body
	c.LinkA, c.LinkB = a.link, b.link
	return c, ok
}

// before orders shapes by kind, then body, then link.
func (p placed) before(o placed) bool {
	if p.kind != o.kind {
		return p.kind < o.kind
	}
	if p.body != o.body {
		return p.body < o.body
	}
	return p.link < o.link
}

func sphereSphere(a, b placed) sim.ContactPoint {
	delta := b.pose.Position.Sub(a.pose.Position)
	n := kmath.UnitZ
	if l := delta.Len(); l > 0 {
		n = delta.Mul(1 / l)
	}
	return sim.ContactPoint{
		PositionOnA: a.pose.Position.Add(n.Mul(a.radius)),
		PositionOnB: b.pose.Position.Sub(n.Mul(b.radius)),
		NormalOnB:   n.Mul(-1),
		Distance:    delta.Len() - (a.radius + b.radius),
	}
}

func sphereBox(s, box placed) sim.ContactPoint {
	local := box.pose.Inverse().TransformPoint(s.pose.Position)
	bounds := kmath.CenteredAABB(box.halfExtents)

	var q, n mgl64.Vec3
	var dist float64
	if !bounds.Contains(local) {
		q = bounds.ClosestPoint(local)
		diff := local.Sub(q)
		dist = diff.Len()
		n = diff.Mul(1 / dist)
	} else {
		// Inside: push out through the nearest face.
		axis, depth := 0, math.Inf(1)
		for i := 0; i < 3; i++ {
			if d := box.halfExtents[i] - math.Abs(local[i]); d < depth {
				axis, depth = i, d
			}
		}
		sign := 1.0
		if local[axis] < 0 {
			sign = -1
		}
		q = local
		q[axis] = sign * box.halfExtents[axis]
		n[axis] = sign
		dist = -depth
	}

	normal := box.pose.TransformDirection(n)
	return sim.ContactPoint{
		PositionOnA: s.pose.Position.Sub(normal.Mul(s.radius)),
		PositionOnB: box.pose.TransformPoint(q),
		NormalOnB:   normal,
		Distance:    dist - s.radius,
	}
}

// sphereOrBoxPlane handles a set of support points inflated by radius
// against a plane: one center for a sphere, eight corners for a box.
func sphereOrBoxPlane(points []mgl64.Vec3, radius float64, plane placed) sim.ContactPoint {
	n := plane.normal
	best, bestS := points[0], math.Inf(1)
	for _, p := range points {
		if s := n.Dot(p.Sub(plane.pose.Position)); s < bestS {
			best, bestS = p, s
		}
	}
	return sim.ContactPoint{
		PositionOnA: best.Sub(n.Mul(radius)),
		PositionOnB: best.Sub(n.Mul(bestS)),
		NormalOnB:   n,
		Distance:    bestS - radius,
	}
}

// boxBox measures world-aligned bounds of the two boxes.
func boxBox(a, b placed) sim.ContactPoint {
	ba := kmath.CenteredAABB(a.halfExtents).Transform(a.pose)
	bb := kmath.CenteredAABB(b.halfExtents).Transform(b.pose)

	onB := bb.ClosestPoint(ba.Center())
	onA := ba.ClosestPoint(onB)
	c := sim.ContactPoint{PositionOnA: onA, PositionOnB: onB}

	if d := ba.Distance(bb); d > 0 {
		c.Distance = d
		if n := onA.Sub(onB); n.Len() > 0 {
			c.NormalOnB = n.Normalize()
		}
		return c
	}

	axis, overlap := 0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if o := math.Min(ba.Max[i]-bb.Min[i], bb.Max[i]-ba.Min[i]); o < overlap {
			axis, overlap = i, o
		}
	}
	c.Distance = -overlap
	if ba.Center()[axis] >= bb.Center()[axis] {
		c.NormalOnB[axis] = 1
	} else {
		c.NormalOnB[axis] = -1
	}
	return c
}
