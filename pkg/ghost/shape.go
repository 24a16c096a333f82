// Package ghost places visual-only marker bodies: they have no mass and no
// collision shape, so they never affect the simulation.
package ghost

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/bulletkit/pkg/sim"
)

// Shape is the geometry of a ghost.
type Shape interface {
	Geometry() sim.Geometry
}

// Sphere is a ball of the given radius.
type Sphere struct {
	Radius float64
}

func (s Sphere) Geometry() sim.Geometry { return sim.SphereGeometry(s.Radius) }

// Box is a box with the given half extents.
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b Box) Geometry() sim.Geometry { return sim.BoxGeometry(b.HalfExtents) }

// Cylinder is aligned with the ghost's local Z axis.
type Cylinder struct {
	Radius float64
	Length float64
}

func (c Cylinder) Geometry() sim.Geometry { return sim.CylinderGeometry(c.Radius, c.Length) }

// Capsule is aligned with the ghost's local Z axis. Length excludes the caps.
type Capsule struct {
	Radius float64
	Length float64
}

func (c Capsule) Geometry() sim.Geometry { return sim.CapsuleGeometry(c.Radius, c.Length) }

// Mesh loads a mesh file, optionally scaled.
type Mesh struct {
	Path  string
	Scale mgl64.Vec3 // zero means unit scale
}

func (m Mesh) Geometry() sim.Geometry {
	return sim.Geometry{Type: sim.ShapeMesh, MeshPath: m.Path, MeshScale: m.Scale}
}

// ShapeFromGeometry wraps a geometry description, such as one read from a
// scene file, as a Shape.
func ShapeFromGeometry(g sim.Geometry) (Shape, error) {
	switch g.Type {
	case sim.ShapeSphere:
		return Sphere{Radius: g.Radius}, nil
	case sim.ShapeBox:
		return Box{HalfExtents: g.HalfExtents}, nil
	case sim.ShapeCylinder:
		return Cylinder{Radius: g.Radius, Length: g.Length}, nil
	case sim.ShapeCapsule:
		return Capsule{Radius: g.Radius, Length: g.Length}, nil
	case sim.ShapeMesh:
		return Mesh{Path: g.MeshPath, Scale: g.MeshScale}, nil
	}
	return nil, fmt.Errorf("%w: ghosts cannot be %s shapes", sim.ErrInvalidArgument, g.Type)
}
