package sim

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
)

// ShapeType is a primitive geometry kind, numbered as the engine does.
type ShapeType int

const (
	ShapeSphere   ShapeType = 2
	ShapeBox      ShapeType = 3
	ShapeCylinder ShapeType = 4
	ShapeMesh     ShapeType = 5
	ShapePlane    ShapeType = 6
	ShapeCapsule  ShapeType = 7
)

func (t ShapeType) String() string {
	switch t {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	case ShapeCylinder:
		return "cylinder"
	case ShapeMesh:
		return "mesh"
	case ShapePlane:
		return "plane"
	case ShapeCapsule:
		return "capsule"
	default:
		return fmt.Sprintf("ShapeType(%d)", int(t))
	}
}

// ParseShapeType converts a lowercase name such as "box" to a ShapeType.
func ParseShapeType(name string) (ShapeType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sphere":
		return ShapeSphere, nil
	case "box":
		return ShapeBox, nil
	case "cylinder":
		return ShapeCylinder, nil
	case "mesh":
		return ShapeMesh, nil
	case "plane":
		return ShapePlane, nil
	case "capsule":
		return ShapeCapsule, nil
	}
	return 0, fmt.Errorf("%w: unknown shape type %q", ErrInvalidArgument, name)
}

// Geometry describes a primitive shape in its own frame.
// Cylinders and capsules are aligned with the local Z axis.
type Geometry struct {
	Type        ShapeType
	Radius      float64    // sphere, cylinder, capsule
	Length      float64    // cylinder, capsule
	HalfExtents mgl64.Vec3 // box
	Normal      mgl64.Vec3 // plane, zero means +Z
	MeshPath    string     // mesh
	MeshScale   mgl64.Vec3 // mesh, zero means unit scale
}

// Validate checks that the dimensions fit the shape type.
func (g Geometry) Validate() error {
	switch g.Type {
	case ShapeSphere:
		if g.Radius <= 0 {
			return fmt.Errorf("%w: sphere radius must be positive, got %g", ErrInvalidArgument, g.Radius)
		}
	case ShapeBox:
		for i := 0; i < 3; i++ {
			if g.HalfExtents[i] <= 0 {
				return fmt.Errorf("%w: box half extents must be positive, got %v", ErrInvalidArgument, g.HalfExtents)
			}
		}
	case ShapeCylinder, ShapeCapsule:
		if g.Radius <= 0 || g.Length <= 0 {
			return fmt.Errorf("%w: %s needs positive radius and length, got %g and %g",
				ErrInvalidArgument, g.Type, g.Radius, g.Length)
		}
	case ShapeMesh:
		if g.MeshPath == "" {
			return fmt.Errorf("%w: mesh shape without a file", ErrInvalidArgument)
		}
	case ShapePlane:
	default:
		return fmt.Errorf("%w: unsupported shape type %s", ErrInvalidArgument, g.Type)
	}
	return nil
}

// PlaneNormal returns the plane normal, defaulting to +Z.
func (g Geometry) PlaneNormal() mgl64.Vec3 {
	if g.Normal.Len() == 0 {
		return kmath.UnitZ
	}
	return g.Normal.Normalize()
}

// Scale returns the mesh scale, defaulting to 1 on each axis.
func (g Geometry) Scale() mgl64.Vec3 {
	if g.MeshScale == (mgl64.Vec3{}) {
		return mgl64.Vec3{1, 1, 1}
	}
	return g.MeshScale
}

// Bounds returns the local bounding box. Planes and meshes, whose extent
// the geometry alone does not define, report a unit box.
func (g Geometry) Bounds() kmath.AABB {
	switch g.Type {
	case ShapeSphere:
		return kmath.CenteredAABB(mgl64.Vec3{g.Radius, g.Radius, g.Radius})
	case ShapeBox:
		return kmath.CenteredAABB(g.HalfExtents)
	case ShapeCylinder:
		return kmath.CenteredAABB(mgl64.Vec3{g.Radius, g.Radius, g.Length / 2})
	case ShapeCapsule:
		return kmath.CenteredAABB(mgl64.Vec3{g.Radius, g.Radius, g.Length/2 + g.Radius})
	case ShapeMesh:
		s := g.Scale().Mul(0.5)
		return kmath.CenteredAABB(s)
	default:
		return kmath.CenteredAABB(mgl64.Vec3{0.5, 0.5, 0.5})
	}
}

// SphereGeometry returns a sphere of the given radius.
func SphereGeometry(radius float64) Geometry {
	return Geometry{Type: ShapeSphere, Radius: radius}
}

// BoxGeometry returns a box with the given half extents.
func BoxGeometry(halfExtents mgl64.Vec3) Geometry {
	return Geometry{Type: ShapeBox, HalfExtents: halfExtents}
}

// CylinderGeometry returns a Z-aligned cylinder.
func CylinderGeometry(radius, length float64) Geometry {
	return Geometry{Type: ShapeCylinder, Radius: radius, Length: length}
}

// CapsuleGeometry returns a Z-aligned capsule; length excludes the caps.
func CapsuleGeometry(radius, length float64) Geometry {
	return Geometry{Type: ShapeCapsule, Radius: radius, Length: length}
}

// PlaneGeometry returns an infinite plane through the shape origin.
func PlaneGeometry(normal mgl64.Vec3) Geometry {
	return Geometry{Type: ShapePlane, Normal: normal}
}

// CollisionShape is a geometry placed in a body frame for collision.
type CollisionShape struct {
	Geometry
	Offset kmath.Pose
}

// VisualShape is a colored geometry placed in a body frame for rendering.
type VisualShape struct {
	Geometry
	Offset kmath.Pose
	Color  Color
}

// Color is an RGBA color with components in [0, 1].
type Color [4]float64

// Common colors.
var (
	Red   = Color{1, 0, 0, 1}
	Green = Color{0, 1, 0, 1}
	Blue  = Color{0, 0, 1, 1}
	White = Color{1, 1, 1, 1}
	Gray  = Color{0.5, 0.5, 0.5, 1}
)

// RGB drops the alpha channel.
func (c Color) RGB() [3]float64 {
	return [3]float64{c[0], c[1], c[2]}
}

// Validate checks every component is within [0, 1].
func (c Color) Validate() error {
	for _, v := range c {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: color component %g outside [0, 1]", ErrInvalidArgument, v)
		}
	}
	return nil
}
