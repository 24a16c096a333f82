package config

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/bulletkit/pkg/collision"
	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// SceneConfig describes what the run creates and checks.
type SceneConfig struct {
	Bodies []BodyConfig          `yaml:"bodies"`
	Robots []RobotConfig         `yaml:"robots"`
	Pairs  []collision.NamedPair `yaml:"pairs"`
	Ghosts []GhostConfig         `yaml:"ghosts"`
	Arrows []ArrowConfig         `yaml:"arrows"`
	Frames []FrameConfig         `yaml:"frames"`
}

// ShapeConfig is a geometry in YAML form.
type ShapeConfig struct {
	Type        string     `yaml:"type"`
	Radius      float64    `yaml:"radius,omitempty"`
	Length      float64    `yaml:"length,omitempty"`
	HalfExtents [3]float64 `yaml:"half_extents,omitempty"`
	Normal      [3]float64 `yaml:"normal,omitempty"`
	Mesh        string     `yaml:"mesh,omitempty"`
	Scale       [3]float64 `yaml:"scale,omitempty"`
}

// Geometry converts and validates the shape.
func (s ShapeConfig) Geometry() (sim.Geometry, error) {
	t, err := sim.ParseShapeType(s.Type)
	if err != nil {
		return sim.Geometry{}, err
	}
	g := sim.Geometry{
		Type:        t,
		Radius:      s.Radius,
		Length:      s.Length,
		HalfExtents: mgl64.Vec3(s.HalfExtents),
		Normal:      mgl64.Vec3(s.Normal),
		MeshPath:    s.Mesh,
		MeshScale:   mgl64.Vec3(s.Scale),
	}
	return g, g.Validate()
}

// PoseConfig is a position plus roll, pitch and yaw in degrees.
type PoseConfig struct {
	Position [3]float64 `yaml:"position"`
	RPY      [3]float64 `yaml:"rpy,omitempty"`
}

// Pose converts the configured pose.
func (p PoseConfig) Pose() kmath.Pose {
	q := kmath.QuatFromRPY(mgl64.DegToRad(p.RPY[0]), mgl64.DegToRad(p.RPY[1]), mgl64.DegToRad(p.RPY[2]))
	return kmath.NewPose(mgl64.Vec3(p.Position), q)
}

// BodyConfig is a primitive body, or a URDF model when URDF is set.
type BodyConfig struct {
	Name      string      `yaml:"name"`
	URDF      string      `yaml:"urdf,omitempty"`
	FixedBase bool        `yaml:"fixed_base,omitempty"`
	Shape     ShapeConfig `yaml:"shape,omitempty"`
	Mass      float64     `yaml:"mass"`
	Pose      PoseConfig  `yaml:"pose"`
	Color     [4]float64  `yaml:"color,omitempty"`
	Velocity  [3]float64  `yaml:"velocity,omitempty"`
}

// RobotConfig drives a URDF body with a constant joint velocity command.
type RobotConfig struct {
	Body      string    `yaml:"body"`
	ToolJoint string    `yaml:"tool_joint,omitempty"`
	Initial   []float64 `yaml:"initial,omitempty"`
	Velocity  []float64 `yaml:"velocity,omitempty"`
	ShowTool  bool      `yaml:"show_tool,omitempty"` // attach a debug frame to the tool link
}

// GhostConfig is a visual-only marker, optionally attached to a link.
type GhostConfig struct {
	Name   string                 `yaml:"name"`
	Shape  ShapeConfig            `yaml:"shape"`
	Color  [4]float64             `yaml:"color,omitempty"`
	Pose   PoseConfig             `yaml:"pose"`
	Parent *collision.NamedObject `yaml:"parent,omitempty"`
}

// ArrowConfig is an arrow ghost between two world points.
type ArrowConfig struct {
	Start  [3]float64 `yaml:"start"`
	End    [3]float64 `yaml:"end"`
	Radius float64    `yaml:"radius,omitempty"`
	Color  [4]float64 `yaml:"color,omitempty"`
}

// FrameConfig is a debug coordinate frame, optionally attached to a link.
type FrameConfig struct {
	Pose       PoseConfig             `yaml:"pose"`
	AxisLength float64                `yaml:"axis_length,omitempty"`
	LineWidth  float64                `yaml:"line_width,omitempty"`
	Parent     *collision.NamedObject `yaml:"parent,omitempty"`
}

// Color converts a configured color, falling back to def when unset.
func Color(c [4]float64, def sim.Color) sim.Color {
	if c == ([4]float64{}) {
		return def
	}
	return sim.Color(c)
}

// Validate checks names and shapes without touching an engine.
func (s *SceneConfig) Validate() error {
	names := make(map[string]bool, len(s.Bodies))
	for i, b := range s.Bodies {
		if b.Name == "" {
			return fmt.Errorf("scene.bodies[%d]: missing name", i)
		}
		if names[b.Name] {
			return fmt.Errorf("scene.bodies[%d]: duplicate name %q", i, b.Name)
		}
		names[b.Name] = true
		if b.URDF != "" {
			continue
		}
		if _, err := b.Shape.Geometry(); err != nil {
			return fmt.Errorf("scene.bodies[%d] %q: %w", i, b.Name, err)
		}
		if err := Color(b.Color, sim.Gray).Validate(); err != nil {
			return fmt.Errorf("scene.bodies[%d] %q: %w", i, b.Name, err)
		}
	}
	for i, r := range s.Robots {
		if r.Body == "" {
			return fmt.Errorf("scene.robots[%d]: missing body", i)
		}
	}
	for i, g := range s.Ghosts {
		if _, err := g.Shape.Geometry(); err != nil {
			return fmt.Errorf("scene.ghosts[%d]: %w", i, err)
		}
	}
	for i, a := range s.Arrows {
		if a.Start == a.End {
			return fmt.Errorf("scene.arrows[%d]: start equals end", i)
		}
	}
	return nil
}
