// Package body creates single-link rigid bodies from primitive shapes.
package body

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// Engine is the part of the engine API bodies use.
type Engine interface {
	sim.Introspector
	sim.Commander
}

// Spec describes a body to create. A zero Mass makes the body static.
type Spec struct {
	Name     string
	Geometry sim.Geometry
	Mass     float64
	Pose     kmath.Pose
	Color    sim.Color // zero means DefaultColor
}

// DefaultColor is used when a Spec has no color.
var DefaultColor = sim.Gray

// Validate checks the spec without touching the engine.
func (s Spec) Validate() error {
	if err := s.Geometry.Validate(); err != nil {
		return err
	}
	if s.Mass < 0 {
		return fmt.Errorf("%w: negative mass %g", sim.ErrInvalidArgument, s.Mass)
	}
	if s.Geometry.Type == sim.ShapePlane && s.Mass != 0 {
		return fmt.Errorf("%w: planes must be static", sim.ErrInvalidArgument)
	}
	return s.color().Validate()
}

func (s Spec) color() sim.Color {
	if s.Color == (sim.Color{}) {
		return DefaultColor
	}
	return s.Color
}

// Body is a rigid body with collision and visual shapes of one geometry.
type Body struct {
	engine Engine
	log    *zap.Logger
	id     sim.BodyID
	spec   Spec
}

type options struct {
	log *zap.Logger
}

// Option configures a Body.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// New creates the body described by spec.
func New(engine Engine, spec Spec, opts ...Option) (*Body, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec.Pose = kmath.NewPose(spec.Pose.Position, spec.Pose.Orientation)

	col, err := engine.CreateCollisionShape(sim.CollisionShape{Geometry: spec.Geometry, Offset: kmath.IdentityPose()})
	if err != nil {
		return nil, fmt.Errorf("create collision shape: %w", err)
	}
	vis, err := engine.CreateVisualShape(sim.VisualShape{Geometry: spec.Geometry, Offset: kmath.IdentityPose(), Color: spec.color()})
	if err != nil {
		return nil, fmt.Errorf("create visual shape: %w", err)
	}
	id, err := engine.CreateMultiBody(sim.MultiBody{
		Name:           spec.Name,
		BaseName:       spec.Name,
		BaseMass:       spec.Mass,
		CollisionShape: col,
		VisualShape:    vis,
		Pose:           spec.Pose,
	})
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}

	o.log.Debug("body created",
		zap.Int("body", int(id)),
		zap.String("name", spec.Name),
		zap.Stringer("shape", spec.Geometry.Type),
		zap.Float64("mass", spec.Mass))
	return &Body{engine: engine, log: o.log, id: id, spec: spec}, nil
}

// NewBox creates a box body.
func NewBox(engine Engine, halfExtents mgl64.Vec3, mass float64, pose kmath.Pose, color sim.Color, opts ...Option) (*Body, error) {
	return New(engine, Spec{Geometry: sim.BoxGeometry(halfExtents), Mass: mass, Pose: pose, Color: color}, opts...)
}

// NewSphere creates a sphere body.
func NewSphere(engine Engine, radius, mass float64, pose kmath.Pose, color sim.Color, opts ...Option) (*Body, error) {
	return New(engine, Spec{Geometry: sim.SphereGeometry(radius), Mass: mass, Pose: pose, Color: color}, opts...)
}

// NewCylinder creates a Z-aligned cylinder body.
func NewCylinder(engine Engine, radius, length, mass float64, pose kmath.Pose, color sim.Color, opts ...Option) (*Body, error) {
	return New(engine, Spec{Geometry: sim.CylinderGeometry(radius, length), Mass: mass, Pose: pose, Color: color}, opts...)
}

// ID returns the body handle.
func (b *Body) ID() sim.BodyID { return b.id }

// Spec returns the spec the body was created from.
func (b *Body) Spec() Spec { return b.spec }

// Pose returns the current world pose.
func (b *Body) Pose() (kmath.Pose, error) {
	return b.engine.BasePose(b.id)
}

// SetPose teleports the body.
func (b *Body) SetPose(p kmath.Pose) error {
	return b.engine.ResetBasePose(b.id, kmath.NewPose(p.Position, p.Orientation))
}

// Velocity returns the world linear and angular velocity.
func (b *Body) Velocity() (linear, angular mgl64.Vec3, err error) {
	return b.engine.BaseVelocity(b.id)
}

// SetVelocity overrides the body's velocity.
func (b *Body) SetVelocity(linear, angular mgl64.Vec3) error {
	return b.engine.ResetBaseVelocity(b.id, linear, angular)
}

// Remove deletes the body from the simulation.
func (b *Body) Remove() error {
	if err := b.engine.RemoveBody(b.id); err != nil {
		return err
	}
	b.log.Debug("body removed", zap.Int("body", int(b.id)))
	return nil
}
