package ghost

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// DefaultColor is the color of ghosts created without WithColor.
var DefaultColor = sim.Color{1, 0, 0, 1}

// ErrRemoved reports a call on a ghost after Remove.
var ErrRemoved = errors.New("ghost removed")

// Engine is the part of the engine API ghosts use.
type Engine interface {
	sim.Introspector
	sim.Commander
}

// Ghost is a visual-only body. Its pose is relative to an optional parent
// link and is re-sent to the engine on every Update.
type Ghost struct {
	engine Engine
	log    *zap.Logger

	body   sim.BodyID
	visual sim.ShapeID
	shape  Shape
	color  sim.Color

	local      kmath.Pose
	parent     sim.BodyID
	parentLink sim.LinkIndex
	removed    bool
}

type settings struct {
	pose       kmath.Pose
	color      sim.Color
	parent     sim.BodyID
	parentLink sim.LinkIndex
	log        *zap.Logger
}

// Option configures a ghost at creation.
type Option func(*settings)

// WithPose sets the pose, relative to the parent link when there is one.
func WithPose(p kmath.Pose) Option {
	return func(s *settings) { s.pose = p }
}

// WithPosition sets the position and keeps the orientation.
func WithPosition(pos mgl64.Vec3) Option {
	return func(s *settings) { s.pose.Position = pos }
}

// WithColor sets the RGBA color.
func WithColor(c sim.Color) Option {
	return func(s *settings) { s.color = c }
}

// WithParent attaches the ghost to a link. Pass sim.BaseLink for the base.
func WithParent(body sim.BodyID, link sim.LinkIndex) Option {
	return func(s *settings) { s.parent, s.parentLink = body, link }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a ghost of the given shape. The shape and color are checked
// before any engine call.
func New(engine Engine, shape Shape, opts ...Option) (*Ghost, error) {
	s := settings{
		pose:       kmath.IdentityPose(),
		color:      DefaultColor,
		parent:     sim.NoBody,
		parentLink: sim.BaseLink,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if shape == nil {
		return nil, fmt.Errorf("%w: nil ghost shape", sim.ErrInvalidArgument)
	}
	geom := shape.Geometry()
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if geom.Type == sim.ShapePlane {
		return nil, fmt.Errorf("%w: ghosts cannot be planes", sim.ErrInvalidArgument)
	}
	if err := s.color.Validate(); err != nil {
		return nil, err
	}

	g := &Ghost{
		engine:     engine,
		log:        s.log,
		shape:      shape,
		color:      s.color,
		local:      kmath.NewPose(s.pose.Position, s.pose.Orientation),
		parent:     s.parent,
		parentLink: s.parentLink,
	}
	world, err := g.WorldPose()
	if err != nil {
		return nil, err
	}

	spec := sim.MultiBody{
		BaseMass:       0,
		CollisionShape: sim.NoShape,
		Pose:           world,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	// Engines cannot delete visual shapes, so this one leaks if the body
	// creation below fails.
	visual, err := engine.CreateVisualShape(sim.VisualShape{Geometry: geom, Offset: kmath.IdentityPose(), Color: s.color})
	if err != nil {
		return nil, fmt.Errorf("create visual shape: %w", err)
	}
	spec.VisualShape = visual
	body, err := engine.CreateMultiBody(spec)
	if err != nil {
		return nil, fmt.Errorf("create ghost body: %w", err)
	}
	g.visual, g.body = visual, body

	g.log.Debug("ghost created",
		zap.Int("body", int(body)),
		zap.Stringer("shape", geom.Type),
		zap.Int("parent", int(s.parent)))
	return g, nil
}

// Body returns the ghost's body handle.
func (g *Ghost) Body() sim.BodyID { return g.body }

// Shape returns the shape the ghost was created with.
func (g *Ghost) Shape() Shape { return g.shape }

// Color returns the ghost's color.
func (g *Ghost) Color() sim.Color { return g.color }

// Pose returns the pose relative to the parent, or the world pose when
// there is no parent.
func (g *Ghost) Pose() kmath.Pose { return g.local }

// Parent returns the parent body and link. body is sim.NoBody when the
// ghost is not attached.
func (g *Ghost) Parent() (body sim.BodyID, link sim.LinkIndex) {
	return g.parent, g.parentLink
}

// WorldPose composes the parent link pose with the ghost's pose.
func (g *Ghost) WorldPose() (kmath.Pose, error) {
	if g.parent == sim.NoBody {
		return g.local, nil
	}
	parent, err := linkPose(g.engine, g.parent, g.parentLink)
	if err != nil {
		return kmath.Pose{}, fmt.Errorf("ghost parent: %w", err)
	}
	return parent.Mul(g.local), nil
}

func linkPose(e sim.Introspector, body sim.BodyID, link sim.LinkIndex) (kmath.Pose, error) {
	if link == sim.BaseLink {
		return e.BasePose(body)
	}
	state, err := e.LinkState(body, link, sim.LinkStateOptions{ComputeForwardKinematics: true})
	if err != nil {
		return kmath.Pose{}, err
	}
	return state.WorldLinkFrame, nil
}

// Update re-sends the world pose to the engine, following the parent link
// if the ghost is attached. Only the ghost's own pose changes.
func (g *Ghost) Update() error {
	if g.removed {
		return ErrRemoved
	}
	world, err := g.WorldPose()
	if err != nil {
		return err
	}
	return g.engine.ResetBasePose(g.body, world)
}

// SetPose changes the relative pose and updates the engine.
func (g *Ghost) SetPose(p kmath.Pose) error {
	if g.removed {
		return ErrRemoved
	}
	g.local = kmath.NewPose(p.Position, p.Orientation)
	return g.Update()
}

// SetPosition changes the relative position and updates the engine.
func (g *Ghost) SetPosition(pos mgl64.Vec3) error {
	return g.SetPose(kmath.Pose{Position: pos, Orientation: g.local.Orientation})
}

// Remove deletes the ghost from the simulation.
func (g *Ghost) Remove() error {
	if g.removed {
		return ErrRemoved
	}
	if err := g.engine.RemoveBody(g.body); err != nil {
		return err
	}
	g.removed = true
	g.log.Debug("ghost removed", zap.Int("body", int(g.body)))
	return nil
}
