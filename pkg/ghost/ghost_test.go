package ghost

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
	"github.com/Faultbox/bulletkit/pkg/sim/memsim"
)

func newBall(t *testing.T, e *memsim.Engine, pos mgl64.Vec3, mass float64) sim.BodyID {
	t.Helper()
	col, err := e.CreateCollisionShape(sim.CollisionShape{Geometry: sim.SphereGeometry(0.2)})
	require.NoError(t, err)
	id, err := e.CreateMultiBody(sim.MultiBody{
		BaseMass: mass, CollisionShape: col, VisualShape: sim.NoShape, Pose: kmath.At(pos),
	})
	require.NoError(t, err)
	return id
}

func newArm(t *testing.T, e *memsim.Engine) sim.BodyID {
	t.Helper()
	id, err := e.CreateMultiBody(sim.MultiBody{
		BaseMass:       0,
		CollisionShape: sim.NoShape,
		VisualShape:    sim.NoShape,
		Pose:           kmath.IdentityPose(),
		Links: []sim.MultiBodyLink{{
			Mass:           1,
			CollisionShape: sim.NoShape,
			VisualShape:    sim.NoShape,
			Parent:         sim.BaseLink,
			Offset:         kmath.At(mgl64.Vec3{1, 0, 0}),
			JointType:      sim.JointRevolute,
			JointAxis:      kmath.UnitZ,
		}},
	})
	require.NoError(t, err)
	return id
}

func TestNewValidatesBeforeEngineCalls(t *testing.T) {
	e := memsim.New()
	tests := []struct {
		name  string
		shape Shape
		opts  []Option
	}{
		{"nil shape", nil, nil},
		{"zero sphere", Sphere{}, nil},
		{"flat box", Box{HalfExtents: mgl64.Vec3{1, 0, 1}}, nil},
		{"cylinder without length", Cylinder{Radius: 0.1}, nil},
		{"mesh without file", Mesh{}, nil},
		{"bad color", Sphere{Radius: 1}, []Option{WithColor(sim.Color{2, 0, 0, 1})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(e, tt.shape, tt.opts...)
			assert.ErrorIs(t, err, sim.ErrInvalidArgument)
		})
	}
	assert.Zero(t, e.Stats().Mutations)
}

// bodyFailEngine refuses to create bodies.
type bodyFailEngine struct {
	*memsim.Engine
	visuals int
}

func (e *bodyFailEngine) CreateVisualShape(shape sim.VisualShape) (sim.ShapeID, error) {
	e.visuals++
	return e.Engine.CreateVisualShape(shape)
}

func (e *bodyFailEngine) CreateMultiBody(sim.MultiBody) (sim.BodyID, error) {
	return sim.NoBody, sim.ErrNotConnected
}

func TestNewLeavesNoBodyOnFailure(t *testing.T) {
	e := &bodyFailEngine{Engine: memsim.New()}

	_, err := New(e, Sphere{Radius: 0.1}, WithParent(7, sim.BaseLink))
	assert.ErrorIs(t, err, sim.ErrInvalidBody)
	assert.Zero(t, e.visuals, "unknown parent fails before any shape is created")
	assert.Zero(t, e.Stats().Mutations)

	_, err = New(e, Sphere{Radius: 0.1})
	assert.ErrorIs(t, err, sim.ErrNotConnected)
	n, err := e.NumBodies()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, e.visuals)
}

func TestGhostHasNoCollision(t *testing.T) {
	e := memsim.New()
	ball := newBall(t, e, mgl64.Vec3{}, 1)
	g, err := New(e, Sphere{Radius: 0.5}, WithPosition(mgl64.Vec3{0.1, 0, 0}))
	require.NoError(t, err)

	info, err := e.DynamicsInfo(g.Body(), sim.BaseLink)
	require.NoError(t, err)
	assert.Zero(t, info.Mass)

	require.NoError(t, e.StepSimulation())
	contacts, err := e.ContactPoints(sim.ContactsOf(g.Body()))
	require.NoError(t, err)
	assert.Empty(t, contacts)

	points, err := sim.ClosestPoints(e, g.Body(), sim.AnyLink, ball, sim.AnyLink, 1)
	require.NoError(t, err)
	assert.Empty(t, points, "ghost has no collision geometry")
}

func TestGhostUpdateFollowsParent(t *testing.T) {
	e := memsim.New()
	arm := newArm(t, e)
	g, err := New(e, Box{HalfExtents: mgl64.Vec3{0.05, 0.05, 0.05}},
		WithParent(arm, 0),
		WithPosition(mgl64.Vec3{0.5, 0, 0}),
		WithColor(sim.Green))
	require.NoError(t, err)

	pose, err := e.BasePose(g.Body())
	require.NoError(t, err)
	assert.True(t, kmath.Vec3ApproxEqual(pose.Position, mgl64.Vec3{1.5, 0, 0}, 1e-9), "got %v", pose.Position)

	require.NoError(t, e.ResetJointState(arm, 0, mgl64.DegToRad(90)))
	armBefore, err := e.LinkState(arm, 0, sim.LinkStateOptions{ComputeForwardKinematics: true})
	require.NoError(t, err)

	require.NoError(t, g.Update())
	pose, err = e.BasePose(g.Body())
	require.NoError(t, err)
	assert.True(t, kmath.Vec3ApproxEqual(pose.Position, mgl64.Vec3{1, 0.5, 0}, 1e-9), "got %v", pose.Position)

	armAfter, err := e.LinkState(arm, 0, sim.LinkStateOptions{ComputeForwardKinematics: true})
	require.NoError(t, err)
	assert.Equal(t, armBefore, armAfter, "update only moves the ghost")
}

func TestGhostBaseParent(t *testing.T) {
	e := memsim.New()
	ball := newBall(t, e, mgl64.Vec3{1, 2, 3}, 1)
	g, err := New(e, Sphere{Radius: 0.1}, WithParent(ball, sim.BaseLink), WithPosition(mgl64.Vec3{0, 0, 1}))
	require.NoError(t, err)

	world, err := g.WorldPose()
	require.NoError(t, err)
	assert.True(t, kmath.Vec3ApproxEqual(world.Position, mgl64.Vec3{1, 2, 4}, 1e-9))

	body, link := g.Parent()
	assert.Equal(t, ball, body)
	assert.Equal(t, sim.BaseLink, link)
}

func TestGhostSetPoseAndRemove(t *testing.T) {
	e := memsim.New()
	g, err := New(e, Capsule{Radius: 0.05, Length: 0.2})
	require.NoError(t, err)

	require.NoError(t, g.SetPosition(mgl64.Vec3{0, 0, 2}))
	pose, err := e.BasePose(g.Body())
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{0, 0, 2}, pose.Position)

	require.NoError(t, g.Remove())
	_, err = e.BodyInfo(g.Body())
	assert.ErrorIs(t, err, sim.ErrInvalidBody)

	assert.ErrorIs(t, g.Remove(), ErrRemoved)
	assert.ErrorIs(t, g.Update(), ErrRemoved)
	assert.ErrorIs(t, g.SetPosition(mgl64.Vec3{}), ErrRemoved)
}

func TestArrow(t *testing.T) {
	e := memsim.New()
	g, err := NewArrow(e, mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, 0, WithColor(sim.Blue))
	require.NoError(t, err)

	cyl, ok := g.Shape().(Cylinder)
	require.True(t, ok)
	assert.InDelta(t, DefaultArrowRadius, cyl.Radius, 1e-12)
	assert.InDelta(t, mgl64.Vec3{1, 1, 1}.Len(), cyl.Length, 1e-12)

	pose, err := e.BasePose(g.Body())
	require.NoError(t, err)
	assert.True(t, kmath.Vec3ApproxEqual(pose.Position, mgl64.Vec3{0.5, 0.5, 0.5}, 1e-9))
	axis := pose.Orientation.Rotate(kmath.UnitZ)
	assert.True(t, kmath.Vec3ApproxEqual(axis, mgl64.Vec3{1, 1, 1}.Normalize(), 1e-9), "got %v", axis)

	require.NoError(t, g.Remove())
	n, err := e.NumBodies()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestArrowKeepsCallerOptions(t *testing.T) {
	e := memsim.New()
	opts := make([]Option, 1, 4)
	opts[0] = WithColor(sim.Blue)
	spare := opts[:2]

	_, err := NewArrow(e, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}, 0, opts...)
	require.NoError(t, err)
	assert.Len(t, opts, 1)
	assert.Nil(t, spare[1], "spare capacity of the caller's slice is untouched")
}

func TestArrowZeroLength(t *testing.T) {
	e := memsim.New()
	_, err := NewArrow(e, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, 1}, 0.01)
	assert.ErrorIs(t, err, sim.ErrInvalidArgument)
}

func TestShapeFromGeometry(t *testing.T) {
	s, err := ShapeFromGeometry(sim.SphereGeometry(0.3))
	require.NoError(t, err)
	assert.Equal(t, Sphere{Radius: 0.3}, s)

	_, err = ShapeFromGeometry(sim.PlaneGeometry(kmath.UnitZ))
	assert.ErrorIs(t, err, sim.ErrInvalidArgument)
}
