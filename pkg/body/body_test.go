package body

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
	"github.com/Faultbox/bulletkit/pkg/sim/memsim"
)

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"negative mass", Spec{Geometry: sim.SphereGeometry(1), Mass: -1}},
		{"zero radius", Spec{Geometry: sim.SphereGeometry(0), Mass: 1}},
		{"moving plane", Spec{Geometry: sim.PlaneGeometry(kmath.UnitZ), Mass: 1}},
		{"bad color", Spec{Geometry: sim.SphereGeometry(1), Color: sim.Color{0, 0, 0, 3}}},
	}
	e := memsim.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.spec.Validate(), sim.ErrInvalidArgument)
			_, err := New(e, tt.spec)
			assert.ErrorIs(t, err, sim.ErrInvalidArgument)
		})
	}
	assert.Zero(t, e.Stats().Mutations, "invalid specs never reach the engine")
}

func TestPrimitives(t *testing.T) {
	e := memsim.New()
	box, err := NewBox(e, mgl64.Vec3{0.1, 0.2, 0.3}, 1, kmath.At(mgl64.Vec3{1, 0, 0}), sim.Red)
	require.NoError(t, err)
	sphere, err := NewSphere(e, 0.5, 2, kmath.At(mgl64.Vec3{0, 1, 0}), sim.Color{})
	require.NoError(t, err)
	cyl, err := NewCylinder(e, 0.1, 1, 0, kmath.IdentityPose(), sim.Blue)
	require.NoError(t, err)

	assert.Equal(t, DefaultColor, sphere.Spec().color())
	assert.NotEqual(t, box.ID(), sphere.ID())

	info, err := e.DynamicsInfo(sphere.ID(), sim.BaseLink)
	require.NoError(t, err)
	assert.Equal(t, 2.0, info.Mass)

	info, err = e.DynamicsInfo(cyl.ID(), sim.BaseLink)
	require.NoError(t, err)
	assert.Zero(t, info.Mass)

	n, err := e.NumBodies()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNamedBodyResolves(t *testing.T) {
	e := memsim.New()
	b, err := New(e, Spec{Name: "table", Geometry: sim.BoxGeometry(mgl64.Vec3{1, 1, 0.05}), Pose: kmath.IdentityPose()})
	require.NoError(t, err)

	id, err := sim.BodyByName(e, "table")
	require.NoError(t, err)
	assert.Equal(t, b.ID(), id)
}

func TestPoseAndVelocity(t *testing.T) {
	e := memsim.New()
	b, err := NewSphere(e, 0.1, 1, kmath.IdentityPose(), sim.Green)
	require.NoError(t, err)

	require.NoError(t, b.SetPose(kmath.At(mgl64.Vec3{0, 0, 1})))
	require.NoError(t, b.SetVelocity(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}))

	lin, ang, err := b.Velocity()
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, lin)
	assert.Equal(t, mgl64.Vec3{}, ang)

	require.NoError(t, e.StepSimulation())
	pose, err := b.Pose()
	require.NoError(t, err)
	assert.InDelta(t, e.TimeStep(), pose.Position.X(), 1e-12)
	assert.InDelta(t, 1, pose.Position.Z(), 1e-12)
}

func TestRemove(t *testing.T) {
	e := memsim.New()
	b, err := NewBox(e, mgl64.Vec3{1, 1, 1}, 0, kmath.IdentityPose(), sim.White)
	require.NoError(t, err)

	require.NoError(t, b.Remove())
	_, err = b.Pose()
	assert.ErrorIs(t, err, sim.ErrInvalidBody)
	assert.ErrorIs(t, b.Remove(), sim.ErrInvalidBody)
}
