package collision

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
	"github.com/Faultbox/bulletkit/pkg/sim/memsim"
)

// newRobot creates a serial chain named "robot" whose links are named in
// order, each carrying a small sphere and sitting 0.2 m above its parent.
func newRobot(t *testing.T, e *memsim.Engine, name string, linkNames ...string) sim.BodyID {
	t.Helper()
	shape, err := e.CreateCollisionShape(sim.CollisionShape{Geometry: sim.SphereGeometry(0.05)})
	require.NoError(t, err)

	links := make([]sim.MultiBodyLink, len(linkNames))
	for i, ln := range linkNames {
		links[i] = sim.MultiBodyLink{
			Name:           ln,
			JointName:      ln + "_joint",
			Mass:           1,
			CollisionShape: shape,
			VisualShape:    sim.NoShape,
			Parent:         sim.LinkIndex(i - 1),
			Offset:         kmath.At(mgl64.Vec3{0, 0, 0.2}),
			JointType:      sim.JointRevolute,
			JointAxis:      kmath.UnitZ,
		}
	}
	id, err := e.CreateMultiBody(sim.MultiBody{
		Name:           name,
		BaseName:       name + "_base",
		CollisionShape: sim.NoShape,
		VisualShape:    sim.NoShape,
		Pose:           kmath.IdentityPose(),
		Links:          links,
	})
	require.NoError(t, err)
	return id
}

func TestResolveScenario(t *testing.T) {
	e := memsim.New()
	robot := newRobot(t, e, "robot", "shoulder_link", "upper_arm_link", "forearm_link", "gripper_link")
	r := NewResolver(e)

	got, err := r.Resolve(Named("robot", "gripper_link"))
	require.NoError(t, err)
	assert.Equal(t, Indexed(robot, 3), got)

	mutations := e.Stats().Mutations
	_, err = r.Resolve(Named("robot", "nonexistent"))
	require.Error(t, err)

	var lookup *LookupError
	require.True(t, errors.As(err, &lookup))
	assert.Equal(t, "nonexistent", lookup.Link)
	assert.ErrorIs(t, err, sim.ErrNotFound)
	assert.Equal(t, mutations, e.Stats().Mutations, "failed lookup must not touch the simulation")
}

func TestResolveIsStableAndCached(t *testing.T) {
	e := memsim.New()
	newRobot(t, e, "robot", "a", "b", "c")
	r := NewResolver(e)

	first, err := r.Resolve(Named("robot", "b"))
	require.NoError(t, err)
	calls := e.Stats().JointInfoCalls
	assert.Equal(t, 3, calls, "first lookup scans every joint once")

	for i := 0; i < 5; i++ {
		again, err := r.Resolve(Named("robot", "b"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	_, err = r.Resolve(Named("robot", "c"))
	require.NoError(t, err)
	assert.Equal(t, calls, e.Stats().JointInfoCalls, "later lookups reuse the cache")
}

func TestResolveBase(t *testing.T) {
	e := memsim.New()
	robot := newRobot(t, e, "robot", "a")
	r := NewResolver(e)

	for _, link := range []string{"", "none", "NONE", "robot_base"} {
		got, err := r.Resolve(Named("robot", link))
		require.NoError(t, err, link)
		assert.Equal(t, Indexed(robot, sim.BaseLink), got, link)
	}

	// Bodies can also be found by base name.
	got, err := r.Resolve(Named("robot_base", "a"))
	require.NoError(t, err)
	assert.Equal(t, Indexed(robot, 0), got)
}

func TestResolveUnknownBody(t *testing.T) {
	r := NewResolver(memsim.New())
	_, err := r.Resolve(Named("ghost", "none"))

	var lookup *LookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "ghost", lookup.Body)
	assert.Empty(t, lookup.Link)
	assert.EqualError(t, err, `body "ghost" not found`)
}

func TestResolveRegistered(t *testing.T) {
	e := memsim.New()
	newRobot(t, e, "robot", "a")
	other := newRobot(t, e, "", "tip")
	r := NewResolver(e)
	r.Register("tool", other)

	got, err := r.Resolve(Named("tool", "tip"))
	require.NoError(t, err)
	assert.Equal(t, Indexed(other, 0), got)
}

func TestResolveInvalidate(t *testing.T) {
	e := memsim.New()
	robot := newRobot(t, e, "robot", "a", "b")
	r := NewResolver(e)

	_, err := r.Resolve(Named("robot", "b"))
	require.NoError(t, err)
	assert.True(t, r.Cached(robot))

	require.NoError(t, e.RemoveBody(robot))
	rebuilt := newRobot(t, e, "robot", "b")

	stale, err := r.Resolve(Named("robot", "b"))
	require.NoError(t, err)
	assert.Equal(t, Indexed(robot, 1), stale, "cache is not refreshed automatically")

	r.Invalidate(robot)
	assert.False(t, r.Cached(robot))
	fresh, err := r.Resolve(Named("robot", "b"))
	require.NoError(t, err)
	assert.Equal(t, Indexed(rebuilt, 0), fresh)

	r.Reset()
	assert.False(t, r.Cached(rebuilt))
}

func TestResolveDuplicateLinkNames(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := memsim.New()
	robot := newRobot(t, e, "robot", "link", "link")
	r := NewResolver(e, WithLogger(zap.New(core)))

	got, err := r.Resolve(Named("robot", "link"))
	require.NoError(t, err)
	assert.Equal(t, Indexed(robot, 0), got, "first occurrence wins")
	assert.Equal(t, 1, logs.FilterMessage("duplicate link name, keeping first").Len())
}

func TestResolvePairs(t *testing.T) {
	e := memsim.New()
	robot := newRobot(t, e, "robot", "a", "b")
	r := NewResolver(e)

	pairs, err := r.ResolvePairs([]NamedPair{
		{A: Named("robot", "a"), B: Named("robot", "b")},
		{A: Named("robot", "none"), B: Named("robot", "b")},
	})
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, IndexedPair{A: Indexed(robot, 0), B: Indexed(robot, 1)}, pairs[0])
	assert.Equal(t, sim.BaseLink, pairs[1].A.Link)

	_, err = r.ResolvePairs([]NamedPair{{A: Named("robot", "a"), B: Named("robot", "zzz")}})
	assert.ErrorIs(t, err, sim.ErrNotFound)
}

func TestNamedObjectString(t *testing.T) {
	assert.Equal(t, "robot", Named("robot", "none").String())
	assert.Equal(t, "robot/tip", Named("robot", "tip").String())

	p := IndexedPair{A: Indexed(3, 1), B: Indexed(1, 2)}
	assert.Equal(t, IndexedPair{A: Indexed(1, 2), B: Indexed(3, 1)}, p.Key())
	assert.Equal(t, p.Key(), IndexedPair{A: p.B, B: p.A}.Key())
}
