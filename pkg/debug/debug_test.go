package debug

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
	"github.com/Faultbox/bulletkit/pkg/sim/memsim"
)

func assertLine(t *testing.T, e *memsim.Engine, id sim.DebugItemID, from, to mgl64.Vec3, color [3]float64) {
	t.Helper()
	line, gotFrom, gotTo, ok := e.DebugLine(id)
	require.True(t, ok, "debug item %d missing", id)
	assert.True(t, kmath.Vec3ApproxEqual(gotFrom, from, 1e-9), "from: got %v want %v", gotFrom, from)
	assert.True(t, kmath.Vec3ApproxEqual(gotTo, to, 1e-9), "to: got %v want %v", gotTo, to)
	assert.Equal(t, color, line.Color)
}

func TestFrameDraw(t *testing.T) {
	e := memsim.New()
	f, err := NewFrame(e, WithAxisLength(0.5), WithLineWidth(3))
	require.NoError(t, err)
	assert.False(t, f.Drawn())

	origin := mgl64.Vec3{1, 2, 3}
	ids, err := f.Draw(kmath.At(origin))
	require.NoError(t, err)
	assert.True(t, f.Drawn())
	assert.Equal(t, ids, f.IDs())

	assertLine(t, e, ids[0], origin, origin.Add(mgl64.Vec3{0.5, 0, 0}), XAxisColor)
	assertLine(t, e, ids[1], origin, origin.Add(mgl64.Vec3{0, 0.5, 0}), YAxisColor)
	assertLine(t, e, ids[2], origin, origin.Add(mgl64.Vec3{0, 0, 0.5}), ZAxisColor)

	line, _, _, _ := e.DebugLine(ids[0])
	assert.Equal(t, 3.0, line.Width)
}

func TestFrameUpdateKeepsHandles(t *testing.T) {
	e := memsim.New()
	f, err := NewFrame(e)
	require.NoError(t, err)

	assert.ErrorIs(t, f.Update(kmath.IdentityPose()), ErrNotDrawn)

	ids, err := f.Draw(kmath.IdentityPose())
	require.NoError(t, err)

	rot := kmath.NewPose(mgl64.Vec3{0, 0, 1}, mgl64.QuatRotate(math.Pi/2, kmath.UnitZ))
	require.NoError(t, f.Update(rot))
	assert.Equal(t, ids, f.IDs())
	assert.Len(t, e.DebugItems(), 3)

	// x now points along +y
	assertLine(t, e, ids[0], mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, DefaultAxisLength, 1}, XAxisColor)

	again, err := f.Draw(kmath.IdentityPose())
	require.NoError(t, err)
	assert.Equal(t, ids, again, "redraw moves the same lines")
}

func TestFrameRemove(t *testing.T) {
	e := memsim.New()
	f, err := NewFrame(e)
	require.NoError(t, err)
	require.NoError(t, f.Remove(), "removing an undrawn frame is a no-op")

	_, err = f.Draw(kmath.IdentityPose())
	require.NoError(t, err)
	require.NoError(t, f.Remove())
	assert.Empty(t, e.DebugItems())
	assert.False(t, f.Drawn())
	assert.Equal(t, sim.NoDebugItem, f.IDs()[0])
}

func TestFrameWithParent(t *testing.T) {
	e := memsim.New()
	body, err := e.CreateMultiBody(sim.MultiBody{
		CollisionShape: sim.NoShape,
		VisualShape:    sim.NoShape,
		Pose:           kmath.At(mgl64.Vec3{0, 0, 1}),
	})
	require.NoError(t, err)

	f, err := NewFrame(e, WithParent(body, sim.BaseLink))
	require.NoError(t, err)
	ids, err := f.Draw(kmath.IdentityPose())
	require.NoError(t, err)
	assertLine(t, e, ids[2], mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1 + DefaultAxisLength}, ZAxisColor)

	require.NoError(t, e.ResetBasePose(body, kmath.At(mgl64.Vec3{2, 0, 0})))
	assertLine(t, e, ids[2], mgl64.Vec3{2, 0, 0}, mgl64.Vec3{2, 0, DefaultAxisLength}, ZAxisColor)

	bad, err := NewFrame(e, WithParent(body+100, sim.BaseLink))
	require.NoError(t, err)
	_, err = bad.Draw(kmath.IdentityPose())
	assert.ErrorIs(t, err, sim.ErrInvalidBody)
	assert.Len(t, e.DebugItems(), 3)
}

func TestOptionsValidate(t *testing.T) {
	e := memsim.New()
	_, err := NewFrame(e, WithAxisLength(0))
	assert.ErrorIs(t, err, sim.ErrInvalidArgument)
	_, err = NewFrame(e, WithLineWidth(-1))
	assert.ErrorIs(t, err, sim.ErrInvalidArgument)
	_, err = NewBox(e, WithColor([3]float64{0, 2, 0}))
	assert.ErrorIs(t, err, sim.ErrInvalidArgument)
}

// flakyDrawer fails the n-th AddDebugLine call.
type flakyDrawer struct {
	sim.DebugDrawer
	calls  int
	failAt int
}

func (d *flakyDrawer) AddDebugLine(line sim.DebugLine) (sim.DebugItemID, error) {
	d.calls++
	if d.calls == d.failAt {
		return sim.NoDebugItem, errors.New("engine busy")
	}
	return d.DebugDrawer.AddDebugLine(line)
}

func TestFrameDrawRollsBack(t *testing.T) {
	e := memsim.New()
	f, err := NewFrame(&flakyDrawer{DebugDrawer: e, failAt: 3})
	require.NoError(t, err)

	_, err = f.Draw(kmath.IdentityPose())
	require.Error(t, err)
	assert.Empty(t, e.DebugItems())
	assert.False(t, f.Drawn())
}

func TestBoxEdges(t *testing.T) {
	edges := BoxEdges(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 2, 3})
	var total float64
	for _, edge := range edges {
		d := edge[1].Sub(edge[0])
		nonzero := 0
		for i := 0; i < 3; i++ {
			if d[i] != 0 {
				nonzero++
			}
		}
		assert.Equal(t, 1, nonzero, "edge %v is axis aligned", edge)
		total += d.Len()
	}
	assert.InDelta(t, 4*(1+2+3), total, 1e-12)
}

func TestBoxDraw(t *testing.T) {
	e := memsim.New()
	b, err := NewBox(e, WithColor([3]float64{1, 1, 0}))
	require.NoError(t, err)

	require.NoError(t, b.DrawAABB(kmath.NewAABB(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})))
	ids := b.IDs()
	require.Len(t, ids, BoxEdgeCount)
	assertLine(t, e, ids[0], mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, -1, -1}, [3]float64{1, 1, 0})

	require.NoError(t, b.Draw(kmath.CenteredAABB(mgl64.Vec3{1, 1, 1}), kmath.At(mgl64.Vec3{5, 0, 0})))
	assert.Equal(t, ids, b.IDs())
	assertLine(t, e, ids[0], mgl64.Vec3{4, -1, -1}, mgl64.Vec3{6, -1, -1}, [3]float64{1, 1, 0})

	require.NoError(t, b.Remove())
	assert.Empty(t, e.DebugItems())
	assert.Empty(t, b.IDs())
}
