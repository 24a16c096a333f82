package debug

import (
	"errors"

	"go.uber.org/zap"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// ErrNotDrawn reports an update of a drawing that has not been drawn yet.
var ErrNotDrawn = errors.New("debug drawing not drawn")

// Frame draws a coordinate frame as three axis lines: x red, y green and
// z blue. Updates move the existing lines in place, so the handles stay
// the same for the frame's lifetime.
type Frame struct {
	lines
}

// NewFrame returns an undrawn frame.
func NewFrame(engine sim.DebugDrawer, opts ...Option) (*Frame, error) {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &Frame{lines{engine: engine, s: s}}, nil
}

// Draw draws the frame at pose and returns the x, y and z line handles.
// Drawing an already drawn frame moves it.
func (f *Frame) Draw(pose kmath.Pose) ([3]sim.DebugItemID, error) {
	if err := f.draw(axisSegments(pose, f.s.length), axisColors()); err != nil {
		return [3]sim.DebugItemID{sim.NoDebugItem, sim.NoDebugItem, sim.NoDebugItem}, err
	}
	f.s.log.Debug("frame drawn",
		zap.Int("x", int(f.ids[0])),
		zap.Int("y", int(f.ids[1])),
		zap.Int("z", int(f.ids[2])))
	return f.IDs(), nil
}

// Update moves a drawn frame to pose, keeping its handles.
func (f *Frame) Update(pose kmath.Pose) error {
	if len(f.ids) == 0 {
		return ErrNotDrawn
	}
	return f.draw(axisSegments(pose, f.s.length), axisColors())
}

// IDs returns the x, y and z line handles, or sim.NoDebugItem when the
// frame is not drawn.
func (f *Frame) IDs() [3]sim.DebugItemID {
	if len(f.ids) == 0 {
		return [3]sim.DebugItemID{sim.NoDebugItem, sim.NoDebugItem, sim.NoDebugItem}
	}
	return [3]sim.DebugItemID{f.ids[0], f.ids[1], f.ids[2]}
}

// Drawn reports whether the frame is on screen.
func (f *Frame) Drawn() bool { return len(f.ids) > 0 }

// Remove erases the frame. Removing an undrawn frame does nothing.
func (f *Frame) Remove() error { return f.remove() }

func axisSegments(pose kmath.Pose, length float64) []segment {
	axes := pose.Axes()
	segs := make([]segment, 3)
	for i, axis := range axes {
		segs[i] = segment{pose.Position, pose.Position.Add(axis.Mul(length))}
	}
	return segs
}

func axisColors() [][3]float64 {
	return [][3]float64{XAxisColor, YAxisColor, ZAxisColor}
}
