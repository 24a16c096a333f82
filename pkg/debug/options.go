// Package debug draws debug geometry through the engine's debug-line API:
// coordinate frames and wireframe boxes.
package debug

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/bulletkit/pkg/sim"
)

// Defaults for drawings created without options.
const (
	DefaultAxisLength = 0.2
	DefaultLineWidth  = 1.0
)

// Axis colors.
var (
	XAxisColor = [3]float64{1, 0, 0}
	YAxisColor = [3]float64{0, 1, 0}
	ZAxisColor = [3]float64{0, 0, 1}
)

type settings struct {
	length     float64
	width      float64
	color      [3]float64
	parent     sim.BodyID
	parentLink sim.LinkIndex
	log        *zap.Logger
}

func defaults() settings {
	return settings{
		length:     DefaultAxisLength,
		width:      DefaultLineWidth,
		color:      [3]float64{1, 1, 1},
		parent:     sim.NoBody,
		parentLink: sim.BaseLink,
		log:        zap.NewNop(),
	}
}

func (s settings) validate() error {
	if s.length <= 0 {
		return fmt.Errorf("%w: axis length must be positive, got %g", sim.ErrInvalidArgument, s.length)
	}
	if s.width <= 0 {
		return fmt.Errorf("%w: line width must be positive, got %g", sim.ErrInvalidArgument, s.width)
	}
	for _, c := range s.color {
		if c < 0 || c > 1 {
			return fmt.Errorf("%w: color components must be in [0, 1], got %v", sim.ErrInvalidArgument, s.color)
		}
	}
	return nil
}

// Option configures a frame or box.
type Option func(*settings)

// WithAxisLength sets the length of each frame axis.
func WithAxisLength(length float64) Option {
	return func(s *settings) { s.length = length }
}

// WithLineWidth sets the line width in pixels.
func WithLineWidth(width float64) Option {
	return func(s *settings) { s.width = width }
}

// WithColor sets the line color of a box. Frames always use red, green
// and blue axes.
func WithColor(rgb [3]float64) Option {
	return func(s *settings) { s.color = rgb }
}

// WithParent draws in the frame of the given link. Poses passed to Draw
// and Update are then relative to that link and the lines follow it.
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

// segment is one line from [0] to [1].
type segment [2]mgl64.Vec3

// lines draws or replaces a set of debug lines. ids holds the current
// handles, or is empty before the first draw.
type lines struct {
	engine sim.DebugDrawer
	s      settings
	ids    []sim.DebugItemID
}

// draw sends segs to the engine. A first draw that fails halfway removes
// the lines it already added.
func (l *lines) draw(segs []segment, colors [][3]float64) error {
	replace := len(l.ids) == len(segs)
	ids := make([]sim.DebugItemID, len(segs))
	for i, seg := range segs {
		line := sim.NewDebugLine(seg[0], seg[1], colors[i])
		line.Width = l.s.width
		line.ParentBody = l.s.parent
		line.ParentLink = l.s.parentLink
		if replace {
			line.ReplaceID = l.ids[i]
		}
		id, err := l.engine.AddDebugLine(line)
		if err != nil {
			if !replace {
				for _, added := range ids[:i] {
					_ = l.engine.RemoveDebugItem(added)
				}
			}
			return fmt.Errorf("debug line %d: %w", i, err)
		}
		ids[i] = id
	}
	l.ids = ids
	return nil
}

func (l *lines) remove() error {
	var first error
	for _, id := range l.ids {
		if err := l.engine.RemoveDebugItem(id); err != nil && first == nil {
			first = err
		}
	}
	l.ids = nil
	return first
}
