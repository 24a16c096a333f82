package ghost

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// DefaultArrowRadius is the shaft radius used when NewArrow gets zero.
const DefaultArrowRadius = 0.01

// NewArrow creates a thin cylinder ghost from start to end. Both points are
// in the parent frame when WithParent is given. A pose passed with WithPose
// is overridden by the arrow placement.
func NewArrow(engine Engine, start, end mgl64.Vec3, radius float64, opts ...Option) (*Ghost, error) {
	pose, length, err := arrowPose(start, end)
	if err != nil {
		return nil, err
	}
	if radius == 0 {
		radius = DefaultArrowRadius
	}
	opts = append(opts[:len(opts):len(opts)], WithPose(pose))
	return New(engine, Cylinder{Radius: radius, Length: length}, opts...)
}

// arrowPose places a Z-aligned cylinder halfway between start and end.
func arrowPose(start, end mgl64.Vec3) (kmath.Pose, float64, error) {
	dir := end.Sub(start)
	length := dir.Len()
	if length < 1e-9 {
		return kmath.Pose{}, 0, fmt.Errorf("%w: arrow from %v to itself", sim.ErrInvalidArgument, start)
	}
	mid := start.Add(end).Mul(0.5)
	return kmath.NewPose(mid, kmath.QuatBetween(kmath.UnitZ, dir)), length, nil
}
