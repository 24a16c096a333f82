// Package robot wraps a velocity-controlled multi-body robot.
package robot

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// Engine is the part of the engine API a robot uses.
type Engine interface {
	sim.Introspector
	sim.Commander
}

// Robot drives every joint of one body. Joint vectors passed to and
// returned from its methods are indexed by joint index.
type Robot struct {
	engine Engine
	log    *zap.Logger

	body    sim.BodyID
	joints  []sim.JointInfo
	indices []int
	movable []int // positions in indices of revolute and prismatic joints
	tool    sim.LinkIndex
}

type options struct {
	log *zap.Logger
}

// Option configures a Robot.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// New wraps body. The tool link is the child link of the joint named
// toolJointName, or of the last joint when the name is empty.
func New(engine Engine, body sim.BodyID, toolJointName string, opts ...Option) (*Robot, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	joints, err := sim.Joints(engine, body)
	if err != nil {
		return nil, err
	}
	if len(joints) == 0 {
		return nil, fmt.Errorf("%w: body %d has no joints", sim.ErrInvalidArgument, body)
	}

	r := &Robot{engine: engine, log: o.log, body: body, joints: joints}
	for i, j := range joints {
		r.indices = append(r.indices, j.Index)
		if j.Type == sim.JointRevolute || j.Type == sim.JointPrismatic {
			r.movable = append(r.movable, i)
		}
	}

	r.tool = sim.LinkIndex(joints[len(joints)-1].Index)
	if toolJointName != "" {
		idx, err := sim.JointIndexByName(engine, body, toolJointName)
		if err != nil {
			return nil, fmt.Errorf("tool joint: %w", err)
		}
		r.tool = sim.LinkIndex(idx)
	}

	r.log.Debug("robot wrapped",
		zap.Int("body", int(body)),
		zap.Int("joints", len(joints)),
		zap.Int("movable", len(r.movable)),
		zap.Int("tool", int(r.tool)))
	return r, nil
}

// Body returns the robot's body handle.
func (r *Robot) Body() sim.BodyID { return r.body }

// NumJoints returns the number of joints, fixed ones included.
func (r *Robot) NumJoints() int { return len(r.indices) }

// NumMovable returns the number of revolute and prismatic joints, which is
// the column count of the Jacobian.
func (r *Robot) NumMovable() int { return len(r.movable) }

// Tool returns the tool link index.
func (r *Robot) Tool() sim.LinkIndex { return r.tool }

// JointNames returns the joint names in index order.
func (r *Robot) JointNames() []string {
	names := make([]string, len(r.joints))
	for i, j := range r.joints {
		names[i] = j.Name
	}
	return names
}

// JointStates returns the joint positions q and velocities v.
func (r *Robot) JointStates() (q, v []float64, err error) {
	states, err := r.engine.JointStates(r.body, r.indices)
	if err != nil {
		return nil, nil, err
	}
	q = make([]float64, len(states))
	v = make([]float64, len(states))
	for i, s := range states {
		q[i], v[i] = s.Position, s.Velocity
	}
	return q, v, nil
}

// ResetJointConfiguration teleports the joints to q, overriding dynamics.
func (r *Robot) ResetJointConfiguration(q []float64) error {
	if err := r.checkLen("configuration", q); err != nil {
		return err
	}
	for i, idx := range r.indices {
		if err := r.engine.ResetJointState(r.body, idx, q[i]); err != nil {
			return fmt.Errorf("reset joint %d: %w", idx, err)
		}
	}
	return nil
}

// CommandVelocity sets joint velocity targets for the following steps.
func (r *Robot) CommandVelocity(u []float64) error {
	if err := r.checkLen("velocity command", u); err != nil {
		return err
	}
	return r.engine.SetJointVelocities(r.body, r.indices, u)
}

// LinkPose returns the world pose of a link frame. BaseLink is accepted.
func (r *Robot) LinkPose(link sim.LinkIndex) (kmath.Pose, error) {
	if link == sim.BaseLink {
		return r.engine.BasePose(r.body)
	}
	state, err := r.engine.LinkState(r.body, link, sim.LinkStateOptions{ComputeForwardKinematics: true})
	if err != nil {
		return kmath.Pose{}, err
	}
	return state.WorldLinkFrame, nil
}

// ToolPose returns the world pose of the tool link.
func (r *Robot) ToolPose() (kmath.Pose, error) { return r.LinkPose(r.tool) }

// LinkVelocity returns the world linear and angular velocity of a link.
func (r *Robot) LinkVelocity(link sim.LinkIndex) (linear, angular mgl64.Vec3, err error) {
	if link == sim.BaseLink {
		return r.engine.BaseVelocity(r.body)
	}
	state, err := r.engine.LinkState(r.body, link, sim.LinkStateOptions{
		ComputeVelocity:          true,
		ComputeForwardKinematics: true,
	})
	if err != nil {
		return mgl64.Vec3{}, mgl64.Vec3{}, err
	}
	return state.LinearVelocity, state.AngularVelocity, nil
}

// ToolVelocity returns the world velocity of the tool link.
func (r *Robot) ToolVelocity() (linear, angular mgl64.Vec3, err error) {
	return r.LinkVelocity(r.tool)
}

// Jacobian returns the 6 x n Jacobian of the point at offset from the
// link's joint origin, linear rows first, with one column per movable
// joint. A nil q uses the current configuration; otherwise q is a full
// joint vector.
//
// The point is taken about the joint origin, while LinkPose reports the
// link frame. Pass the center-of-mass offset to differentiate the COM.
func (r *Robot) Jacobian(q []float64, link sim.LinkIndex, offset mgl64.Vec3) ([][]float64, error) {
	if q == nil {
		current, _, err := r.JointStates()
		if err != nil {
			return nil, err
		}
		q = current
	}
	if err := r.checkLen("configuration", q); err != nil {
		return nil, err
	}

	qm := make([]float64, len(r.movable))
	for c, i := range r.movable {
		qm[c] = q[i]
	}
	zero := make([]float64, len(qm))
	jac, err := r.engine.CalculateJacobian(r.body, link, offset, qm, zero, zero)
	if err != nil {
		return nil, err
	}
	return jac.Rows(), nil
}

// ToolJacobian is Jacobian for the tool link.
func (r *Robot) ToolJacobian(q []float64, offset mgl64.Vec3) ([][]float64, error) {
	return r.Jacobian(q, r.tool, offset)
}

func (r *Robot) checkLen(what string, v []float64) error {
	if len(v) != len(r.indices) {
		return fmt.Errorf("%w: %s has %d values for %d joints", sim.ErrInvalidArgument, what, len(v), len(r.indices))
	}
	return nil
}
