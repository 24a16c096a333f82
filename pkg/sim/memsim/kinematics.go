package memsim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// jointFrame returns the world frame of link i's joint before the joint
// motion is applied. positions overrides the stored joint positions when
// it is not nil; it is indexed by link.
func (b *body) jointFrame(i sim.LinkIndex, positions []float64) kmath.Pose {
	l := b.links[i]
	parent := b.pose
	if l.spec.Parent != sim.BaseLink {
		parent = b.linkFrame(l.spec.Parent, positions)
	}
	return parent.Mul(l.spec.Offset)
}

// linkFrame returns the world frame of link i.
func (b *body) linkFrame(i sim.LinkIndex, positions []float64) kmath.Pose {
	if i == sim.BaseLink {
		return b.pose
	}
	l := b.links[i]
	q := l.q
	if positions != nil {
		q = positions[i]
	}
	return b.jointFrame(i, positions).Mul(jointMotion(l.spec, q))
}

func jointMotion(spec sim.MultiBodyLink, q float64) kmath.Pose {
	switch spec.JointType {
	case sim.JointRevolute:
		return kmath.NewPose(mgl64.Vec3{}, mgl64.QuatRotate(q, spec.JointAxis.Normalize()))
	case sim.JointPrismatic:
		return kmath.At(spec.JointAxis.Normalize().Mul(q))
	}
	return kmath.IdentityPose()
}

// chain lists link i and its ancestors, nearest first.
func (b *body) chain(i sim.LinkIndex) []sim.LinkIndex {
	var out []sim.LinkIndex
	for i != sim.BaseLink {
		out = append(out, i)
		i = b.links[i].spec.Parent
	}
	return out
}

// pointVelocity returns the world velocity of a point rigidly attached to
// link i, from the base velocity and the joint velocities.
func (b *body) pointVelocity(i sim.LinkIndex, p mgl64.Vec3) (linear, angular mgl64.Vec3) {
	linear = b.linVel.Add(b.angVel.Cross(p.Sub(b.pose.Position)))
	angular = b.angVel
	for _, j := range b.chain(i) {
		l := b.links[j]
		if l.qd == 0 {
			continue
		}
		frame := b.jointFrame(j, nil)
		axis := frame.TransformDirection(l.spec.JointAxis.Normalize())
		switch l.spec.JointType {
		case sim.JointRevolute:
			w := axis.Mul(l.qd)
			angular = angular.Add(w)
			linear = linear.Add(w.Cross(p.Sub(frame.Position)))
		case sim.JointPrismatic:
			linear = linear.Add(axis.Mul(l.qd))
		}
	}
	return linear, angular
}

// LinkState returns the world state of a link. The center of mass of
// every link coincides with its link frame.
func (e *Engine) LinkState(id sim.BodyID, index sim.LinkIndex, opts sim.LinkStateOptions) (sim.LinkState, error) {
	b, err := e.body(id)
	if err != nil {
		return sim.LinkState{}, err
	}
	if _, err := b.link(index); err != nil {
		return sim.LinkState{}, err
	}

	frame := b.linkFrame(index, nil)
	state := sim.LinkState{
		WorldCOM:       frame,
		LocalInertial:  kmath.IdentityPose(),
		WorldLinkFrame: frame,
	}
	if opts.ComputeVelocity {
		state.LinearVelocity, state.AngularVelocity = b.pointVelocity(index, frame.Position)
	}
	return state, nil
}

// dofs returns the movable joints of b in index order.
func (b *body) dofs() []sim.LinkIndex {
	var out []sim.LinkIndex
	for i, l := range b.links {
		if movable(l.spec.JointType) {
			out = append(out, sim.LinkIndex(i))
		}
	}
	return out
}

// CalculateJacobian returns the 6 x n Jacobian of a point on a link for
// the joint positions q, where n is the number of movable joints. The base
// is treated as fixed, so no base columns are reported.
func (e *Engine) CalculateJacobian(id sim.BodyID, index sim.LinkIndex, localPosition mgl64.Vec3, q, qdot, qddot []float64) (sim.Jacobian, error) {
	b, err := e.body(id)
	if err != nil {
		return sim.Jacobian{}, err
	}
	if _, err := b.link(index); err != nil {
		return sim.Jacobian{}, err
	}
	dofs := b.dofs()
	n := len(dofs)
	if len(q) != n || len(qdot) != n || len(qddot) != n {
		return sim.Jacobian{}, fmt.Errorf("%w: jacobian needs %d joint values, got %d, %d and %d",
			sim.ErrInvalidArgument, n, len(q), len(qdot), len(qddot))
	}

	positions := make([]float64, len(b.links))
	for i, l := range b.links {
		positions[i] = l.q
	}
	column := make(map[sim.LinkIndex]int, n)
	for c, j := range dofs {
		positions[j] = q[c]
		column[j] = c
	}

	jac := sim.Jacobian{
		Linear:  [][]float64{make([]float64, n), make([]float64, n), make([]float64, n)},
		Angular: [][]float64{make([]float64, n), make([]float64, n), make([]float64, n)},
	}
	p := b.linkFrame(index, positions).TransformPoint(localPosition)
	for _, j := range b.chain(index) {
		c, ok := column[j]
		if !ok {
			continue
		}
		l := b.links[j]
		frame := b.jointFrame(j, positions)
		axis := frame.TransformDirection(l.spec.JointAxis.Normalize())

		var lin, ang mgl64.Vec3
		if l.spec.JointType == sim.JointRevolute {
			lin, ang = axis.Cross(p.Sub(frame.Position)), axis
		} else {
			lin = axis
		}
		for r := 0; r < 3; r++ {
			jac.Linear[r][c] = lin[r]
			jac.Angular[r][c] = ang[r]
		}
	}
	return jac, nil
}
