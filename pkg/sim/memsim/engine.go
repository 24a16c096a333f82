// Package memsim is an in-memory kinematic implementation of sim.Engine.
//
// It keeps bodies, joints and shapes in Go maps, integrates velocities
// without forces, answers closest-point queries for primitive shapes and
// ray casts camera images. It backs the tests of every helper package and
// the "memory" backend of the bulletkit command.
package memsim

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// DefaultTimeStep matches the engine's default of 240 Hz.
const DefaultTimeStep = 1.0 / 240.0

// Stats counts engine calls. Tests use it to check caching and that
// queries leave the simulation untouched.
type Stats struct {
	JointInfoCalls     int
	ClosestPointsCalls int
	Mutations          int
	Steps              int
}

// Engine is an in-memory simulation. It is not safe for concurrent use.
type Engine struct {
	log        *zap.Logger
	timeStep   float64
	background sim.Color

	bodies   map[sim.BodyID]*body
	nextBody sim.BodyID

	collisionShapes map[sim.ShapeID]sim.CollisionShape
	visualShapes    map[sim.ShapeID]sim.VisualShape
	nextShape       sim.ShapeID

	debugItems map[sim.DebugItemID]sim.DebugLine
	nextDebug  sim.DebugItemID

	models   map[string]sim.MultiBody
	contacts []sim.ContactPoint
	stats    Stats
	closed   bool
}

type body struct {
	id       sim.BodyID
	name     string
	baseName string
	baseMass float64

	pose           kmath.Pose
	linVel, angVel mgl64.Vec3

	collision sim.ShapeID
	visual    sim.ShapeID
	links     []*link
}

type link struct {
	spec      sim.MultiBodyLink
	jointName string
	linkName  string
	qIndex    int
	uIndex    int

	q, qd  float64
	driven bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeStep sets the integration step in seconds.
func WithTimeStep(dt float64) Option {
	return func(e *Engine) {
		if dt > 0 {
			e.timeStep = dt
		}
	}
}

// WithLogger sets the logger used for engine events.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithBackground sets the color of camera pixels that hit nothing.
func WithBackground(c sim.Color) Option {
	return func(e *Engine) {
		e.background = c
	}
}

// New creates an empty simulation.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:             zap.NewNop(),
		timeStep:        DefaultTimeStep,
		background:      sim.Color{0.7, 0.8, 0.9, 1},
		bodies:          make(map[sim.BodyID]*body),
		collisionShapes: make(map[sim.ShapeID]sim.CollisionShape),
		visualShapes:    make(map[sim.ShapeID]sim.VisualShape),
		debugItems:      make(map[sim.DebugItemID]sim.DebugLine),
		models:          make(map[string]sim.MultiBody),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close disconnects the engine. Every later call fails with
// sim.ErrNotConnected.
func (e *Engine) Close() error {
	e.closed = true
	return nil
}

// Stats returns the call counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// TimeStep returns the integration step in seconds.
func (e *Engine) TimeStep() float64 {
	return e.timeStep
}

// RegisterModel makes LoadURDF(path) create a copy of model. The engine
// does not parse URDF files itself.
func (e *Engine) RegisterModel(path string, model sim.MultiBody) {
	e.models[path] = model
}

func (e *Engine) checkOpen() error {
	if e.closed {
		return sim.ErrNotConnected
	}
	return nil
}

func (e *Engine) body(id sim.BodyID) (*body, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	b, ok := e.bodies[id]
	if !ok {
		return nil, fmt.Errorf("body %d: %w", id, sim.ErrInvalidBody)
	}
	return b, nil
}

func (b *body) link(index sim.LinkIndex) (*link, error) {
	if index < 0 || int(index) >= len(b.links) {
		return nil, fmt.Errorf("link %d of body %d: %w", index, b.id, sim.ErrInvalidLink)
	}
	return b.links[index], nil
}

// sortedIDs returns the live body ids in creation order.
func (e *Engine) sortedIDs() []sim.BodyID {
	ids := make([]sim.BodyID, 0, len(e.bodies))
	for id := range e.bodies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NumBodies returns the number of live bodies.
func (e *Engine) NumBodies() (int, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	return len(e.bodies), nil
}

// BodyID maps a serial index in [0, NumBodies) to a body id.
func (e *Engine) BodyID(serialIndex int) (sim.BodyID, error) {
	if err := e.checkOpen(); err != nil {
		return sim.NoBody, err
	}
	ids := e.sortedIDs()
	if serialIndex < 0 || serialIndex >= len(ids) {
		return sim.NoBody, fmt.Errorf("%w: serial index %d of %d bodies", sim.ErrInvalidArgument, serialIndex, len(ids))
	}
	return ids[serialIndex], nil
}

// BodyInfo returns the body and base names.
func (e *Engine) BodyInfo(id sim.BodyID) (sim.BodyInfo, error) {
	b, err := e.body(id)
	if err != nil {
		return sim.BodyInfo{}, err
	}
	return sim.BodyInfo{BaseName: b.baseName, BodyName: b.name}, nil
}

// NumJoints returns the number of joints, which equals the number of links.
func (e *Engine) NumJoints(id sim.BodyID) (int, error) {
	b, err := e.body(id)
	if err != nil {
		return 0, err
	}
	return len(b.links), nil
}

// JointInfo describes joint i and its child link.
func (e *Engine) JointInfo(id sim.BodyID, joint int) (sim.JointInfo, error) {
	e.stats.JointInfoCalls++
	b, err := e.body(id)
	if err != nil {
		return sim.JointInfo{}, err
	}
	l, err := b.link(sim.LinkIndex(joint))
	if err != nil {
		return sim.JointInfo{}, err
	}
	return sim.JointInfo{
		Index:       joint,
		Name:        l.jointName,
		Type:        l.spec.JointType,
		QIndex:      l.qIndex,
		UIndex:      l.uIndex,
		LinkName:    l.linkName,
		Axis:        l.spec.JointAxis,
		ParentFrame: l.spec.Offset,
		ParentIndex: l.spec.Parent,
		MaxForce:    1000,
		MaxVelocity: 10,
	}, nil
}

// JointStates returns the positions and velocities of the listed joints.
func (e *Engine) JointStates(id sim.BodyID, joints []int) ([]sim.JointState, error) {
	b, err := e.body(id)
	if err != nil {
		return nil, err
	}
	states := make([]sim.JointState, 0, len(joints))
	for _, j := range joints {
		l, err := b.link(sim.LinkIndex(j))
		if err != nil {
			return nil, err
		}
		states = append(states, sim.JointState{Position: l.q, Velocity: l.qd})
	}
	return states, nil
}

// BasePose returns the world pose of the base.
func (e *Engine) BasePose(id sim.BodyID) (kmath.Pose, error) {
	b, err := e.body(id)
	if err != nil {
		return kmath.Pose{}, err
	}
	return b.pose, nil
}

// BaseVelocity returns the world velocity of the base.
func (e *Engine) BaseVelocity(id sim.BodyID) (linear, angular mgl64.Vec3, err error) {
	b, err := e.body(id)
	if err != nil {
		return mgl64.Vec3{}, mgl64.Vec3{}, err
	}
	return b.linVel, b.angVel, nil
}

// DynamicsInfo reports mass and inertia from the link's collision shape.
func (e *Engine) DynamicsInfo(id sim.BodyID, index sim.LinkIndex) (sim.DynamicsInfo, error) {
	b, err := e.body(id)
	if err != nil {
		return sim.DynamicsInfo{}, err
	}
	mass, shape := b.baseMass, b.collision
	if index != sim.BaseLink {
		l, err := b.link(index)
		if err != nil {
			return sim.DynamicsInfo{}, err
		}
		mass, shape = l.spec.Mass, l.spec.CollisionShape
	}

	info := sim.DynamicsInfo{
		Mass:             mass,
		LateralFriction:  0.5,
		LocalInertial:    kmath.IdentityPose(),
		BodyType:         1,
		ContactDamping:   -1,
		ContactStiffness: -1,
	}
	if cs, ok := e.collisionShapes[shape]; ok {
		info.LocalInertiaDiagonal = inertiaDiagonal(cs.Geometry, mass)
	}
	return info, nil
}

func inertiaDiagonal(g sim.Geometry, mass float64) mgl64.Vec3 {
	switch g.Type {
	case sim.ShapeSphere:
		i := 0.4 * mass * g.Radius * g.Radius
		return mgl64.Vec3{i, i, i}
	case sim.ShapeBox:
		h := g.HalfExtents
		return mgl64.Vec3{
			mass / 3 * (h[1]*h[1] + h[2]*h[2]),
			mass / 3 * (h[0]*h[0] + h[2]*h[2]),
			mass / 3 * (h[0]*h[0] + h[1]*h[1]),
		}
	case sim.ShapeCylinder, sim.ShapeCapsule:
		r2, l2 := g.Radius*g.Radius, g.Length*g.Length
		side := mass * (3*r2 + l2) / 12
		return mgl64.Vec3{side, side, mass * r2 / 2}
	}
	return mgl64.Vec3{}
}

// CreateCollisionShape stores a collision geometry.
func (e *Engine) CreateCollisionShape(shape sim.CollisionShape) (sim.ShapeID, error) {
	if err := e.checkOpen(); err != nil {
		return sim.NoShape, err
	}
	if err := shape.Validate(); err != nil {
		return sim.NoShape, err
	}
	if shape.Offset.Orientation == (mgl64.Quat{}) {
		shape.Offset.Orientation = mgl64.QuatIdent()
	}
	id := e.nextShape
	e.nextShape++
	e.collisionShapes[id] = shape
	e.stats.Mutations++
	return id, nil
}

// CreateVisualShape stores a visual geometry.
func (e *Engine) CreateVisualShape(shape sim.VisualShape) (sim.ShapeID, error) {
	if err := e.checkOpen(); err != nil {
		return sim.NoShape, err
	}
	if err := shape.Validate(); err != nil {
		return sim.NoShape, err
	}
	if err := shape.Color.Validate(); err != nil {
		return sim.NoShape, err
	}
	if shape.Offset.Orientation == (mgl64.Quat{}) {
		shape.Offset.Orientation = mgl64.QuatIdent()
	}
	id := e.nextShape
	e.nextShape++
	e.visualShapes[id] = shape
	e.stats.Mutations++
	return id, nil
}

func (e *Engine) checkShape(id sim.ShapeID, visual bool) error {
	if id == sim.NoShape {
		return nil
	}
	var ok bool
	if visual {
		_, ok = e.visualShapes[id]
	} else {
		_, ok = e.collisionShapes[id]
	}
	if !ok {
		return fmt.Errorf("%w: unknown shape %d", sim.ErrInvalidArgument, id)
	}
	return nil
}

// CreateMultiBody creates a body from previously created shapes.
func (e *Engine) CreateMultiBody(spec sim.MultiBody) (sim.BodyID, error) {
	if err := e.checkOpen(); err != nil {
		return sim.NoBody, err
	}
	if err := spec.Validate(); err != nil {
		return sim.NoBody, err
	}
	if err := e.checkShape(spec.CollisionShape, false); err != nil {
		return sim.NoBody, err
	}
	if err := e.checkShape(spec.VisualShape, true); err != nil {
		return sim.NoBody, err
	}

	b := &body{
		id:        e.nextBody,
		name:      spec.Name,
		baseName:  spec.BaseName,
		baseMass:  spec.BaseMass,
		pose:      kmath.NewPose(spec.Pose.Position, spec.Pose.Orientation),
		collision: spec.CollisionShape,
		visual:    spec.VisualShape,
	}
	if b.baseName == "" {
		b.baseName = "base_link"
	}

	q, u := 7, 6
	for i, ls := range spec.Links {
		if err := e.checkShape(ls.CollisionShape, false); err != nil {
			return sim.NoBody, err
		}
		if err := e.checkShape(ls.VisualShape, true); err != nil {
			return sim.NoBody, err
		}
		ls.Offset = kmath.NewPose(ls.Offset.Position, ls.Offset.Orientation)
		l := &link{spec: ls, qIndex: -1, uIndex: -1, jointName: ls.JointName, linkName: ls.Name}
		if l.jointName == "" {
			l.jointName = fmt.Sprintf("joint%d", i)
		}
		if l.linkName == "" {
			l.linkName = fmt.Sprintf("link%d", i)
		}
		if movable(ls.JointType) {
			l.qIndex, l.uIndex = q, u
			q++
			u++
		}
		b.links = append(b.links, l)
	}

	e.bodies[b.id] = b
	e.nextBody++
	e.stats.Mutations++
	e.log.Debug("body created",
		zap.Int("body", int(b.id)),
		zap.String("name", b.name),
		zap.Int("links", len(b.links)))
	return b.id, nil
}

func movable(t sim.JointType) bool {
	return t == sim.JointRevolute || t == sim.JointPrismatic
}

// LoadURDF creates a copy of the model registered under path.
func (e *Engine) LoadURDF(path string, opts sim.URDFOptions) (sim.BodyID, error) {
	if err := e.checkOpen(); err != nil {
		return sim.NoBody, err
	}
	model, ok := e.models[path]
	if !ok {
		return sim.NoBody, fmt.Errorf("urdf %q: %w", path, sim.ErrNotFound)
	}
	model.Links = append([]sim.MultiBodyLink(nil), model.Links...)
	model.Pose = kmath.NewPose(opts.Pose.Position, opts.Pose.Orientation)
	if opts.FixedBase {
		model.BaseMass = 0
	}
	return e.CreateMultiBody(model)
}

// RemoveBody deletes a body with its contacts and attached debug items.
func (e *Engine) RemoveBody(id sim.BodyID) error {
	if _, err := e.body(id); err != nil {
		return err
	}
	delete(e.bodies, id)

	kept := e.contacts[:0]
	for _, c := range e.contacts {
		if !c.Involves(id) {
			kept = append(kept, c)
		}
	}
	e.contacts = kept

	for itemID, item := range e.debugItems {
		if item.ParentBody == id {
			delete(e.debugItems, itemID)
		}
	}
	e.stats.Mutations++
	e.log.Debug("body removed", zap.Int("body", int(id)))
	return nil
}

// ResetBasePose teleports the base.
func (e *Engine) ResetBasePose(id sim.BodyID, pose kmath.Pose) error {
	b, err := e.body(id)
	if err != nil {
		return err
	}
	b.pose = kmath.NewPose(pose.Position, pose.Orientation)
	e.stats.Mutations++
	return nil
}

// ResetBaseVelocity sets the base velocity.
func (e *Engine) ResetBaseVelocity(id sim.BodyID, linear, angular mgl64.Vec3) error {
	b, err := e.body(id)
	if err != nil {
		return err
	}
	b.linVel, b.angVel = linear, angular
	e.stats.Mutations++
	return nil
}

// ResetJointState sets a joint position and zeroes its velocity.
func (e *Engine) ResetJointState(id sim.BodyID, joint int, position float64) error {
	b, err := e.body(id)
	if err != nil {
		return err
	}
	l, err := b.link(sim.LinkIndex(joint))
	if err != nil {
		return err
	}
	l.q, l.qd, l.driven = position, 0, false
	e.stats.Mutations++
	return nil
}

// SetJointVelocities drives the listed joints at constant velocity from
// the next step on. Fixed joints ignore their command.
func (e *Engine) SetJointVelocities(id sim.BodyID, joints []int, velocities []float64) error {
	b, err := e.body(id)
	if err != nil {
		return err
	}
	if len(joints) != len(velocities) {
		return fmt.Errorf("%w: %d joints but %d velocities", sim.ErrInvalidArgument, len(joints), len(velocities))
	}
	for _, j := range joints {
		if _, err := b.link(sim.LinkIndex(j)); err != nil {
			return err
		}
	}
	for i, j := range joints {
		l := b.links[j]
		if !movable(l.spec.JointType) {
			continue
		}
		l.qd, l.driven = velocities[i], true
	}
	e.stats.Mutations++
	return nil
}

// StepSimulation integrates velocities over one time step and then
// recomputes contacts.
func (e *Engine) StepSimulation() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	dt := e.timeStep
	for _, id := range e.sortedIDs() {
		b := e.bodies[id]
		if b.baseMass > 0 {
			b.pose.Position = b.pose.Position.Add(b.linVel.Mul(dt))
			if w := b.angVel.Len(); w > 0 {
				dq := mgl64.QuatRotate(w*dt, b.angVel.Mul(1/w))
				b.pose.Orientation = dq.Mul(b.pose.Orientation).Normalize()
			}
		}
		for _, l := range b.links {
			if l.driven {
				l.q += l.qd * dt
			}
		}
	}
	e.contacts = e.computeContacts()
	e.stats.Steps++
	e.stats.Mutations++
	return nil
}

// ContactPoints reports the contacts found by the last step.
func (e *Engine) ContactPoints(f sim.ContactFilter) ([]sim.ContactPoint, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	var out []sim.ContactPoint
	for _, c := range e.contacts {
		if !f.Matches(c) {
			continue
		}
		// Report the filtered body as body A.
		if (f.BodyA != sim.AnyBody && c.BodyA != f.BodyA) || (f.BodyA == sim.AnyBody && f.BodyB != sim.AnyBody && c.BodyB != f.BodyB) {
			c = c.Swap()
		}
		out = append(out, c)
	}
	return out, nil
}
