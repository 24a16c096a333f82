//go:build bullet

package bullet

/*
#cgo CFLAGS: -I/usr/local/include/bullet_robotics -I/usr/include/bullet_robotics -I/usr/local/include/bullet -I/usr/include/bullet
#cgo LDFLAGS: -lBulletRobotics -lBulletInverseDynamicsUtils -lBulletInverseDynamics -lBulletWorldImporter -lBulletFileLoader -lBulletSoftBody -lBulletDynamics -lBulletCollision -lLinearMath -lBullet3Common -lm -lstdc++
#include <stdlib.h>
#include "SharedMemory/PhysicsClientC_API.h"
#include "SharedMemory/PhysicsDirectC_API.h"
#include "SharedMemory/SharedMemoryInProcessPhysicsC_API.h"
#include "SharedMemory/PhysicsClientSharedMemory_C_API.h"
#include "SharedMemory/PhysicsClientTCP_C_API.h"
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

const (
	statusStepCompleted      = int(C.CMD_STEP_FORWARD_SIMULATION_COMPLETED)
	statusURDFLoaded         = int(C.CMD_URDF_LOADING_COMPLETED)
	statusStateUpdated       = int(C.CMD_ACTUAL_STATE_UPDATE_COMPLETED)
	statusContactInfo        = int(C.CMD_CONTACT_POINT_INFORMATION_COMPLETED)
	statusCollisionShape     = int(C.CMD_CREATE_COLLISION_SHAPE_COMPLETED)
	statusVisualShape        = int(C.CMD_CREATE_VISUAL_SHAPE_COMPLETED)
	statusMultiBody          = int(C.CMD_CREATE_MULTI_BODY_COMPLETED)
	statusBodyRemoved        = int(C.CMD_REMOVE_BODY_COMPLETED)
	statusDynamicsInfo       = int(C.CMD_GET_DYNAMICS_INFO_COMPLETED)
	statusJacobian           = int(C.CMD_CALCULATED_JACOBIAN_COMPLETED)
	statusDebugDrawCompleted = int(C.CMD_USER_DEBUG_DRAW_COMPLETED)
	statusCameraImage        = int(C.CMD_CAMERA_IMAGE_COMPLETED)
)

// defaultMaxForce bounds the motor force of velocity-controlled joints.
const defaultMaxForce = 1e5

// Client is a connection to one physics server. It implements sim.Engine.
// Calls must come from one goroutine; ModeGUI additionally requires the
// main thread.
type Client struct {
	handle C.b3PhysicsClientHandle
	mode   Mode
	log    *zap.Logger
}

// Open connects with opts and returns the client as an Engine.
func Open(opts Options) (Engine, error) {
	return Connect(opts)
}

// Connect reaches the server selected by opts.Mode and applies the time
// step and gravity.
func Connect(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var h C.b3PhysicsClientHandle
	switch opts.Mode {
	case ModeDirect:
		h = C.b3ConnectPhysicsDirect()
	case ModeGUI:
		h = C.b3CreateInProcessPhysicsServerAndConnectMainThread(0, nil)
	case ModeSharedMemory:
		key := opts.SharedMemoryKey
		if key == 0 {
			key = int(C.SHARED_MEMORY_KEY)
		}
		h = C.b3ConnectSharedMemory(C.int(key))
	case ModeTCP:
		host := C.CString(opts.Host)
		defer C.free(unsafe.Pointer(host))
		h = C.b3ConnectPhysicsTCP(host, C.int(opts.Port))
	default:
		return nil, fmt.Errorf("%w: connection mode %s", sim.ErrInvalidArgument, opts.Mode)
	}
	if h == nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Mode, sim.ErrNotConnected)
	}
	if C.b3CanSubmitCommand(h) == 0 {
		C.b3DisconnectSharedMemory(h)
		return nil, fmt.Errorf("connect %s: %w", opts.Mode, sim.ErrNotConnected)
	}

	c := &Client{handle: h, mode: opts.Mode, log: log}
	cmd := C.b3InitPhysicsParamCommand(h)
	if opts.TimeStep > 0 {
		C.b3PhysicsParamSetTimeStep(cmd, C.double(opts.TimeStep))
	}
	C.b3PhysicsParamSetGravity(cmd, C.double(opts.Gravity[0]), C.double(opts.Gravity[1]), C.double(opts.Gravity[2]))
	if err := c.exec(cmd); err != nil {
		c.Close()
		return nil, err
	}

	log.Info("connected to physics server",
		zap.Stringer("mode", opts.Mode),
		zap.Float64("time_step", opts.TimeStep))
	return c, nil
}

// Close disconnects. Later calls report sim.ErrNotConnected.
func (c *Client) Close() error {
	if c.handle == nil {
		return nil
	}
	C.b3DisconnectSharedMemory(c.handle)
	c.handle = nil
	c.log.Info("disconnected from physics server", zap.Stringer("mode", c.mode))
	return nil
}

// exec submits a command whose status the server does not distinguish.
func (c *Client) exec(cmd C.b3SharedMemoryCommandHandle) error {
	if c.handle == nil || C.b3CanSubmitCommand(c.handle) == 0 {
		return sim.ErrNotConnected
	}
	C.b3SubmitClientCommandAndWaitStatus(c.handle, cmd)
	return nil
}

// submit runs cmd and checks that the server answered with want.
func (c *Client) submit(op string, cmd C.b3SharedMemoryCommandHandle, want int) (C.b3SharedMemoryStatusHandle, error) {
	if c.handle == nil || C.b3CanSubmitCommand(c.handle) == 0 {
		return nil, sim.ErrNotConnected
	}
	status := C.b3SubmitClientCommandAndWaitStatus(c.handle, cmd)
	if got := int(C.b3GetStatusType(status)); got != want {
		return nil, &CommandError{Op: op, Status: got}
	}
	return status, nil
}

func (c *Client) connected() error {
	if c.handle == nil {
		return sim.ErrNotConnected
	}
	return nil
}

func cdoubles(v []float64) *C.double {
	if len(v) == 0 {
		return nil
	}
	return (*C.double)(unsafe.Pointer(&v[0]))
}

func vec3(p *C.double) mgl64.Vec3 {
	s := unsafe.Slice((*float64)(unsafe.Pointer(p)), 3)
	return mgl64.Vec3{s[0], s[1], s[2]}
}

func quat(p *C.double) mgl64.Quat {
	s := unsafe.Slice((*float64)(unsafe.Pointer(p)), 4)
	return kmath.QuatFromXYZW([4]float64{s[0], s[1], s[2], s[3]})
}

func pose(pos, orn *C.double) kmath.Pose {
	return kmath.NewPose(vec3(pos), quat(orn))
}

func xyzw(q mgl64.Quat) [4]float64 {
	return kmath.QuatToXYZW(q.Normalize())
}

// NumBodies returns the number of bodies in the simulation.
func (c *Client) NumBodies() (int, error) {
	if err := c.connected(); err != nil {
		return 0, err
	}
	return int(C.b3GetNumBodies(c.handle)), nil
}

// BodyID maps a serial index to a body id.
func (c *Client) BodyID(serialIndex int) (sim.BodyID, error) {
	n, err := c.NumBodies()
	if err != nil {
		return sim.NoBody, err
	}
	if serialIndex < 0 || serialIndex >= n {
		return sim.NoBody, fmt.Errorf("%w: serial index %d of %d bodies", sim.ErrInvalidArgument, serialIndex, n)
	}
	return sim.BodyID(C.b3GetBodyUniqueId(c.handle, C.int(serialIndex))), nil
}

// BodyInfo returns the base and body names.
func (c *Client) BodyInfo(body sim.BodyID) (sim.BodyInfo, error) {
	if err := c.connected(); err != nil {
		return sim.BodyInfo{}, err
	}
	var info C.struct_b3BodyInfo
	if C.b3GetBodyInfo(c.handle, C.int(body), &info) == 0 {
		return sim.BodyInfo{}, fmt.Errorf("body %d: %w", body, sim.ErrInvalidBody)
	}
	return sim.BodyInfo{
		BaseName: C.GoString(&info.m_baseName[0]),
		BodyName: C.GoString(&info.m_bodyName[0]),
	}, nil
}

// NumJoints returns the number of joints of body.
func (c *Client) NumJoints(body sim.BodyID) (int, error) {
	if err := c.connected(); err != nil {
		return 0, err
	}
	return int(C.b3GetNumJoints(c.handle, C.int(body))), nil
}

// JointInfo returns the description of one joint.
func (c *Client) JointInfo(body sim.BodyID, joint int) (sim.JointInfo, error) {
	if err := c.connected(); err != nil {
		return sim.JointInfo{}, err
	}
	var info C.struct_b3JointInfo
	if C.b3GetJointInfo(c.handle, C.int(body), C.int(joint), &info) == 0 {
		return sim.JointInfo{}, fmt.Errorf("joint %d of body %d: %w", joint, body, sim.ErrInvalidLink)
	}
	return sim.JointInfo{
		Index:       int(info.m_jointIndex),
		Name:        C.GoString(&info.m_jointName[0]),
		Type:        sim.JointType(info.m_jointType),
		QIndex:      int(info.m_qIndex),
		UIndex:      int(info.m_uIndex),
		Flags:       int(info.m_flags),
		Damping:     float64(info.m_jointDamping),
		Friction:    float64(info.m_jointFriction),
		LowerLimit:  float64(info.m_jointLowerLimit),
		UpperLimit:  float64(info.m_jointUpperLimit),
		MaxForce:    float64(info.m_jointMaxForce),
		MaxVelocity: float64(info.m_jointMaxVelocity),
		LinkName:    C.GoString(&info.m_linkName[0]),
		Axis:        vec3(&info.m_jointAxis[0]),
		ParentFrame: pose(&info.m_parentFrame[0], &info.m_parentFrame[3]),
		ParentIndex: sim.LinkIndex(info.m_parentIndex),
	}, nil
}

func (c *Client) actualState(body sim.BodyID, velocity, kinematics bool) (C.b3SharedMemoryStatusHandle, error) {
	if err := c.connected(); err != nil {
		return nil, err
	}
	cmd := C.b3RequestActualStateCommandInit(c.handle, C.int(body))
	if velocity {
		C.b3RequestActualStateCommandComputeLinkVelocity(cmd, 1)
	}
	if kinematics {
		C.b3RequestActualStateCommandComputeForwardKinematics(cmd, 1)
	}
	return c.submit("request actual state", cmd, statusStateUpdated)
}

// JointStates returns the state of the listed joints.
func (c *Client) JointStates(body sim.BodyID, joints []int) ([]sim.JointState, error) {
	status, err := c.actualState(body, false, false)
	if err != nil {
		return nil, err
	}
	states := make([]sim.JointState, len(joints))
	for i, j := range joints {
		var s C.struct_b3JointSensorState
		if C.b3GetJointState(c.handle, status, C.int(j), &s) == 0 {
			return nil, fmt.Errorf("joint %d of body %d: %w", j, body, sim.ErrInvalidLink)
		}
		states[i] = sim.JointState{
			Position:    float64(s.m_jointPosition),
			Velocity:    float64(s.m_jointVelocity),
			MotorTorque: float64(s.m_jointMotorTorque),
		}
		for k := 0; k < 6; k++ {
			states[i].ReactionForces[k] = float64(s.m_jointForceTorque[k])
		}
	}
	return states, nil
}

// LinkState returns the world state of one link.
func (c *Client) LinkState(body sim.BodyID, link sim.LinkIndex, opts sim.LinkStateOptions) (sim.LinkState, error) {
	status, err := c.actualState(body, opts.ComputeVelocity, opts.ComputeForwardKinematics)
	if err != nil {
		return sim.LinkState{}, err
	}
	var s C.struct_b3LinkState
	if C.b3GetLinkState(c.handle, status, C.int(link), &s) == 0 {
		return sim.LinkState{}, fmt.Errorf("link %d of body %d: %w", link, body, sim.ErrInvalidLink)
	}
	state := sim.LinkState{
		WorldCOM:       pose(&s.m_worldPosition[0], &s.m_worldOrientation[0]),
		LocalInertial:  pose(&s.m_localInertialPosition[0], &s.m_localInertialOrientation[0]),
		WorldLinkFrame: pose(&s.m_worldLinkFramePosition[0], &s.m_worldLinkFrameOrientation[0]),
	}
	if opts.ComputeVelocity {
		state.LinearVelocity = vec3(&s.m_worldLinearVelocity[0])
		state.AngularVelocity = vec3(&s.m_worldAngularVelocity[0])
	}
	return state, nil
}

func (c *Client) baseState(body sim.BodyID) (q, qdot []float64, err error) {
	status, err := c.actualState(body, false, false)
	if err != nil {
		return nil, nil, err
	}
	var (
		id, nq, nu                          C.int
		inertial, stateQ, stateQdot, forces *C.double
	)
	C.b3GetStatusActualState(status, &id, &nq, &nu, &inertial, &stateQ, &stateQdot, &forces)
	if int(nq) < 7 || int(nu) < 6 {
		return nil, nil, fmt.Errorf("body %d: %w", body, sim.ErrInvalidBody)
	}
	q = append([]float64(nil), unsafe.Slice((*float64)(unsafe.Pointer(stateQ)), 7)...)
	qdot = append([]float64(nil), unsafe.Slice((*float64)(unsafe.Pointer(stateQdot)), 6)...)
	return q, qdot, nil
}

// BasePose returns the world pose of the base.
func (c *Client) BasePose(body sim.BodyID) (kmath.Pose, error) {
	q, _, err := c.baseState(body)
	if err != nil {
		return kmath.Pose{}, err
	}
	return kmath.NewPose(mgl64.Vec3{q[0], q[1], q[2]}, kmath.QuatFromXYZW([4]float64{q[3], q[4], q[5], q[6]})), nil
}

// BaseVelocity returns the world velocity of the base.
func (c *Client) BaseVelocity(body sim.BodyID) (linear, angular mgl64.Vec3, err error) {
	_, qdot, err := c.baseState(body)
	if err != nil {
		return mgl64.Vec3{}, mgl64.Vec3{}, err
	}
	return mgl64.Vec3{qdot[0], qdot[1], qdot[2]}, mgl64.Vec3{qdot[3], qdot[4], qdot[5]}, nil
}

// DynamicsInfo returns the dynamics parameters of a link.
func (c *Client) DynamicsInfo(body sim.BodyID, link sim.LinkIndex) (sim.DynamicsInfo, error) {
	if err := c.connected(); err != nil {
		return sim.DynamicsInfo{}, err
	}
	cmd := C.b3GetDynamicsInfoCommandInit(c.handle, C.int(body), C.int(link))
	status, err := c.submit("get dynamics info", cmd, statusDynamicsInfo)
	if err != nil {
		return sim.DynamicsInfo{}, err
	}
	var info C.struct_b3DynamicsInfo
	if C.b3GetDynamicsInfo(status, &info) == 0 {
		return sim.DynamicsInfo{}, &CommandError{Op: "get dynamics info", Status: statusDynamicsInfo}
	}
	return sim.DynamicsInfo{
		Mass:                 float64(info.m_mass),
		LateralFriction:      float64(info.m_lateralFrictionCoeff),
		LocalInertiaDiagonal: vec3(&info.m_localInertialDiagonal[0]),
		LocalInertial:        pose(&info.m_localInertialFrame[0], &info.m_localInertialFrame[3]),
		Restitution:          float64(info.m_restitution),
		RollingFriction:      float64(info.m_rollingFrictionCoeff),
		SpinningFriction:     float64(info.m_spinningFrictionCoeff),
		ContactDamping:       float64(info.m_contactDamping),
		ContactStiffness:     float64(info.m_contactStiffness),
		BodyType:             int(info.m_bodyType),
		CollisionMargin:      float64(info.m_collisionMargin),
	}, nil
}

func contactPoints(info *C.struct_b3ContactInformation) []sim.ContactPoint {
	n := int(info.m_numContactPoints)
	if n == 0 {
		return nil
	}
	data := unsafe.Slice(info.m_contactPointData, n)
	points := make([]sim.ContactPoint, n)
	for i := range data {
		d := &data[i]
		points[i] = sim.ContactPoint{
			Flag:                int(d.m_contactFlags),
			BodyA:               sim.BodyID(d.m_bodyUniqueIdA),
			BodyB:               sim.BodyID(d.m_bodyUniqueIdB),
			LinkA:               sim.LinkIndex(d.m_linkIndexA),
			LinkB:               sim.LinkIndex(d.m_linkIndexB),
			PositionOnA:         vec3(&d.m_positionOnAInWS[0]),
			PositionOnB:         vec3(&d.m_positionOnBInWS[0]),
			NormalOnB:           vec3(&d.m_contactNormalOnBInWS[0]),
			Distance:            float64(d.m_contactDistance),
			NormalForce:         float64(d.m_normalForce),
			LateralFriction1:    float64(d.m_linearFrictionForce1),
			LateralFrictionDir1: vec3(&d.m_linearFrictionDirection1[0]),
			LateralFriction2:    float64(d.m_linearFrictionForce2),
			LateralFrictionDir2: vec3(&d.m_linearFrictionDirection2[0]),
		}
	}
	return points
}

// ClosestPoints runs a bounded closest-point query.
func (c *Client) ClosestPoints(q sim.ClosestPointsQuery) ([]sim.ContactPoint, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := c.connected(); err != nil {
		return nil, err
	}
	cmd := C.b3InitClosestDistanceQuery(c.handle)
	C.b3SetClosestDistanceFilterBodyA(cmd, C.int(q.BodyA))
	C.b3SetClosestDistanceFilterBodyB(cmd, C.int(q.BodyB))
	if q.LinkA != sim.AnyLink {
		C.b3SetClosestDistanceFilterLinkA(cmd, C.int(q.LinkA))
	}
	if q.LinkB != sim.AnyLink {
		C.b3SetClosestDistanceFilterLinkB(cmd, C.int(q.LinkB))
	}
	C.b3SetClosestDistanceThreshold(cmd, C.double(q.MaxDistance))
	if _, err := c.submit("closest points", cmd, statusContactInfo); err != nil {
		return nil, err
	}
	var info C.struct_b3ContactInformation
	C.b3GetClosestPointInformation(c.handle, &info)
	return contactPoints(&info), nil
}

// ContactPoints returns the contacts of the last step matching f.
func (c *Client) ContactPoints(f sim.ContactFilter) ([]sim.ContactPoint, error) {
	if err := c.connected(); err != nil {
		return nil, err
	}
	cmd := C.b3InitRequestContactPointInformation(c.handle)
	if f.BodyA != sim.AnyBody {
		C.b3SetContactFilterBodyA(cmd, C.int(f.BodyA))
	}
	if f.BodyB != sim.AnyBody {
		C.b3SetContactFilterBodyB(cmd, C.int(f.BodyB))
	}
	if f.LinkA != sim.AnyLink {
		C.b3SetContactFilterLinkA(cmd, C.int(f.LinkA))
	}
	if f.LinkB != sim.AnyLink {
		C.b3SetContactFilterLinkB(cmd, C.int(f.LinkB))
	}
	if _, err := c.submit("contact points", cmd, statusContactInfo); err != nil {
		return nil, err
	}
	var info C.struct_b3ContactInformation
	C.b3GetContactPointInformation(c.handle, &info)
	return contactPoints(&info), nil
}

// CreateCollisionShape creates a collision shape.
func (c *Client) CreateCollisionShape(shape sim.CollisionShape) (sim.ShapeID, error) {
	g := shape.Geometry
	if err := g.Validate(); err != nil {
		return sim.NoShape, err
	}
	if err := c.connected(); err != nil {
		return sim.NoShape, err
	}
	cmd := C.b3CreateCollisionShapeCommandInit(c.handle)
	var idx C.int
	switch g.Type {
	case sim.ShapeSphere:
		idx = C.b3CreateCollisionShapeAddSphere(cmd, C.double(g.Radius))
	case sim.ShapeBox:
		he := [3]float64(g.HalfExtents)
		idx = C.b3CreateCollisionShapeAddBox(cmd, cdoubles(he[:]))
	case sim.ShapeCylinder:
		idx = C.b3CreateCollisionShapeAddCylinder(cmd, C.double(g.Radius), C.double(g.Length))
	case sim.ShapeCapsule:
		idx = C.b3CreateCollisionShapeAddCapsule(cmd, C.double(g.Radius), C.double(g.Length))
	case sim.ShapePlane:
		n := [3]float64(g.PlaneNormal())
		idx = C.b3CreateCollisionShapeAddPlane(cmd, cdoubles(n[:]), 0)
	case sim.ShapeMesh:
		path := C.CString(g.MeshPath)
		defer C.free(unsafe.Pointer(path))
		scale := [3]float64(g.Scale())
		idx = C.b3CreateCollisionShapeAddMesh(cmd, path, cdoubles(scale[:]))
	}
	pos, orn := childTransform(shape.Offset)
	C.b3CreateCollisionShapeSetChildTransform(cmd, idx, cdoubles(pos[:]), cdoubles(orn[:]))

	status, err := c.submit("create collision shape", cmd, statusCollisionShape)
	if err != nil {
		return sim.NoShape, err
	}
	return sim.ShapeID(C.b3GetStatusCollisionShapeUniqueId(status)), nil
}

// CreateVisualShape creates a visual shape.
func (c *Client) CreateVisualShape(shape sim.VisualShape) (sim.ShapeID, error) {
	g := shape.Geometry
	if err := g.Validate(); err != nil {
		return sim.NoShape, err
	}
	if err := shape.Color.Validate(); err != nil {
		return sim.NoShape, err
	}
	if err := c.connected(); err != nil {
		return sim.NoShape, err
	}
	cmd := C.b3CreateVisualShapeCommandInit(c.handle)
	var idx C.int
	switch g.Type {
	case sim.ShapeSphere:
		idx = C.b3CreateVisualShapeAddSphere(cmd, C.double(g.Radius))
	case sim.ShapeBox:
		he := [3]float64(g.HalfExtents)
		idx = C.b3CreateVisualShapeAddBox(cmd, cdoubles(he[:]))
	case sim.ShapeCylinder:
		idx = C.b3CreateVisualShapeAddCylinder(cmd, C.double(g.Radius), C.double(g.Length))
	case sim.ShapeCapsule:
		idx = C.b3CreateVisualShapeAddCapsule(cmd, C.double(g.Radius), C.double(g.Length))
	case sim.ShapePlane:
		n := [3]float64(g.PlaneNormal())
		idx = C.b3CreateVisualShapeAddPlane(cmd, cdoubles(n[:]), 0)
	case sim.ShapeMesh:
		path := C.CString(g.MeshPath)
		defer C.free(unsafe.Pointer(path))
		scale := [3]float64(g.Scale())
		idx = C.b3CreateVisualShapeAddMesh(cmd, path, cdoubles(scale[:]))
	}
	pos, orn := childTransform(shape.Offset)
	C.b3CreateVisualShapeSetChildTransform(cmd, idx, cdoubles(pos[:]), cdoubles(orn[:]))
	rgba := [4]float64(shape.Color)
	C.b3CreateVisualShapeSetRGBAColor(cmd, idx, cdoubles(rgba[:]))

	status, err := c.submit("create visual shape", cmd, statusVisualShape)
	if err != nil {
		return sim.NoShape, err
	}
	return sim.ShapeID(C.b3GetStatusVisualShapeUniqueId(status)), nil
}

func childTransform(p kmath.Pose) (pos [3]float64, orn [4]float64) {
	p = kmath.NewPose(p.Position, p.Orientation)
	return [3]float64(p.Position), xyzw(p.Orientation)
}

// CreateMultiBody creates a body from shapes. The server does not store
// spec.Name or spec.BaseName.
func (c *Client) CreateMultiBody(spec sim.MultiBody) (sim.BodyID, error) {
	if err := spec.Validate(); err != nil {
		return sim.NoBody, err
	}
	if err := c.connected(); err != nil {
		return sim.NoBody, err
	}
	cmd := C.b3CreateMultiBodyCommandInit(c.handle)
	pos, orn := childTransform(spec.Pose)
	inertialPos := [3]float64{}
	inertialOrn := [4]float64{0, 0, 0, 1}
	C.b3CreateMultiBodyBase(cmd, C.double(spec.BaseMass), C.int(spec.CollisionShape), C.int(spec.VisualShape),
		cdoubles(pos[:]), cdoubles(orn[:]), cdoubles(inertialPos[:]), cdoubles(inertialOrn[:]))

	for _, l := range spec.Links {
		lpos, lorn := childTransform(l.Offset)
		axis := [3]float64(l.JointAxis)
		// Link parents are 1-based here, 0 is the base.
		C.b3CreateMultiBodyLink(cmd, C.double(l.Mass), C.double(l.CollisionShape), C.double(l.VisualShape),
			cdoubles(lpos[:]), cdoubles(lorn[:]), cdoubles(inertialPos[:]), cdoubles(inertialOrn[:]),
			C.int(l.Parent+1), C.int(l.JointType), cdoubles(axis[:]))
	}

	status, err := c.submit("create multi body", cmd, statusMultiBody)
	if err != nil {
		return sim.NoBody, err
	}
	id := sim.BodyID(C.b3GetStatusBodyIndex(status))
	c.log.Debug("body created", zap.Int("body", int(id)), zap.Int("links", len(spec.Links)))
	return id, nil
}

// LoadURDF loads a robot description file.
func (c *Client) LoadURDF(path string, opts sim.URDFOptions) (sim.BodyID, error) {
	if err := c.connected(); err != nil {
		return sim.NoBody, err
	}
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	cmd := C.b3LoadUrdfCommandInit(c.handle, cpath)
	p := kmath.NewPose(opts.Pose.Position, opts.Pose.Orientation)
	o := xyzw(p.Orientation)
	C.b3LoadUrdfCommandSetStartPosition(cmd, C.double(p.Position[0]), C.double(p.Position[1]), C.double(p.Position[2]))
	C.b3LoadUrdfCommandSetStartOrientation(cmd, C.double(o[0]), C.double(o[1]), C.double(o[2]), C.double(o[3]))
	if opts.FixedBase {
		C.b3LoadUrdfCommandSetUseFixedBase(cmd, 1)
	}
	if opts.GlobalScaling > 0 {
		C.b3LoadUrdfCommandSetGlobalScaling(cmd, C.double(opts.GlobalScaling))
	}

	status, err := c.submit("load urdf "+path, cmd, statusURDFLoaded)
	if err != nil {
		return sim.NoBody, err
	}
	id := sim.BodyID(C.b3GetStatusBodyIndex(status))
	c.log.Debug("urdf loaded", zap.String("path", path), zap.Int("body", int(id)))
	return id, nil
}

// RemoveBody deletes a body.
func (c *Client) RemoveBody(body sim.BodyID) error {
	if err := c.connected(); err != nil {
		return err
	}
	_, err := c.submit("remove body", C.b3InitRemoveBodyCommand(c.handle, C.int(body)), statusBodyRemoved)
	return err
}

// ResetBasePose teleports the base.
func (c *Client) ResetBasePose(body sim.BodyID, p kmath.Pose) error {
	if err := c.connected(); err != nil {
		return err
	}
	p = kmath.NewPose(p.Position, p.Orientation)
	o := xyzw(p.Orientation)
	cmd := C.b3CreatePoseCommandInit(c.handle, C.int(body))
	C.b3CreatePoseCommandSetBasePosition(cmd, C.double(p.Position[0]), C.double(p.Position[1]), C.double(p.Position[2]))
	C.b3CreatePoseCommandSetBaseOrientation(cmd, C.double(o[0]), C.double(o[1]), C.double(o[2]), C.double(o[3]))
	return c.exec(cmd)
}

// ResetBaseVelocity overrides the base velocity.
func (c *Client) ResetBaseVelocity(body sim.BodyID, linear, angular mgl64.Vec3) error {
	if err := c.connected(); err != nil {
		return err
	}
	lin, ang := [3]float64(linear), [3]float64(angular)
	cmd := C.b3CreatePoseCommandInit(c.handle, C.int(body))
	C.b3CreatePoseCommandSetBaseLinearVelocity(cmd, cdoubles(lin[:]))
	C.b3CreatePoseCommandSetBaseAngularVelocity(cmd, cdoubles(ang[:]))
	return c.exec(cmd)
}

// ResetJointState teleports one joint and zeroes its velocity.
func (c *Client) ResetJointState(body sim.BodyID, joint int, position float64) error {
	if err := c.connected(); err != nil {
		return err
	}
	cmd := C.b3CreatePoseCommandInit(c.handle, C.int(body))
	C.b3CreatePoseCommandSetJointPosition(c.handle, cmd, C.int(joint), C.double(position))
	C.b3CreatePoseCommandSetJointVelocity(c.handle, cmd, C.int(joint), 0)
	return c.exec(cmd)
}

// SetJointVelocities sets velocity motor targets. Fixed joints are skipped.
func (c *Client) SetJointVelocities(body sim.BodyID, joints []int, velocities []float64) error {
	if len(joints) != len(velocities) {
		return fmt.Errorf("%w: %d joints but %d velocities", sim.ErrInvalidArgument, len(joints), len(velocities))
	}
	if err := c.connected(); err != nil {
		return err
	}
	cmd := C.b3JointControlCommandInit2(c.handle, C.int(body), C.CONTROL_MODE_VELOCITY)
	for i, j := range joints {
		info, err := c.JointInfo(body, j)
		if err != nil {
			return err
		}
		if info.Type == sim.JointFixed {
			continue
		}
		u := C.int(info.UIndex)
		C.b3JointControlSetDesiredVelocity(cmd, u, C.double(velocities[i]))
		C.b3JointControlSetKd(cmd, u, 1)
		C.b3JointControlSetMaximumForce(cmd, u, defaultMaxForce)
	}
	return c.exec(cmd)
}

// CalculateJacobian returns the Jacobian of a point on a link. Floating
// base bodies get six leading base columns.
func (c *Client) CalculateJacobian(body sim.BodyID, link sim.LinkIndex, localPosition mgl64.Vec3, q, qdot, qddot []float64) (sim.Jacobian, error) {
	if len(q) != len(qdot) || len(q) != len(qddot) {
		return sim.Jacobian{}, fmt.Errorf("%w: jacobian needs equal q, qdot and qddot lengths, got %d, %d and %d",
			sim.ErrInvalidArgument, len(q), len(qdot), len(qddot))
	}
	if err := c.connected(); err != nil {
		return sim.Jacobian{}, err
	}
	local := [3]float64(localPosition)
	cmd := C.b3CalculateJacobianCommandInit(c.handle, C.int(body), C.int(link),
		cdoubles(local[:]), cdoubles(q), cdoubles(qdot), cdoubles(qddot))
	status, err := c.submit("calculate jacobian", cmd, statusJacobian)
	if err != nil {
		return sim.Jacobian{}, err
	}

	var dofs C.int
	C.b3GetStatusJacobian(status, &dofs, nil, nil)
	n := int(dofs)
	lin := make([]float64, 3*n)
	ang := make([]float64, 3*n)
	if n > 0 {
		C.b3GetStatusJacobian(status, &dofs, cdoubles(lin), cdoubles(ang))
	}

	jac := sim.Jacobian{Linear: make([][]float64, 3), Angular: make([][]float64, 3)}
	for r := 0; r < 3; r++ {
		jac.Linear[r] = lin[r*n : (r+1)*n]
		jac.Angular[r] = ang[r*n : (r+1)*n]
	}
	return jac, nil
}

// StepSimulation advances the simulation by one time step.
func (c *Client) StepSimulation() error {
	if err := c.connected(); err != nil {
		return err
	}
	_, err := c.submit("step simulation", C.b3InitStepSimulationCommand(c.handle), statusStepCompleted)
	return err
}

// CameraImage renders an off-screen image with the software renderer.
func (c *Client) CameraImage(req sim.CameraRequest) (sim.RawImage, error) {
	if err := req.Validate(); err != nil {
		return sim.RawImage{}, err
	}
	if err := c.connected(); err != nil {
		return sim.RawImage{}, err
	}
	view := kmath.ToFloat32(req.View)
	proj := kmath.ToFloat32(req.Projection)

	cmd := C.b3InitRequestCameraImage(c.handle)
	C.b3RequestCameraImageSetCameraMatrices(cmd, (*C.float)(unsafe.Pointer(&view[0])), (*C.float)(unsafe.Pointer(&proj[0])))
	C.b3RequestCameraImageSetPixelResolution(cmd, C.int(req.Width), C.int(req.Height))
	C.b3RequestCameraImageSetFlags(cmd, C.ER_SEGMENTATION_MASK_OBJECT_AND_LINKINDEX)
	C.b3RequestCameraImageSelectRenderer(cmd, C.ER_TINY_RENDERER)
	if _, err := c.submit("camera image", cmd, statusCameraImage); err != nil {
		return sim.RawImage{}, err
	}

	var data C.struct_b3CameraImageData
	C.b3GetCameraImageData(c.handle, &data)
	w, h := int(data.m_pixelWidth), int(data.m_pixelHeight)
	n := w * h
	img := sim.RawImage{
		Width:        w,
		Height:       h,
		RGBA:         C.GoBytes(unsafe.Pointer(data.m_rgbColorData), C.int(4*n)),
		Depth:        append([]float32(nil), unsafe.Slice((*float32)(unsafe.Pointer(data.m_depthValues)), n)...),
		Segmentation: append([]int32(nil), unsafe.Slice((*int32)(unsafe.Pointer(data.m_segmentationMaskValues)), n)...),
	}
	return img, nil
}

// AddDebugLine draws or replaces a debug line.
func (c *Client) AddDebugLine(line sim.DebugLine) (sim.DebugItemID, error) {
	if err := c.connected(); err != nil {
		return sim.NoDebugItem, err
	}
	from, to := [3]float64(line.From), [3]float64(line.To)
	color := line.Color
	cmd := C.b3InitUserDebugDrawAddLine3D(c.handle, cdoubles(from[:]), cdoubles(to[:]), cdoubles(color[:]),
		C.double(line.Width), C.double(line.LifeTime))
	if line.ParentBody != sim.NoBody {
		link := line.ParentLink
		if link == sim.AnyLink {
			link = sim.BaseLink
		}
		C.b3UserDebugItemSetParentObject(cmd, C.int(line.ParentBody), C.int(link))
	}
	if line.ReplaceID != sim.NoDebugItem {
		C.b3UserDebugItemSetReplaceItemUniqueId(cmd, C.int(line.ReplaceID))
	}
	status, err := c.submit("add debug line", cmd, statusDebugDrawCompleted)
	if err != nil {
		return sim.NoDebugItem, err
	}
	return sim.DebugItemID(C.b3GetDebugItemUniqueId(status)), nil
}

// RemoveDebugItem erases a debug item.
func (c *Client) RemoveDebugItem(id sim.DebugItemID) error {
	if err := c.connected(); err != nil {
		return err
	}
	_, err := c.submit("remove debug item", C.b3InitUserDebugDrawRemove(c.handle, C.int(id)), statusDebugDrawCompleted)
	return err
}

var _ Engine = (*Client)(nil)
