// Package sim defines the procedural physics-engine API the helpers are
// written against, plus the records the engine reports.
//
// Every call is synchronous and observes the simulation state at the
// moment the engine processes it. Implementations are not safe for
// concurrent use: one goroutine drives one simulation.
package sim

import (
	"github.com/go-gl/mathgl/mgl64"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
)

// BodyID is an engine-assigned handle for one simulated body.
type BodyID int

// LinkIndex identifies one link within a multi-body.
type LinkIndex int

// ShapeID is an engine-assigned handle for a collision or visual shape.
type ShapeID int

// DebugItemID is an engine-assigned handle for a debug drawing.
type DebugItemID int

const (
	// BaseLink is the reserved link index of a body's base.
	BaseLink LinkIndex = -1

	// AnyLink matches every link in query filters.
	AnyLink LinkIndex = -2

	// AnyBody matches every body in query filters.
	AnyBody BodyID = -1

	// NoBody marks an unset parent body.
	NoBody BodyID = -1

	// NoShape creates a body without a collision or visual shape.
	NoShape ShapeID = -1

	// NoDebugItem marks a debug item that has not been drawn.
	NoDebugItem DebugItemID = -1
)

// Introspector reads body and joint metadata and kinematic state.
type Introspector interface {
	NumBodies() (int, error)
	BodyID(serialIndex int) (BodyID, error)
	BodyInfo(body BodyID) (BodyInfo, error)
	NumJoints(body BodyID) (int, error)
	JointInfo(body BodyID, joint int) (JointInfo, error)
	JointStates(body BodyID, joints []int) ([]JointState, error)
	LinkState(body BodyID, link LinkIndex, opts LinkStateOptions) (LinkState, error)
	BasePose(body BodyID) (kmath.Pose, error)
	BaseVelocity(body BodyID) (linear, angular mgl64.Vec3, err error)
	DynamicsInfo(body BodyID, link LinkIndex) (DynamicsInfo, error)
}

// Querier runs collision queries against the current simulation state.
type Querier interface {
	// ClosestPoints reports the closest points between two bodies that are
	// at most q.MaxDistance apart. Pairs farther apart report nothing.
	ClosestPoints(q ClosestPointsQuery) ([]ContactPoint, error)

	// ContactPoints reports contacts computed by the last simulation step.
	ContactPoints(f ContactFilter) ([]ContactPoint, error)
}

// Commander creates, moves and removes bodies and advances the simulation.
type Commander interface {
	CreateCollisionShape(shape CollisionShape) (ShapeID, error)
	CreateVisualShape(shape VisualShape) (ShapeID, error)
	CreateMultiBody(spec MultiBody) (BodyID, error)
	LoadURDF(path string, opts URDFOptions) (BodyID, error)
	RemoveBody(body BodyID) error

	ResetBasePose(body BodyID, pose kmath.Pose) error
	ResetBaseVelocity(body BodyID, linear, angular mgl64.Vec3) error
	ResetJointState(body BodyID, joint int, position float64) error
	SetJointVelocities(body BodyID, joints []int, velocities []float64) error
	CalculateJacobian(body BodyID, link LinkIndex, localPosition mgl64.Vec3, q, qdot, qddot []float64) (Jacobian, error)

	StepSimulation() error
}

// Renderer produces off-screen camera images.
type Renderer interface {
	CameraImage(req CameraRequest) (RawImage, error)
}

// DebugDrawer adds and removes debug visualization items.
type DebugDrawer interface {
	// AddDebugLine draws a line. When line.ReplaceID is set, the existing
	// item is moved in place and keeps its id.
	AddDebugLine(line DebugLine) (DebugItemID, error)
	RemoveDebugItem(id DebugItemID) error
}

// Engine is the full procedural API of one connected simulation.
type Engine interface {
	Introspector
	Querier
	Commander
	Renderer
	DebugDrawer
}
