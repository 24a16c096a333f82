package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
)

// BodyInfo holds the names the engine reports for a body.
type BodyInfo struct {
	BaseName string // Name of the base link
	BodyName string // Name of the body (robot name for URDFs)
}

// JointType is the kind of joint connecting a link to its parent.
type JointType int

// Joint types, numbered as the engine reports them.
const (
	JointRevolute  JointType = 0
	JointPrismatic JointType = 1
	JointSpherical JointType = 2
	JointPlanar    JointType = 3
	JointFixed     JointType = 4
)

func (t JointType) String() string {
	switch t {
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	case JointSpherical:
		return "spherical"
	case JointPlanar:
		return "planar"
	case JointFixed:
		return "fixed"
	default:
		return fmt.Sprintf("JointType(%d)", int(t))
	}
}

// JointInfo describes joint i of a body and its child link.
// The child link of joint i has link index i.
type JointInfo struct {
	Index       int
	Name        string
	Type        JointType
	QIndex      int
	UIndex      int
	Flags       int
	Damping     float64
	Friction    float64
	LowerLimit  float64
	UpperLimit  float64
	MaxForce    float64
	MaxVelocity float64
	LinkName    string
	Axis        mgl64.Vec3
	ParentFrame kmath.Pose
	ParentIndex LinkIndex
}

// JointState is the current position and velocity of a joint.
type JointState struct {
	Position       float64
	Velocity       float64
	ReactionForces [6]float64
	MotorTorque    float64
}

// LinkStateOptions selects the optional parts of a link state query.
type LinkStateOptions struct {
	ComputeVelocity          bool
	ComputeForwardKinematics bool
}

// LinkState is the world state of one link.
type LinkState struct {
	// WorldCOM is the pose of the link's center of mass.
	WorldCOM kmath.Pose
	// LocalInertial is the inertial frame relative to the link frame.
	LocalInertial kmath.Pose
	// WorldLinkFrame is the pose of the link frame (joint origin).
	WorldLinkFrame kmath.Pose

	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

// DynamicsInfo holds the dynamics parameters of a link.
type DynamicsInfo struct {
	Mass                 float64
	LateralFriction      float64
	LocalInertiaDiagonal mgl64.Vec3
	LocalInertial        kmath.Pose
	Restitution          float64
	RollingFriction      float64
	SpinningFriction     float64
	ContactDamping       float64
	ContactStiffness     float64
	BodyType             int
	CollisionMargin      float64
}

// ContactPoint is one contact or closest point between two bodies.
type ContactPoint struct {
	Flag                int
	BodyA               BodyID
	BodyB               BodyID
	LinkA               LinkIndex
	LinkB               LinkIndex
	PositionOnA         mgl64.Vec3
	PositionOnB         mgl64.Vec3
	NormalOnB           mgl64.Vec3
	Distance            float64 // Negative when penetrating
	NormalForce         float64
	LateralFriction1    float64
	LateralFrictionDir1 mgl64.Vec3
	LateralFriction2    float64
	LateralFrictionDir2 mgl64.Vec3
}

// Swap returns the same contact seen from body B.
func (c ContactPoint) Swap() ContactPoint {
	c.BodyA, c.BodyB = c.BodyB, c.BodyA
	c.LinkA, c.LinkB = c.LinkB, c.LinkA
	c.PositionOnA, c.PositionOnB = c.PositionOnB, c.PositionOnA
	c.NormalOnB = c.NormalOnB.Mul(-1)
	return c
}

// Involves reports whether the contact touches body.
func (c ContactPoint) Involves(body BodyID) bool {
	return c.BodyA == body || c.BodyB == body
}

// ClosestPointsQuery selects the shapes of a closest-point query.
type ClosestPointsQuery struct {
	BodyA       BodyID
	BodyB       BodyID
	LinkA       LinkIndex // AnyLink for every link of BodyA
	LinkB       LinkIndex // AnyLink for every link of BodyB
	MaxDistance float64
}

// NewClosestPointsQuery queries every link pair of two bodies.
func NewClosestPointsQuery(a, b BodyID, maxDistance float64) ClosestPointsQuery {
	return ClosestPointsQuery{BodyA: a, BodyB: b, LinkA: AnyLink, LinkB: AnyLink, MaxDistance: maxDistance}
}

// Validate checks the query before it is sent to the engine.
func (q ClosestPointsQuery) Validate() error {
	if q.BodyA < 0 || q.BodyB < 0 {
		return fmt.Errorf("%w: closest points need two bodies, got %d and %d", ErrInvalidArgument, q.BodyA, q.BodyB)
	}
	if q.MaxDistance < 0 {
		return fmt.Errorf("%w: negative max distance %g", ErrInvalidArgument, q.MaxDistance)
	}
	return nil
}

// ContactFilter restricts a contact point query.
type ContactFilter struct {
	BodyA BodyID
	BodyB BodyID
	LinkA LinkIndex
	LinkB LinkIndex
}

// AllContacts matches every contact in the simulation.
func AllContacts() ContactFilter {
	return ContactFilter{BodyA: AnyBody, BodyB: AnyBody, LinkA: AnyLink, LinkB: AnyLink}
}

// ContactsOf matches contacts involving body.
func ContactsOf(body BodyID) ContactFilter {
	f := AllContacts()
	f.BodyA = body
	return f
}

// Matches reports whether c passes the filter in either body order.
func (f ContactFilter) Matches(c ContactPoint) bool {
	return f.matchOrdered(c) || f.matchOrdered(c.Swap())
}

func (f ContactFilter) matchOrdered(c ContactPoint) bool {
	if f.BodyA != AnyBody && c.BodyA != f.BodyA {
		return false
	}
	if f.BodyB != AnyBody && c.BodyB != f.BodyB {
		return false
	}
	if f.LinkA != AnyLink && c.LinkA != f.LinkA {
		return false
	}
	if f.LinkB != AnyLink && c.LinkB != f.LinkB {
		return false
	}
	return true
}

// URDFOptions controls how a URDF file is loaded.
type URDFOptions struct {
	Pose          kmath.Pose
	FixedBase     bool
	GlobalScaling float64 // 0 means 1
}

// MultiBodyLink is one link attached below the base of a MultiBody.
type MultiBodyLink struct {
	Name           string
	JointName      string
	Mass           float64
	CollisionShape ShapeID
	VisualShape    ShapeID
	Parent         LinkIndex // BaseLink or an earlier link
	Offset         kmath.Pose
	JointType      JointType
	JointAxis      mgl64.Vec3
}

// MultiBody describes a body created from shapes.
type MultiBody struct {
	Name           string // reported as BodyInfo.BodyName
	BaseName       string // reported as BodyInfo.BaseName
	BaseMass       float64
	CollisionShape ShapeID
	VisualShape    ShapeID
	Pose           kmath.Pose
	Links          []MultiBodyLink
}

// Validate checks the link tree before the engine call.
func (m MultiBody) Validate() error {
	if m.BaseMass < 0 {
		return fmt.Errorf("%w: negative base mass %g", ErrInvalidArgument, m.BaseMass)
	}
	for i, l := range m.Links {
		if l.Parent < BaseLink || int(l.Parent) >= i {
			return fmt.Errorf("%w: link %d has parent %d, want base or an earlier link", ErrInvalidArgument, i, l.Parent)
		}
		if l.Mass < 0 {
			return fmt.Errorf("%w: link %d has negative mass %g", ErrInvalidArgument, i, l.Mass)
		}
		if (l.JointType == JointRevolute || l.JointType == JointPrismatic) && l.JointAxis.Len() == 0 {
			return fmt.Errorf("%w: link %d joint axis is zero", ErrInvalidArgument, i)
		}
	}
	return nil
}

// Jacobian holds the linear and angular parts of a 6 x n Jacobian.
type Jacobian struct {
	Linear  [][]float64 // 3 rows of n columns
	Angular [][]float64 // 3 rows of n columns
}

// Rows returns the stacked 6 x n matrix, linear rows first.
func (j Jacobian) Rows() [][]float64 {
	rows := make([][]float64, 0, 6)
	rows = append(rows, j.Linear...)
	return append(rows, j.Angular...)
}

// DebugLine is a line segment drawn by the engine's debug visualizer.
type DebugLine struct {
	From      mgl64.Vec3
	To        mgl64.Vec3
	Color     [3]float64
	Width     float64
	LifeTime  float64     // 0 keeps the line until removed
	ReplaceID DebugItemID // NoDebugItem to add a new item

	// Endpoints are expressed in this link's frame when ParentBody is set.
	ParentBody BodyID
	ParentLink LinkIndex
}

// NewDebugLine returns a world-frame line with unit width.
func NewDebugLine(from, to mgl64.Vec3, color [3]float64) DebugLine {
	return DebugLine{
		From:       from,
		To:         to,
		Color:      color,
		Width:      1,
		ReplaceID:  NoDebugItem,
		ParentBody: NoBody,
		ParentLink: BaseLink,
	}
}

// CameraRequest asks the engine for an off-screen image.
type CameraRequest struct {
	Width      int
	Height     int
	View       mgl64.Mat4
	Projection mgl64.Mat4
}

// Validate checks the request dimensions.
func (r CameraRequest) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: image size %dx%d", ErrInvalidArgument, r.Width, r.Height)
	}
	return nil
}

// RawImage is the engine's image buffer.
type RawImage struct {
	Width  int
	Height int
	// RGBA holds Width*Height*4 bytes, rows top to bottom.
	RGBA []byte
	// Depth holds non-linear depth buffer values in [0, 1].
	Depth []float32
	// Segmentation holds EncodeSegment values, -1 where no body is visible.
	Segmentation []int32
}

const segmentLinkShift = 24

// EncodeSegment packs a body and link into a segmentation mask value.
func EncodeSegment(body BodyID, link LinkIndex) int32 {
	return int32(body) + int32(link+1)<<segmentLinkShift
}

// DecodeSegment unpacks a segmentation mask value. ok is false for
// pixels that show no body.
func DecodeSegment(v int32) (body BodyID, link LinkIndex, ok bool) {
	if v < 0 {
		return NoBody, BaseLink, false
	}
	body = BodyID(v & (1<<segmentLinkShift - 1))
	link = LinkIndex(v>>segmentLinkShift) - 1
	return body, link, true
}
