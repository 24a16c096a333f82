package sim

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentEncoding(t *testing.T) {
	tests := []struct {
		body BodyID
		link LinkIndex
	}{
		{0, BaseLink},
		{3, BaseLink},
		{7, 0},
		{12, 5},
	}

	for _, tt := range tests {
		v := EncodeSegment(tt.body, tt.link)
		body, link, ok := DecodeSegment(v)
		require.True(t, ok)
		assert.Equal(t, tt.body, body)
		assert.Equal(t, tt.link, link)
	}

	_, _, ok := DecodeSegment(-1)
	assert.False(t, ok, "negative mask value should decode as no body")
}

func TestContactPointSwap(t *testing.T) {
	c := ContactPoint{
		BodyA: 1, BodyB: 2, LinkA: BaseLink, LinkB: 4,
		PositionOnA: mgl64.Vec3{1, 0, 0},
		PositionOnB: mgl64.Vec3{2, 0, 0},
		NormalOnB:   mgl64.Vec3{-1, 0, 0},
		Distance:    1,
	}
	s := c.Swap()

	assert.Equal(t, BodyID(2), s.BodyA)
	assert.Equal(t, LinkIndex(4), s.LinkA)
	assert.Equal(t, c.PositionOnB, s.PositionOnA)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, s.NormalOnB)
	assert.Equal(t, c.Distance, s.Distance)
	assert.Equal(t, c, s.Swap())
}

func TestContactFilterMatches(t *testing.T) {
	c := ContactPoint{BodyA: 1, BodyB: 2, LinkA: BaseLink, LinkB: 3}

	assert.True(t, AllContacts().Matches(c))
	assert.True(t, ContactsOf(2).Matches(c), "filter should match either body order")
	assert.False(t, ContactsOf(5).Matches(c))

	f := AllContacts()
	f.BodyA, f.LinkA = 2, 3
	assert.True(t, f.Matches(c))
	f.LinkA = 0
	assert.False(t, f.Matches(c))
}

func TestGeometryValidate(t *testing.T) {
	tests := []struct {
		name    string
		geom    Geometry
		wantErr bool
	}{
		{"sphere", SphereGeometry(0.1), false},
		{"zero sphere", SphereGeometry(0), true},
		{"box", BoxGeometry(mgl64.Vec3{1, 2, 3}), false},
		{"flat box", BoxGeometry(mgl64.Vec3{1, 0, 3}), true},
		{"cylinder", CylinderGeometry(0.1, 1), false},
		{"capsule without length", CapsuleGeometry(0.1, 0), true},
		{"mesh without file", Geometry{Type: ShapeMesh}, true},
		{"plane", PlaneGeometry(mgl64.Vec3{}), false},
		{"unknown", Geometry{Type: 42}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geom.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidArgument))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseShapeType(t *testing.T) {
	st, err := ParseShapeType(" Box ")
	require.NoError(t, err)
	assert.Equal(t, ShapeBox, st)
	assert.Equal(t, "box", st.String())

	_, err = ParseShapeType("torus")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMultiBodyValidate(t *testing.T) {
	mb := MultiBody{
		BaseMass: 1,
		Links: []MultiBodyLink{
			{Parent: BaseLink, JointType: JointRevolute, JointAxis: mgl64.Vec3{0, 0, 1}},
			{Parent: 0, JointType: JointFixed},
		},
	}
	require.NoError(t, mb.Validate())

	mb.Links[1].Parent = 1
	assert.ErrorIs(t, mb.Validate(), ErrInvalidArgument, "a link cannot be its own parent")

	mb.Links[1].Parent = 0
	mb.Links[0].JointAxis = mgl64.Vec3{}
	assert.ErrorIs(t, mb.Validate(), ErrInvalidArgument, "revolute joints need an axis")
}

func TestMinDistance(t *testing.T) {
	assert.Equal(t, 0.5, MinDistance(nil, 0.5))

	points := []ContactPoint{{Distance: 0.3}, {Distance: -0.1}, {Distance: 0.2}}
	assert.Equal(t, -0.1, MinDistance(points, 0.5))
	assert.Equal(t, 0.05, MinDistance([]ContactPoint{{Distance: 0.4}}, 0.05))
}

func TestClosestPointsQueryValidate(t *testing.T) {
	assert.NoError(t, NewClosestPointsQuery(0, 1, 0.1).Validate())
	assert.ErrorIs(t, NewClosestPointsQuery(0, 1, -1).Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, NewClosestPointsQuery(AnyBody, 1, 1).Validate(), ErrInvalidArgument)
}
