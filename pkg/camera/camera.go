// Package camera captures color, depth and segmentation images from the
// engine's off-screen renderer.
package camera

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	kmath "github.com/Faultbox/bulletkit/pkg/math"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// Intrinsics holds the image size and projection parameters.
type Intrinsics struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FOV    float64 `yaml:"fov"`  // vertical field of view in degrees
	Near   float64 `yaml:"near"` // near clip distance
	Far    float64 `yaml:"far"`  // far clip distance
}

// DefaultIntrinsics returns a 1280x720 image with a 60 degree field of view.
func DefaultIntrinsics() Intrinsics {
	return Intrinsics{Width: 1280, Height: 720, FOV: 60, Near: 0.1, Far: 1000}
}

// Validate checks the intrinsics before any engine call.
func (in Intrinsics) Validate() error {
	if in.Width <= 0 || in.Height <= 0 {
		return fmt.Errorf("%w: image size %dx%d", sim.ErrInvalidArgument, in.Width, in.Height)
	}
	if in.FOV <= 0 || in.FOV >= 180 {
		return fmt.Errorf("%w: field of view %g outside (0, 180)", sim.ErrInvalidArgument, in.FOV)
	}
	if in.Near <= 0 || in.Far <= in.Near {
		return fmt.Errorf("%w: clip planes near=%g far=%g", sim.ErrInvalidArgument, in.Near, in.Far)
	}
	return nil
}

// Camera renders the scene from a fixed view. Its only state is its
// configuration; capturing does not change it.
type Camera struct {
	Intrinsics
	View mgl64.Mat4

	engine sim.Renderer
	log    *zap.Logger
}

// Option configures a Camera.
type Option func(*Camera)

// WithLogger sets the logger for capture events.
func WithLogger(log *zap.Logger) Option {
	return func(c *Camera) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a camera with an explicit view matrix.
func New(engine sim.Renderer, in Intrinsics, view mgl64.Mat4, opts ...Option) (*Camera, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c := &Camera{Intrinsics: in, View: view, engine: engine, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromCameraPosition creates a camera at eye looking at target with Z up.
func FromCameraPosition(engine sim.Renderer, eye, target mgl64.Vec3, in Intrinsics, opts ...Option) (*Camera, error) {
	view, err := lookAt(eye, target)
	if err != nil {
		return nil, err
	}
	return New(engine, in, view, opts...)
}

// FromDistanceRPY creates a camera orbiting target. Angles are in degrees.
func FromDistanceRPY(engine sim.Renderer, target mgl64.Vec3, distance, roll, pitch, yaw float64, in Intrinsics, opts ...Option) (*Camera, error) {
	if distance <= 0 {
		return nil, fmt.Errorf("%w: camera distance %g", sim.ErrInvalidArgument, distance)
	}
	view := kmath.ViewFromYawPitchRoll(target, distance, yaw, pitch, roll)
	return New(engine, in, view, opts...)
}

func lookAt(eye, target mgl64.Vec3) (mgl64.Mat4, error) {
	forward := target.Sub(eye)
	if forward.Len() < 1e-9 {
		return mgl64.Mat4{}, fmt.Errorf("%w: camera eye and target coincide at %v", sim.ErrInvalidArgument, eye)
	}
	up := kmath.UnitZ
	if forward.Normalize().Cross(up).Len() < 1e-6 {
		// Looking straight up or down.
		up = kmath.UnitY
	}
	return kmath.LookAt(eye, target, up), nil
}

// SetCameraPose moves the camera to eye, looking at target.
func (c *Camera) SetCameraPose(eye, target mgl64.Vec3) error {
	view, err := lookAt(eye, target)
	if err != nil {
		return err
	}
	c.View = view
	return nil
}

// Eye returns the camera position.
func (c *Camera) Eye() mgl64.Vec3 {
	return kmath.EyeFromView(c.View)
}

// Aspect returns width over height.
func (c *Camera) Aspect() float64 {
	return float64(c.Width) / float64(c.Height)
}

// Projection returns the perspective projection matrix.
func (c *Camera) Projection() mgl64.Mat4 {
	return kmath.PerspectiveFOV(c.FOV, c.Aspect(), c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c *Camera) ViewProjection() mgl64.Mat4 {
	return c.Projection().Mul4(c.View)
}

// FocalLength returns the focal length in pixels.
func (c *Camera) FocalLength() float64 {
	return kmath.FocalLength(c.FOV, c.Height)
}

// PixelRay returns the world ray through the center of pixel (x, y).
func (c *Camera) PixelRay(x, y int) kmath.Ray {
	return kmath.ScreenToRay(float64(x)+0.5, float64(y)+0.5, float64(c.Width), float64(c.Height), c.ViewProjection().Inv())
}

// Capture renders the current simulation state.
func (c *Camera) Capture() (*Frame, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	req := sim.CameraRequest{
		Width:      c.Width,
		Height:     c.Height,
		View:       c.View,
		Projection: c.Projection(),
	}
	raw, err := c.engine.CameraImage(req)
	if err != nil {
		return nil, fmt.Errorf("camera image: %w", err)
	}

	n := c.Width * c.Height
	if raw.Width != c.Width || raw.Height != c.Height || len(raw.RGBA) != n*4 || len(raw.Depth) != n || len(raw.Segmentation) != n {
		return nil, fmt.Errorf("camera image: got %dx%d with %d color bytes, %d depth and %d mask values, want %dx%d",
			raw.Width, raw.Height, len(raw.RGBA), len(raw.Depth), len(raw.Segmentation), c.Width, c.Height)
	}

	color := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	rowSize := c.Width * 4
	for y := 0; y < c.Height; y++ {
		copy(color.Pix[y*color.Stride:y*color.Stride+rowSize], raw.RGBA[y*rowSize:(y+1)*rowSize])
	}

	f := &Frame{
		Width:    c.Width,
		Height:   c.Height,
		Color:    color,
		Depth:    LinearizeDepth(raw.Depth, c.Near, c.Far),
		RawDepth: append([]float32(nil), raw.Depth...),
		Segmentation: Mask{
			Width:  c.Width,
			Height: c.Height,
			Values: append([]int32(nil), raw.Segmentation...),
		},
	}
	c.log.Debug("frame captured", zap.Int("width", c.Width), zap.Int("height", c.Height))
	return f, nil
}

// PointCloud returns the world position of every pixel of f, row by row,
// from its buffer depth. Background pixels land on the far plane.
func (c *Camera) PointCloud(f *Frame) ([]mgl64.Vec3, error) {
	if f.Width != c.Width || f.Height != c.Height || len(f.RawDepth) != f.Width*f.Height {
		return nil, fmt.Errorf("%w: frame %dx%d does not match camera %dx%d",
			sim.ErrInvalidArgument, f.Width, f.Height, c.Width, c.Height)
	}
	inv := c.ViewProjection().Inv()
	points := make([]mgl64.Vec3, 0, len(f.RawDepth))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			ndc := mgl64.Vec3{
				2*(float64(x)+0.5)/float64(f.Width) - 1,
				1 - 2*(float64(y)+0.5)/float64(f.Height),
				2*float64(f.RawDepth[y*f.Width+x]) - 1,
			}
			points = append(points, kmath.Unproject(ndc, inv))
		}
	}
	return points, nil
}

// LinearizeDepth converts buffer depths in [0, 1] to distances along the
// view axis.
func LinearizeDepth(raw []float32, near, far float64) []float32 {
	out := make([]float32, len(raw))
	for i, b := range raw {
		out[i] = float32(far * near / (far - (far-near)*float64(b)))
	}
	return out
}
