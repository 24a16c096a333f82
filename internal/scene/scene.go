// Package scene builds a configured simulation scene and steps it,
// checking collision pairs and recording camera frames along the way.
package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/bulletkit/internal/config"
	"github.com/Faultbox/bulletkit/pkg/body"
	"github.com/Faultbox/bulletkit/pkg/camera"
	"github.com/Faultbox/bulletkit/pkg/collision"
	"github.com/Faultbox/bulletkit/pkg/debug"
	"github.com/Faultbox/bulletkit/pkg/ghost"
	"github.com/Faultbox/bulletkit/pkg/robot"
	"github.com/Faultbox/bulletkit/pkg/sim"
)

// Scene owns everything one run creates in the engine.
type Scene struct {
	cfg    *config.Config
	engine sim.Engine
	log    *zap.Logger

	resolver *collision.Resolver
	names    []string
	bodies   map[string]sim.BodyID
	prims    []*body.Body

	robots []*driven
	ghosts []*ghost.Ghost
	frames []*debug.Frame
	bounds []*bounds

	pairs    *collision.PairDetector
	camera   *camera.Camera
	recorder *camera.Recorder

	step      int
	colliding bool
}

// driven is a robot with its optional tool frame.
type driven struct {
	name  string
	robot *robot.Robot
	tool  *debug.Frame
}

// bounds is a wireframe box following a primitive body.
type bounds struct {
	body *body.Body
	box  *debug.Box
}

// Build creates the bodies, robots, markers, pairs and camera of cfg in
// engine. The engine stays owned by the caller. When Build fails, whatever
// it created so far is removed from the engine again.
func Build(engine sim.Engine, cfg *config.Config, log *zap.Logger) (_ *Scene, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Scene.Validate(); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	s := &Scene{
		cfg:      cfg,
		engine:   engine,
		log:      log,
		resolver: collision.NewResolver(engine, collision.WithLogger(log.Named("resolver"))),
		bodies:   make(map[string]sim.BodyID, len(cfg.Scene.Bodies)),
	}
	defer func() {
		if err != nil {
			if cerr := s.discard(); cerr != nil {
				log.Warn("partial scene not fully removed", zap.Error(cerr))
			}
		}
	}()

	for _, bc := range cfg.Scene.Bodies {
		if err := s.addBody(bc); err != nil {
			return nil, fmt.Errorf("body %q: %w", bc.Name, err)
		}
	}
	for _, rc := range cfg.Scene.Robots {
		if err := s.addRobot(rc); err != nil {
			return nil, fmt.Errorf("robot %q: %w", rc.Body, err)
		}
	}
	for i, gc := range cfg.Scene.Ghosts {
		if err := s.addGhost(gc); err != nil {
			return nil, fmt.Errorf("ghost %d: %w", i, err)
		}
	}
	for i, ac := range cfg.Scene.Arrows {
		if err := s.addArrow(ac); err != nil {
			return nil, fmt.Errorf("arrow %d: %w", i, err)
		}
	}
	for i, fc := range cfg.Scene.Frames {
		if err := s.addFrame(fc); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	if cfg.Run.DrawBounds {
		if err := s.addBounds(); err != nil {
			return nil, fmt.Errorf("bounds: %w", err)
		}
	}

	if len(cfg.Scene.Pairs) > 0 {
		pairs, err := collision.NewPairDetectorByName(engine, s.resolver, cfg.Scene.Pairs,
			collision.WithLogger(log.Named("collision")))
		if err != nil {
			return nil, fmt.Errorf("pairs: %w", err)
		}
		s.pairs = pairs
	}

	if cfg.Camera.Enabled {
		if err := s.setupCamera(); err != nil {
			return nil, fmt.Errorf("camera: %w", err)
		}
	}

	log.Info("scene built",
		zap.Int("bodies", len(s.names)),
		zap.Int("robots", len(s.robots)),
		zap.Int("ghosts", len(s.ghosts)),
		zap.Int("frames", len(s.frames)),
		zap.Int("pairs", len(cfg.Scene.Pairs)),
		zap.Bool("camera", s.camera != nil))
	return s, nil
}

func (s *Scene) addBody(bc config.BodyConfig) error {
	var id sim.BodyID
	if bc.URDF != "" {
		var err error
		id, err = s.engine.LoadURDF(bc.URDF, sim.URDFOptions{Pose: bc.Pose.Pose(), FixedBase: bc.FixedBase})
		if err != nil {
			return err
		}
	} else {
		g, err := bc.Shape.Geometry()
		if err != nil {
			return err
		}
		b, err := body.New(s.engine, body.Spec{
			Name:     bc.Name,
			Geometry: g,
			Mass:     bc.Mass,
			Pose:     bc.Pose.Pose(),
			Color:    config.Color(bc.Color, body.DefaultColor),
		}, body.WithLogger(s.log.Named("body")))
		if err != nil {
			return err
		}
		s.prims = append(s.prims, b)
		id = b.ID()
	}

	s.resolver.Register(bc.Name, id)
	s.bodies[bc.Name] = id
	s.names = append(s.names, bc.Name)

	if bc.Velocity != ([3]float64{}) {
		return s.engine.ResetBaseVelocity(id, mgl64.Vec3(bc.Velocity), mgl64.Vec3{})
	}
	return nil
}

func (s *Scene) addRobot(rc config.RobotConfig) error {
	id, ok := s.bodies[rc.Body]
	if !ok {
		return fmt.Errorf("body %q: %w", rc.Body, sim.ErrNotFound)
	}
	r, err := robot.New(s.engine, id, rc.ToolJoint, robot.WithLogger(s.log.Named("robot")))
	if err != nil {
		return err
	}
	if len(rc.Initial) > 0 {
		if err := r.ResetJointConfiguration(rc.Initial); err != nil {
			return fmt.Errorf("initial configuration: %w", err)
		}
	}
	d := &driven{name: rc.Body, robot: r}
	s.robots = append(s.robots, d)
	if len(rc.Velocity) > 0 {
		if err := r.CommandVelocity(rc.Velocity); err != nil {
			return fmt.Errorf("velocity: %w", err)
		}
	}
	if rc.ShowTool {
		pose, err := r.ToolPose()
		if err != nil {
			return err
		}
		d.tool, err = debug.NewFrame(s.engine, debug.WithLogger(s.log.Named("debug")))
		if err != nil {
			return err
		}
		if _, err := d.tool.Draw(pose); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scene) addGhost(gc config.GhostConfig) error {
	g, err := gc.Shape.Geometry()
	if err != nil {
		return err
	}
	shape, err := ghost.ShapeFromGeometry(g)
	if err != nil {
		return err
	}
	opts := []ghost.Option{
		ghost.WithPose(gc.Pose.Pose()),
		ghost.WithColor(config.Color(gc.Color, ghost.DefaultColor)),
		ghost.WithLogger(s.log.Named("ghost")),
	}
	if gc.Parent != nil {
		parent, err := s.resolver.Resolve(*gc.Parent)
		if err != nil {
			return err
		}
		opts = append(opts, ghost.WithParent(parent.Body, parent.Link))
	}
	gh, err := ghost.New(s.engine, shape, opts...)
	if err != nil {
		return err
	}
	s.ghosts = append(s.ghosts, gh)
	return nil
}

func (s *Scene) addArrow(ac config.ArrowConfig) error {
	radius := ac.Radius
	if radius == 0 {
		radius = ghost.DefaultArrowRadius
	}
	a, err := ghost.NewArrow(s.engine, mgl64.Vec3(ac.Start), mgl64.Vec3(ac.End), radius,
		ghost.WithColor(config.Color(ac.Color, ghost.DefaultColor)),
		ghost.WithLogger(s.log.Named("ghost")))
	if err != nil {
		return err
	}
	s.ghosts = append(s.ghosts, a)
	return nil
}

func (s *Scene) addFrame(fc config.FrameConfig) error {
	opts := []debug.Option{debug.WithLogger(s.log.Named("debug"))}
	if fc.AxisLength > 0 {
		opts = append(opts, debug.WithAxisLength(fc.AxisLength))
	}
	if fc.LineWidth > 0 {
		opts = append(opts, debug.WithLineWidth(fc.LineWidth))
	}
	if fc.Parent != nil {
		parent, err := s.resolver.Resolve(*fc.Parent)
		if err != nil {
			return err
		}
		opts = append(opts, debug.WithParent(parent.Body, parent.Link))
	}
	f, err := debug.NewFrame(s.engine, opts...)
	if err != nil {
		return err
	}
	s.frames = append(s.frames, f)
	_, err = f.Draw(fc.Pose.Pose())
	return err
}

func (s *Scene) addBounds() error {
	for _, b := range s.prims {
		if b.Spec().Geometry.Type == sim.ShapePlane {
			continue
		}
		box, err := debug.NewBox(s.engine, debug.WithColor([3]float64{1, 1, 0}), debug.WithLogger(s.log.Named("debug")))
		if err != nil {
			return err
		}
		bb := &bounds{body: b, box: box}
		s.bounds = append(s.bounds, bb)
		if err := bb.draw(); err != nil {
			return err
		}
	}
	return nil
}

func (b *bounds) draw() error {
	pose, err := b.body.Pose()
	if err != nil {
		return err
	}
	return b.box.Draw(b.body.Spec().Geometry.Bounds(), pose)
}

func (s *Scene) setupCamera() error {
	cc := s.cfg.Camera
	format, err := camera.ParseFormat(cc.Format)
	if err != nil {
		return err
	}
	in := camera.Intrinsics{Width: cc.Width, Height: cc.Height, FOV: cc.FOV, Near: cc.Near, Far: cc.Far}
	cam, err := camera.FromCameraPosition(s.engine, mgl64.Vec3(cc.Position), mgl64.Vec3(cc.Target), in,
		camera.WithLogger(s.log.Named("camera")))
	if err != nil {
		return err
	}
	rec, err := camera.NewRecorder(cc.OutputDir, cc.Near, cc.Far, camera.RecorderOptions{
		Format:        format,
		Depth:         cc.Depth,
		Segmentation:  cc.Segmentation,
		Label:         cc.Label,
		GIF:           cc.GIF,
		GIFDelay:      cc.GIFDelay,
		SkipUnchanged: true,
	}, s.log.Named("recorder"))
	if err != nil {
		return err
	}
	s.camera, s.recorder = cam, rec
	return nil
}

// discard removes the debug items, ghosts and bodies created so far.
func (s *Scene) discard() error {
	var errs []error
	for _, d := range s.robots {
		if d.tool != nil {
			errs = append(errs, d.tool.Remove())
		}
	}
	for _, f := range s.frames {
		errs = append(errs, f.Remove())
	}
	for _, b := range s.bounds {
		errs = append(errs, b.box.Remove())
	}
	for _, g := range s.ghosts {
		errs = append(errs, g.Remove())
	}
	for _, name := range s.names {
		errs = append(errs, s.engine.RemoveBody(s.bodies[name]))
	}
	return errors.Join(errs...)
}

// Body returns the handle of a configured body.
func (s *Scene) Body(name string) (sim.BodyID, bool) {
	id, ok := s.bodies[name]
	return id, ok
}

// BodyNames returns the configured body names in order.
func (s *Scene) BodyNames() []string {
	return append([]string(nil), s.names...)
}

// Robot returns the robot driving the named body.
func (s *Scene) Robot(name string) (*robot.Robot, bool) {
	for _, d := range s.robots {
		if d.name == name {
			return d.robot, true
		}
	}
	return nil, false
}

// Ghosts returns the ghosts and arrows in creation order.
func (s *Scene) Ghosts() []*ghost.Ghost {
	return append([]*ghost.Ghost(nil), s.ghosts...)
}

// Recorder returns the frame recorder, nil when the camera is disabled.
func (s *Scene) Recorder() *camera.Recorder {
	return s.recorder
}

// Time returns the simulated time of the steps taken so far.
func (s *Scene) Time() float64 {
	return float64(s.step) * s.cfg.Engine.TimeStep
}

// Close writes pending recorder output and removes the debug items the
// scene drew.
func (s *Scene) Close() error {
	var errs []error
	for _, d := range s.robots {
		if d.tool != nil {
			errs = append(errs, d.tool.Remove())
		}
	}
	for _, f := range s.frames {
		errs = append(errs, f.Remove())
	}
	for _, b := range s.bounds {
		errs = append(errs, b.box.Remove())
	}
	if s.recorder != nil {
		errs = append(errs, s.recorder.Close())
	}
	return errors.Join(errs...)
}

