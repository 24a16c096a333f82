package scene

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/bulletkit/pkg/sim"
)

// StepReport describes one simulation step.
type StepReport struct {
	Step        int
	Time        float64
	InCollision bool
	Distances   []float64 // one per configured pair, in pair order
	Frame       string    // path of the recorded frame, empty when none
}

// Summary describes a finished run.
type Summary struct {
	Steps          int
	CollisionSteps int
	MinDistance    float64 // +Inf without pairs
	Frames         int
	Elapsed        time.Duration
	Interrupted    bool
}

// Step advances the simulation once, moves attached markers, checks the
// collision pairs and captures a frame when one is due.
func (s *Scene) Step() (StepReport, error) {
	if err := s.engine.StepSimulation(); err != nil {
		return StepReport{}, fmt.Errorf("step %d: %w", s.step+1, err)
	}
	s.step++
	report := StepReport{Step: s.step, Time: s.Time()}

	for _, g := range s.ghosts {
		if parent, _ := g.Parent(); parent == sim.NoBody {
			continue
		}
		if err := g.Update(); err != nil {
			return report, fmt.Errorf("ghost %d: %w", g.Body(), err)
		}
	}
	for _, d := range s.robots {
		if d.tool == nil {
			continue
		}
		pose, err := d.robot.ToolPose()
		if err != nil {
			return report, fmt.Errorf("robot %q: %w", d.name, err)
		}
		if err := d.tool.Update(pose); err != nil {
			return report, fmt.Errorf("robot %q tool frame: %w", d.name, err)
		}
	}
	for _, b := range s.bounds {
		if b.body.Spec().Mass == 0 {
			continue
		}
		if err := b.draw(); err != nil {
			return report, fmt.Errorf("bounds of body %d: %w", b.body.ID(), err)
		}
	}

	if s.pairs != nil {
		cc := s.cfg.Collision
		hit, err := s.pairs.InCollision(cc.Margin, cc.MaxDistance)
		if err != nil {
			return report, err
		}
		report.InCollision = hit
		for _, p := range s.pairs.Pairs() {
			d, _ := s.pairs.LastDistance(p)
			report.Distances = append(report.Distances, d)
		}
		if hit != s.colliding {
			s.colliding = hit
			msg := "collision cleared"
			if hit {
				msg = "collision detected"
			}
			s.log.Info(msg, zap.Int("step", s.step), zap.Float64s("distances", report.Distances))
		}
	}

	if s.camera != nil && s.cfg.Run.CaptureEvery > 0 && s.step%s.cfg.Run.CaptureEvery == 0 {
		f, err := s.camera.Capture()
		if err != nil {
			return report, err
		}
		path, err := s.recorder.Record(f, fmt.Sprintf("step %d  t=%.3fs", s.step, report.Time))
		if err != nil {
			return report, fmt.Errorf("recording step %d: %w", s.step, err)
		}
		report.Frame = path
	}
	return report, nil
}

// Run takes the configured number of steps. Cancelling ctx or reaching
// the configured timeout stops the run early without an error.
func (s *Scene) Run(ctx context.Context) (Summary, error) {
	rc := s.cfg.Run
	if rc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.Timeout)
		defer cancel()
	}

	var tick <-chan time.Time
	if rc.RealTime {
		ticker := time.NewTicker(time.Duration(s.cfg.Engine.TimeStep * float64(time.Second)))
		defer ticker.Stop()
		tick = ticker.C
	}

	start := time.Now()
	sum := Summary{MinDistance: math.Inf(1)}
	s.log.Info("starting simulation", zap.Int("steps", rc.Steps), zap.Bool("real_time", rc.RealTime))

	for sum.Steps < rc.Steps {
		if tick != nil {
			select {
			case <-ctx.Done():
			case <-tick:
			}
		}
		if ctx.Err() != nil {
			sum.Interrupted = true
			s.log.Warn("simulation stopped early", zap.Int("step", s.step), zap.Error(ctx.Err()))
			break
		}

		report, err := s.Step()
		if err != nil {
			sum.Elapsed = time.Since(start)
			return sum, err
		}
		sum.Steps++
		if report.InCollision {
			sum.CollisionSteps++
		}
		for _, d := range report.Distances {
			sum.MinDistance = math.Min(sum.MinDistance, d)
		}
		if report.Frame != "" {
			sum.Frames++
		}
	}

	sum.Elapsed = time.Since(start)
	s.log.Info("simulation finished",
		zap.Int("steps", sum.Steps),
		zap.Int("collision_steps", sum.CollisionSteps),
		zap.Int("frames", sum.Frames),
		zap.Duration("elapsed", sum.Elapsed))
	return sum, nil
}
