// Package config handles bulletkit configuration loading and management.
package config

import (
	"fmt"
	"time"
)

// Config holds all settings of one bulletkit run.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
	Camera    CameraConfig    `yaml:"camera"`
	Collision CollisionConfig `yaml:"collision"`
	Run       RunConfig       `yaml:"run"`
	Scene     SceneConfig     `yaml:"scene"`
}

// EngineConfig selects and connects the physics backend.
type EngineConfig struct {
	Backend  string     `yaml:"backend"` // memory or bullet
	Mode     string     `yaml:"mode"`    // direct, gui, shared_memory or tcp
	Host     string     `yaml:"host"`
	Port     int        `yaml:"port"`
	TimeStep float64    `yaml:"time_step"`
	Gravity  [3]float64 `yaml:"gravity"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // console or json
	LogFile string `yaml:"log_file"`
}

// CameraConfig holds the capture camera and frame output settings.
type CameraConfig struct {
	Enabled      bool       `yaml:"enabled"`
	Width        int        `yaml:"width"`
	Height       int        `yaml:"height"`
	FOV          float64    `yaml:"fov"`
	Near         float64    `yaml:"near"`
	Far          float64    `yaml:"far"`
	Position     [3]float64 `yaml:"position"`
	Target       [3]float64 `yaml:"target"`
	OutputDir    string     `yaml:"output_dir"`
	Format       string     `yaml:"format"` // png, tiff or bmp
	Depth        bool       `yaml:"depth"`
	Segmentation bool       `yaml:"segmentation"`
	Label        bool       `yaml:"label"`
	GIF          bool       `yaml:"gif"`
	GIFDelay     int        `yaml:"gif_delay"` // 1/100 s
}

// CollisionConfig holds the distance query settings.
type CollisionConfig struct {
	MaxDistance float64 `yaml:"max_distance"`
	Margin      float64 `yaml:"margin"`
}

// RunConfig controls the simulation loop.
type RunConfig struct {
	Steps        int           `yaml:"steps"`
	CaptureEvery int           `yaml:"capture_every"` // 0 disables capture
	RealTime     bool          `yaml:"real_time"`     // sleep one time step per step
	Timeout      time.Duration `yaml:"timeout"`       // 0 means no limit
	DrawBounds   bool          `yaml:"draw_bounds"`   // wireframe boxes around scene bodies
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Backend:  "memory",
			Mode:     "direct",
			Host:     "localhost",
			Port:     6667,
			TimeStep: 1.0 / 240,
			Gravity:  [3]float64{0, 0, -9.81},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Camera: CameraConfig{
			Width:     320,
			Height:    240,
			FOV:       60,
			Near:      0.1,
			Far:       100,
			Position:  [3]float64{2, -2, 1.5},
			Target:    [3]float64{0, 0, 0.25},
			OutputDir: "frames",
			Format:    "png",
			Label:     true,
			GIFDelay:  4,
		},
		Collision: CollisionConfig{
			MaxDistance: 1.0,
			Margin:      0.01,
		},
		Run: RunConfig{
			Steps:        240,
			CaptureEvery: 24,
		},
	}
}

// Validate checks settings that cannot be caught by the YAML decoder.
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case "memory", "bullet":
	default:
		return fmt.Errorf("engine.backend: unknown backend %q", c.Engine.Backend)
	}
	switch c.Engine.Mode {
	case "direct", "gui", "shared_memory", "tcp":
	default:
		return fmt.Errorf("engine.mode: unknown mode %q", c.Engine.Mode)
	}
	if c.Engine.TimeStep <= 0 {
		return fmt.Errorf("engine.time_step: must be positive, got %g", c.Engine.TimeStep)
	}
	if c.Collision.MaxDistance < 0 {
		return fmt.Errorf("collision.max_distance: must not be negative, got %g", c.Collision.MaxDistance)
	}
	if c.Collision.Margin > c.Collision.MaxDistance {
		return fmt.Errorf("collision.margin %g exceeds max_distance %g", c.Collision.Margin, c.Collision.MaxDistance)
	}
	if c.Run.Steps < 0 || c.Run.CaptureEvery < 0 {
		return fmt.Errorf("run: steps and capture_every must not be negative")
	}
	if c.Camera.Enabled && (c.Camera.Width <= 0 || c.Camera.Height <= 0) {
		return fmt.Errorf("camera: size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	return c.Scene.Validate()
}
