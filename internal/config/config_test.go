package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/bulletkit/pkg/sim"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Engine.Backend != "memory" {
		t.Errorf("expected backend memory, got %s", cfg.Engine.Backend)
	}
	if cfg.Engine.TimeStep != 1.0/240 {
		t.Errorf("expected time step 1/240, got %g", cfg.Engine.TimeStep)
	}
	if cfg.Camera.Width != 320 || cfg.Camera.Height != 240 {
		t.Errorf("expected camera 320x240, got %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Camera.Enabled {
		t.Error("expected camera to be disabled by default")
	}
	if cfg.Collision.MaxDistance != 1.0 {
		t.Errorf("expected max distance 1, got %g", cfg.Collision.MaxDistance)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

const sceneYAML = `
engine:
  backend: memory
  time_step: 0.01

logging:
  level: debug
  log_file: run.log

camera:
  enabled: true
  width: 64
  height: 48
  format: tiff

collision:
  max_distance: 0.5
  margin: 0.02

run:
  steps: 10
  capture_every: 5

scene:
  bodies:
    - name: floor
      shape: {type: plane}
    - name: ball
      shape: {type: sphere, radius: 0.1}
      mass: 1
      pose: {position: [0, 0, 0.5], rpy: [0, 0, 90]}
      color: [1, 0, 0, 1]
  pairs:
    - a: {body: ball}
      b: {body: floor, link: none}
  ghosts:
    - name: target
      shape: {type: box, half_extents: [0.05, 0.05, 0.05]}
      parent: {body: ball}
  arrows:
    - start: [0, 0, 0]
      end: [1, 1, 1]
  frames:
    - pose: {position: [0, 0, 0]}
      axis_length: 0.3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sceneYAML))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Engine.TimeStep != 0.01 {
		t.Errorf("expected time step 0.01, got %g", cfg.Engine.TimeStep)
	}
	if cfg.Engine.Mode != "direct" {
		t.Errorf("expected default mode to survive, got %s", cfg.Engine.Mode)
	}
	if cfg.Logging.LogFile != "run.log" {
		t.Errorf("expected log file run.log, got %s", cfg.Logging.LogFile)
	}
	if cfg.Camera.Width != 64 || cfg.Camera.Format != "tiff" {
		t.Errorf("camera not loaded: %+v", cfg.Camera)
	}
	if cfg.Camera.FOV != 60 {
		t.Errorf("expected default fov 60, got %g", cfg.Camera.FOV)
	}
	if cfg.Run.Steps != 10 || cfg.Run.CaptureEvery != 5 {
		t.Errorf("run not loaded: %+v", cfg.Run)
	}

	if len(cfg.Scene.Bodies) != 2 {
		t.Fatalf("expected 2 bodies, got %d", len(cfg.Scene.Bodies))
	}
	ball := cfg.Scene.Bodies[1]
	g, err := ball.Shape.Geometry()
	if err != nil {
		t.Fatalf("ball geometry: %v", err)
	}
	if g.Type != sim.ShapeSphere || g.Radius != 0.1 {
		t.Errorf("unexpected ball geometry %+v", g)
	}
	pose := ball.Pose.Pose()
	if pose.Position.Z() != 0.5 {
		t.Errorf("expected ball at z 0.5, got %v", pose.Position)
	}
	if x := pose.Orientation.Rotate([3]float64{1, 0, 0}); x.Y() < 0.999 {
		t.Errorf("expected 90 degree yaw, x axis is %v", x)
	}

	if len(cfg.Scene.Pairs) != 1 || cfg.Scene.Pairs[0].B.Link != "none" {
		t.Errorf("pairs not loaded: %+v", cfg.Scene.Pairs)
	}
	if p := cfg.Scene.Ghosts[0].Parent; p == nil || p.Body != "ball" {
		t.Errorf("ghost parent not loaded: %+v", cfg.Scene.Ghosts[0])
	}
	if cfg.Scene.Frames[0].AxisLength != 0.3 {
		t.Errorf("frame not loaded: %+v", cfg.Scene.Frames[0])
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "run:\n  steps: not a number\n  invalid syntax here\n", ""},
		{"unknown key", "run:\n  stepz: 3\n", "stepz"},
		{"unknown backend", "engine:\n  backend: ode\n", "backend"},
		{"margin above max", "collision:\n  max_distance: 0.1\n  margin: 0.2\n", "margin"},
		{"bad shape", "scene:\n  bodies:\n    - name: a\n      shape: {type: sphere}\n", "radius"},
		{"duplicate body", "scene:\n  bodies:\n    - {name: a, urdf: a.urdf}\n    - {name: a, urdf: b.urdf}\n", "duplicate"},
		{"degenerate arrow", "scene:\n  arrows:\n    - {start: [1, 1, 1], end: [1, 1, 1]}\n", "arrows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("empty file should keep defaults: %v", err)
	}
	if cfg.Run.Steps != Default().Run.Steps {
		t.Errorf("expected default steps, got %d", cfg.Run.Steps)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/bulletkit.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte("run:\n  steps: 1\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Errorf("expected to find %s in current directory", FileName)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "backend flag",
			setup: func() { *flagBackend = "bullet" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Engine.Backend != "bullet" {
					t.Errorf("expected backend bullet, got %s", cfg.Engine.Backend)
				}
			},
			teardown: func() { *flagBackend = "" },
		},
		{
			name:  "steps flag",
			setup: func() { *flagSteps = 0 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Run.Steps != 0 {
					t.Errorf("expected 0 steps, got %d", cfg.Run.Steps)
				}
			},
			teardown: func() { *flagSteps = -1 },
		},
		{
			name:  "out flag",
			setup: func() { *flagOut = "/tmp/frames" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Camera.OutputDir != "/tmp/frames" || !cfg.Camera.Enabled {
					t.Errorf("expected camera enabled into /tmp/frames, got %+v", cfg.Camera)
				}
			},
			teardown: func() { *flagOut = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	path := writeConfig(t, "run:\n  steps: 100\n  capture_every: 7\n")

	*flagConfig = path
	*flagSteps = 3
	defer func() {
		*flagConfig = ""
		*flagSteps = -1
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Run.Steps != 3 {
		t.Errorf("expected steps 3 from flag, got %d", cfg.Run.Steps)
	}
	if cfg.Run.CaptureEvery != 7 {
		t.Errorf("expected capture_every 7 from file, got %d", cfg.Run.CaptureEvery)
	}
}

func TestSaveTo(t *testing.T) {
	cfg := Default()
	cfg.Run.Steps = 42
	cfg.Scene.Bodies = []BodyConfig{{Name: "ball", Shape: ShapeConfig{Type: "sphere", Radius: 0.2}, Mass: 1}}

	path := filepath.Join(t.TempDir(), "nested", FileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if loaded.Run.Steps != 42 || len(loaded.Scene.Bodies) != 1 {
		t.Errorf("saved config did not round trip: %+v", loaded.Run)
	}
}

func TestLoadExample(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("..", "..", "bulletkit.example.yaml"))
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if len(cfg.Scene.Bodies) != 3 || len(cfg.Scene.Pairs) != 2 {
		t.Errorf("unexpected example scene: %d bodies, %d pairs", len(cfg.Scene.Bodies), len(cfg.Scene.Pairs))
	}
}
