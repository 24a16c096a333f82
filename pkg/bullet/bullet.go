// Package bullet connects to the Bullet physics server through its
// physics-client C API and exposes it as a sim.Engine.
//
// The cgo binding is compiled only with the "bullet" build tag and needs
// the BulletRobotics headers and libraries. Without the tag, Open reports
// ErrUnavailable.
package bullet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/bulletkit/pkg/sim"
)

// ErrUnavailable reports a binary built without the bullet build tag.
var ErrUnavailable = errors.New("bullet: not compiled in, rebuild with -tags bullet")

// Mode selects how the client reaches the physics server.
type Mode int

const (
	// ModeDirect runs the server in-process without a window.
	ModeDirect Mode = iota
	// ModeGUI runs the server in-process with the example browser window.
	ModeGUI
	// ModeSharedMemory attaches to a running server over shared memory.
	ModeSharedMemory
	// ModeTCP attaches to a running server over TCP.
	ModeTCP
)

var modeNames = map[Mode]string{
	ModeDirect:       "direct",
	ModeGUI:          "gui",
	ModeSharedMemory: "shared_memory",
	ModeTCP:          "tcp",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a configured connection mode.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if s == name {
			return m, nil
		}
	}
	return ModeDirect, fmt.Errorf("%w: unknown connection mode %q", sim.ErrInvalidArgument, s)
}

// Options configures a connection.
type Options struct {
	Mode            Mode
	Host            string // ModeTCP
	Port            int    // ModeTCP
	SharedMemoryKey int    // ModeSharedMemory, 0 means the server default
	TimeStep        float64
	Gravity         mgl64.Vec3
	Logger          *zap.Logger
}

// DefaultOptions returns a direct connection with earth gravity at 240 Hz.
func DefaultOptions() Options {
	return Options{
		Mode:     ModeDirect,
		Host:     "localhost",
		Port:     6667,
		TimeStep: 1.0 / 240,
		Gravity:  mgl64.Vec3{0, 0, -9.81},
	}
}

// Engine is a connected simulation that must be closed.
type Engine interface {
	sim.Engine
	Close() error
}

// CommandError reports a server status other than the expected one.
type CommandError struct {
	Op     string
	Status int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("bullet: %s failed with status %d", e.Op, e.Status)
}
