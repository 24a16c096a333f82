package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/bulletkit/internal/config"
	"github.com/Faultbox/bulletkit/pkg/bullet"
	"github.com/Faultbox/bulletkit/pkg/sim"
	"github.com/Faultbox/bulletkit/pkg/sim/memsim"
)

// Engine is a simulation backend owned by the command.
type Engine interface {
	sim.Engine
	Close() error
}

// OpenEngine connects the backend selected by cfg.
func OpenEngine(cfg config.EngineConfig, log *zap.Logger) (Engine, error) {
	switch cfg.Backend {
	case "memory":
		if cfg.Gravity != ([3]float64{}) {
			log.Debug("memory backend ignores gravity", zap.Float64s("gravity", cfg.Gravity[:]))
		}
		return memsim.New(
			memsim.WithTimeStep(cfg.TimeStep),
			memsim.WithLogger(log.Named("memsim")),
		), nil

	case "bullet":
		mode, err := bullet.ParseMode(cfg.Mode)
		if err != nil {
			return nil, err
		}
		opts := bullet.DefaultOptions()
		opts.Mode = mode
		opts.Host = cfg.Host
		opts.Port = cfg.Port
		opts.TimeStep = cfg.TimeStep
		opts.Gravity = mgl64.Vec3(cfg.Gravity)
		opts.Logger = log.Named("bullet")
		e, err := bullet.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("opening bullet %s: %w", mode, err)
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", sim.ErrInvalidArgument, cfg.Backend)
}
