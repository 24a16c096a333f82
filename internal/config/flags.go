package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagBackend = flag.String("backend", "", "Physics backend: memory or bullet")
	flagSteps   = flag.Int("steps", -1, "Number of simulation steps")
	flagOut     = flag.String("out", "", "Frame output directory; enables the camera")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagBackend != "" {
		cfg.Engine.Backend = *flagBackend
	}
	if *flagSteps >= 0 {
		cfg.Run.Steps = *flagSteps
	}
	if *flagOut != "" {
		cfg.Camera.OutputDir = *flagOut
		cfg.Camera.Enabled = true
	}
}
