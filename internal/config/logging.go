package config

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// Console enables human-readable output on stderr.
	Console bool `yaml:"console"`
}

// DefaultLoggingConfig returns sensible defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Console: true}
}
