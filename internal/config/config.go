package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default evaluation windows, in milliseconds. They match the windows
// the debugger uses when no configuration file is present.
const (
	DefaultEvalTimeoutMS    = 5000
	DefaultAbortGraceMS     = 5000
	DefaultRuntimeName      = "coreclr"
	DefaultRuntimesFileName = "runtimes.yaml"
)

// Config is the root configuration for mrdbg.
type Config struct {
	Eval    EvalConfig    `toml:"eval"`
	Logging LoggingConfig `toml:"logging"`
	Runtime RuntimeConfig `toml:"runtime"`
}

// EvalConfig controls the function evaluation windows.
type EvalConfig struct {
	// TimeoutMS bounds how long an evaluation may run before the abort
	// escalation begins.
	TimeoutMS int `toml:"timeout_ms"`

	// AbortGraceMS bounds how long an abort may take to complete before
	// the process is declared unrecoverable.
	AbortGraceMS int `toml:"abort_grace_ms"`
}

// Timeout returns the primary evaluation window as a duration.
func (e EvalConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// AbortGrace returns the abort grace window as a duration.
func (e EvalConfig) AbortGrace() time.Duration {
	return time.Duration(e.AbortGraceMS) * time.Millisecond
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the minimum level to emit ("debug", "info", "warn", "error").
	Level string `toml:"level"`

	// Format selects the handler ("text" or "json").
	Format string `toml:"format"`
}

// RuntimeConfig selects the managed runtime profile.
type RuntimeConfig struct {
	// Name is the runtime profile to select from the registry.
	Name string `toml:"name"`

	// Registry is the path to the YAML runtime registry. Empty means
	// built-in profiles only.
	Registry string `toml:"registry"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Eval: EvalConfig{
			TimeoutMS:    DefaultEvalTimeoutMS,
			AbortGraceMS: DefaultAbortGraceMS,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Runtime: RuntimeConfig{
			Name: DefaultRuntimeName,
		},
	}
}

// Load reads the TOML configuration at path, layered over Default.
// A missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for out-of-range settings.
func (c Config) Validate() error {
	if c.Eval.TimeoutMS <= 0 {
		return &ValidationError{
			Setting: "eval.timeout_ms",
			Message: "must be positive",
			Value:   c.Eval.TimeoutMS,
		}
	}
	if c.Eval.AbortGraceMS <= 0 {
		return &ValidationError{
			Setting: "eval.abort_grace_ms",
			Message: "must be positive",
			Value:   c.Eval.AbortGraceMS,
		}
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return &ValidationError{
			Setting: "logging.level",
			Message: "must be one of debug, info, warn, error",
			Value:   c.Logging.Level,
		}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ValidationError{
			Setting: "logging.format",
			Message: "must be text or json",
			Value:   c.Logging.Format,
		}
	}
	if c.Runtime.Name == "" {
		return &ValidationError{
			Setting: "runtime.name",
			Message: "must not be empty",
			Value:   c.Runtime.Name,
		}
	}
	return nil
}

// NewLogger builds a slog.Logger honoring the logging section.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Logging.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
