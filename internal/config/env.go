package config

import (
	"fmt"
	"os"
	"strconv"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "MRDBG_"

// Environment variables recognized by ApplyEnv.
const (
	EnvEvalTimeoutMS = EnvPrefix + "EVAL_TIMEOUT_MS"
	EnvAbortGraceMS  = EnvPrefix + "EVAL_ABORT_GRACE_MS"
	EnvLogLevel      = EnvPrefix + "LOG_LEVEL"
	EnvLogFormat     = EnvPrefix + "LOG_FORMAT"
	EnvRuntime       = EnvPrefix + "RUNTIME"
)

// ApplyEnv overlays MRDBG_-prefixed environment variables onto the
// configuration. Set variables win over file values; unset variables
// leave the configuration untouched. The result is re-validated.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvEvalTimeoutMS); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvEvalTimeoutMS, err)
		}
		c.Eval.TimeoutMS = ms
	}
	if v, ok := os.LookupEnv(EnvAbortGraceMS); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvAbortGraceMS, err)
		}
		c.Eval.AbortGraceMS = ms
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok {
		c.Logging.Format = v
	}
	if v, ok := os.LookupEnv(EnvRuntime); ok {
		c.Runtime.Name = v
	}
	return c.Validate()
}
