package config

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// LaunchProfile is one entry from the configurations array of a
// launch.json-style file.
type LaunchProfile struct {
	// Name identifies the profile.
	Name string

	// Type is the debugger type the profile targets (for example "coreclr").
	Type string

	// Request is "launch" or "attach".
	Request string

	// Program is the path of the program to debug.
	Program string

	// Args are the program arguments.
	Args []string

	// Cwd is the working directory for the debuggee.
	Cwd string

	// Env are additional environment variables for the debuggee.
	Env map[string]string

	// StopAtEntry stops at the program entry point.
	StopAtEntry bool

	// JustMyCode restricts stepping and evaluation to user code.
	JustMyCode bool

	// ProcessID is the target process for attach profiles.
	ProcessID int

	// EvalTimeoutMS overrides the configured evaluation window for this
	// profile. Zero means no override.
	EvalTimeoutMS int
}

// IsLaunch reports whether the profile starts a new process.
func (p *LaunchProfile) IsLaunch() bool { return p.Request == "launch" }

// IsAttach reports whether the profile attaches to a running process.
func (p *LaunchProfile) IsAttach() bool { return p.Request == "attach" }

// LoadLaunchProfile reads a launch.json-style file and returns the
// profile with the given name. An empty name selects the first profile.
func LoadLaunchProfile(path, name string) (*LaunchProfile, error) {
	configs, err := launchConfigurations(path)
	if err != nil {
		return nil, err
	}

	if name == "" {
		return parseProfile(configs[0]), nil
	}
	for _, cfg := range configs {
		if cfg.Get("name").String() == name {
			return parseProfile(cfg), nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrProfileNotFound, name, path)
}

// LaunchProfileNames returns the profile names in file order.
func LaunchProfileNames(path string) ([]string, error) {
	configs, err := launchConfigurations(path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(configs))
	for _, cfg := range configs {
		names = append(names, cfg.Get("name").String())
	}
	return names, nil
}

// launchConfigurations loads the non-empty configurations array.
func launchConfigurations(path string) ([]gjson.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading launch file %s: %w", path, err)
	}

	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Path: path, Message: "invalid JSON"}
	}

	configs := gjson.GetBytes(data, "configurations").Array()
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoProfiles, path)
	}
	return configs, nil
}

func parseProfile(cfg gjson.Result) *LaunchProfile {
	p := &LaunchProfile{
		Name:          cfg.Get("name").String(),
		Type:          cfg.Get("type").String(),
		Request:       cfg.Get("request").String(),
		Program:       cfg.Get("program").String(),
		Cwd:           cfg.Get("cwd").String(),
		StopAtEntry:   cfg.Get("stopAtEntry").Bool(),
		JustMyCode:    cfg.Get("justMyCode").Bool(),
		ProcessID:     int(cfg.Get("processId").Int()),
		EvalTimeoutMS: int(cfg.Get("evalTimeoutMs").Int()),
	}

	for _, arg := range cfg.Get("args").Array() {
		p.Args = append(p.Args, arg.String())
	}

	if env := cfg.Get("env"); env.IsObject() {
		p.Env = make(map[string]string)
		env.ForEach(func(key, value gjson.Result) bool {
			p.Env[key.String()] = value.String()
			return true
		})
	}
	return p
}
