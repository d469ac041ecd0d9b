package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// RuntimeSpec names the marker type a managed runtime constructs when
// debuggee code is about to depend on another thread. The debugger
// resolves these names in the runtime's core library and enables
// notification delivery for the resolved class while an evaluation runs.
type RuntimeSpec struct {
	// Enclosing is the namespace-qualified outer type name.
	Enclosing string `yaml:"enclosing"`

	// Notification is the nested marker type name.
	Notification string `yaml:"notification"`
}

// RuntimeRegistry maps runtime names to their notification specs.
type RuntimeRegistry struct {
	specs map[string]RuntimeSpec
}

// runtimesFile is the on-disk shape of a runtime registry.
type runtimesFile struct {
	Runtimes map[string]RuntimeSpec `yaml:"runtimes"`
}

// DefaultRuntimes returns the built-in registry. CoreCLR is always
// present; registry files extend or override it.
func DefaultRuntimes() *RuntimeRegistry {
	return &RuntimeRegistry{
		specs: map[string]RuntimeSpec{
			"coreclr": {
				Enclosing:    "System.Diagnostics.Debugger",
				Notification: "CrossThreadDependencyNotification",
			},
		},
	}
}

// LoadRuntimes reads a YAML runtime registry layered over the built-in
// profiles. A missing file is not an error; the defaults are returned.
func LoadRuntimes(path string) (*RuntimeRegistry, error) {
	reg := DefaultRuntimes()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("reading runtime registry %s: %w", path, err)
	}

	var file runtimesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	for name, spec := range file.Runtimes {
		if spec.Enclosing == "" || spec.Notification == "" {
			return nil, &ValidationError{
				Setting: "runtimes." + name,
				Message: "enclosing and notification are required",
				Value:   spec,
			}
		}
		reg.specs[name] = spec
	}
	return reg, nil
}

// Lookup returns the spec registered under name.
func (r *RuntimeRegistry) Lookup(name string) (RuntimeSpec, error) {
	spec, ok := r.specs[name]
	if !ok {
		return RuntimeSpec{}, fmt.Errorf("%w: %q", ErrRuntimeUnknown, name)
	}
	return spec, nil
}

// Names returns the registered runtime names, sorted.
func (r *RuntimeRegistry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
