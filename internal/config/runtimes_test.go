package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDefaultRuntimes(t *testing.T) {
	reg := DefaultRuntimes()

	spec, err := reg.Lookup("coreclr")
	if err != nil {
		t.Fatalf("Lookup(coreclr) failed: %v", err)
	}
	if spec.Enclosing != "System.Diagnostics.Debugger" {
		t.Errorf("Enclosing = %q", spec.Enclosing)
	}
	if spec.Notification != "CrossThreadDependencyNotification" {
		t.Errorf("Notification = %q", spec.Notification)
	}
}

func TestLoadRuntimesMergesOverDefaults(t *testing.T) {
	path := writeFile(t, "runtimes.yaml", `
runtimes:
  mono:
    enclosing: System.Diagnostics.Debugger
    notification: CrossThreadDependencyNotification
  custom:
    enclosing: Vendor.Diagnostics.Dbg
    notification: ThreadDependencyNote
`)

	reg, err := LoadRuntimes(path)
	if err != nil {
		t.Fatalf("LoadRuntimes failed: %v", err)
	}

	if _, err := reg.Lookup("coreclr"); err != nil {
		t.Errorf("built-in coreclr lost after load: %v", err)
	}
	spec, err := reg.Lookup("custom")
	if err != nil {
		t.Fatalf("Lookup(custom) failed: %v", err)
	}
	if spec.Enclosing != "Vendor.Diagnostics.Dbg" || spec.Notification != "ThreadDependencyNote" {
		t.Errorf("custom spec = %+v", spec)
	}

	names := reg.Names()
	want := []string{"coreclr", "custom", "mono"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestLoadRuntimesOverridesBuiltin(t *testing.T) {
	path := writeFile(t, "runtimes.yaml", `
runtimes:
  coreclr:
    enclosing: System.Diagnostics.Debugger
    notification: RenamedNotification
`)

	reg, err := LoadRuntimes(path)
	if err != nil {
		t.Fatalf("LoadRuntimes failed: %v", err)
	}
	spec, err := reg.Lookup("coreclr")
	if err != nil {
		t.Fatalf("Lookup(coreclr) failed: %v", err)
	}
	if spec.Notification != "RenamedNotification" {
		t.Errorf("Notification = %q, want file override", spec.Notification)
	}
}

func TestLoadRuntimesMissingFile(t *testing.T) {
	reg, err := LoadRuntimes(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadRuntimes of missing file failed: %v", err)
	}
	if _, err := reg.Lookup("coreclr"); err != nil {
		t.Errorf("defaults missing: %v", err)
	}
}

func TestLoadRuntimesIncompleteSpec(t *testing.T) {
	path := writeFile(t, "runtimes.yaml", `
runtimes:
  broken:
    enclosing: OnlyHalf
`)

	_, err := LoadRuntimes(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.Setting != "runtimes.broken" {
		t.Errorf("Setting = %q", verr.Setting)
	}
}

func TestLoadRuntimesInvalidYAML(t *testing.T) {
	path := writeFile(t, "runtimes.yaml", "runtimes: [\n  broken")

	_, err := LoadRuntimes(path)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("error = %v, want *ParseError", err)
	}
}

func TestLookupUnknownRuntime(t *testing.T) {
	_, err := DefaultRuntimes().Lookup("jvm")
	if !errors.Is(err, ErrRuntimeUnknown) {
		t.Errorf("error = %v, want ErrRuntimeUnknown", err)
	}
}
