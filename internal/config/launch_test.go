package config

import (
	"errors"
	"testing"
)

const launchFixture = `{
	"version": "0.2.0",
	"configurations": [
		{
			"name": "Launch (console)",
			"type": "coreclr",
			"request": "launch",
			"program": "bin/Debug/app.dll",
			"args": ["--port", "8080"],
			"cwd": "/srv/app",
			"env": {"ASPNETCORE_ENVIRONMENT": "Development"},
			"stopAtEntry": true,
			"justMyCode": false,
			"evalTimeoutMs": 9000
		},
		{
			"name": "Attach",
			"type": "coreclr",
			"request": "attach",
			"processId": 4242
		}
	]
}`

func TestLoadLaunchProfileByName(t *testing.T) {
	path := writeFile(t, "launch.json", launchFixture)

	p, err := LoadLaunchProfile(path, "Launch (console)")
	if err != nil {
		t.Fatalf("LoadLaunchProfile failed: %v", err)
	}

	if !p.IsLaunch() || p.IsAttach() {
		t.Errorf("request = %q, want launch", p.Request)
	}
	if p.Type != "coreclr" {
		t.Errorf("Type = %q, want coreclr", p.Type)
	}
	if p.Program != "bin/Debug/app.dll" {
		t.Errorf("Program = %q", p.Program)
	}
	if len(p.Args) != 2 || p.Args[0] != "--port" || p.Args[1] != "8080" {
		t.Errorf("Args = %v, want [--port 8080]", p.Args)
	}
	if p.Cwd != "/srv/app" {
		t.Errorf("Cwd = %q", p.Cwd)
	}
	if p.Env["ASPNETCORE_ENVIRONMENT"] != "Development" {
		t.Errorf("Env = %v", p.Env)
	}
	if !p.StopAtEntry {
		t.Error("StopAtEntry = false, want true")
	}
	if p.JustMyCode {
		t.Error("JustMyCode = true, want false")
	}
	if p.EvalTimeoutMS != 9000 {
		t.Errorf("EvalTimeoutMS = %d, want 9000", p.EvalTimeoutMS)
	}
}

func TestLoadLaunchProfileFirstByDefault(t *testing.T) {
	path := writeFile(t, "launch.json", launchFixture)

	p, err := LoadLaunchProfile(path, "")
	if err != nil {
		t.Fatalf("LoadLaunchProfile failed: %v", err)
	}
	if p.Name != "Launch (console)" {
		t.Errorf("Name = %q, want first profile", p.Name)
	}
}

func TestLoadLaunchProfileAttach(t *testing.T) {
	path := writeFile(t, "launch.json", launchFixture)

	p, err := LoadLaunchProfile(path, "Attach")
	if err != nil {
		t.Fatalf("LoadLaunchProfile failed: %v", err)
	}
	if !p.IsAttach() {
		t.Errorf("request = %q, want attach", p.Request)
	}
	if p.ProcessID != 4242 {
		t.Errorf("ProcessID = %d, want 4242", p.ProcessID)
	}
	if p.EvalTimeoutMS != 0 {
		t.Errorf("EvalTimeoutMS = %d, want 0 when absent", p.EvalTimeoutMS)
	}
}

func TestLoadLaunchProfileNotFound(t *testing.T) {
	path := writeFile(t, "launch.json", launchFixture)

	_, err := LoadLaunchProfile(path, "Release")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("error = %v, want ErrProfileNotFound", err)
	}
}

func TestLoadLaunchProfileNoConfigurations(t *testing.T) {
	path := writeFile(t, "launch.json", `{"version": "0.2.0"}`)

	_, err := LoadLaunchProfile(path, "")
	if !errors.Is(err, ErrNoProfiles) {
		t.Errorf("error = %v, want ErrNoProfiles", err)
	}
}

func TestLoadLaunchProfileInvalidJSON(t *testing.T) {
	path := writeFile(t, "launch.json", `{"configurations": [`)

	_, err := LoadLaunchProfile(path, "")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("error = %v, want *ParseError", err)
	}
}

func TestLaunchProfileNames(t *testing.T) {
	path := writeFile(t, "launch.json", launchFixture)

	names, err := LaunchProfileNames(path)
	if err != nil {
		t.Fatalf("LaunchProfileNames failed: %v", err)
	}
	want := []string{"Launch (console)", "Attach"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
