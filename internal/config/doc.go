// Package config loads and validates mrdbg configuration.
//
// Configuration comes from three places, lowest priority first:
//
//  1. Built-in defaults (Default).
//  2. A TOML file, conventionally mrdbg.toml (Load).
//  3. MRDBG_-prefixed environment variables (Config.ApplyEnv).
//
// Two sidecar files supply debug-target details: a launch.json-style
// profile file selected by name (LoadLaunchProfile), and a YAML runtime
// registry mapping runtime names to their cross-thread notification
// marker types (LoadRuntimes).
//
// Watch reloads the TOML file when it changes on disk so the evaluation
// windows can be retuned without restarting a session.
package config
