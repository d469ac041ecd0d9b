package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrProfileNotFound indicates no launch profile matched the requested name.
	ErrProfileNotFound = errors.New("launch profile not found")

	// ErrNoProfiles indicates the launch file has an empty or missing
	// configurations array.
	ErrNoProfiles = errors.New("launch file has no configurations")

	// ErrRuntimeUnknown indicates the runtime name is not in the registry.
	ErrRuntimeUnknown = errors.New("runtime not registered")

	// ErrWatcherClosed indicates an operation on a closed watcher.
	ErrWatcherClosed = errors.New("config watcher is closed")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError describes an out-of-range or malformed setting.
type ValidationError struct {
	// Setting is the dotted setting path that failed validation.
	Setting string
	// Message describes the validation error.
	Message string
	// Value is the invalid value.
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Setting, e.Message, e.Value)
}
