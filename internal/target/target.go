// Package target defines the handle provisioning and session code use to
// talk to an environment. The abstraction allows an SSH-backed
// implementation for real environments and a mock for tests.
package target

import (
	"context"
	"io"
)

// ExecResult holds the result of executing a command in an environment
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Target is the interface provisioning steps run against.
// All methods should be safe for concurrent use.
type Target interface {
	// Name returns the environment name
	Name() string

	// Exec executes a command inside the environment
	Exec(ctx context.Context, command []string) (*ExecResult, error)

	// WriteFile places a file inside the environment
	WriteFile(ctx context.Context, path string, content io.Reader, mode string) error

	// Ready performs a single readiness probe
	Ready(ctx context.Context) bool
}
