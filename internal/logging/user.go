package logging

import (
	"fmt"
	"io"
	"os"
)

// Console output for the operator driving outpost-ctl. These helpers
// bypass the structured logger: run progress and results go straight to
// the terminal with a status glyph, while slog carries the debug detail.

var (
	consoleOut io.Writer = os.Stdout
	consoleErr io.Writer = os.Stderr
)

// UserInfo reports run progress on stdout.
func UserInfo(format string, args ...any) {
	fmt.Fprintf(consoleOut, "ℹ "+format+"\n", args...)
}

// UserSuccess reports a completed operation on stdout.
func UserSuccess(format string, args ...any) {
	fmt.Fprintf(consoleOut, "✓ "+format+"\n", args...)
}

// UserWarning reports a recoverable problem on stderr.
func UserWarning(format string, args ...any) {
	fmt.Fprintf(consoleErr, "⚠ "+format+"\n", args...)
}

// UserError reports a failure on stderr.
func UserError(format string, args ...any) {
	fmt.Fprintf(consoleErr, "✗ "+format+"\n", args...)
}
