// Package logging provides logging utilities for outpost-ctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("resolving image", "image", imageID)
//	logging.Warn("fetch attempt failed", "artifact", name, "attempt", n)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Fetching %s...", artifact)
//	logging.UserSuccess("Environment %s is ready", name)
//	logging.UserWarning("Retrying download of %s", artifact)
//	logging.UserError("Provisioning failed: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
