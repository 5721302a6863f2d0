// Package ssh provides SSH connection utilities for environment access.
// It shells out to the OpenSSH client rather than reimplementing the
// protocol; every environment exposes a forwarded SSH port.
package ssh

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Default SSH configuration values.
const (
	DefaultConnectTimeout = 2
)

// Options configures SSH connection parameters.
type Options struct {
	Host               string
	Port               int
	User               string
	StrictHostKeyCheck bool
	KnownHostsFile     string
	ConnectTimeout     int
	BatchMode          bool
	RequestTTY         bool
}

// DefaultOptions returns Options with sensible defaults for environment
// connections. Host keys are regenerated every time an image is
// provisioned, so strict checking is off and known hosts are discarded.
func DefaultOptions(host string, port int, user string) Options {
	return Options{
		Host:               host,
		Port:               port,
		User:               user,
		StrictHostKeyCheck: false,
		KnownHostsFile:     "/dev/null",
		ConnectTimeout:     DefaultConnectTimeout,
		BatchMode:          false,
		RequestTTY:         false,
	}
}

// WithBatchMode returns a copy with batch mode enabled.
func (o Options) WithBatchMode() Options {
	o.BatchMode = true
	return o
}

// WithTTY returns a copy with TTY requested.
func (o Options) WithTTY() Options {
	o.RequestTTY = true
	return o
}

// WithTimeout returns a copy with the specified connect timeout.
func (o Options) WithTimeout(seconds int) Options {
	o.ConnectTimeout = seconds
	return o
}

// BaseArgs returns the common SSH arguments (options only, no user@host).
func (o Options) BaseArgs() []string {
	args := []string{
		"-p", fmt.Sprintf("%d", o.Port),
	}

	if !o.StrictHostKeyCheck {
		args = append(args, "-o", "StrictHostKeyChecking=no")
	}

	if o.KnownHostsFile != "" {
		args = append(args, "-o", fmt.Sprintf("UserKnownHostsFile=%s", o.KnownHostsFile))
	}

	if o.BatchMode {
		args = append(args, "-o", "BatchMode=yes")
	}

	if o.ConnectTimeout > 0 {
		args = append(args, "-o", fmt.Sprintf("ConnectTimeout=%d", o.ConnectTimeout))
	}

	if o.RequestTTY {
		args = append(args, "-t")
	}

	return args
}

// Destination returns the user@host string.
func (o Options) Destination() string {
	return fmt.Sprintf("%s@%s", o.User, o.Host)
}

// BuildArgs returns complete SSH arguments for executing a command.
func (o Options) BuildArgs(command ...string) []string {
	args := o.BaseArgs()
	args = append(args, o.Destination())
	args = append(args, command...)
	return args
}

// BuildArgsWithArgv returns complete SSH arguments including "ssh" as argv[0].
// Used for syscall.Exec which requires the program name in argv.
func (o Options) BuildArgsWithArgv(command ...string) []string {
	args := []string{"ssh"}
	args = append(args, o.BuildArgs(command...)...)
	return args
}

// ReplaceWithSession replaces the current process with an SSH session.
// This uses syscall.Exec and does not return on success.
func (o Options) ReplaceWithSession(command string) error {
	sshPath, err := exec.LookPath("ssh")
	if err != nil {
		return fmt.Errorf("ssh not found: %w", err)
	}

	// An empty command must be omitted entirely, or ssh runs an empty
	// remote command and exits instead of starting a login shell.
	var sshArgs []string
	if command == "" {
		sshArgs = o.WithTTY().BuildArgsWithArgv()
	} else {
		sshArgs = o.WithTTY().BuildArgsWithArgv(command)
	}

	return syscall.Exec(sshPath, sshArgs, os.Environ())
}

// ProbeResult classifies one connection attempt.
type ProbeResult int

const (
	// ProbeOK means the connection succeeded and a command ran.
	ProbeOK ProbeResult = iota
	// ProbeAuthFailed means the host answered but rejected credentials.
	ProbeAuthFailed
	// ProbeUnreachable means the host never answered.
	ProbeUnreachable
)

// Probe attempts a no-op command and classifies the outcome. OpenSSH uses
// exit status 255 for both transport and authentication failures, so the
// stderr text is the only way to tell them apart.
func (o Options) Probe() (ProbeResult, error) {
	sshArgs := o.WithBatchMode().BuildArgs("true")

	var stderr bytes.Buffer
	cmd := exec.Command("ssh", sshArgs...)
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return ProbeOK, nil
	}

	if isAuthFailure(stderr.String()) {
		return ProbeAuthFailed, fmt.Errorf("ssh authentication rejected: %s", firstLine(stderr.String()))
	}
	return ProbeUnreachable, fmt.Errorf("ssh connection failed: %w", err)
}

// isAuthFailure recognizes OpenSSH authentication rejections.
func isAuthFailure(stderr string) bool {
	for _, marker := range []string{
		"Permission denied",
		"Too many authentication failures",
		"Host key verification failed",
	} {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}
