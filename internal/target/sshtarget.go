package target

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/outpost-tools/outpost-ctl/internal/logging"
	"github.com/outpost-tools/outpost-ctl/internal/ssh"
)

// SSHTarget runs commands in an environment over its forwarded SSH port.
type SSHTarget struct {
	name string
	opts ssh.Options
}

// NewSSHTarget creates a target for an environment reachable at the given
// connection options.
func NewSSHTarget(name string, opts ssh.Options) *SSHTarget {
	return &SSHTarget{name: name, opts: opts}
}

// Name returns the environment name
func (t *SSHTarget) Name() string {
	return t.name
}

// Exec runs a command in the environment, capturing output and exit code.
func (t *SSHTarget) Exec(ctx context.Context, command []string) (*ExecResult, error) {
	remote := shellquote.Join(command...)
	sshArgs := t.opts.WithBatchMode().BuildArgs(remote)

	logging.Debug("target exec", "environment", t.name, "command", remote)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ssh", sshArgs...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("ssh exec failed: %w", err)
		}
		// Remote command failed; the caller inspects the exit code.
	}

	return &ExecResult{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// WriteFile streams content to a file inside the environment. The file is
// written to a temporary sibling and moved into place so a partially
// transferred file is never observed at the final path.
func (t *SSHTarget) WriteFile(ctx context.Context, path string, content io.Reader, mode string) error {
	if mode == "" {
		mode = "0644"
	}

	script := fmt.Sprintf(
		`umask 077 && cat > %[1]s.tmp && chmod %[2]s %[1]s.tmp && mv %[1]s.tmp %[1]s`,
		shellquote.Join(path), shellquote.Join(mode))
	sshArgs := t.opts.WithBatchMode().BuildArgs("sh", "-c", shellquote.Join(script))

	logging.Debug("target write file", "environment", t.name, "path", path, "mode", mode)

	cmd := exec.CommandContext(ctx, "ssh", sshArgs...)
	cmd.Stdin = content
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to write %s: %w (%s)", path, err, stderr.String())
	}

	return nil
}

// Ready probes the environment with a no-op command.
func (t *SSHTarget) Ready(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	result, err := t.opts.Probe()
	return err == nil && result == ssh.ProbeOK
}
