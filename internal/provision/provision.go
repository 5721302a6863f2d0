// Package provision applies an environment's declared setup steps.
//
// Steps run strictly in declared order against a target handle. Every
// step is split into a Check half and an Apply half: Check reports
// whether the step's effect is already present, Apply produces it. A
// sequence can therefore be re-run from scratch after a failure without
// changing state that earlier runs already applied.
//
// The first failing step aborts the run; later steps are never attempted
// and nothing is rolled back. Step failures are not retried here — they
// require operator intervention.
package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/outpost-tools/outpost-ctl/internal/config"
	"github.com/outpost-tools/outpost-ctl/internal/errors"
	"github.com/outpost-tools/outpost-ctl/internal/logging"
	"github.com/outpost-tools/outpost-ctl/internal/target"
)

// Step is an idempotent unit of provisioning work.
type Step interface {
	// Describe returns a short human-readable form for progress output.
	Describe() string

	// Check reports whether the step's effect is already present.
	Check(ctx context.Context, t target.Target) (satisfied bool, err error)

	// Apply produces the step's effect. Apply after a successful Apply
	// must not change observable state.
	Apply(ctx context.Context, t target.Target) error
}

// Compile turns descriptor step specs into runnable steps.
func Compile(specs []config.StepSpec) ([]Step, error) {
	steps := make([]Step, 0, len(specs))
	for i, spec := range specs {
		var step Step
		switch spec.Type {
		case config.StepPackage:
			step = &PackageStep{Packages: spec.Packages}
		case config.StepFile:
			step = &FileStep{Path: spec.Path, Content: spec.Content, Mode: spec.Mode}
		case config.StepCommand:
			step = &CommandStep{Command: spec.Command, Creates: spec.Creates}
		default:
			return nil, fmt.Errorf("step %d: unknown type %q", i+1, spec.Type)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Runner applies steps to a target in order.
type Runner struct {
	target target.Target
}

// NewRunner creates a Runner for a target environment.
func NewRunner(t target.Target) *Runner {
	return &Runner{target: t}
}

// Run applies the steps in declared order, stopping at the first failure.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return errors.ProvisioningFailed(i+1, step.Describe(), err)
		}

		satisfied, err := step.Check(ctx, r.target)
		if err != nil {
			return errors.ProvisioningFailed(i+1, step.Describe(), err)
		}
		if satisfied {
			logging.Debug("step already satisfied", "step", i+1, "desc", step.Describe())
			continue
		}

		logging.Debug("applying step", "step", i+1, "desc", step.Describe())
		if err := step.Apply(ctx, r.target); err != nil {
			return errors.ProvisioningFailed(i+1, step.Describe(), err)
		}
	}

	return nil
}

// PackageStep installs packages with the guest's package manager.
type PackageStep struct {
	Packages []string
}

func (s *PackageStep) Describe() string {
	return fmt.Sprintf("install %s", strings.Join(s.Packages, " "))
}

// Check reports satisfied when every package is already installed.
func (s *PackageStep) Check(ctx context.Context, t target.Target) (bool, error) {
	for _, pkg := range s.Packages {
		result, err := t.Exec(ctx, []string{"dpkg", "-s", pkg})
		if err != nil {
			return false, err
		}
		if result.ExitCode != 0 {
			return false, nil
		}
	}
	return true, nil
}

func (s *PackageStep) Apply(ctx context.Context, t target.Target) error {
	command := append([]string{"sudo", "apt-get", "install", "-y"}, s.Packages...)
	result, err := t.Exec(ctx, command)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("apt-get exited %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// FileStep writes a file with fixed content and mode.
type FileStep struct {
	Path    string
	Content string
	Mode    string
}

func (s *FileStep) Describe() string {
	return fmt.Sprintf("write %s", s.Path)
}

// Check compares the remote file's SHA-256 against the declared content.
func (s *FileStep) Check(ctx context.Context, t target.Target) (bool, error) {
	result, err := t.Exec(ctx, []string{"sha256sum", s.Path})
	if err != nil {
		return false, err
	}
	if result.ExitCode != 0 {
		// Missing file; needs apply.
		return false, nil
	}

	fields := strings.Fields(result.Stdout)
	if len(fields) == 0 {
		return false, nil
	}

	sum := sha256.Sum256([]byte(s.Content))
	return fields[0] == hex.EncodeToString(sum[:]), nil
}

func (s *FileStep) Apply(ctx context.Context, t target.Target) error {
	return t.WriteFile(ctx, s.Path, strings.NewReader(s.Content), s.Mode)
}

// CommandStep runs an arbitrary shell command. When Creates is set, the
// existence of that path marks the step satisfied; without it the command
// runs on every pass and the descriptor author is responsible for keeping
// it re-runnable.
type CommandStep struct {
	Command string
	Creates string
}

func (s *CommandStep) Describe() string {
	return fmt.Sprintf("run %s", s.Command)
}

func (s *CommandStep) Check(ctx context.Context, t target.Target) (bool, error) {
	if s.Creates == "" {
		return false, nil
	}

	result, err := t.Exec(ctx, []string{"test", "-e", s.Creates})
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}

func (s *CommandStep) Apply(ctx context.Context, t target.Target) error {
	result, err := t.Exec(ctx, []string{"sh", "-c", s.Command})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("command exited %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return nil
}
