package orchestrator

import (
	"context"
	"fmt"

	"github.com/outpost-tools/outpost-ctl/internal/audit"
	"github.com/outpost-tools/outpost-ctl/internal/config"
	"github.com/outpost-tools/outpost-ctl/internal/errors"
	"github.com/outpost-tools/outpost-ctl/internal/fetch"
	"github.com/outpost-tools/outpost-ctl/internal/logging"
	"github.com/outpost-tools/outpost-ctl/internal/provision"
	"github.com/outpost-tools/outpost-ctl/internal/resolver"
	"github.com/outpost-tools/outpost-ctl/internal/session"
	"github.com/outpost-tools/outpost-ctl/internal/ssh"
	"github.com/outpost-tools/outpost-ctl/internal/target"
)

// TargetFactory builds the execution handle provisioning runs against.
type TargetFactory func(desc *config.Descriptor) target.Target

// ReadyFunc blocks until the environment's endpoint answers, or fails
// with an unreachable or authentication error.
type ReadyFunc func(ctx context.Context, desc *config.Descriptor) error

// Orchestrator sequences resolve, fetch, provision and readiness for
// one environment at a time.
type Orchestrator struct {
	paths     *config.Paths
	resolver  *resolver.Resolver
	fetcher   *fetch.Fetcher
	audit     *audit.Logger
	newTarget TargetFactory
	waitReady ReadyFunc
}

// Option adjusts Orchestrator behavior.
type Option func(*Orchestrator)

// WithTargetFactory replaces how provisioning targets are built.
func WithTargetFactory(f TargetFactory) Option {
	return func(o *Orchestrator) { o.newTarget = f }
}

// WithReadyFunc replaces the endpoint readiness wait.
func WithReadyFunc(f ReadyFunc) Option {
	return func(o *Orchestrator) { o.waitReady = f }
}

// New creates an Orchestrator over the given resolver and fetcher.
func New(paths *config.Paths, res *resolver.Resolver, fetcher *fetch.Fetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		paths:    paths,
		resolver: res,
		fetcher:  fetcher,
		audit:    audit.NewLogger(paths.StateDir),
		newTarget: func(desc *config.Descriptor) target.Target {
			return target.NewSSHTarget(desc.Name, connectionOptions(desc))
		},
		waitReady: func(ctx context.Context, desc *config.Descriptor) error {
			return session.New(desc.Name, connectionOptions(desc)).WaitReady(ctx)
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func connectionOptions(desc *config.Descriptor) ssh.Options {
	return ssh.DefaultOptions(desc.Connection.Host, desc.Connection.Port, desc.Connection.User)
}

// Up drives the named environment to ready. Work already done by an
// earlier run is reused: cached artifacts are not downloaded again and
// satisfied provisioning steps are skipped.
func (o *Orchestrator) Up(ctx context.Context, name string) (*config.EnvironmentStatus, error) {
	if !config.DescriptorExists(o.paths.EnvironmentsDir, name) {
		return nil, errors.EnvironmentNotFound(name)
	}
	desc, err := config.LoadDescriptor(o.paths.EnvironmentsDir, name)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid descriptor for %s", name), err)
	}

	status := o.freshStatus(desc)
	o.logEvent(audit.EventUp, name, "image="+desc.Image)

	refs, err := o.resolve(ctx, status, desc)
	if err != nil {
		return status, err
	}

	if err := o.fetchArtifacts(ctx, status, refs); err != nil {
		return status, err
	}

	if err := o.provisionTarget(ctx, status, desc); err != nil {
		return status, err
	}

	if err := o.transition(status, StateReady); err != nil {
		return status, err
	}
	o.logEvent(audit.EventReady, name, "")
	logging.Info("environment ready", "name", name, "host", status.Host, "port", status.Port)

	return status, nil
}

// freshStatus starts a new run record, carrying over creation time from
// any previous run of the same environment.
func (o *Orchestrator) freshStatus(desc *config.Descriptor) *config.EnvironmentStatus {
	status := &config.EnvironmentStatus{
		Name:  desc.Name,
		State: string(StateNotStarted),
		Image: desc.Image,
		Host:  desc.Connection.Host,
		Port:  desc.Connection.Port,
		User:  desc.Connection.User,
	}
	if prev, err := config.LoadStatus(o.paths.StatusDir, desc.Name); err == nil {
		status.CreatedAt = prev.CreatedAt
	}
	return status
}

func (o *Orchestrator) resolve(ctx context.Context, status *config.EnvironmentStatus, desc *config.Descriptor) ([]resolver.ArtifactRef, error) {
	if err := o.transition(status, StateResolving); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, o.fail(status, err)
	}

	refs, err := o.resolver.Resolve(desc.Image)
	if err != nil {
		return nil, o.fail(status, err)
	}
	logging.Debug("image resolved", "image", desc.Image, "artifacts", len(refs))
	return refs, nil
}

func (o *Orchestrator) fetchArtifacts(ctx context.Context, status *config.EnvironmentStatus, refs []resolver.ArtifactRef) error {
	if err := o.transition(status, StateFetching); err != nil {
		return err
	}

	entries, err := o.fetcher.FetchAll(ctx, refs)
	if err != nil {
		return o.fail(status, err)
	}

	status.Artifacts = make(map[string]string, len(entries))
	for name, entry := range entries {
		status.Artifacts[name] = entry.Digest
	}
	return nil
}

func (o *Orchestrator) provisionTarget(ctx context.Context, status *config.EnvironmentStatus, desc *config.Descriptor) error {
	if err := o.transition(status, StateProvisioning); err != nil {
		return err
	}

	if err := o.waitReady(ctx, desc); err != nil {
		return o.fail(status, err)
	}

	steps, err := provision.Compile(desc.Steps)
	if err != nil {
		return o.fail(status, errors.ConfigError("invalid provisioning steps", err))
	}

	if err := provision.NewRunner(o.newTarget(desc)).Run(ctx, steps); err != nil {
		return o.fail(status, err)
	}
	return nil
}

// transition moves the run to the next state and persists it.
func (o *Orchestrator) transition(status *config.EnvironmentStatus, to State) error {
	if err := checkTransition(State(status.State), to); err != nil {
		return err
	}

	logging.Debug("state transition", "name", status.Name, "from", status.State, "to", string(to))
	status.State = string(to)
	if err := config.SaveStatus(o.paths.StatusDir, status); err != nil {
		return errors.ConfigError("failed to persist status", err)
	}
	o.logEvent(audit.EventTransition, status.Name, string(to))
	return nil
}

// fail records the failing stage, moves the run to failed and persists
// it. The original error is returned unchanged so its exit code survives.
func (o *Orchestrator) fail(status *config.EnvironmentStatus, cause error) error {
	status.FailedAt = status.State
	status.Error = cause.Error()
	status.State = string(StateFailed)

	if err := config.SaveStatus(o.paths.StatusDir, status); err != nil {
		logging.Error("failed to persist failure status", "name", status.Name, "error", err)
	}
	o.logEvent(audit.EventError, status.Name, fmt.Sprintf("%s: %v", status.FailedAt, cause))

	logging.Error("run failed", "name", status.Name, "stage", status.FailedAt, "error", cause)
	return cause
}

// Destroy forgets an environment's run state and audit history. The
// descriptor and any cached artifacts are left alone.
func (o *Orchestrator) Destroy(name string) error {
	if err := config.ValidateEnvironmentName(name); err != nil {
		return errors.ValidationError(err.Error())
	}

	o.logEvent(audit.EventDestroy, name, "")
	if err := config.DeleteStatus(o.paths.StatusDir, name); err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to remove status for %s", name), err)
	}
	if err := o.audit.Remove(name); err != nil {
		logging.Warn("failed to remove audit log", "name", name, "error", err)
	}
	return nil
}

func (o *Orchestrator) logEvent(t audit.EventType, name, details string) {
	if o.audit == nil {
		return
	}
	if err := o.audit.LogEvent(t, name, details); err != nil {
		logging.Debug("audit write failed", "name", name, "error", err)
	}
}
