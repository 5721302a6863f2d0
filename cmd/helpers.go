package cmd

import (
	"context"
	"os"
	"time"

	"github.com/outpost-tools/outpost-ctl/internal/cache"
	"github.com/outpost-tools/outpost-ctl/internal/config"
	"github.com/outpost-tools/outpost-ctl/internal/errors"
	"github.com/outpost-tools/outpost-ctl/internal/fetch"
	"github.com/outpost-tools/outpost-ctl/internal/logging"
	"github.com/outpost-tools/outpost-ctl/internal/orchestrator"
	"github.com/outpost-tools/outpost-ctl/internal/resolver"
	"github.com/outpost-tools/outpost-ctl/internal/session"
	"github.com/outpost-tools/outpost-ctl/internal/ssh"
	"github.com/outpost-tools/outpost-ctl/internal/target"
)

// paths returns the default paths configuration.
// This is a helper to reduce repetition in commands.
func paths() *config.Paths {
	return config.DefaultPaths()
}

// buildOrchestrator wires the resolver, cache and fetcher behind an
// orchestrator. The caller owns the returned store and must close it.
func buildOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, *cache.Store, error) {
	p := paths()

	res, err := resolver.Load(p.ImageIndexPath())
	if err != nil {
		return nil, nil, err
	}

	store, err := cache.Open(p.CacheDir)
	if err != nil {
		return nil, nil, errors.ConfigError("failed to open artifact cache", err)
	}

	var opts []fetch.Option
	if src, err := fetch.NewS3Source(ctx, s3Region()); err == nil {
		opts = append(opts, fetch.WithSource("s3", src))
	} else {
		logging.Debug("s3 source unavailable", "error", err)
	}

	return orchestrator.New(p, res, fetch.New(store, opts...)), store, nil
}

func s3Region() string {
	if region := os.Getenv("AWS_REGION"); region != "" {
		return region
	}
	return "us-east-1"
}

// loadEnvironment loads run state for a declared environment, or a
// synthetic not-started record when no run has happened yet.
func loadEnvironment(name string) (*config.EnvironmentStatus, error) {
	p := paths()

	if status, err := config.LoadStatus(p.StatusDir, name); err == nil {
		return status, nil
	}

	desc, err := config.LoadDescriptor(p.EnvironmentsDir, name)
	if err != nil {
		return nil, errors.EnvironmentNotFound(name)
	}

	return &config.EnvironmentStatus{
		Name:  desc.Name,
		State: "not-started",
		Image: desc.Image,
		Host:  desc.Connection.Host,
		Port:  desc.Connection.Port,
		User:  desc.Connection.User,
	}, nil
}

// loadEnvironments merges declared descriptors with recorded run state.
// Environments with a descriptor but no run show as not-started; stale
// run records whose descriptor is gone are still listed.
func loadEnvironments() ([]*config.EnvironmentStatus, error) {
	p := paths()

	descriptors, err := config.ListDescriptors(p.EnvironmentsDir)
	if err != nil {
		return nil, err
	}

	declared := make(map[string]bool, len(descriptors))
	var result []*config.EnvironmentStatus
	for _, desc := range descriptors {
		declared[desc.Name] = true
		status, err := loadEnvironment(desc.Name)
		if err != nil {
			continue
		}
		result = append(result, status)
	}

	statuses, err := config.ListStatuses(p.StatusDir)
	if err != nil {
		return result, nil
	}
	for _, status := range statuses {
		if !declared[status.Name] {
			result = append(result, status)
		}
	}

	return result, nil
}

// gatewayFor builds the session gateway from an environment's recorded
// connection parameters. A variable so tests can substitute a gateway
// with an injected probe.
var gatewayFor = func(status *config.EnvironmentStatus) *session.Gateway {
	return session.New(status.Name,
		ssh.DefaultOptions(status.Host, status.Port, status.User))
}

// reachability probes a ready environment's endpoint once and reports
// whether it answers.
func reachability(ctx context.Context, status *config.EnvironmentStatus) string {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tgt := target.NewSSHTarget(status.Name,
		ssh.DefaultOptions(status.Host, status.Port, status.User))
	if tgt.Ready(probeCtx) {
		return "yes"
	}
	return "no"
}
