package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/outpost-tools/outpost-ctl/internal/errors"
	"github.com/outpost-tools/outpost-ctl/internal/logging"
	"github.com/outpost-tools/outpost-ctl/internal/ssh"
)

const (
	// DefaultReadyTimeout bounds how long WaitReady polls before the
	// environment is declared unreachable.
	DefaultReadyTimeout = 30 * time.Second

	// DefaultPollInterval is the pause between readiness probes.
	DefaultPollInterval = 1 * time.Second
)

// ProbeFunc probes an SSH endpoint and classifies the outcome.
type ProbeFunc func(opts ssh.Options) (ssh.ProbeResult, error)

// Session describes an open connection handle to an environment.
type Session struct {
	ID          string
	Environment string
	Host        string
	Port        int
	User        string
	OpenedAt    time.Time
}

// Gateway mediates access to one environment's SSH endpoint.
type Gateway struct {
	name         string
	opts         ssh.Options
	probe        ProbeFunc
	readyTimeout time.Duration
	pollInterval time.Duration
}

// Option adjusts Gateway behavior.
type Option func(*Gateway)

// WithProbe replaces the SSH probe. Used by tests.
func WithProbe(probe ProbeFunc) Option {
	return func(g *Gateway) { g.probe = probe }
}

// WithReadyTimeout bounds the total WaitReady polling time.
func WithReadyTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.readyTimeout = d }
}

// WithPollInterval sets the pause between readiness probes.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gateway) { g.pollInterval = d }
}

// New creates a Gateway for the named environment's SSH endpoint.
func New(name string, opts ssh.Options, options ...Option) *Gateway {
	g := &Gateway{
		name:         name,
		opts:         opts,
		probe:        func(o ssh.Options) (ssh.ProbeResult, error) { return o.Probe() },
		readyTimeout: DefaultReadyTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// WaitReady polls the endpoint until it accepts a connection or the
// readiness window closes. An authentication rejection is terminal: the
// endpoint is up, so more polling cannot help.
func (g *Gateway) WaitReady(ctx context.Context) error {
	deadline := time.Now().Add(g.readyTimeout)
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return errors.EnvironmentUnreachable(g.name, err)
		}

		attempt++
		result, err := g.probe(g.opts)
		switch result {
		case ssh.ProbeOK:
			logging.Debug("environment ready", "name", g.name, "attempts", attempt)
			return nil
		case ssh.ProbeAuthFailed:
			return errors.AuthenticationFailed(g.name, err)
		}

		if time.Now().After(deadline) {
			logging.Debug("readiness window closed", "name", g.name, "attempts", attempt)
			return errors.EnvironmentUnreachable(g.name, err)
		}

		select {
		case <-ctx.Done():
			return errors.EnvironmentUnreachable(g.name, ctx.Err())
		case <-time.After(g.pollInterval):
		}
	}
}

// Open waits for the endpoint and returns a session handle for it.
func (g *Gateway) Open(ctx context.Context) (*Session, error) {
	if err := g.WaitReady(ctx); err != nil {
		return nil, err
	}

	return &Session{
		ID:          uuid.NewString(),
		Environment: g.name,
		Host:        g.opts.Host,
		Port:        g.opts.Port,
		User:        g.opts.User,
		OpenedAt:    time.Now(),
	}, nil
}

// Connect probes the endpoint once and, if it answers, replaces the
// current process with an interactive SSH session.
func (g *Gateway) Connect() error {
	result, err := g.probe(g.opts)
	switch result {
	case ssh.ProbeAuthFailed:
		return errors.AuthenticationFailed(g.name, err)
	case ssh.ProbeUnreachable:
		return errors.EnvironmentUnreachable(g.name, err)
	}

	logging.Debug("opening interactive session", "name", g.name, "destination", g.opts.Destination())
	return g.opts.ReplaceWithSession("")
}
