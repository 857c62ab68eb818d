// Package supervisor wires the daemon's long-running actors into a
// suture supervision tree: a caller/session tracker layer and an
// observability (metrics/health) layer, isolated so a crash in one
// cannot take down the other. Grounded on the reference cartography
// project's internal/supervisor/tree.go, generalised from its
// data/messaging/api three-layer split down to the two layers
// cmd/polkitd actually needs.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor failure-handling tunables.
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultTreeConfig matches suture's own documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree manages the daemon's two supervised layers: tracker (the
// caller/session cache actor) and observability (the metrics/health
// HTTP listener).
type Tree struct {
	root        *suture.Supervisor
	tracker     *suture.Supervisor
	observation *suture.Supervisor
	config      TreeConfig
}

// New builds a Tree rooted at a supervisor named "polkitd", logging
// supervision events through logger.
func New(logger zerolog.Logger, config TreeConfig) *Tree {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logger.Slog()}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("polkitd", rootSpec)
	tracker := suture.New("tracker-layer", childSpec)
	observation := suture.New("observability-layer", childSpec)

	root.Add(tracker)
	root.Add(observation)

	return &Tree{root: root, tracker: tracker, observation: observation, config: config}
}

// AddTrackerService adds a service (the caller/session tracker actor,
// the policy/override reload watcher) to the tracker layer.
func (t *Tree) AddTrackerService(svc suture.Service) suture.ServiceToken {
	return t.tracker.Add(svc)
}

// AddObservabilityService adds a service (the metrics/health HTTP
// server) to the observability layer.
func (t *Tree) AddObservabilityService(svc suture.Service) suture.ServiceToken {
	return t.observation.Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine, returning its eventual
// terminal error on the returned channel.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport reports services that failed to stop within
// the configured shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
