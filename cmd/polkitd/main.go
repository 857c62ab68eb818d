// Command polkitd is the authorization decision daemon: it loads the
// policy action directory and the local overrides file into a
// decision.Engine, serves Prometheus metrics and a health check over
// HTTP, watches its inputs for changes via fsnotify, and supervises its
// long-running components with a suture tree. It does not own a
// message-bus transport (spec.md §1 leaves that to a separate
// collaborator); this binary is the core the transport layer calls
// into.
//
// Configuration is layered by internal/daemonconfig: struct defaults,
// an optional polkitd.yaml (POLKITD_CONFIG overrides the search path),
// then POLKITD_-prefixed environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/polkitgo/internal/daemonconfig"
	"github.com/tomtom215/polkitgo/internal/diagnostics"
	"github.com/tomtom215/polkitgo/internal/logging"
	"github.com/tomtom215/polkitgo/internal/metaauthz"
	"github.com/tomtom215/polkitgo/internal/observability"
	"github.com/tomtom215/polkitgo/internal/store"
	"github.com/tomtom215/polkitgo/internal/supervisor"
	"github.com/tomtom215/polkitgo/internal/tracker"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("polkitd exiting")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := daemonconfig.Load()
	if err != nil {
		return fmt.Errorf("polkitd: load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("policy_dir", cfg.Policy.Dir).
		Str("overrides_path", cfg.Overrides.Path).
		Str("metrics_addr", cfg.Server.MetricsAddr).
		Msg("polkitd starting")

	resolver := store.OSUsernameResolver{}
	authStore := store.New(cfg.Store.PersistentRoot, cfg.Store.TransientRoot, resolver)

	snapshot, err := loadSnapshot(cfg, resolver)
	if err != nil {
		return fmt.Errorf("polkitd: initial snapshot: %w", err)
	}
	holder := &engineHolder{}
	holder.Set(decisionEngineFor(snapshot, authStore))

	metaAuth, err := metaauthz.New(cfg.Admin.PolicyPath, metaauthz.GroupRoleResolver{AdminGroup: cfg.Admin.Group})
	if err != nil {
		return fmt.Errorf("polkitd: meta-authorization: %w", err)
	}
	_ = metaAuth // held for the transport layer's management-API calls; not exercised by this bus-free core

	audit := diagnostics.NewLogger(diagnostics.DefaultLoggerConfig())
	defer audit.Close()

	callerTracker := tracker.New(noTransportResolver{}, noTransportResolver{})

	metricsServer := &observability.Server{
		Addr:    cfg.Server.MetricsAddr,
		Timeout: cfg.Server.Timeout,
		Checker: holder,
	}

	tree := supervisor.New(logging.Logger(), supervisor.DefaultTreeConfig())
	tree.AddTrackerService(callerTracker)
	tree.AddTrackerService(reloadService{cfg: cfg, resolver: resolver, holder: holder, store: authStore})
	tree.AddObservabilityService(metricsServer)

	if err := dropPrivileges(cfg.Privilege); err != nil {
		logging.Error().Err(err).Msg("privilege drop failed, continuing with current identity")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	logging.Info().Msg("polkitd shutting down")
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
