package main

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/tomtom215/polkitgo/internal/daemonconfig"
	"github.com/tomtom215/polkitgo/internal/logging"
	"github.com/tomtom215/polkitgo/internal/overrides"
	"github.com/tomtom215/polkitgo/internal/policy"
	"github.com/tomtom215/polkitgo/internal/store"
)

// reloadService adapts watchReload into a suture.Service so the
// supervisor tree restarts it (rebuilding its watchers) if it ever
// returns, the same way it would restart the tracker actor.
type reloadService struct {
	cfg      *daemonconfig.Config
	resolver store.UsernameResolver
	holder   *engineHolder
	store    *store.Store
}

func (r reloadService) Serve(ctx context.Context) error {
	return watchReload(ctx, r.cfg, r.resolver, r.holder, r.store)
}

// watchReload merges fsnotify events from the policy directory, the
// overrides file's parent directory, and the store's two trigger roots
// into reloads of holder's Snapshot. All events are handled by this one
// goroutine, so reloads run one at a time and never interleave; each
// relevant event triggers its own full loadSnapshot, so a burst of events
// (a directory of .policy files all rewritten by a package manager, say)
// causes one reload per event.
func watchReload(ctx context.Context, cfg *daemonconfig.Config, resolver store.UsernameResolver, holder *engineHolder, st *store.Store) error {
	policyWatcher, err := policy.Watch(cfg.Policy.Dir)
	if err != nil {
		return err
	}
	defer policyWatcher.Close()

	overridesWatcher, err := overrides.Watch(cfg.Overrides.Path)
	if err != nil {
		return err
	}
	defer overridesWatcher.Close()

	storeWatcher, err := st.WatchTriggers()
	if err != nil {
		return err
	}
	defer storeWatcher.Close()

	reload := func(source string) {
		snapshot, err := loadSnapshot(cfg, resolver)
		if err != nil {
			logging.Error().Err(err).Str("source", source).Msg("reload failed, keeping previous snapshot")
			return
		}
		holder.Set(decisionEngineFor(snapshot, st))
		logging.Info().Str("source", source).Msg("snapshot reloaded")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-policyWatcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				reload("policy")
			}
		case ev, ok := <-overridesWatcher.Events:
			if !ok {
				return nil
			}
			if ev.Name == cfg.Overrides.Path {
				reload("overrides")
			}
		case _, ok := <-storeWatcher.Events:
			if !ok {
				return nil
			}
			reload("store-trigger")
		case err := <-policyWatcher.Errors:
			logging.Error().Err(err).Msg("policy watcher error")
		case err := <-overridesWatcher.Errors:
			logging.Error().Err(err).Msg("overrides watcher error")
		case err := <-storeWatcher.Errors:
			logging.Error().Err(err).Msg("store watcher error")
		}
	}
}
