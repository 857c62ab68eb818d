package main

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/tomtom215/polkitgo/internal/daemonconfig"
	"github.com/tomtom215/polkitgo/internal/decision"
	"github.com/tomtom215/polkitgo/internal/overrides"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
	"github.com/tomtom215/polkitgo/internal/policy"
	"github.com/tomtom215/polkitgo/internal/store"
)

// engineHolder lets the reload loop replace the Engine's Snapshot
// wholesale while in-flight Decide calls keep using the pointer they
// read, per decision.Snapshot's documented "daemon reload loop replaces
// the pointer wholesale" contract (spec.md §5 "Shared-resource policy").
type engineHolder struct {
	ptr atomic.Pointer[decision.Engine]
}

func (h *engineHolder) Get() *decision.Engine { return h.ptr.Load() }
func (h *engineHolder) Set(e *decision.Engine) { h.ptr.Store(e) }

// Healthy implements observability.HealthChecker: the daemon is healthy
// once it has loaded its first snapshot and stays healthy afterward,
// since a later reload failure leaves the previous good snapshot in
// place (loadSnapshot never partially mutates the holder).
func (h *engineHolder) Healthy() bool { return h.ptr.Load() != nil }

// loadSnapshot reads the policy directory and override file named by
// cfg into a fresh decision.Snapshot. The store is not part of the
// snapshot: callers pair it with their existing store when building the
// Engine (the store has no reloadable in-memory state beyond its own
// per-file mtime cache).
func loadSnapshot(cfg *daemonconfig.Config, resolver store.UsernameResolver) (*decision.Snapshot, error) {
	dirFS := os.DirFS("/")
	relDir := strings.TrimPrefix(cfg.Policy.Dir, "/")
	policyCache, err := policy.Load(dirFS, relDir)
	if err != nil {
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "loading policy directory %q", cfg.Policy.Dir)
	}

	overrideTree, err := loadOverrides(cfg.Overrides.Path)
	if err != nil {
		return nil, err
	}

	return &decision.Snapshot{
		Policy:    policyCache,
		Overrides: overrideTree,
		Resolver:  resolver,
	}, nil
}

// loadOverrides reads cfg's local-rules file, tolerating its absence
// (an empty Tree yields result.Unknown for every Evaluate call, which is
// the correct "no overrides configured" behaviour).
func loadOverrides(path string) (*overrides.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return overrides.Load(strings.NewReader(""))
		}
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "opening overrides file %q", path)
	}
	defer f.Close()

	tree, err := overrides.Load(f)
	if err != nil {
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "parsing overrides file %q", path)
	}
	return tree, nil
}
