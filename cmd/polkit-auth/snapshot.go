package main

import (
	"os"
	"strings"

	"github.com/tomtom215/polkitgo/internal/daemonconfig"
	"github.com/tomtom215/polkitgo/internal/decision"
	"github.com/tomtom215/polkitgo/internal/overrides"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
	"github.com/tomtom215/polkitgo/internal/policy"
	"github.com/tomtom215/polkitgo/internal/store"
)

// loadSnapshotForCLI builds a one-shot decision.Snapshot for this
// invocation; unlike cmd/polkitd this CLI never reloads, it just exits.
func loadSnapshotForCLI(cfg *daemonconfig.Config, resolver store.UsernameResolver) (*decision.Snapshot, error) {
	dirFS := os.DirFS("/")
	relDir := strings.TrimPrefix(cfg.Policy.Dir, "/")
	policyCache, err := policy.Load(dirFS, relDir)
	if err != nil {
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "loading policy directory %q", cfg.Policy.Dir)
	}

	var overrideTree *overrides.Tree
	f, err := os.Open(cfg.Overrides.Path)
	switch {
	case err == nil:
		defer f.Close()
		overrideTree, err = overrides.Load(f)
		if err != nil {
			return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "parsing overrides file %q", cfg.Overrides.Path)
		}
	case os.IsNotExist(err):
		overrideTree, err = overrides.Load(strings.NewReader(""))
		if err != nil {
			return nil, err
		}
	default:
		return nil, pkerrors.Wrap(pkerrors.KindGeneralError, err, "opening overrides file %q", cfg.Overrides.Path)
	}

	return &decision.Snapshot{Policy: policyCache, Overrides: overrideTree, Resolver: resolver}, nil
}

func decisionEngineForCLI(snapshot *decision.Snapshot, st *store.Store) *decision.Engine {
	return decision.New(snapshot, st)
}
