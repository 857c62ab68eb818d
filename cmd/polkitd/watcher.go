package main

import (
	"github.com/tomtom215/polkitgo/internal/decision"
	"github.com/tomtom215/polkitgo/internal/store"
)

func decisionEngineFor(snapshot *decision.Snapshot, st *store.Store) *decision.Engine {
	return decision.New(snapshot, st)
}
