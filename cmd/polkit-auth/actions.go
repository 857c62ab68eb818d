package main

import (
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/tomtom215/polkitgo/internal/decision"
)

// cmdListActions prints every known action id with its three implicit
// defaults (any/inactive/active), sorted for stable output.
func cmdListActions(snapshot *decision.Snapshot, stdout io.Writer) int {
	actions := snapshot.Policy.Actions()
	sort.Slice(actions, func(i, j int) bool { return actions[i].ID.ID() < actions[j].ID.ID() })
	for _, a := range actions {
		fmt.Fprintf(stdout, "%s\tany=%s\tinactive=%s\tactive=%s\n",
			a.ID.ID(), a.DefaultAny, a.DefaultInactive, a.DefaultActive)
	}
	return 0
}

// cmdShowAction resolves the full decide() outcome for one action id
// against either the invoking process's own caller or a
// POLKITGO_DEBUG_CALLER override, printing the Result and whether an
// administrator identity was resolved along the way.
func cmdShowAction(args []string, engine *decision.Engine, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("show-action", flag.ContinueOnError)
	actionID := fs.String("action", "", "action id to resolve")
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *actionID == "" {
		fmt.Fprintln(stderr, "show-action: -action is required")
		return 2
	}

	caller, err := resolveCaller()
	if err != nil {
		fmt.Fprintf(stderr, "show-action: resolving caller: %v\n", err)
		return 1
	}

	outcome, err := engine.Decide(*actionID, caller, false)
	if err != nil {
		fmt.Fprintf(stderr, "show-action: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "%s: %s\n", *actionID, outcome.Result)
	if len(outcome.Admin.Users) > 0 || len(outcome.Admin.Groups) > 0 {
		fmt.Fprintf(stdout, "  admin users: %v\n  admin groups: %v\n", outcome.Admin.Users, outcome.Admin.Groups)
	}
	return 0
}
