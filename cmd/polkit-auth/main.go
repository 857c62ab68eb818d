// Command polkit-auth is the read-only/administrative introspection CLI
// named in spec.md §1 ("command-line frontends") and supplemented from
// original_source/tools/polkit-auth.c: list known actions and their
// implicit defaults, show the fully resolved decision for one action
// against a simulated caller, and list or revoke a uid's explicit store
// grants. It talks to the policy cache, override tree, decision engine,
// and store directly — there is no message-bus transport in this core
// (spec.md §1), so "the caller" here is either the invoking process's
// own uid or a POLKITGO_DEBUG_CALLER override (internal/debugcaller).
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/tomtom215/polkitgo/internal/daemonconfig"
	"github.com/tomtom215/polkitgo/internal/debugcaller"
	"github.com/tomtom215/polkitgo/internal/identity"
	"github.com/tomtom215/polkitgo/internal/logging"
	"github.com/tomtom215/polkitgo/internal/metaauthz"
	"github.com/tomtom215/polkitgo/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

const usage = `usage: polkit-auth <command> [flags]

commands:
  list-actions              list every known action id and its implicit defaults
  show-action -action ID    show the resolved decision for ID against the invoking process
                             (or the caller described by POLKITGO_DEBUG_CALLER)
  list-grants [-uid N]      list uid's explicit store grants (default: caller's own uid)
  revoke -scope S -fingerprint F [-uid N]
                             revoke one explicit grant by its exact fingerprint (default: caller's own uid)`

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	cfg, err := daemonconfig.Load()
	if err != nil {
		fmt.Fprintf(stderr, "polkit-auth: load config: %v\n", err)
		return 1
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	resolver := store.OSUsernameResolver{}
	snapshot, err := loadSnapshotForCLI(cfg, resolver)
	if err != nil {
		fmt.Fprintf(stderr, "polkit-auth: %v\n", err)
		return 1
	}
	authStore := store.New(cfg.Store.PersistentRoot, cfg.Store.TransientRoot, resolver)
	engine := decisionEngineForCLI(snapshot, authStore)

	authorizer, err := metaauthz.New(cfg.Admin.PolicyPath, metaauthz.GroupRoleResolver{AdminGroup: cfg.Admin.Group})
	if err != nil {
		fmt.Fprintf(stderr, "polkit-auth: meta-authorization: %v\n", err)
		return 1
	}

	switch args[0] {
	case "list-actions":
		return cmdListActions(snapshot, stdout)
	case "show-action":
		return cmdShowAction(args[1:], engine, stdout, stderr)
	case "list-grants":
		return cmdListGrants(args[1:], authStore, authorizer, stdout, stderr)
	case "revoke":
		return cmdRevoke(args[1:], authStore, authorizer, stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprintln(stdout, usage)
		return 0
	default:
		fmt.Fprintln(stderr, usage)
		return 2
	}
}

// resolveCaller returns the simulated caller for this invocation:
// POLKITGO_DEBUG_CALLER if set, otherwise a caller built from the
// process's own uid/pid with no session.
func resolveCaller() (identity.Caller, error) {
	if caller, ok, err := debugcaller.Lookup(); err != nil {
		return identity.Caller{}, err
	} else if ok {
		return caller, nil
	}
	return identity.NewCaller("", uint32(os.Getuid()), int32(os.Getpid()), 0, "", "", nil)
}
