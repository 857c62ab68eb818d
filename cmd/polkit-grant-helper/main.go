// Command polkit-grant-helper is the single privileged process allowed
// to call the authorization store's write path (spec.md §4.5, §6
// "Process model"). It takes exactly the four positional arguments the
// original polkit-authorization-db-write.c spawns its helper with:
// action id, a comma-separated constraint list (may be empty), a mode
// ("uid" or "uid-negative"), and the target uid — see
// original_source/src/polkit-grant/polkit-authorization-db-write.c's
// helper_argv construction.
//
// Exit codes: 0 success, 1 denied or store failure, 2 malformed
// arguments.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/polkitgo/internal/cli"
	"github.com/tomtom215/polkitgo/internal/constraint"
	"github.com/tomtom215/polkitgo/internal/daemonconfig"
	"github.com/tomtom215/polkitgo/internal/logging"
	"github.com/tomtom215/polkitgo/internal/metaauthz"
	"github.com/tomtom215/polkitgo/internal/store"
)

const (
	exitOK      = 0
	exitDenied  = 1
	exitBadArgs = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	args, err := parseArgs(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "polkit-grant-helper: %v\n", err)
		return exitBadArgs
	}
	if err := cli.ValidateStruct(&args); err != nil {
		fmt.Fprintf(os.Stderr, "polkit-grant-helper: %v\n", err)
		return exitBadArgs
	}

	constraints, err := parseConstraints(args.Constraints)
	if err != nil {
		fmt.Fprintf(os.Stderr, "polkit-grant-helper: %v\n", err)
		return exitBadArgs
	}

	cfg, err := daemonconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "polkit-grant-helper: load config: %v\n", err)
		return exitBadArgs
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	grantingUID := uint32(os.Getuid())

	authorizer, err := metaauthz.New(cfg.Admin.PolicyPath, metaauthz.GroupRoleResolver{AdminGroup: cfg.Admin.Group})
	if err != nil {
		fmt.Fprintf(os.Stderr, "polkit-grant-helper: meta-authorization: %v\n", err)
		return exitDenied
	}
	if err := authorizer.Check(grantingUID, args.TargetUID, metaauthz.VerbGrant); err != nil {
		fmt.Fprintf(os.Stderr, "polkit-grant-helper: %v\n", err)
		return exitDenied
	}

	scope := store.ScopeGrant
	if args.Mode == "uid-negative" {
		scope = store.ScopeGrantNegative
	}
	entry := store.Entry{
		Scope:       scope,
		ActionID:    args.ActionID,
		When:        time.Now().Unix(),
		GrantedBy:   grantingUID,
		Constraints: constraints,
	}

	resolver := store.OSUsernameResolver{}
	authStore := store.New(cfg.Store.PersistentRoot, cfg.Store.TransientRoot, resolver)
	if err := authStore.Append(args.TargetUID, entry); err != nil {
		fmt.Fprintf(os.Stderr, "polkit-grant-helper: %v\n", err)
		return exitDenied
	}

	return exitOK
}

// parseArgs maps the four positional command-line arguments onto
// cli.GrantHelperArgs, leaving struct-tag validation to ValidateStruct.
func parseArgs(argv []string) (cli.GrantHelperArgs, error) {
	if len(argv) != 4 {
		return cli.GrantHelperArgs{}, fmt.Errorf("expected 4 arguments: action-id constraints mode uid, got %d", len(argv))
	}
	uid, err := strconv.ParseUint(argv[3], 10, 32)
	if err != nil {
		return cli.GrantHelperArgs{}, fmt.Errorf("parsing target uid %q: %w", argv[3], err)
	}
	return cli.GrantHelperArgs{
		ActionID:    argv[0],
		Constraints: argv[1],
		Mode:        argv[2],
		TargetUID:   uint32(uid),
	}, nil
}

// parseConstraints splits a comma-separated constraint-token list (the
// cbuf format the original's _write_constraints produces) into a
// constraint.List, tolerating an empty string as "no constraints" and
// rejecting more than constraint.MaxPerGrant tokens.
func parseConstraints(raw string) (constraint.List, error) {
	if raw == "" {
		return nil, nil
	}
	tokens := strings.Split(raw, ",")
	if len(tokens) > constraint.MaxPerGrant {
		return nil, fmt.Errorf("%d constraints exceed the limit of %d per grant", len(tokens), constraint.MaxPerGrant)
	}
	out := make(constraint.List, 0, len(tokens))
	for _, tok := range tokens {
		c, err := constraint.Parse(tok)
		if err != nil {
			return nil, fmt.Errorf("parsing constraint %q: %w", tok, err)
		}
		out = append(out, c)
	}
	return out, nil
}
