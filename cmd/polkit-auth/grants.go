package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tomtom215/polkitgo/internal/metaauthz"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
	"github.com/tomtom215/polkitgo/internal/store"
)

// cmdListGrants prints every explicit store entry belonging to -uid
// (default: the invoking process's own uid), one fingerprint per line.
// Targeting a different uid requires the metaauthz "read" permission
// (spec.md §7).
func cmdListGrants(args []string, st *store.Store, authorizer *metaauthz.Authorizer, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list-grants", flag.ContinueOnError)
	uid := fs.Uint("uid", uint(requesterUID()), "uid whose explicit grants to list")
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := authorizer.Check(requesterUID(), uint32(*uid), metaauthz.VerbRead); err != nil {
		return reportMetaauthzDenial("list-grants", err, stderr)
	}

	count := 0
	err := st.ForUID(uint32(*uid), func(e store.Entry) bool {
		fmt.Fprintln(stdout, e.Fingerprint())
		count++
		return true
	})
	if err != nil {
		fmt.Fprintf(stderr, "list-grants: %v\n", err)
		return 1
	}
	if count == 0 {
		fmt.Fprintf(stdout, "(no explicit grants for uid %d)\n", *uid)
	}
	return 0
}

// cmdRevoke revokes one explicit grant by its exact fingerprint,
// matching the store's Revoke exact-match contract (spec.md §4.5
// "Revocation"). Targeting a different uid requires the metaauthz
// "revoke" permission. Exit codes follow spec.md §6 "Process model":
// 0 success (also when no line matches, since Revoke is idempotent),
// 1 store error / denied, 2 bad arguments.
func cmdRevoke(args []string, st *store.Store, authorizer *metaauthz.Authorizer, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	uid := fs.Uint("uid", uint(requesterUID()), "uid the grant belongs to")
	scope := fs.String("scope", "", "fingerprint scope, e.g. always, grant, session")
	fingerprint := fs.String("fingerprint", "", "exact fingerprint string, as printed by list-grants")
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *scope == "" || *fingerprint == "" {
		fmt.Fprintln(stderr, "revoke: -scope and -fingerprint are required")
		return 2
	}

	if err := authorizer.Check(requesterUID(), uint32(*uid), metaauthz.VerbRevoke); err != nil {
		return reportMetaauthzDenial("revoke", err, stderr)
	}

	if err := st.Revoke(uint32(*uid), store.Scope(*scope), *fingerprint); err != nil {
		fmt.Fprintf(stderr, "revoke: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "revoked")
	return 0
}

func reportMetaauthzDenial(cmd string, err error, stderr io.Writer) int {
	var pkErr *pkerrors.Error
	if errors.As(err, &pkErr) {
		fmt.Fprintf(stderr, "%s: %s\n", cmd, pkErr.Kind)
	} else {
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
	}
	return 1
}

func requesterUID() uint32 {
	return uint32(os.Getuid())
}
