// Package decision implements the central decide() algorithm of spec.md
// §4.6: compose the policy-file default, the configuration override, and
// explicit store grants into a single Result, with the one-shot
// consumption side effect. Grounded on spec.md §4.6's five numbered
// algorithm steps and the "Admin type resolution"/"Failure semantics"
// paragraphs that follow it; there is no single original_source/ file this
// maps onto one-to-one (the C sources split resolution across
// polkit-context.c/polkit-grant.c, not kept in original_source/), so this
// package is grounded directly on the specification text plus the
// already-grounded policy/overrides/store/constraint packages it composes.
package decision

import (
	"github.com/tomtom215/polkitgo/internal/constraint"
	"github.com/tomtom215/polkitgo/internal/identity"
	"github.com/tomtom215/polkitgo/internal/overrides"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
	"github.com/tomtom215/polkitgo/internal/policy"
	"github.com/tomtom215/polkitgo/internal/result"
	"github.com/tomtom215/polkitgo/internal/store"
)

// UsernameResolver maps a uid to a username for the override ruleset's
// <match user=regex> clause, which spec.md §4.3 allows to match either the
// numeric uid or the username. Decoupled from store.UsernameResolver so
// this package does not need to import store for its own sake; in
// cmd/polkitd a single OS-backed resolver instance satisfies both.
type UsernameResolver interface {
	Username(uid uint32) (string, error)
}

// Snapshot bundles the three immutable inputs a decision is made against.
// The daemon reload loop replaces the pointer wholesale on policy/config
// reinitialisation; in-flight Decide calls keep using the snapshot they
// started with (spec.md §5 "Shared-resource policy").
type Snapshot struct {
	Policy    *policy.Cache
	Overrides *overrides.Tree
	Resolver  UsernameResolver
}

// Engine composes a Snapshot with the authorization store to answer
// decide() queries.
type Engine struct {
	Snapshot *Snapshot
	Store    *store.Store
}

// New constructs an Engine.
func New(snapshot *Snapshot, st *store.Store) *Engine {
	return &Engine{Snapshot: snapshot, Store: st}
}

// Decision is the full result of a Decide call: the Result plus the admin
// identity set resolved for auth_admin* candidates.
type Decision struct {
	Result result.Result
	Admin  overrides.AdminAuth
}

// Decide implements spec.md §4.6's decide(action, subject,
// revoke_if_one_shot) -> Result. subject is always a Caller here: the
// Session-only subject form spec.md allows is represented by a Caller
// whose Session field is populated and whose process identity is left at
// its zero value, since the store's process-scope matching simply never
// matches a zero pid/start-time.
func (e *Engine) Decide(actionID string, caller identity.Caller, revokeIfOneShot bool) (Decision, error) {
	action, ok := e.Snapshot.Policy.Lookup(actionID)
	if !ok {
		return Decision{Result: result.Unknown}, nil
	}

	category := subjectCategory(caller)

	username := ""
	if e.Snapshot.Resolver != nil {
		// best-effort: a resolver failure just means <match user=regex> can
		// only match against the numeric uid for this query.
		if name, err := e.Snapshot.Resolver.Username(caller.UID); err == nil {
			username = name
		}
	}

	candidate, admin := e.Snapshot.Overrides.Evaluate(overrides.Subject{
		ActionID: actionID,
		UID:      caller.UID,
		Username: username,
	})
	if candidate == result.Unknown {
		candidate = action.DefaultFor(category)
	}

	granted := false
	negative := false
	var matchedOneShot []store.Entry

	err := e.Store.ForActionForUID(actionID, caller.UID, func(entry store.Entry) bool {
		if !entry.Constraints.Satisfies(caller) {
			return true
		}
		switch entry.Scope {
		case store.ScopeProcessOneShot, store.ScopeProcess:
			if entry.PID != caller.PID || entry.StartTime != caller.StartTime {
				return true
			}
		case store.ScopeSession:
			if !caller.HasSession || entry.SessionID != caller.Session.Identifier {
				return true
			}
		}

		if entry.Scope.Negative() {
			negative = true
			return false // negative dominates; stop early
		}
		granted = true
		if entry.Scope == store.ScopeProcessOneShot {
			matchedOneShot = append(matchedOneShot, entry)
		}
		return true
	})
	if err != nil {
		return Decision{Result: result.Unknown}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "reading store for uid %d action %q", caller.UID, actionID)
	}

	var final result.Result
	switch {
	case negative:
		final = result.No
	case granted:
		final = result.Yes
	default:
		final = candidate
	}

	if final == result.Yes && revokeIfOneShot {
		for _, entry := range matchedOneShot {
			if err := e.Store.Revoke(caller.UID, store.ScopeProcessOneShot, entry.Fingerprint()); err != nil {
				return Decision{Result: final, Admin: admin}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "revoking one-shot entry for uid %d action %q", caller.UID, actionID)
			}
		}
	}

	return Decision{Result: final, Admin: admin}, nil
}

// subjectCategory classifies caller per spec.md §4.6 step 2: "active" if
// session is active, "inactive" if in a non-active session, "any"
// otherwise.
func subjectCategory(caller identity.Caller) string {
	if !caller.HasSession {
		return "any"
	}
	if caller.Session.IsActive {
		return "active"
	}
	return "inactive"
}

// DerivedConstraints is exposed for callers that need to compute the
// strongest constraint set a caller currently satisfies, e.g. to populate
// a new grant's constraint list. No command in this repository calls it;
// cmd/polkit-grant-helper takes its constraint list from its arguments.
func DerivedConstraints(caller identity.Caller) constraint.List {
	return constraint.FromCaller(caller)
}
