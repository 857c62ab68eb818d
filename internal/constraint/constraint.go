// Package constraint implements the authorization-constraint algebra of
// spec.md §4.4: parsing, matching against a Caller, and serializing to the
// opaque single-token form persisted in the authorization store. See
// original_source/src/polkit-grant/polkit-authorization-db-write.c's
// _write_constraints/_add_caller_constraints for the on-disk token shape
// and the 64-constraint cap this package preserves.
package constraint

import (
	"strings"

	"github.com/tomtom215/polkitgo/internal/identity"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

// MaxPerGrant is the maximum number of constraints a single grant may carry.
const MaxPerGrant = 64

// Kind distinguishes the four constraint forms.
type Kind int

const (
	Local Kind = iota
	Active
	Exe
	SELinuxContext
)

// Constraint is one condition a grant's constraint list requires the
// current caller to satisfy.
type Constraint struct {
	Kind  Kind
	Value string // absolute path for Exe, label for SELinuxContext; empty otherwise
}

// Token serializes c to its opaque single-token on-disk form, e.g. "local",
// "active", "exe:/usr/bin/foo", "selinux_context:unconfined_u:...".
func (c Constraint) Token() string {
	switch c.Kind {
	case Local:
		return "local"
	case Active:
		return "active"
	case Exe:
		return "exe:" + c.Value
	case SELinuxContext:
		return "selinux_context:" + c.Value
	default:
		return ""
	}
}

// Equal reports structural equality between two constraints.
func (c Constraint) Equal(other Constraint) bool {
	return c.Kind == other.Kind && c.Value == other.Value
}

// Parse decodes a single opaque token produced by Token back into a
// Constraint, or returns a *pkerrors.Error of kind KindGeneralError if the
// token is not one of the four recognised forms.
func Parse(token string) (Constraint, error) {
	switch {
	case token == "local":
		return Constraint{Kind: Local}, nil
	case token == "active":
		return Constraint{Kind: Active}, nil
	case strings.HasPrefix(token, "exe:"):
		path := strings.TrimPrefix(token, "exe:")
		if path == "" || !strings.HasPrefix(path, "/") {
			return Constraint{}, pkerrors.New(pkerrors.KindGeneralError, "exe constraint %q is not an absolute path", token)
		}
		return Constraint{Kind: Exe, Value: path}, nil
	case strings.HasPrefix(token, "selinux_context:"):
		label := strings.TrimPrefix(token, "selinux_context:")
		if label == "" {
			return Constraint{}, pkerrors.New(pkerrors.KindGeneralError, "selinux_context constraint %q has an empty label", token)
		}
		return Constraint{Kind: SELinuxContext, Value: label}, nil
	default:
		return Constraint{}, pkerrors.New(pkerrors.KindGeneralError, "unrecognised constraint token %q", token)
	}
}

// List is an ordered constraint list. Equality is order-sensitive per
// spec.md §4.4's documented limitation — two lists with the same members in
// different order are NOT considered equal by Equal. Callers that want
// order-independent comparison should call Sorted() on both operands first.
type List []Constraint

// Equal performs order-sensitive structural comparison.
func (l List) Equal(other List) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if !l[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Sorted returns a copy of l ordered by (Kind, Value), for callers that
// need order-independent comparison or deduplication despite the
// order-sensitive default Equal.
func (l List) Sorted() List {
	out := make(List, len(l))
	copy(out, l)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func less(a, b Constraint) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Value < b.Value
}

// Satisfies reports whether every constraint in l holds against caller.
func (l List) Satisfies(caller identity.Caller) bool {
	for _, c := range l {
		if !satisfiesOne(c, caller) {
			return false
		}
	}
	return true
}

func satisfiesOne(c Constraint, caller identity.Caller) bool {
	switch c.Kind {
	case Local:
		return caller.HasSession && caller.Session.IsLocal
	case Active:
		return caller.HasSession && caller.Session.IsActive
	case Exe:
		return caller.ExePath != "" && caller.ExePath == c.Value
	case SELinuxContext:
		return caller.SecurityLabel != "" && caller.SecurityLabel == c.Value
	default:
		return false
	}
}

// FromCaller enumerates the strongest constraints caller currently
// satisfies: an active local session yields [Local, Active] in that order,
// a local-only session yields [Local], and so on. Exe is included when
// caller.ExePath is set (a process resolver populates it from
// /proc/<pid>/exe via identity.ExePathFromPID).
func FromCaller(caller identity.Caller) List {
	var out List
	if caller.HasSession && caller.Session.IsLocal {
		out = append(out, Constraint{Kind: Local})
	}
	if caller.HasSession && caller.Session.IsActive {
		out = append(out, Constraint{Kind: Active})
	}
	if caller.ExePath != "" {
		out = append(out, Constraint{Kind: Exe, Value: caller.ExePath})
	}
	if caller.SecurityLabel != "" {
		out = append(out, Constraint{Kind: SELinuxContext, Value: caller.SecurityLabel})
	}
	return out
}
