// Package identity defines the value types the rest of the authorization
// core operates on — Action, Caller, Session, Seat — together with their
// validators. Construction is total: a malformed string never produces a
// half-valid value, it returns a *pkerrors.Error immediately (see
// original_source/src/polkit/polkit-caller.c's set_* validate-then-assign
// pattern, which this package generalizes into constructor functions).
package identity

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

// actionIDPattern matches a dotted action identifier: a lowercase-alnum
// first segment followed by one or more dot-separated segments that may
// contain uppercase letters (e.g. "org.freedesktop.Foo1"), matching
// real polkit action ids; only the first segment is lowercase-anchored.
var actionIDPattern = regexp.MustCompile(`^[a-z][a-z0-9]*(\.[a-zA-Z0-9]+)+$`)

const maxActionIDLen = 255

// Action is a dotted action identifier, e.g. "org.example.frobnicate".
type Action struct {
	id string
}

// NewAction validates id against the action-identifier grammar and length
// bound and returns an Action, or a *pkerrors.Error of kind
// KindPolicyFileInvalid if id is malformed.
func NewAction(id string) (Action, error) {
	if len(id) == 0 || len(id) > maxActionIDLen {
		return Action{}, pkerrors.New(pkerrors.KindPolicyFileInvalid,
			"action id length %d out of bounds (1..%d)", len(id), maxActionIDLen)
	}
	if !actionIDPattern.MatchString(id) {
		return Action{}, pkerrors.New(pkerrors.KindPolicyFileInvalid,
			"action id %q does not match the required dotted form", id)
	}
	return Action{id: id}, nil
}

// ID returns the validated dotted identifier.
func (a Action) ID() string { return a.id }

// String implements fmt.Stringer.
func (a Action) String() string { return a.id }

// Valid reports whether a was constructed via NewAction (as opposed to
// being the zero value).
func (a Action) Valid() bool { return a.id != "" }

// uniqueBusNamePattern matches the strict unique-connection-name form a
// bus assigns, e.g. ":1.42". Segments are dot-separated and each segment
// is alphanumeric/hyphen/underscore, matching the D-Bus specification's
// unique-name grammar.
var uniqueBusNamePattern = regexp.MustCompile(`^:[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)+$`)

// wellFormedBusNamePattern matches the well-known dotted bus-name form,
// e.g. "org.freedesktop.PolicyKit1".
var wellFormedBusNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*(\.[A-Za-z_][A-Za-z0-9_-]*)+$`)

// validateBusName accepts either the unique ":1.42" form or the well-formed
// dotted form; it rejects everything else.
func validateBusName(name string) bool {
	if name == "" {
		return false
	}
	return uniqueBusNamePattern.MatchString(name) || wellFormedBusNamePattern.MatchString(name)
}

// securityLabelPattern is a permissive identifier regex: one or more
// segments of word characters, colons, dashes, and dots, matching the
// loose shape of an selinux_context label ("system_u:system_r:init_t:s0").
var securityLabelPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

func validateSecurityLabel(label string) bool {
	return label != "" && securityLabelPattern.MatchString(label)
}

// ValidateIconName reports whether name is acceptable as an icon
// identifier per the data-model rule of spec §3: it must not look like a
// path and must not end in .png or .jpg.
func ValidateIconName(name string) bool {
	if name == "" {
		return true // icon is optional
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	lower := strings.ToLower(name)
	return !strings.HasSuffix(lower, ".png") && !strings.HasSuffix(lower, ".jpg")
}

// Seat is a physical login seat (e.g. "seat0").
type Seat struct {
	ID string
}

// Session describes a login session as reported by the external
// session-tracker collaborator (spec §1). Sessions are value types with no
// back-pointer to their Seat, per the acyclic-ownership resolution in
// SPEC_FULL.md §9.
type Session struct {
	Identifier string
	UID        uint32
	IsActive   bool
	IsLocal    bool
	RemoteHost string // empty when IsLocal
	Seat       Seat
}

// Valid reports whether s has a non-empty identifier and seat, the minimum
// a real session must carry.
func (s Session) Valid() bool {
	return s.Identifier != "" && s.Seat.ID != ""
}

// Caller identifies the process asking for an authorization decision.
type Caller struct {
	BusName       string // optional; "" if the caller did not arrive over the bus
	UID           uint32
	PID           int32
	StartTime     uint64 // kernel process start timestamp; disambiguates pid reuse
	SecurityLabel string // optional
	ExePath       string // optional; absolute path of the running executable, e.g. from /proc/<pid>/exe
	Session       Session
	HasSession    bool
}

// NewCaller validates the supplied fields and constructs a Caller. BusName,
// SecurityLabel, and ExePath are validated only when non-empty, since all
// three are optional per spec §3.
func NewCaller(busName string, uid uint32, pid int32, startTime uint64, securityLabel string, exePath string, session *Session) (Caller, error) {
	if pid <= 0 {
		return Caller{}, pkerrors.New(pkerrors.KindGeneralError, "caller pid %d is not > 0", pid)
	}
	if busName != "" && !validateBusName(busName) {
		return Caller{}, pkerrors.New(pkerrors.KindGeneralError, "caller bus name %q is neither a unique nor well-formed bus name", busName)
	}
	if securityLabel != "" && !validateSecurityLabel(securityLabel) {
		return Caller{}, pkerrors.New(pkerrors.KindGeneralError, "caller security label %q is not a well-formed identifier", securityLabel)
	}
	if exePath != "" && !strings.HasPrefix(exePath, "/") {
		return Caller{}, pkerrors.New(pkerrors.KindGeneralError, "caller exe path %q is not absolute", exePath)
	}
	c := Caller{
		BusName:       busName,
		UID:           uid,
		PID:           pid,
		StartTime:     startTime,
		SecurityLabel: securityLabel,
		ExePath:       exePath,
	}
	if session != nil {
		c.Session = *session
		c.HasSession = true
	}
	return c, nil
}

// Valid reports whether c satisfies the data-model invariant pid > 0.
func (c Caller) Valid() bool { return c.PID > 0 }

// ExePathFromPID resolves a running process's executable path via
// /proc/<pid>/exe, the same source original_source's caller
// construction reads from. Process resolvers populate Caller.ExePath
// with this (or an equivalent for non-Linux platforms) so the "exe"
// constraint kind (internal/constraint) can be evaluated.
func ExePathFromPID(pid int32) (string, error) {
	target, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return "", pkerrors.Wrap(pkerrors.KindGeneralError, err, "resolving exe path for pid %d", pid)
	}
	return target, nil
}
