// Package store implements the atomic, per-user authorization store of
// spec.md §4.5: the append-only flat-file grant database, its fingerprint
// grammar, and the three iteration entry points the decision engine
// consults. Grounded on
// original_source/src/polkit-grant/polkit-authorization-db-write.c, whose
// mkstemp/fchmod(0464)/write/rename/utimes sequence this package's Append
// reproduces, and on spec.md §3's entry grammar table.
package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/polkitgo/internal/constraint"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

// Scope is one of the six fingerprint scopes of spec.md §3.
type Scope string

const (
	ScopeProcessOneShot Scope = "process-one-shot"
	ScopeProcess        Scope = "process"
	ScopeSession        Scope = "session"
	ScopeAlways         Scope = "always"
	ScopeGrant          Scope = "grant"
	ScopeGrantNegative  Scope = "grant-negative"
)

// Negative reports whether s represents an explicit negative grant. Every
// other scope is implicitly positive.
func (s Scope) Negative() bool { return s == ScopeGrantNegative }

// Entry is one persisted authorization-database line.
type Entry struct {
	Scope     Scope
	ActionID  string
	When      int64 // unix timestamp
	PID       int32
	StartTime uint64
	SessionID string
	AuthAs    uint32 // process*/session/always
	GrantedBy uint32 // grant/grant-negative

	Constraints constraint.List
}

// fieldOrder lists, per scope, the canonical key order Serialize emits —
// this is what makes re-serialization deterministic and supports the
// round-trip invariant even though Parse itself tolerates any key order.
var fieldOrder = map[Scope][]string{
	ScopeProcessOneShot: {"pid", "pid-start-time", "action-id", "when", "auth-as"},
	ScopeProcess:        {"pid", "pid-start-time", "action-id", "when", "auth-as"},
	ScopeSession:        {"session-id", "action-id", "when", "auth-as"},
	ScopeAlways:         {"action-id", "when", "auth-as"},
	ScopeGrant:          {"action-id", "when", "granted-by"},
	ScopeGrantNegative:  {"action-id", "when", "granted-by"},
}

func (e Entry) field(key string) (string, bool) {
	switch key {
	case "pid":
		return strconv.FormatInt(int64(e.PID), 10), true
	case "pid-start-time":
		return strconv.FormatUint(e.StartTime, 10), true
	case "session-id":
		return e.SessionID, true
	case "action-id":
		return e.ActionID, true
	case "when":
		return strconv.FormatInt(e.When, 10), true
	case "auth-as":
		return strconv.FormatUint(uint64(e.AuthAs), 10), true
	case "granted-by":
		return strconv.FormatUint(uint64(e.GrantedBy), 10), true
	default:
		return "", false
	}
}

// Serialize produces the canonical fingerprint line for e: "scope=...:key=
// val:...:constraint=tok:...", every key and value percent-encoded per the
// RFC 3986 unreserved set. This is both the on-disk line and the exact
// string Revoke compares by.
func (e Entry) Serialize() string {
	order, ok := fieldOrder[e.Scope]
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString("scope=")
	b.WriteString(percentEncode(string(e.Scope)))
	for _, key := range order {
		val, _ := e.field(key)
		b.WriteByte(':')
		b.WriteString(percentEncode(key))
		b.WriteByte('=')
		b.WriteString(percentEncode(val))
	}
	for _, c := range e.Constraints {
		b.WriteByte(':')
		b.WriteString("constraint=")
		b.WriteString(percentEncode(c.Token()))
	}
	return b.String()
}

// Fingerprint is an alias for Serialize, named for the role it plays in
// Revoke's exact-match lookup (spec.md §4.5 "Revocation").
func (e Entry) Fingerprint() string { return e.Serialize() }

// requiredKeys lists, per scope, the keys ParseLine requires to be present.
var requiredKeys = map[Scope][]string{
	ScopeProcessOneShot: {"pid", "pid-start-time", "action-id", "when", "auth-as"},
	ScopeProcess:        {"pid", "pid-start-time", "action-id", "when", "auth-as"},
	ScopeSession:        {"session-id", "action-id", "when", "auth-as"},
	ScopeAlways:         {"action-id", "when", "auth-as"},
	ScopeGrant:          {"action-id", "when", "granted-by"},
	ScopeGrantNegative:  {"action-id", "when", "granted-by"},
}

// ParseLine decodes one non-comment, non-blank store line into an Entry.
// Key order is not significant (the store round-trip test requires
// tolerating reordered keys); unknown keys cause the line to be rejected
// with a diagnostic, per spec.md §6 "Store line grammar".
func ParseLine(line string) (Entry, error) {
	parts := strings.Split(line, ":")
	kv := make(map[string]string, len(parts))
	var constraints constraint.List
	for _, part := range parts {
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return Entry{}, pkerrors.New(pkerrors.KindGeneralError, "malformed key=value pair %q", part)
		}
		key, err := percentDecode(part[:eq])
		if err != nil {
			return Entry{}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "decoding key in %q", part)
		}
		val, err := percentDecode(part[eq+1:])
		if err != nil {
			return Entry{}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "decoding value in %q", part)
		}
		if key == "constraint" {
			c, err := constraint.Parse(val)
			if err != nil {
				return Entry{}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "decoding constraint %q", val)
			}
			constraints = append(constraints, c)
			continue
		}
		kv[key] = val
	}

	scopeStr, ok := kv["scope"]
	if !ok {
		return Entry{}, pkerrors.New(pkerrors.KindGeneralError, "missing scope key")
	}
	scope := Scope(scopeStr)
	required, ok := requiredKeys[scope]
	if !ok {
		return Entry{}, pkerrors.New(pkerrors.KindGeneralError, "unrecognised scope %q", scopeStr)
	}
	for _, k := range required {
		if _, present := kv[k]; !present {
			return Entry{}, pkerrors.New(pkerrors.KindGeneralError, "scope %q missing required key %q", scopeStr, k)
		}
	}

	e := Entry{Scope: scope, Constraints: constraints}
	e.ActionID = kv["action-id"]
	if v, ok := kv["when"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Entry{}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "parsing when=%q", v)
		}
		e.When = n
	}
	if v, ok := kv["pid"]; ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return Entry{}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "parsing pid=%q", v)
		}
		e.PID = int32(n)
	}
	if v, ok := kv["pid-start-time"]; ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Entry{}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "parsing pid-start-time=%q", v)
		}
		e.StartTime = n
	}
	if v, ok := kv["session-id"]; ok {
		e.SessionID = v
	}
	if v, ok := kv["auth-as"]; ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return Entry{}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "parsing auth-as=%q", v)
		}
		e.AuthAs = uint32(n)
	}
	if v, ok := kv["granted-by"]; ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return Entry{}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "parsing granted-by=%q", v)
		}
		e.GrantedBy = uint32(n)
	}

	// Reject any key not in the scope's required set, the constraint key,
	// or "scope" itself.
	allowed := map[string]bool{"scope": true, "constraint": true}
	for _, k := range required {
		allowed[k] = true
	}
	for k := range kv {
		if !allowed[k] {
			return Entry{}, pkerrors.New(pkerrors.KindGeneralError, "unknown key %q for scope %q", k, scopeStr)
		}
	}

	return e, nil
}

const unreservedChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

func isUnreserved(b byte) bool {
	return strings.IndexByte(unreservedChars, b) >= 0
}

// percentEncode escapes every byte outside the RFC 3986 unreserved set.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// percentDecode reverses percentEncode.
func percentDecode(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' {
			if i+2 >= len(s) {
				return "", pkerrors.New(pkerrors.KindGeneralError, "truncated percent-escape in %q", s)
			}
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", pkerrors.Wrap(pkerrors.KindGeneralError, err, "invalid percent-escape in %q", s)
			}
			b.WriteByte(byte(n))
			i += 2
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}
