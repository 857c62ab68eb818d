// Package result defines the ten-value decision lattice the engine returns
// and the canonical string names used in both policy files and the
// persisted authorization store. See original_source/src/polkit/polkit-result.c
// for the mapping this package preserves.
package result

import "fmt"

// Result is one of the ten decision codes. The zero value is Unknown.
type Result int

const (
	Unknown Result = iota
	No
	AdminAuth
	AdminAuthKeepSession
	AdminAuthKeepAlways
	SelfAuth
	SelfAuthKeepSession
	SelfAuthKeepAlways
	Yes
	AdminAuthOneShot
	SelfAuthOneShot
)

// names is the canonical code<->string bijection. Order must match the
// original's mapping table exactly; it has no bearing on permissiveness.
var names = [...]string{
	Unknown:              "unknown",
	No:                   "no",
	AdminAuth:            "auth_admin",
	AdminAuthKeepSession:  "auth_admin_keep_session",
	AdminAuthKeepAlways:  "auth_admin_keep_always",
	SelfAuth:             "auth_self",
	SelfAuthKeepSession:  "auth_self_keep_session",
	SelfAuthKeepAlways:   "auth_self_keep_always",
	Yes:                  "yes",
	AdminAuthOneShot:     "auth_admin_one_shot",
	SelfAuthOneShot:      "auth_self_one_shot",
}

var byName = func() map[string]Result {
	m := make(map[string]Result, len(names))
	for r, n := range names {
		m[n] = Result(r)
	}
	return m
}()

// String returns the canonical name, or "" if r is out of range.
func (r Result) String() string {
	if r < 0 || int(r) >= len(names) {
		return ""
	}
	return names[r]
}

// FromName looks up a Result by its canonical string name. ok is false for
// any string outside the closed set of ten names, including "".
func FromName(name string) (r Result, ok bool) {
	r, ok = byName[name]
	return r, ok
}

// IsAdminAuth reports whether r is one of the four auth_admin* variants.
func IsAdminAuth(r Result) bool {
	switch r {
	case AdminAuth, AdminAuthKeepSession, AdminAuthKeepAlways, AdminAuthOneShot:
		return true
	default:
		return false
	}
}

// IsSelfAuth reports whether r is one of the four auth_self* variants.
func IsSelfAuth(r Result) bool {
	switch r {
	case SelfAuth, SelfAuthKeepSession, SelfAuthKeepAlways, SelfAuthOneShot:
		return true
	default:
		return false
	}
}

// IsOneShot reports whether r is auth_admin_one_shot or auth_self_one_shot,
// the two scopes that trigger the decision engine's revoke_if_one_shot
// side effect.
func IsOneShot(r Result) bool {
	return r == AdminAuthOneShot || r == SelfAuthOneShot
}

// Scope classifies the keep-semantics a non-terminal result implies once
// granted: one-shot, for the lifetime of the process, for the lifetime of
// the session, or forever.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOneShot
	ScopeProcess
	ScopeSession
	ScopeAlways
)

// KeepScope returns the scope a grant of r would persist under. Results
// that are not auth_admin*/auth_self* (Unknown, No, Yes) have ScopeNone.
func KeepScope(r Result) Scope {
	switch r {
	case AdminAuthOneShot, SelfAuthOneShot:
		return ScopeOneShot
	case AdminAuth, SelfAuth:
		return ScopeProcess
	case AdminAuthKeepSession, SelfAuthKeepSession:
		return ScopeSession
	case AdminAuthKeepAlways, SelfAuthKeepAlways:
		return ScopeAlways
	default:
		return ScopeNone
	}
}

// MarshalText implements encoding.TextMarshaler so a Result can be embedded
// directly in a koanf/goccy-json struct without a custom field type.
func (r Result) MarshalText() ([]byte, error) {
	name := r.String()
	if name == "" {
		return nil, fmt.Errorf("result: code %d out of range", int(r))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(text []byte) error {
	v, ok := FromName(string(text))
	if !ok {
		return fmt.Errorf("result: unknown name %q", string(text))
	}
	*r = v
	return nil
}
