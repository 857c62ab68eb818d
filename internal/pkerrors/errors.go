// Package pkerrors defines the typed error taxonomy shared by every core
// package. It replaces the source's mixed boolean-return / out-parameter
// GError idiom (see original_source/src/polkit/polkit-error.c) with a single
// error type carrying a Kind, a message, and an optional wrapped cause.
package pkerrors

import "fmt"

// Kind enumerates the error taxonomy.
type Kind int

const (
	// KindOutOfMemory marks an allocator failure. Always propagated.
	KindOutOfMemory Kind = iota
	// KindPolicyFileInvalid marks a .policy file that failed validation.
	KindPolicyFileInvalid
	// KindConfigFileInvalid marks an override-ruleset file that failed validation.
	KindConfigFileInvalid
	// KindGeneralError marks an unexpected IO or logic failure.
	KindGeneralError
	// KindNotAuthorizedToReadOthers marks a caller iterating another uid's
	// grants without the meta-action that permits it.
	KindNotAuthorizedToReadOthers
	// KindNotAuthorizedToRevokeOthers is the revoke analogue of KindNotAuthorizedToReadOthers.
	KindNotAuthorizedToRevokeOthers
	// KindNotAuthorizedToGrant marks a grant-helper invocation refused because
	// the invoking uid lacks the grant meta-action.
	KindNotAuthorizedToGrant
	// KindAuthorizationAlreadyExists marks a grant request duplicating an
	// existing identical entry.
	KindAuthorizationAlreadyExists
	// KindNotSupported marks an operation not implemented for the current subject.
	KindNotSupported
	// KindNotAuthorizedToModifyDefaults marks an attempt to overwrite a
	// packaged action's defaults.
	KindNotAuthorizedToModifyDefaults
)

// names gives each Kind its canonical CamelCase name, mirroring the
// error_names table in original_source/src/polkit/polkit-error.c.
var names = [...]string{
	"OutOfMemory",
	"PolicyFileInvalid",
	"ConfigFileInvalid",
	"GeneralError",
	"NotAuthorizedToReadAuthorizationsForOtherUsers",
	"NotAuthorizedToRevokeAuthorizationsFromOtherUsers",
	"NotAuthorizedToGrantAuthorization",
	"AuthorizationAlreadyExists",
	"NotSupported",
	"NotAuthorizedToModifyDefaults",
}

// String returns the CamelCase error name, or "" for an out-of-range Kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(names) {
		return ""
	}
	return names[k]
}

// Error is the error value returned by every core package.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs an *Error with the given kind and formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error that records cause as its underlying error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, pkerrors.New(pkerrors.KindNotSupported, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// ErrOutOfMemory is the preallocated singleton returned when even
// constructing a richer *Error would itself require an allocation that
// might fail, mirroring the source's static _oom_error.
var ErrOutOfMemory = &Error{Kind: KindOutOfMemory, Message: "out of memory"}
