// Package debugcaller implements the debug-only caller override named
// in spec.md §6 "Environment": when POLKITGO_DEBUG_CALLER is set to a
// JSON-encoded synthetic caller descriptor, the CLI frontend and
// integration tests can simulate an arbitrary uid/pid/security-label/
// session without wiring a real session tracker. Grounded on the
// original's POLKIT_BUILD_TESTS debug paths (original_source's test
// harnesses construct a PolKitCaller by hand rather than querying the
// bus); decoded here with goccy/go-json per SPEC_FULL.md §4.10, which
// names this exact use as one of that dependency's two call sites.
package debugcaller

import (
	"os"

	"github.com/goccy/go-json"

	"github.com/tomtom215/polkitgo/internal/identity"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

// EnvVar is the environment variable name consulted by Lookup.
const EnvVar = "POLKITGO_DEBUG_CALLER"

// descriptor mirrors identity.Caller's exported fields in a
// JSON-friendly shape; Session is a flattened pointer so "no session"
// serializes as a bare omitted field.
type descriptor struct {
	BusName       string             `json:"bus_name,omitempty"`
	UID           uint32             `json:"uid"`
	PID           int32              `json:"pid"`
	StartTime     uint64             `json:"start_time"`
	SecurityLabel string             `json:"security_label,omitempty"`
	ExePath       string             `json:"exe_path,omitempty"`
	Session       *sessionDescriptor `json:"session,omitempty"`
}

type sessionDescriptor struct {
	Identifier string `json:"identifier"`
	UID        uint32 `json:"uid"`
	IsActive   bool   `json:"is_active"`
	IsLocal    bool   `json:"is_local"`
	RemoteHost string `json:"remote_host,omitempty"`
	SeatID     string `json:"seat_id"`
}

// Lookup decodes EnvVar, if set, into an identity.Caller. It returns
// (Caller{}, false, nil) when the variable is unset, letting callers
// fall back to their real caller-resolution path.
func Lookup() (identity.Caller, bool, error) {
	raw := os.Getenv(EnvVar)
	if raw == "" {
		return identity.Caller{}, false, nil
	}

	var d descriptor
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return identity.Caller{}, false, pkerrors.Wrap(pkerrors.KindGeneralError, err, "debugcaller: decode %s", EnvVar)
	}

	var session *identity.Session
	if d.Session != nil {
		session = &identity.Session{
			Identifier: d.Session.Identifier,
			UID:        d.Session.UID,
			IsActive:   d.Session.IsActive,
			IsLocal:    d.Session.IsLocal,
			RemoteHost: d.Session.RemoteHost,
			Seat:       identity.Seat{ID: d.Session.SeatID},
		}
	}

	caller, err := identity.NewCaller(d.BusName, d.UID, d.PID, d.StartTime, d.SecurityLabel, d.ExePath, session)
	if err != nil {
		return identity.Caller{}, false, err
	}
	return caller, true, nil
}
