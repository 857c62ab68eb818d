package main

import (
	"context"

	"github.com/tomtom215/polkitgo/internal/identity"
	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

// noTransportResolver backs internal/tracker's BusResolver and
// ProcessResolver when no message-bus transport is wired in (spec.md §1
// scopes the bus surface out of this core). It always reports that the
// requested identity is unknown rather than fabricating one, so a
// caller-resolution failure fails closed instead of silently granting
// an unauthenticated subject.
type noTransportResolver struct{}

func (noTransportResolver) CallerFromBusName(_ context.Context, busName string) (identity.Caller, error) {
	return identity.Caller{}, pkerrors.New(pkerrors.KindGeneralError,
		"no message-bus transport configured: cannot resolve caller for bus name %q", busName)
}

func (noTransportResolver) CallerFromPID(_ context.Context, pid int32, _ uint64) (identity.Caller, error) {
	return identity.Caller{}, pkerrors.New(pkerrors.KindGeneralError,
		"no process transport configured: cannot resolve caller for pid %d", pid)
}
