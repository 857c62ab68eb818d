// Package tracker implements the caller/session cache of spec.md §4.7 as
// a single-goroutine actor, the shape design note §9 calls for ("model
// it as an actor: one goroutine owns the maps, exposed through a request
// channel"). Grounded on the suture.Service actor pattern used throughout
// the reference cartography project (e.g. its NATS subscriber services)
// and wired into internal/supervisor's tracker layer.
package tracker

import (
	"context"
	"fmt"

	"github.com/tomtom215/polkitgo/internal/identity"
)

// BusResolver looks up a Caller by its unique bus name on a cache miss.
// The transport that owns the message bus connection implements this;
// the tracker package itself has no bus transport dependency.
type BusResolver interface {
	CallerFromBusName(ctx context.Context, busName string) (identity.Caller, error)
}

// ProcessResolver looks up a Caller by (pid, start_time) on a cache miss.
type ProcessResolver interface {
	CallerFromPID(ctx context.Context, pid int32, startTime uint64) (identity.Caller, error)
}

type pidKey struct {
	pid       int32
	startTime uint64
}

type request struct {
	kind     reqKind
	busName  string
	pid      int32
	start    uint64
	session  string
	active   bool
	reply    chan requestResult
}

type reqKind int

const (
	reqCallerFromBusName reqKind = iota
	reqCallerFromPID
	reqNameOwnerChanged
	reqSessionRemoved
	reqActiveChanged
)

type requestResult struct {
	caller identity.Caller
	err    error
}

// Tracker is the caller/session cache actor. Zero value is not usable;
// construct with New.
type Tracker struct {
	bus  BusResolver
	proc ProcessResolver

	requests chan request
}

// New constructs a Tracker. bus and proc service cache misses; either
// may be nil if that lookup path is never exercised (e.g. in tests).
func New(bus BusResolver, proc ProcessResolver) *Tracker {
	return &Tracker{bus: bus, proc: proc, requests: make(chan request)}
}

// Serve runs the actor loop until ctx is canceled, satisfying
// suture.Service. All cache state lives in locals here: no field of
// Tracker is mutated outside this goroutine.
func (t *Tracker) Serve(ctx context.Context) error {
	byBusName := make(map[string]identity.Caller)
	byPID := make(map[pidKey]identity.Caller)

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-t.requests:
			t.handle(ctx, req, byBusName, byPID)
		}
	}
}

func (t *Tracker) handle(ctx context.Context, req request, byBusName map[string]identity.Caller, byPID map[pidKey]identity.Caller) {
	switch req.kind {
	case reqCallerFromBusName:
		if c, ok := byBusName[req.busName]; ok {
			req.reply <- requestResult{caller: c}
			return
		}
		if t.bus == nil {
			req.reply <- requestResult{err: fmt.Errorf("tracker: no bus resolver configured")}
			return
		}
		c, err := t.bus.CallerFromBusName(ctx, req.busName)
		if err != nil {
			req.reply <- requestResult{err: err}
			return
		}
		byBusName[req.busName] = c
		req.reply <- requestResult{caller: c}

	case reqCallerFromPID:
		key := pidKey{pid: req.pid, startTime: req.start}
		if c, ok := byPID[key]; ok {
			req.reply <- requestResult{caller: c}
			return
		}
		if t.proc == nil {
			req.reply <- requestResult{err: fmt.Errorf("tracker: no process resolver configured")}
			return
		}
		c, err := t.proc.CallerFromPID(ctx, req.pid, req.start)
		if err != nil {
			req.reply <- requestResult{err: err}
			return
		}
		byPID[key] = c
		req.reply <- requestResult{caller: c}

	case reqNameOwnerChanged:
		delete(byBusName, req.busName)
		req.reply <- requestResult{}

	case reqSessionRemoved:
		for name, c := range byBusName {
			if c.HasSession && c.Session.Identifier == req.session {
				delete(byBusName, name)
			}
		}
		for key, c := range byPID {
			if c.HasSession && c.Session.Identifier == req.session {
				delete(byPID, key)
			}
		}
		req.reply <- requestResult{}

	case reqActiveChanged:
		for name, c := range byBusName {
			if c.HasSession && c.Session.Identifier == req.session {
				c.Session.IsActive = req.active
				byBusName[name] = c
			}
		}
		for key, c := range byPID {
			if c.HasSession && c.Session.Identifier == req.session {
				c.Session.IsActive = req.active
				byPID[key] = c
			}
		}
		req.reply <- requestResult{}
	}
}

func (t *Tracker) roundTrip(ctx context.Context, req request) (identity.Caller, error) {
	req.reply = make(chan requestResult, 1)
	select {
	case t.requests <- req:
	case <-ctx.Done():
		return identity.Caller{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.caller, res.err
	case <-ctx.Done():
		return identity.Caller{}, ctx.Err()
	}
}

// CallerFromBusName returns the cached Caller for busName, resolving
// through the configured BusResolver on a cache miss.
func (t *Tracker) CallerFromBusName(ctx context.Context, busName string) (identity.Caller, error) {
	return t.roundTrip(ctx, request{kind: reqCallerFromBusName, busName: busName})
}

// CallerFromPID returns the cached Caller for (pid, startTime), resolving
// through the configured ProcessResolver on a cache miss.
func (t *Tracker) CallerFromPID(ctx context.Context, pid int32, startTime uint64) (identity.Caller, error) {
	return t.roundTrip(ctx, request{kind: reqCallerFromPID, pid: pid, start: startTime})
}

// NameOwnerChanged evicts the bus-name index entry for name. Called by
// the transport layer when the bus reports the name lost its owner.
func (t *Tracker) NameOwnerChanged(ctx context.Context, busName string) {
	t.roundTrip(ctx, request{kind: reqNameOwnerChanged, busName: busName}) //nolint:errcheck
}

// SessionRemoved evicts every cache entry tied to sessionID, in both
// indices.
func (t *Tracker) SessionRemoved(ctx context.Context, sessionID string) {
	t.roundTrip(ctx, request{kind: reqSessionRemoved, session: sessionID}) //nolint:errcheck
}

// ActiveChanged updates the cached is_active flag in place for every
// entry tied to sessionID, without evicting it.
func (t *Tracker) ActiveChanged(ctx context.Context, sessionID string, active bool) {
	t.roundTrip(ctx, request{kind: reqActiveChanged, session: sessionID, active: active}) //nolint:errcheck
}
