package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/polkitgo/internal/constraint"
)

// fakeResolver maps a small fixed set of uid<->username pairs without
// touching /etc/passwd, so store tests are hermetic under t.TempDir().
type fakeResolver struct {
	byUID  map[uint32]string
	byName map[string]uint32
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		byUID:  map[uint32]string{1000: "alice", 1001: "bob"},
		byName: map[string]uint32{"alice": 1000, "bob": 1001},
	}
}

func (f *fakeResolver) Username(uid uint32) (string, error) {
	n, ok := f.byUID[uid]
	if !ok {
		return "", fmt.Errorf("no such uid %d", uid)
	}
	return n, nil
}

func (f *fakeResolver) UID(name string) (uint32, error) {
	u, ok := f.byName[name]
	if !ok {
		return 0, fmt.Errorf("no such user %q", name)
	}
	return u, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "persistent"), filepath.Join(dir, "transient"), newFakeResolver())
}

func TestEntrySerializeRoundTrip(t *testing.T) {
	e := Entry{
		Scope:     ScopeProcessOneShot,
		ActionID:  "org.example.frobnicate",
		When:      1700000000,
		PID:       4242,
		StartTime: 123456,
		AuthAs:    1000,
		Constraints: constraint.List{
			{Kind: constraint.Local},
			{Kind: constraint.Active},
		},
	}
	line := e.Serialize()
	got, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine(%q): %v", line, err)
	}
	if got.Fingerprint() != e.Fingerprint() {
		t.Fatalf("fingerprint mismatch:\n got: %s\nwant: %s", got.Fingerprint(), e.Fingerprint())
	}
}

func TestParseLineToleratesReorderedKeys(t *testing.T) {
	canonical := "scope=always:action-id=org.example.foo:when=100:auth-as=1000"
	reordered := "auth-as=1000:scope=always:when=100:action-id=org.example.foo"

	a, err := ParseLine(canonical)
	if err != nil {
		t.Fatalf("ParseLine(canonical): %v", err)
	}
	b, err := ParseLine(reordered)
	if err != nil {
		t.Fatalf("ParseLine(reordered): %v", err)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("reordered-key parse produced different fingerprint: %s vs %s", a.Fingerprint(), b.Fingerprint())
	}
}

func TestParseLineUnknownKeyRejected(t *testing.T) {
	if _, err := ParseLine("scope=always:action-id=org.example.foo:when=100:auth-as=1000:bogus=1"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseLineMissingRequiredKeyRejected(t *testing.T) {
	if _, err := ParseLine("scope=always:action-id=org.example.foo:when=100"); err == nil {
		t.Fatal("expected error for missing auth-as")
	}
}

func TestAppendAndForUID(t *testing.T) {
	s := newTestStore(t)
	e := Entry{Scope: ScopeAlways, ActionID: "org.example.foo", When: 1700000000, AuthAs: 1000}
	if err := s.Append(1000, e); err != nil {
		t.Fatalf("Append: %v", err)
	}

	var got []Entry
	if err := s.ForUID(1000, func(entry Entry) bool {
		got = append(got, entry)
		return true
	}); err != nil {
		t.Fatalf("ForUID: %v", err)
	}
	if len(got) != 1 || got[0].ActionID != "org.example.foo" {
		t.Fatalf("unexpected entries: %+v", got)
	}

	// file mode must be 0464 per spec.md §4.5
	path := filepath.Join(s.PersistentRoot, "user-alice.auths")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != fileMode {
		t.Fatalf("unexpected file mode %o, want %o", info.Mode().Perm(), fileMode)
	}

	// reload trigger must exist after Append
	if _, err := os.Stat(s.triggerPath(s.PersistentRoot)); err != nil {
		t.Fatalf("expected reload trigger to exist: %v", err)
	}
}

func TestAppendMultipleEntriesAccumulate(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(1000, Entry{Scope: ScopeAlways, ActionID: "org.example.a", When: 1, AuthAs: 1000}); err != nil {
		t.Fatalf("Append 1: %v", err)
	}
	if err := s.Append(1000, Entry{Scope: ScopeAlways, ActionID: "org.example.b", When: 2, AuthAs: 1000}); err != nil {
		t.Fatalf("Append 2: %v", err)
	}

	var ids []string
	err := s.ForUID(1000, func(e Entry) bool {
		ids = append(ids, e.ActionID)
		return true
	})
	if err != nil {
		t.Fatalf("ForUID: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 entries, got %v", ids)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	e := Entry{Scope: ScopeGrant, ActionID: "org.example.foo", When: 5, GrantedBy: 0}
	if err := s.Append(1000, e); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := s.Revoke(1000, ScopeGrant, e.Fingerprint()); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	var remaining int
	s.ForUID(1000, func(Entry) bool { remaining++; return true })
	if remaining != 0 {
		t.Fatalf("expected entry removed, got %d remaining", remaining)
	}

	// revoking again (already absent) must succeed
	if err := s.Revoke(1000, ScopeGrant, e.Fingerprint()); err != nil {
		t.Fatalf("second Revoke (idempotent) failed: %v", err)
	}
}

func TestForActionForUIDFilters(t *testing.T) {
	s := newTestStore(t)
	s.Append(1000, Entry{Scope: ScopeAlways, ActionID: "org.example.a", When: 1, AuthAs: 1000})
	s.Append(1000, Entry{Scope: ScopeAlways, ActionID: "org.example.b", When: 2, AuthAs: 1000})

	var got []string
	err := s.ForActionForUID("org.example.b", 1000, func(e Entry) bool {
		got = append(got, e.ActionID)
		return true
	})
	if err != nil {
		t.Fatalf("ForActionForUID: %v", err)
	}
	if len(got) != 1 || got[0] != "org.example.b" {
		t.Fatalf("unexpected filtered entries: %v", got)
	}
}

func TestForActionAllUIDs(t *testing.T) {
	s := newTestStore(t)
	s.Append(1000, Entry{Scope: ScopeAlways, ActionID: "org.example.a", When: 1, AuthAs: 1000})
	s.Append(1001, Entry{Scope: ScopeAlways, ActionID: "org.example.a", When: 2, AuthAs: 1001})

	seen := map[uint32]bool{}
	err := s.ForActionAllUIDs("org.example.a", func(uid uint32, e Entry) bool {
		seen[uid] = true
		return true
	})
	if err != nil {
		t.Fatalf("ForActionAllUIDs: %v", err)
	}
	if !seen[1000] || !seen[1001] {
		t.Fatalf("expected both uids visited, got %+v", seen)
	}
}
