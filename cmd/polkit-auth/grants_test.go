package main

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/tomtom215/polkitgo/internal/metaauthz"
	"github.com/tomtom215/polkitgo/internal/store"
)

func testAuthorizer(t *testing.T) *metaauthz.Authorizer {
	t.Helper()
	a, err := metaauthz.New("", metaauthz.GroupRoleResolver{})
	if err != nil {
		t.Fatalf("metaauthz.New: %v", err)
	}
	return a
}

func TestCmdListGrantsReportsNoGrantsForFreshStore(t *testing.T) {
	var stdout, stderr bytes.Buffer
	st := store.New(t.TempDir(), t.TempDir(), store.OSUsernameResolver{})
	uid := requesterUID()
	rc := cmdListGrants([]string{}, st, testAuthorizer(t), &stdout, &stderr)
	if rc != 0 {
		t.Fatalf("expected exit 0, got %d (stderr=%s)", rc, stderr.String())
	}
	if !strings.Contains(stdout.String(), "no explicit grants") {
		t.Fatalf("expected no-grants message for uid %d, got %q", uid, stdout.String())
	}
}

func TestCmdListGrantsDeniedForOtherUIDWithoutAdminRole(t *testing.T) {
	var stdout, stderr bytes.Buffer
	st := store.New(t.TempDir(), t.TempDir(), store.OSUsernameResolver{})
	otherUID := requesterUID() + 1
	rc := cmdListGrants([]string{"-uid", strconv.FormatUint(uint64(otherUID), 10)}, st, testAuthorizer(t), &stdout, &stderr)
	if rc != 1 {
		t.Fatalf("expected exit 1 (denied), got %d", rc)
	}
}

func TestCmdRevokeRequiresScopeAndFingerprint(t *testing.T) {
	var stdout, stderr bytes.Buffer
	st := store.New(t.TempDir(), t.TempDir(), store.OSUsernameResolver{})
	rc := cmdRevoke(nil, st, testAuthorizer(t), &stdout, &stderr)
	if rc != 2 {
		t.Fatalf("expected exit 2, got %d", rc)
	}
}

func TestCmdRevokeRoundTripsWithAppend(t *testing.T) {
	var stdout, stderr bytes.Buffer
	st := store.New(t.TempDir(), t.TempDir(), store.OSUsernameResolver{})
	uid := requesterUID()
	entry := store.Entry{Scope: store.ScopeAlways, ActionID: "org.example.a", When: 1, AuthAs: uid}
	if err := st.Append(uid, entry); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rc := cmdRevoke([]string{"-scope", string(store.ScopeAlways), "-fingerprint", entry.Fingerprint()}, st, testAuthorizer(t), &stdout, &stderr)
	if rc != 0 {
		t.Fatalf("expected exit 0, got %d (stderr=%s)", rc, stderr.String())
	}
	if !strings.Contains(stdout.String(), "revoked") {
		t.Fatalf("unexpected output: %q", stdout.String())
	}
}
