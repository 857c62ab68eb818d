package constraint

import (
	"testing"

	"github.com/tomtom215/polkitgo/internal/identity"
)

func TestTokenRoundTrip(t *testing.T) {
	cases := []Constraint{
		{Kind: Local},
		{Kind: Active},
		{Kind: Exe, Value: "/usr/bin/foo"},
		{Kind: SELinuxContext, Value: "unconfined_u:unconfined_r:unconfined_t:s0"},
	}
	for _, c := range cases {
		tok := c.Token()
		got, err := Parse(tok)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tok, err)
		}
		if !got.Equal(c) {
			t.Fatalf("round trip mismatch: %+v -> %q -> %+v", c, tok, got)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []string{"", "bogus", "exe:", "exe:relative/path", "selinux_context:"}
	for _, s := range cases {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) expected error", s)
		}
	}
}

func TestListEqualOrderSensitive(t *testing.T) {
	a := List{{Kind: Local}, {Kind: Active}}
	b := List{{Kind: Active}, {Kind: Local}}
	if a.Equal(b) {
		t.Fatal("expected order-sensitive Equal to reject reordered list")
	}
	if !a.Sorted().Equal(b.Sorted()) {
		t.Fatal("expected Sorted() lists to compare equal regardless of input order")
	}
}

func TestListEqualSameOrder(t *testing.T) {
	a := List{{Kind: Local}, {Kind: Active}}
	b := List{{Kind: Local}, {Kind: Active}}
	if !a.Equal(b) {
		t.Fatal("expected identical-order lists to be equal")
	}
}

func TestSatisfies(t *testing.T) {
	activeLocal, err := identity.NewCaller("", 1000, 1, 0, "unconfined_u", "", ptrSession(identity.Session{
		Identifier: "s1", UID: 1000, IsActive: true, IsLocal: true, Seat: identity.Seat{ID: "seat0"},
	}))
	if err != nil {
		t.Fatalf("NewCaller: %v", err)
	}

	l := List{{Kind: Local}, {Kind: Active}, {Kind: SELinuxContext, Value: "unconfined_u"}}
	if !l.Satisfies(activeLocal) {
		t.Fatal("expected constraint list to be satisfied")
	}

	inactive, err := identity.NewCaller("", 1000, 1, 0, "", "", ptrSession(identity.Session{
		Identifier: "s2", UID: 1000, IsActive: false, IsLocal: true, Seat: identity.Seat{ID: "seat0"},
	}))
	if err != nil {
		t.Fatalf("NewCaller: %v", err)
	}
	if (List{{Kind: Active}}).Satisfies(inactive) {
		t.Fatal("expected Active constraint to fail for an inactive session")
	}
}

func TestSatisfiesExeConstraint(t *testing.T) {
	c, err := identity.NewCaller("", 1000, 1, 0, "", "/usr/bin/frobnicate", nil)
	if err != nil {
		t.Fatalf("NewCaller: %v", err)
	}

	if !(List{{Kind: Exe, Value: "/usr/bin/frobnicate"}}).Satisfies(c) {
		t.Fatal("expected exe constraint to be satisfied by a matching caller path")
	}
	if (List{{Kind: Exe, Value: "/usr/bin/other"}}).Satisfies(c) {
		t.Fatal("expected exe constraint to fail for a mismatched caller path")
	}

	noExe, err := identity.NewCaller("", 1000, 1, 0, "", "", nil)
	if err != nil {
		t.Fatalf("NewCaller: %v", err)
	}
	if (List{{Kind: Exe, Value: "/usr/bin/frobnicate"}}).Satisfies(noExe) {
		t.Fatal("expected exe constraint to fail when the caller carries no exe path")
	}
}

func TestFromCaller(t *testing.T) {
	c, err := identity.NewCaller("", 1000, 1, 0, "unconfined_u", "/usr/bin/frobnicate", ptrSession(identity.Session{
		Identifier: "s1", IsActive: true, IsLocal: true, Seat: identity.Seat{ID: "seat0"},
	}))
	if err != nil {
		t.Fatalf("NewCaller: %v", err)
	}
	got := FromCaller(c)
	want := List{{Kind: Local}, {Kind: Active}, {Kind: Exe, Value: "/usr/bin/frobnicate"}, {Kind: SELinuxContext, Value: "unconfined_u"}}
	if !got.Equal(want) {
		t.Fatalf("FromCaller = %+v, want %+v", got, want)
	}
}

func ptrSession(s identity.Session) *identity.Session { return &s }
