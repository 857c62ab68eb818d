package identity

import "testing"

func TestNewActionValid(t *testing.T) {
	cases := []string{"org.example.frobnicate", "a.b.c", "org.freedesktop.policykit.exec", "org.freedesktop.Foo1"}
	for _, id := range cases {
		a, err := NewAction(id)
		if err != nil {
			t.Errorf("NewAction(%q) unexpected error: %v", id, err)
			continue
		}
		if a.ID() != id {
			t.Errorf("NewAction(%q).ID() = %q", id, a.ID())
		}
	}
}

func TestNewActionInvalid(t *testing.T) {
	cases := []string{
		"",
		"Org.Example.Foo",  // uppercase first segment
		"single",           // no dot
		"foo",              // no dot
		"X.y",              // uppercase first segment, no leading lowercase
		".x",               // leading dot, empty first segment
		"org..double",      // empty segment
		"org..foo",         // empty segment
		"org.example.",     // trailing dot
		".org.example.foo", // leading dot
	}
	for _, id := range cases {
		if _, err := NewAction(id); err == nil {
			t.Errorf("NewAction(%q) expected error, got none", id)
		}
	}
}

func TestNewActionTooLong(t *testing.T) {
	long := "a"
	for len(long) < 260 {
		long += ".b"
	}
	if _, err := NewAction(long); err == nil {
		t.Fatal("expected error for over-length action id")
	}
}

func TestValidateIconName(t *testing.T) {
	ok := []string{"", "folder", "dialog-warning"}
	bad := []string{"/usr/share/icons/foo", "icon.png", "icon.PNG", "icon.jpg", "a/b"}
	for _, n := range ok {
		if !ValidateIconName(n) {
			t.Errorf("ValidateIconName(%q) = false, want true", n)
		}
	}
	for _, n := range bad {
		if ValidateIconName(n) {
			t.Errorf("ValidateIconName(%q) = true, want false", n)
		}
	}
}

func TestNewCallerRequiresPositivePID(t *testing.T) {
	if _, err := NewCaller("", 1000, 0, 0, "", "", nil); err == nil {
		t.Fatal("expected error for pid == 0")
	}
	if _, err := NewCaller("", 1000, -1, 0, "", "", nil); err == nil {
		t.Fatal("expected error for negative pid")
	}
}

func TestNewCallerValid(t *testing.T) {
	c, err := NewCaller(":1.42", 1000, 4242, 123456, "unconfined_u:unconfined_r:unconfined_t:s0", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Valid() {
		t.Fatal("expected Valid() == true")
	}
	if c.HasSession {
		t.Fatal("expected HasSession == false when no session passed")
	}
}

func TestNewCallerWithSession(t *testing.T) {
	sess := Session{Identifier: "s1", UID: 1000, IsActive: true, IsLocal: true, Seat: Seat{ID: "seat0"}}
	c, err := NewCaller("org.freedesktop.PolicyKit1", 1000, 10, 0, "", "", &sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.HasSession || c.Session.Identifier != "s1" {
		t.Fatalf("session not attached correctly: %+v", c)
	}
}

func TestNewCallerBadBusName(t *testing.T) {
	if _, err := NewCaller("not a bus name!", 1000, 1, 0, "", "", nil); err == nil {
		t.Fatal("expected error for malformed bus name")
	}
}

func TestNewCallerBadSecurityLabel(t *testing.T) {
	if _, err := NewCaller("", 1000, 1, 0, "has spaces not allowed", "", nil); err == nil {
		t.Fatal("expected error for malformed security label")
	}
}

func TestNewCallerBadExePath(t *testing.T) {
	if _, err := NewCaller("", 1000, 1, 0, "", "relative/path", nil); err == nil {
		t.Fatal("expected error for non-absolute exe path")
	}
}

func TestNewCallerWithExePath(t *testing.T) {
	c, err := NewCaller("", 1000, 1, 0, "", "/usr/bin/frobnicate", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ExePath != "/usr/bin/frobnicate" {
		t.Fatalf("expected exe path to round-trip, got %q", c.ExePath)
	}
}

func TestSessionValid(t *testing.T) {
	var zero Session
	if zero.Valid() {
		t.Fatal("zero-value session should not be valid")
	}
	s := Session{Identifier: "s1", Seat: Seat{ID: "seat0"}}
	if !s.Valid() {
		t.Fatal("expected session with identifier and seat to be valid")
	}
}
