package result

import "testing"

func TestRoundTrip(t *testing.T) {
	all := []Result{
		Unknown, No, AdminAuth, AdminAuthKeepSession, AdminAuthKeepAlways,
		SelfAuth, SelfAuthKeepSession, SelfAuthKeepAlways, Yes,
		AdminAuthOneShot, SelfAuthOneShot,
	}
	for _, r := range all {
		name := r.String()
		if name == "" {
			t.Fatalf("String() empty for %d", int(r))
		}
		got, ok := FromName(name)
		if !ok {
			t.Fatalf("FromName(%q) not found", name)
		}
		if got != r {
			t.Fatalf("round trip mismatch: %v -> %q -> %v", r, name, got)
		}
	}
}

func TestInvalidCode(t *testing.T) {
	var r Result = Result(999)
	if r.String() != "" {
		t.Fatalf("expected empty string for out-of-range code, got %q", r.String())
	}
}

func TestFromNameUnknownString(t *testing.T) {
	if _, ok := FromName("bogus"); ok {
		t.Fatal("expected FromName(\"bogus\") to fail")
	}
	if _, ok := FromName(""); ok {
		t.Fatal("expected FromName(\"\") to fail")
	}
}

func TestCanonicalNames(t *testing.T) {
	cases := map[Result]string{
		Unknown:             "unknown",
		No:                  "no",
		Yes:                 "yes",
		AdminAuthKeepAlways: "auth_admin_keep_always",
		SelfAuthOneShot:     "auth_self_one_shot",
	}
	for r, want := range cases {
		if got := r.String(); got != want {
			t.Errorf("Result(%d).String() = %q, want %q", int(r), got, want)
		}
	}
}

func TestIsAdminAuthIsSelfAuth(t *testing.T) {
	if !IsAdminAuth(AdminAuthOneShot) || IsSelfAuth(AdminAuthOneShot) {
		t.Fatal("AdminAuthOneShot classification wrong")
	}
	if !IsSelfAuth(SelfAuthKeepSession) || IsAdminAuth(SelfAuthKeepSession) {
		t.Fatal("SelfAuthKeepSession classification wrong")
	}
	if IsAdminAuth(Yes) || IsSelfAuth(Yes) || IsAdminAuth(No) || IsSelfAuth(Unknown) {
		t.Fatal("terminal codes misclassified as admin/self auth")
	}
}

func TestIsOneShot(t *testing.T) {
	if !IsOneShot(AdminAuthOneShot) || !IsOneShot(SelfAuthOneShot) {
		t.Fatal("one-shot codes not recognized")
	}
	if IsOneShot(AdminAuth) || IsOneShot(Yes) {
		t.Fatal("non-one-shot code misclassified")
	}
}

func TestKeepScope(t *testing.T) {
	cases := map[Result]Scope{
		Unknown:              ScopeNone,
		No:                   ScopeNone,
		Yes:                  ScopeNone,
		AdminAuthOneShot:     ScopeOneShot,
		SelfAuthOneShot:      ScopeOneShot,
		AdminAuth:            ScopeProcess,
		SelfAuth:             ScopeProcess,
		AdminAuthKeepSession: ScopeSession,
		SelfAuthKeepSession:  ScopeSession,
		AdminAuthKeepAlways:  ScopeAlways,
		SelfAuthKeepAlways:   ScopeAlways,
	}
	for r, want := range cases {
		if got := KeepScope(r); got != want {
			t.Errorf("KeepScope(%v) = %v, want %v", r, got, want)
		}
	}
}

func TestTextMarshalUnmarshal(t *testing.T) {
	text, err := AdminAuthKeepAlways.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "auth_admin_keep_always" {
		t.Fatalf("unexpected marshaled text %q", text)
	}
	var r Result
	if err := r.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if r != AdminAuthKeepAlways {
		t.Fatalf("unmarshal mismatch: got %v", r)
	}
	if err := r.UnmarshalText([]byte("not-a-result")); err == nil {
		t.Fatal("expected error for unknown text")
	}
}
