package overrides

import (
	"strings"
	"testing"

	"github.com/tomtom215/polkitgo/internal/result"
)

func mustLoad(t *testing.T, doc string) *Tree {
	t.Helper()
	tree, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tree
}

func TestEvaluateNoMatchIsUnknown(t *testing.T) {
	tree := mustLoad(t, `<config></config>`)
	r, admin := tree.Evaluate(Subject{ActionID: "org.example.foo", UID: 1000})
	if r != result.Unknown {
		t.Fatalf("expected Unknown, got %v", r)
	}
	if len(admin.Users) != 0 || len(admin.Groups) != 0 {
		t.Fatalf("expected no admin identities, got %+v", admin)
	}
}

func TestEvaluateActionMatch(t *testing.T) {
	doc := `<config>
  <match action="org.foo.*">
    <return result="auth_admin_keep_session"/>
  </match>
</config>`
	tree := mustLoad(t, doc)

	r, _ := tree.Evaluate(Subject{ActionID: "org.foo.bar", UID: 1000})
	if r != result.AdminAuthKeepSession {
		t.Fatalf("expected auth_admin_keep_session, got %v", r)
	}

	r, _ = tree.Evaluate(Subject{ActionID: "org.baz.qux", UID: 1000})
	if r != result.Unknown {
		t.Fatalf("expected Unknown for non-matching action, got %v", r)
	}
}

func TestEvaluateUserMatchByUIDOrName(t *testing.T) {
	doc := `<config>
  <match user="1000">
    <return result="yes"/>
  </match>
  <match user="^alice$">
    <return result="auth_admin"/>
  </match>
</config>`
	tree := mustLoad(t, doc)

	r, _ := tree.Evaluate(Subject{ActionID: "org.example.foo", UID: 1000})
	if r != result.Yes {
		t.Fatalf("expected Yes for uid match, got %v", r)
	}

	r, _ = tree.Evaluate(Subject{ActionID: "org.example.foo", UID: 2000, Username: "alice"})
	if r != result.AdminAuth {
		t.Fatalf("expected auth_admin for username match, got %v", r)
	}
}

func TestFirstReturnWinsDepthFirstLeftToRight(t *testing.T) {
	doc := `<config>
  <match action="org.example.*">
    <match user="1000">
      <return result="yes"/>
    </match>
    <return result="no"/>
  </match>
</config>`
	tree := mustLoad(t, doc)

	r, _ := tree.Evaluate(Subject{ActionID: "org.example.foo", UID: 1000})
	if r != result.Yes {
		t.Fatalf("expected nested match's return to win, got %v", r)
	}

	r, _ = tree.Evaluate(Subject{ActionID: "org.example.foo", UID: 2000})
	if r != result.No {
		t.Fatalf("expected outer return when inner doesn't match, got %v", r)
	}
}

func TestDefineAdminAuthCollectedAlongBranch(t *testing.T) {
	doc := `<config>
  <match action="org.example.*">
    <define_admin_auth group="wheel"/>
    <define_admin_auth user="root"/>
    <return result="auth_admin"/>
  </match>
</config>`
	tree := mustLoad(t, doc)

	r, admin := tree.Evaluate(Subject{ActionID: "org.example.foo", UID: 1000})
	if r != result.AdminAuth {
		t.Fatalf("expected auth_admin, got %v", r)
	}
	if len(admin.Groups) != 1 || admin.Groups[0] != "wheel" {
		t.Fatalf("expected group wheel collected, got %+v", admin.Groups)
	}
	if len(admin.Users) != 1 || admin.Users[0] != "root" {
		t.Fatalf("expected user root collected, got %+v", admin.Users)
	}
}

func TestDefineAdminAuthCollectedAfterSiblingReturn(t *testing.T) {
	doc := `<config>
  <match action="org.foo.*">
    <return result="auth_admin_keep_session"/>
    <define_admin_auth group="wheel"/>
  </match>
</config>`
	tree := mustLoad(t, doc)

	r, admin := tree.Evaluate(Subject{ActionID: "org.foo.bar", UID: 1000})
	if r != result.AdminAuthKeepSession {
		t.Fatalf("expected auth_admin_keep_session, got %v", r)
	}
	if len(admin.Groups) != 1 || admin.Groups[0] != "wheel" {
		t.Fatalf("expected group wheel collected despite following the <return>, got %+v", admin.Groups)
	}
}

func TestUnknownResultWordFails(t *testing.T) {
	doc := `<config><return result="not_a_real_result"/></config>`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for unknown result word")
	}
}

func TestMatchMissingAttributeFails(t *testing.T) {
	doc := `<config><match><return result="yes"/></match></config>`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for <match> with neither action nor user attribute")
	}
}
