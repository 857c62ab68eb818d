package main

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/tomtom215/polkitgo/internal/decision"
	"github.com/tomtom215/polkitgo/internal/overrides"
	"github.com/tomtom215/polkitgo/internal/policy"
	"github.com/tomtom215/polkitgo/internal/store"
)

const testPolicyXML = `<?xml version="1.0" encoding="UTF-8"?>
<policyconfig>
  <vendor>Example Corp</vendor>
  <action id="org.example.frobnicate">
    <description>Frobnicate the widget</description>
    <message>Authentication is required to frobnicate</message>
    <defaults>
      <allow_any>no</allow_any>
      <allow_inactive>no</allow_inactive>
      <allow_active>yes</allow_active>
    </defaults>
  </action>
</policyconfig>
`

func testSnapshot(t *testing.T) *decision.Snapshot {
	t.Helper()
	fsys := fstest.MapFS{
		"actions/org.example.policy": &fstest.MapFile{Data: []byte(testPolicyXML)},
	}
	cache, err := policy.Load(fsys, "actions")
	if err != nil {
		t.Fatalf("policy.Load: %v", err)
	}
	emptyOverrides, err := overrides.Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("overrides.Load: %v", err)
	}
	return &decision.Snapshot{Policy: cache, Overrides: emptyOverrides}
}

func TestCmdListActionsPrintsActionID(t *testing.T) {
	var buf bytes.Buffer
	rc := cmdListActions(testSnapshot(t), &buf)
	if rc != 0 {
		t.Fatalf("expected exit 0, got %d", rc)
	}
	if !strings.Contains(buf.String(), "org.example.frobnicate") {
		t.Fatalf("expected action id in output, got %q", buf.String())
	}
}

func TestCmdShowActionRequiresActionFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	snapshot := testSnapshot(t)
	st := store.New(t.TempDir(), t.TempDir(), store.OSUsernameResolver{})
	engine := decisionEngineForCLI(snapshot, st)
	rc := cmdShowAction(nil, engine, &stdout, &stderr)
	if rc != 2 {
		t.Fatalf("expected exit 2 for missing -action, got %d", rc)
	}
}

func TestCmdShowActionResolvesKnownAction(t *testing.T) {
	var stdout, stderr bytes.Buffer
	snapshot := testSnapshot(t)
	st := store.New(t.TempDir(), t.TempDir(), store.OSUsernameResolver{})
	engine := decisionEngineForCLI(snapshot, st)
	rc := cmdShowAction([]string{"-action", "org.example.frobnicate"}, engine, &stdout, &stderr)
	if rc != 0 {
		t.Fatalf("expected exit 0, got %d (stderr=%s)", rc, stderr.String())
	}
	if !strings.Contains(stdout.String(), "org.example.frobnicate") {
		t.Fatalf("unexpected output: %q", stdout.String())
	}
}
