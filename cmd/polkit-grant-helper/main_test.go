package main

import "testing"

func TestParseArgsAcceptsFourArguments(t *testing.T) {
	args, err := parseArgs([]string{"org.example.frobnicate", "local,active", "uid", "1000"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if args.ActionID != "org.example.frobnicate" || args.Constraints != "local,active" || args.Mode != "uid" || args.TargetUID != 1000 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestParseArgsRejectsWrongArgCount(t *testing.T) {
	if _, err := parseArgs([]string{"org.example.frobnicate", "", "uid"}); err == nil {
		t.Fatal("expected error for 3 arguments")
	}
	if _, err := parseArgs([]string{"org.example.frobnicate", "", "uid", "1000", "extra"}); err == nil {
		t.Fatal("expected error for 5 arguments")
	}
}

func TestParseArgsRejectsMalformedUID(t *testing.T) {
	if _, err := parseArgs([]string{"org.example.frobnicate", "", "uid", "not-a-uid"}); err == nil {
		t.Fatal("expected error for malformed uid")
	}
}

func TestParseConstraintsEmptyStringYieldsNil(t *testing.T) {
	c, err := parseConstraints("")
	if err != nil {
		t.Fatalf("parseConstraints: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil constraints, got %+v", c)
	}
}

func TestParseConstraintsSingleToken(t *testing.T) {
	c, err := parseConstraints("local")
	if err != nil {
		t.Fatalf("parseConstraints: %v", err)
	}
	if len(c) != 1 || c[0].Token() != "local" {
		t.Fatalf("unexpected constraints: %+v", c)
	}
}

func TestParseConstraintsMultipleCommaSeparatedTokens(t *testing.T) {
	c, err := parseConstraints("local,active,exe:/usr/bin/foo")
	if err != nil {
		t.Fatalf("parseConstraints: %v", err)
	}
	if len(c) != 3 {
		t.Fatalf("expected 3 constraints, got %d: %+v", len(c), c)
	}
	if c[2].Token() != "exe:/usr/bin/foo" {
		t.Fatalf("unexpected third constraint: %+v", c[2])
	}
}

func TestParseConstraintsRejectsMalformedToken(t *testing.T) {
	if _, err := parseConstraints("local,bogus"); err == nil {
		t.Fatal("expected error for malformed constraint token")
	}
}
