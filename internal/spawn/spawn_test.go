package spawn

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSyncCapturesStdout(t *testing.T) {
	res, err := Sync(context.Background(), "", []string{"/bin/echo", "hello"}, nil, nil, Flags{CaptureStdout: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "hello" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
	if res.ExitStatus != 0 {
		t.Fatalf("unexpected exit status %d", res.ExitStatus)
	}
}

func TestSyncReportsNonZeroExit(t *testing.T) {
	res, err := Sync(context.Background(), "", []string{"/bin/sh", "-c", "exit 7"}, nil, nil, Flags{})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.ExitStatus != 7 {
		t.Fatalf("expected exit status 7, got %d", res.ExitStatus)
	}
}

func TestSyncWritesStdin(t *testing.T) {
	res, err := Sync(context.Background(), "", []string{"/bin/cat"}, nil, []byte("ping"), Flags{CaptureStdout: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if string(res.Stdout) != "ping" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
}

func TestSyncCancellationKillsChild(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := Sync(ctx, "", []string{"/bin/sleep", "5"}, nil, nil, Flags{})
	if err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestSyncRejectsEmptyArgv(t *testing.T) {
	if _, err := Sync(context.Background(), "", nil, nil, nil, Flags{}); err == nil {
		t.Fatal("expected error for empty argv")
	}
}
