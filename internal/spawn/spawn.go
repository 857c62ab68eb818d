// Package spawn implements spec.md §4.8's spawn_sync child-process
// utility, used by the authentication-agent integration to run a
// helper and collect its stdout/stderr/exit status synchronously.
// Grounded on original_source/src/kit/kit-spawn.c's select-loop-then-
// waitpid shape, and on the reference container runtime's use of
// syscall.SysProcAttr.Setpgid for process-group isolation
// (_examples/therealutkarshpriyadarshi-containr/pkg/container/container.go).
// Uses golang.org/x/sys/unix directly (rather than os/exec's signal
// helpers alone) for the explicit process-group SIGKILL, matching the
// original's signal semantics.
package spawn

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/tomtom215/polkitgo/internal/pkerrors"
)

// Flags controls stdio capture behavior, mirroring spec.md §4.8's flags
// parameter.
type Flags struct {
	CaptureStdout bool
	CaptureStderr bool
}

// Result holds the outcome of a Sync call.
type Result struct {
	Stdout     []byte
	Stderr     []byte
	ExitStatus int
}

// Sync runs argv[0] with the remaining elements of argv as its
// arguments, in the optional working directory cwd, with the optional
// environment env (nil inherits the current process's environment).
// stdin, if non-nil, is written to the child's standard input before
// closing it.
//
// The child runs in its own process group (Setpgid) and is sent SIGKILL
// if the thread that started it exits (Pdeathsig); stdio above fd 2 is
// not inherited (os/exec never inherits extra descriptors unless
// explicitly added, so this holds without further action). SIGPIPE has
// its default disposition in the child without an explicit reset: the Go
// runtime catches SIGPIPE rather than ignoring it, and execve resets
// caught signals to their default, so a helper that writes to a closed
// pipe terminates the way a C child would.
//
// If ctx is canceled while the child is running, Sync sends SIGKILL to
// the entire process group and returns ctx.Err() after reaping it.
func Sync(ctx context.Context, cwd string, argv []string, env []string, stdin []byte, flags Flags) (Result, error) {
	if len(argv) == 0 {
		return Result{}, pkerrors.New(pkerrors.KindGeneralError, "spawn: empty argv")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cwd
	if env != nil {
		cmd.Env = env
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}

	var stdout, stderr bytes.Buffer
	if flags.CaptureStdout {
		cmd.Stdout = &stdout
	}
	if flags.CaptureStderr {
		cmd.Stderr = &stderr
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "spawn: start %q", argv[0])
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		killGroup(cmd.Process.Pid)
		<-done
		return Result{}, ctx.Err()
	case err := <-done:
		status := exitStatus(err)
		if err != nil && status < 0 {
			return Result{}, pkerrors.Wrap(pkerrors.KindGeneralError, err, "spawn: wait %q", argv[0])
		}
		return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitStatus: status}, nil
	}
}

// killGroup sends SIGKILL to the process group rooted at pid, the
// group Sync created with Setpgid, so orphaned grandchildren die too.
func killGroup(pid int) {
	unix.Kill(-pid, unix.SIGKILL) //nolint:errcheck // best-effort cleanup on cancellation
}

// exitStatus extracts the child's exit code, mapping a signal death to
// 128+signal the way the original maps exec/setup failures to 128+errno,
// and returning -1 when the error is not a process exit at all (e.g. the
// binary could not be found).
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return -1
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			return 128 + int(status.Signal())
		}
		return status.ExitStatus()
	}
	return -1
}
