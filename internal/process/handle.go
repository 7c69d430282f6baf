package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/mitchellh/go-ps"
)

// hostGOOS decides how Terminate stops a process.
var hostGOOS = runtime.GOOS

// ErrNotRunning is returned when signalling a process that has exited or was
// never started.
var ErrNotRunning = errors.New("process not running")

// Handle is a live subprocess. It is handed to streaming callers so they can
// implement their own cancellation or timeouts by terminating the process.
type Handle struct {
	// Cmd is the underlying exec.Cmd. Nil for handles built by FinishedHandle.
	Cmd *exec.Cmd

	// Started is the time the process was spawned.
	Started time.Time

	stdout bytes.Buffer
	stderr bytes.Buffer

	done chan struct{}
	out  Output
	err  error
}

func newHandle(c *exec.Cmd) *Handle {
	return &Handle{Cmd: c, done: make(chan struct{})}
}

// FinishedHandle returns a handle for a process that has already exited with
// the given output. MockProcessRunner uses it for streaming calls.
func FinishedHandle(out Output, err error) *Handle {
	h := &Handle{Started: time.Now(), done: make(chan struct{}), out: out, err: err}
	close(h.done)
	return h
}

// begin starts the wait goroutine. The captured output and exit status are
// published before done is closed.
func (h *Handle) begin(ctx context.Context) {
	h.Started = time.Now()
	go func() {
		code, err := exitCode(h.Cmd.Wait())
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		h.out = Output{
			Stdout:   h.stdout.Bytes(),
			Stderr:   h.stderr.Bytes(),
			ExitCode: code,
		}
		h.err = err
		close(h.done)
	}()
}

// Done returns a channel that is closed when the process exits.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the process exits and returns its output.
func (h *Handle) Wait() (Output, error) {
	<-h.done
	return h.out, h.err
}

// PID returns the process ID, or -1 if there is no live process.
func (h *Handle) PID() int {
	if h.Cmd == nil || h.Cmd.Process == nil {
		return -1
	}
	return h.Cmd.Process.Pid
}

// Exited reports whether the wait goroutine has observed the exit.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Alive reports whether the process is still present in the OS process table.
func (h *Handle) Alive() bool {
	if h.Exited() || h.PID() < 0 {
		return false
	}
	p, err := ps.FindProcess(h.PID())
	return err == nil && p != nil
}

// Executable returns the OS-reported executable name of the live process.
func (h *Handle) Executable() string {
	if h.PID() < 0 {
		return ""
	}
	p, err := ps.FindProcess(h.PID())
	if err != nil || p == nil {
		return ""
	}
	return p.Executable()
}

// Kill forcibly stops the process.
func (h *Handle) Kill() error {
	if h.Exited() || h.PID() < 0 {
		return ErrNotRunning
	}
	return h.Cmd.Process.Kill()
}

// Terminate asks the process to stop with SIGTERM. Windows cannot deliver
// SIGTERM, so there the process is killed instead.
func (h *Handle) Terminate() error {
	if h.Exited() || h.PID() < 0 {
		return ErrNotRunning
	}
	if hostGOOS == "windows" {
		return h.Cmd.Process.Kill()
	}
	return h.Cmd.Process.Signal(syscall.SIGTERM)
}
