// Package process runs command lines through the host shell. It is the only
// place that touches os/exec; everything above it talks to a ProcessRunner so
// tests can substitute MockProcessRunner.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait keeps draining pipes after the child is
// killed, so grandchildren holding stdout open cannot stall a cancelled run.
const waitDelay = 2 * time.Second

// Command describes one subprocess invocation.
type Command struct {
	// Line is the full command line, interpreted by the host shell.
	Line string

	// Env is the complete environment for the child. Nil inherits ours.
	Env []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Stdin, if set, is written to the child and then closed.
	Stdin io.Reader

	// Stdout and Stderr optionally receive a live copy of the output
	// in addition to the captured buffers.
	Stdout io.Writer
	Stderr io.Writer
}

// Output is what a finished subprocess produced.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ProcessRunner defines an interface for running external processes.
// This abstraction allows for dependency injection and easier testing.
type ProcessRunner interface {
	// Run executes the command and waits for it to exit. A non-zero exit
	// status is reported through Output.ExitCode, not as an error; the error
	// is reserved for failures to spawn or wait on the process.
	Run(ctx context.Context, cmd Command) (Output, error)

	// Start spawns the command and returns immediately with a live handle.
	Start(ctx context.Context, cmd Command) (*Handle, error)
}

// RealProcessRunner implements ProcessRunner using actual os/exec commands.
type RealProcessRunner struct{}

// NewRealProcessRunner creates a new real process runner.
func NewRealProcessRunner() *RealProcessRunner {
	return &RealProcessRunner{}
}

// Run executes a real external process.
func (r *RealProcessRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	h, err := r.Start(ctx, cmd)
	if err != nil {
		return Output{ExitCode: -1}, err
	}
	return h.Wait()
}

// Start spawns a real external process.
func (r *RealProcessRunner) Start(ctx context.Context, cmd Command) (*Handle, error) {
	if cmd.Line == "" {
		return nil, errors.New("empty command line")
	}

	c := shellCommand(ctx, cmd.Line)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin
	c.WaitDelay = waitDelay

	h := newHandle(c)
	c.Stdout = tee(&h.stdout, cmd.Stdout)
	c.Stderr = tee(&h.stderr, cmd.Stderr)

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start %q: %w", cmd.Line, err)
	}
	h.begin(ctx)
	return h, nil
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// exitCode maps a Wait error to an exit status. Errors that are not exit
// statuses yield -1 and are returned to the caller.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
