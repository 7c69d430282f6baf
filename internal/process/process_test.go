//go:build !windows

package process

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealRunnerCapturesOutput(t *testing.T) {
	r := NewRealProcessRunner()

	out, err := r.Run(context.Background(), Command{Line: "echo hello; echo oops 1>&2"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, "hello\n", string(out.Stdout))
	assert.Equal(t, "oops\n", string(out.Stderr))
}

func TestRealRunnerExitCode(t *testing.T) {
	r := NewRealProcessRunner()

	out, err := r.Run(context.Background(), Command{Line: "exit 3"})
	require.NoError(t, err, "a non-zero exit is not a spawn error")
	assert.Equal(t, 3, out.ExitCode)
}

func TestRealRunnerStdin(t *testing.T) {
	r := NewRealProcessRunner()

	out, err := r.Run(context.Background(), Command{Line: "cat", Stdin: strings.NewReader("payload")})
	require.NoError(t, err)
	assert.Equal(t, "payload", string(out.Stdout))
}

func TestRealRunnerEnvironment(t *testing.T) {
	r := NewRealProcessRunner()

	out, err := r.Run(context.Background(), Command{
		Line: `printf %s "$KUBETREE_TEST"`,
		Env:  []string{"KUBETREE_TEST=value", "PATH=/usr/bin:/bin"},
	})
	require.NoError(t, err)
	assert.Equal(t, "value", string(out.Stdout))
}

func TestRealRunnerEmptyLine(t *testing.T) {
	_, err := NewRealProcessRunner().Run(context.Background(), Command{})
	assert.Error(t, err)
}

func TestStartTeesOutput(t *testing.T) {
	var live bytes.Buffer
	h, err := NewRealProcessRunner().Start(context.Background(), Command{Line: "echo streamed", Stdout: &live})
	require.NoError(t, err)
	assert.Greater(t, h.PID(), 0)

	out, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, "streamed\n", string(out.Stdout))
	assert.Equal(t, "streamed\n", live.String())
	assert.True(t, h.Exited())
	assert.False(t, h.Alive())
}

func TestHandleKill(t *testing.T) {
	h, err := NewRealProcessRunner().Start(context.Background(), Command{Line: "sleep 30"})
	require.NoError(t, err)

	require.NoError(t, h.Kill())

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Kill")
	}

	out, _ := h.Wait()
	assert.NotEqual(t, 0, out.ExitCode)
	assert.ErrorIs(t, h.Kill(), ErrNotRunning)
}

func waitSignal(t *testing.T, h *Handle) syscall.Signal {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	status, ok := h.Cmd.ProcessState.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	require.True(t, status.Signaled())
	return status.Signal()
}

func TestHandleTerminate(t *testing.T) {
	h, err := NewRealProcessRunner().Start(context.Background(), Command{Line: "exec sleep 30"})
	require.NoError(t, err)

	require.NoError(t, h.Terminate())
	assert.Equal(t, syscall.SIGTERM, waitSignal(t, h))
	assert.ErrorIs(t, h.Terminate(), ErrNotRunning)
}

// TestHandleTerminateWindowsKills tests that Terminate falls back to Kill
// where SIGTERM cannot be delivered. The child ignores SIGTERM, so only a
// kill stops it.
func TestHandleTerminateWindowsKills(t *testing.T) {
	defer func(prev string) { hostGOOS = prev }(hostGOOS)
	hostGOOS = "windows"

	h, err := NewRealProcessRunner().Start(context.Background(), Command{Line: "trap '' TERM; exec sleep 30"})
	require.NoError(t, err)

	require.NoError(t, h.Terminate())
	assert.Equal(t, syscall.SIGKILL, waitSignal(t, h))
}

func TestRealRunnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewRealProcessRunner().Run(ctx, Command{Line: "sleep 30"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestFinishedHandle(t *testing.T) {
	h := FinishedHandle(Output{ExitCode: 2}, nil)
	assert.True(t, h.Exited())
	assert.Equal(t, -1, h.PID())
	assert.False(t, h.Alive())
	assert.ErrorIs(t, h.Terminate(), ErrNotRunning)

	out, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, out.ExitCode)
}

func TestMockRecordsCommands(t *testing.T) {
	m := NewExitMockProcessRunner(1, "boom")

	out, err := m.Run(context.Background(), Command{Line: "first"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.ExitCode)
	assert.Equal(t, "boom", string(out.Stderr))

	_, _ = m.Run(context.Background(), Command{Line: "second"})
	assert.Equal(t, 2, m.CallCount())
	assert.Equal(t, []string{"first", "second"}, m.Lines())
	assert.Equal(t, "second", m.LastCommand().Line)
}

func TestMockTimeout(t *testing.T) {
	m := NewTimeoutMockProcessRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Run(ctx, Command{Line: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockStartSpawnError(t *testing.T) {
	m := NewErrorMockProcessRunner("executable file not found")
	h, err := m.Start(context.Background(), Command{Line: "missing"})
	assert.Nil(t, h)
	assert.EqualError(t, err, "executable file not found")
}
