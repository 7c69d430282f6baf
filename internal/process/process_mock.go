package process

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockProcessRunner is a mock implementation of ProcessRunner for testing.
type MockProcessRunner struct {
	// RunFunc allows tests to provide custom behavior
	RunFunc func(ctx context.Context, cmd Command) (Output, error)

	// Delay simulates slow process execution
	Delay time.Duration

	// ShouldTimeout if true, will block until context is cancelled
	ShouldTimeout bool

	mu       sync.Mutex
	commands []Command
}

// Run executes the mock behavior.
func (m *MockProcessRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	m.mu.Lock()
	m.commands = append(m.commands, cmd)
	m.mu.Unlock()

	// Simulate timeout behavior
	if m.ShouldTimeout {
		<-ctx.Done()
		return Output{ExitCode: -1}, ctx.Err()
	}

	// Simulate delay
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return Output{ExitCode: -1}, ctx.Err()
		}
	}

	// Use custom function if provided
	if m.RunFunc != nil {
		return m.RunFunc(ctx, cmd)
	}

	// Default: return empty success
	return Output{}, nil
}

// Start runs the mock to completion and returns an already finished handle.
func (m *MockProcessRunner) Start(ctx context.Context, cmd Command) (*Handle, error) {
	out, err := m.Run(ctx, cmd)
	if err != nil && out.ExitCode == -1 && ctx.Err() == nil {
		return nil, err
	}
	if cmd.Stdout != nil && len(out.Stdout) > 0 {
		_, _ = cmd.Stdout.Write(out.Stdout)
	}
	if cmd.Stderr != nil && len(out.Stderr) > 0 {
		_, _ = cmd.Stderr.Write(out.Stderr)
	}
	return FinishedHandle(out, err), nil
}

// CallCount returns how many times Run or Start was called.
func (m *MockProcessRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commands)
}

// Commands returns a copy of every command passed to the mock, in order.
func (m *MockProcessRunner) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.commands...)
}

// Lines returns the command lines passed to the mock, in order.
func (m *MockProcessRunner) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]string, len(m.commands))
	for i, c := range m.commands {
		lines[i] = c.Line
	}
	return lines
}

// LastCommand returns the most recent command, or the zero Command.
func (m *MockProcessRunner) LastCommand() Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.commands) == 0 {
		return Command{}
	}
	return m.commands[len(m.commands)-1]
}

// NewMockProcessRunner creates a new mock process runner.
func NewMockProcessRunner() *MockProcessRunner {
	return &MockProcessRunner{}
}

// NewTimeoutMockProcessRunner creates a mock that simulates a timeout.
func NewTimeoutMockProcessRunner() *MockProcessRunner {
	return &MockProcessRunner{
		ShouldTimeout: true,
	}
}

// NewDelayMockProcessRunner creates a mock that simulates a slow process.
func NewDelayMockProcessRunner(delay time.Duration) *MockProcessRunner {
	return &MockProcessRunner{
		Delay: delay,
	}
}

// NewErrorMockProcessRunner creates a mock whose process cannot be spawned.
func NewErrorMockProcessRunner(errMsg string) *MockProcessRunner {
	return &MockProcessRunner{
		RunFunc: func(ctx context.Context, cmd Command) (Output, error) {
			return Output{ExitCode: -1}, errors.New(errMsg)
		},
	}
}

// NewExitMockProcessRunner creates a mock that exits with code and stderr.
func NewExitMockProcessRunner(code int, stderr string) *MockProcessRunner {
	return &MockProcessRunner{
		RunFunc: func(ctx context.Context, cmd Command) (Output, error) {
			return Output{Stderr: []byte(stderr), ExitCode: code}, nil
		},
	}
}

// NewSuccessMockProcessRunner creates a mock that returns stdout with exit 0.
func NewSuccessMockProcessRunner(stdout []byte) *MockProcessRunner {
	return &MockProcessRunner{
		RunFunc: func(ctx context.Context, cmd Command) (Output, error) {
			return Output{Stdout: stdout}, nil
		},
	}
}
