// Package autoinstall runs a command and, when it fails only because a
// managed tool is missing, installs the tool and runs the command once more.
package autoinstall

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/kubetree/internal/notify"
	"github.com/jmylchreest/kubetree/internal/shell"
	"github.com/jmylchreest/kubetree/internal/tools"
)

// State is a step of one Run.
type State int

// Run states. A Run moves Idle -> Installing -> Retried, or ends in Failed
// when the install does not succeed.
const (
	Idle State = iota
	Installing
	Retried
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Installing:
		return "installing"
	case Retried:
		return "retried"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Executor runs command lines. *shell.Executor satisfies it.
type Executor interface {
	Exec(ctx context.Context, command string, opts ...shell.ExecOption) (shell.Result, error)
}

// Installer installs a tool. *install.Installer satisfies it.
type Installer interface {
	InstallTool(ctx context.Context, tool tools.Tool) error
}

// IsMissingPlugin reports whether stderr carries tool's missing-tool
// signature. It is the only place the signature is matched.
func IsMissingPlugin(tool tools.Tool, stderr string) bool {
	return tool.MissingSignature != "" && strings.Contains(stderr, tool.MissingSignature)
}

// Orchestrator wraps command execution with install-on-demand for one tool.
type Orchestrator struct {
	tool      tools.Tool
	exec      Executor
	installer Installer
	notifier  notify.Notifier
	logger    hclog.Logger
	observe   func(State)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets where user messages go.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithObserver registers a callback invoked on every state change.
func WithObserver(fn func(State)) Option {
	return func(o *Orchestrator) { o.observe = fn }
}

// New creates an Orchestrator for tool.
func New(tool tools.Tool, exec Executor, installer Installer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tool:      tool,
		exec:      exec,
		installer: installer,
		notifier:  notify.Discard{},
		logger:    hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("autoinstall").With("tool", tool.Name)
	return o
}

// Tool returns the tool this orchestrator installs.
func (o *Orchestrator) Tool() tools.Tool {
	return o.tool
}

// Run executes command. If it fails with the tool's missing signature the
// user is told, the tool is installed and the identical command runs exactly
// once more; that second result is final. If the install fails the user gets
// the manual install instructions and nothing is retried. Any other failure
// is returned untouched.
func (o *Orchestrator) Run(ctx context.Context, command string, opts ...shell.ExecOption) (shell.Result, error) {
	o.transition(Idle)

	res, err := o.exec.Exec(ctx, command, opts...)
	if err != nil || res.Succeeded() || !IsMissingPlugin(o.tool, res.Stderr) {
		return res, err
	}

	o.transition(Installing)
	o.notifier.Info(fmt.Sprintf("%s is not installed, installing %s", o.tool.Name, o.tool.Version))
	o.logger.Info("missing tool detected, installing", "version", o.tool.Version)

	if err := o.installer.InstallTool(ctx, o.tool); err != nil {
		o.transition(Failed)
		o.logger.Error("install failed", "error", err)
		o.notifier.Error(o.tool.Remediation())
		return res, err
	}

	o.transition(Retried)
	o.logger.Debug("re-running command after install", "command", command)
	return o.exec.Exec(ctx, command, opts...)
}

func (o *Orchestrator) transition(s State) {
	o.logger.Trace("state", "state", s)
	if o.observe != nil {
		o.observe(s)
	}
}
