// Package tree runs `kubectl tree` for a resource and keeps the resulting
// views.
package tree

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/kubetree/internal/bridge"
	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/shell"
)

// Kubeconfig path types.
const (
	KubeconfigHost = "host"
	KubeconfigWSL  = "wsl"
)

// Kubeconfig locates the cluster configuration. A host path lives on this
// machine, a wsl path inside the WSL distribution.
type Kubeconfig struct {
	Path string
	Type string
}

// Commander runs a command line. *autoinstall.Orchestrator satisfies it.
type Commander interface {
	Run(ctx context.Context, command string, opts ...shell.ExecOption) (shell.Result, error)
}

var resourcePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)

// Runner builds and runs `kubectl tree -A <kind> <name>`.
type Runner struct {
	cmd        Commander
	kubeconfig Kubeconfig
	bridge     bool
	logger     hclog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBridge tells the runner that the executor already routes commands
// through WSL.
func WithBridge(enabled bool) RunnerOption {
	return func(r *Runner) { r.bridge = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner.
func NewRunner(cmd Commander, kubeconfig Kubeconfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		cmd:        cmd,
		kubeconfig: kubeconfig,
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("tree")
	return r
}

// Tree shows the ownership tree of kind/name. A result that still fails after
// any install is reported as an ExecFailure alongside the result.
func (r *Runner) Tree(ctx context.Context, kind, name string) (shell.Result, error) {
	if name == "" {
		return shell.Result{}, failure.New(failure.KindConfigUnavailable, "TreeView only works for resources, not with kinds")
	}
	if !resourcePattern.MatchString(kind) || !resourcePattern.MatchString(name) {
		return shell.Result{}, fmt.Errorf("invalid resource %q", kind+"/"+name)
	}

	line, opts, err := r.command(kind, name)
	if err != nil {
		return shell.Result{}, err
	}

	r.logger.Debug("running", "command", line)
	res, err := r.cmd.Run(ctx, line, opts...)
	if err != nil {
		return res, err
	}
	if !res.Succeeded() {
		reason := strings.TrimSpace(res.Stderr)
		if reason == "" {
			reason = fmt.Sprintf("Unable to get the resource %s/%s", kind, name)
		}
		return res, failure.New(failure.KindExec, "Treeview failed: %s", reason)
	}
	return res, nil
}

// command returns the line to run and the options carrying the kubeconfig.
func (r *Runner) command(kind, name string) (string, []shell.ExecOption, error) {
	kc := r.kubeconfig
	if kc.Path == "" {
		return "", nil, failure.New(failure.KindConfigUnavailable, "k8s configuration not available. Unable to get active K8s cluster")
	}

	base := fmt.Sprintf("kubectl tree -A %s %s", kind, name)
	switch kc.Type {
	case KubeconfigHost, "":
		if r.bridge {
			// KUBECONFIG set on the host does not reach the WSL side.
			return fmt.Sprintf("%s --kubeconfig %q", base, bridge.ToBridgePath(kc.Path, true)), nil, nil
		}
		return base, []shell.ExecOption{shell.WithKubeconfig(kc.Path)}, nil
	case KubeconfigWSL:
		line := fmt.Sprintf("%s --kubeconfig %q", base, kc.Path)
		if !r.bridge {
			line = bridge.Prefix(line)
		}
		return line, nil, nil
	default:
		return "", nil, failure.New(failure.KindConfigUnavailable, "This command is not supported in your current configuration.")
	}
}
