package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/process"
)

const treeOutput = "NAMESPACE  NAME            READY  REASON  AGE\n" +
	"default    Deployment/web  -              1d\n"

type harness struct {
	app    *app
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	runner *process.MockProcessRunner
	home   string
	env    map[string]string
}

func newHarness(t *testing.T, runner *process.MockProcessRunner) *harness {
	t.Helper()
	home := t.TempDir()
	h := &harness{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		runner: runner,
		home:   home,
		env: map[string]string{
			"HOME":            home,
			"KUBETREE_CONFIG": filepath.Join(home, "kubetree.yaml"),
		},
	}
	h.app = newApp(h.stdout, h.stderr, func(k string) string { return h.env[k] })
	h.app.runner = runner
	h.app.goos = "linux"
	h.app.environ = func() []string { return []string{"PATH=/usr/bin"} }
	return h
}

func (h *harness) run(args ...string) error {
	root := newRootCommand(h.app)
	root.SetArgs(args)
	defer h.app.close()
	return root.ExecuteContext(context.Background())
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t, process.NewMockProcessRunner())
	require.NoError(t, h.run("version"))
	assert.Contains(t, h.stdout.String(), "kubetree version")
}

func TestPlatformCommand(t *testing.T) {
	h := newHarness(t, process.NewMockProcessRunner())
	require.NoError(t, h.run("platform", "--kubeconfig", "/k"))

	out := h.stdout.String()
	assert.Contains(t, out, "linux")
	assert.Contains(t, out, h.home)
	assert.Contains(t, out, filepath.Join(h.home, ".kubetree", "tools"))
	assert.Contains(t, out, "/k")
}

func TestToolsPathCommand(t *testing.T) {
	h := newHarness(t, process.NewMockProcessRunner())
	require.NoError(t, h.run("tools", "path", "kubectl-tree"))
	assert.Equal(t, filepath.Join(h.home, ".kubetree", "tools", "kubectl-tree", "kubectl-tree")+"\n", h.stdout.String())

	err := h.run("tools", "path", "nope")
	assert.ErrorIs(t, err, failure.ErrConfigUnavailable)
}

func TestToolsListCommand(t *testing.T) {
	h := newHarness(t, process.NewMockProcessRunner())
	require.NoError(t, h.run("tools", "list"))

	out := h.stdout.String()
	assert.Contains(t, out, "kubectl-tree")
	assert.Contains(t, out, "v0.4.0")
	assert.Contains(t, out, "missing")
}

func TestTreeCommand(t *testing.T) {
	h := newHarness(t, process.NewSuccessMockProcessRunner([]byte(treeOutput)))
	require.NoError(t, h.run("tree", "deployment/web", "--kubeconfig", "/k"))

	assert.Equal(t, strings.TrimSuffix(treeOutput, "\n")+"\n", h.stdout.String())
	require.Equal(t, 1, h.runner.CallCount())
	cmd := h.runner.LastCommand()
	assert.Equal(t, "kubectl tree -A deployment web", cmd.Line)
	assert.Contains(t, cmd.Env, "KUBECONFIG=/k")
	assert.True(t, strings.HasPrefix(envValue(cmd.Env, "PATH"), filepath.Join(h.home, ".kubetree", "tools", "kubectl-tree")+":"))
}

func TestTreeCommandWSLKubeconfig(t *testing.T) {
	h := newHarness(t, process.NewSuccessMockProcessRunner([]byte(treeOutput)))
	require.NoError(t, h.run("tree", "pod", "p", "--kubeconfig", "/home/me/.kube/config", "--kubeconfig-type", "wsl"))
	assert.Equal(t, `wsl kubectl tree -A pod p --kubeconfig "/home/me/.kube/config"`, h.runner.LastCommand().Line)
}

func TestTreeCommandBareKind(t *testing.T) {
	h := newHarness(t, process.NewMockProcessRunner())
	err := h.run("tree", "deployment", "--kubeconfig", "/k")
	assert.ErrorIs(t, err, failure.ErrConfigUnavailable)
	assert.Equal(t, 0, h.runner.CallCount())
}

func TestTreeCommandInstallFailure(t *testing.T) {
	runner := process.NewExitMockProcessRunner(1, `error: unknown command "tree" for "kubectl"`)
	h := newHarness(t, runner)
	config := "tools:\n  pin:\n    kubectl-tree:\n      url: http://127.0.0.1:1/{tool}.tar.gz\n"
	require.NoError(t, os.WriteFile(h.env["KUBETREE_CONFIG"], []byte(config), 0o600))

	err := h.run("tree", "deployment", "web", "--kubeconfig", "/k")
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrDownload)
	assert.Equal(t, 1, runner.CallCount(), "no retry after a failed install")
	assert.Contains(t, h.stderr.String(), "kubectl krew install tree")
}

func TestExecCommandExitCode(t *testing.T) {
	h := newHarness(t, process.NewExitMockProcessRunner(3, "boom\n"))
	err := h.run("exec", "--", "false")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err, io.Discard))
	assert.Contains(t, h.stderr.String(), "boom")
}

func TestExecCommandStream(t *testing.T) {
	h := newHarness(t, process.NewSuccessMockProcessRunner([]byte("live\n")))
	require.NoError(t, h.run("exec", "--stream", "--", "kubectl", "get", "pods"))
	assert.Equal(t, "live\n", h.stdout.String())
	assert.Equal(t, "kubectl get pods", h.runner.LastCommand().Line)
}

func TestConfigShow(t *testing.T) {
	h := newHarness(t, process.NewMockProcessRunner())
	h.env["KUBETREE_USE_WSL"] = "no"
	require.NoError(t, h.run("config", "show", "--log-level", "debug"))
	assert.Contains(t, h.stdout.String(), "level: debug")

	assert.Error(t, h.run("config", "show", "-o", "json"))
}

func TestInvalidConfiguration(t *testing.T) {
	h := newHarness(t, process.NewMockProcessRunner())
	assert.Error(t, h.run("platform", "--kubeconfig-type", "remote"), "rejected by the flag")

	h.env["KUBETREE_KUBECONFIG_TYPE"] = "remote"
	err := h.run("platform")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kubeconfig.type")
}

func TestChoiceValue(t *testing.T) {
	var v string
	c := newChoiceValue(&v, "host", "wsl")
	require.NoError(t, c.Set("wsl"))
	assert.Equal(t, "wsl", c.String())
	assert.Error(t, c.Set("remote"))
	assert.Equal(t, "wsl", v)
}

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, exitCode(nil, &stderr))
	assert.Equal(t, 1, exitCode(failure.New(failure.KindExec, "Treeview failed: x"), &stderr))
	assert.Equal(t, "Error: Treeview failed: x\n", stderr.String())
}

func envValue(env []string, key string) string {
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}
