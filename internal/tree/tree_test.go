package tree

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/shell"
)

// recordingCommander captures the command line and options it is given.
type recordingCommander struct {
	lines []string
	opts  [][]shell.ExecOption
	res   shell.Result
	err   error
}

func (c *recordingCommander) Run(ctx context.Context, command string, opts ...shell.ExecOption) (shell.Result, error) {
	c.lines = append(c.lines, command)
	c.opts = append(c.opts, opts)
	return c.res, c.err
}

const sample = "NAMESPACE  NAME                        READY  REASON  AGE\n" +
	"default    Deployment/web              -              3d\n" +
	"default    └─ReplicaSet/web-5d         -              3d\n" +
	"default      └─Pod/web-5d-abc          True           3d\n"

func TestTreeCommandLines(t *testing.T) {
	tests := []struct {
		name       string
		kubeconfig Kubeconfig
		bridge     bool
		wantLine   string
		wantOpts   int
	}{
		{
			name:       "host path uses KUBECONFIG",
			kubeconfig: Kubeconfig{Path: "/home/me/.kube/config", Type: KubeconfigHost},
			wantLine:   "kubectl tree -A deployment web",
			wantOpts:   1,
		},
		{
			name:       "wsl path without bridge adds the prefix",
			kubeconfig: Kubeconfig{Path: "/home/me/.kube/config", Type: KubeconfigWSL},
			wantLine:   `wsl kubectl tree -A deployment web --kubeconfig "/home/me/.kube/config"`,
		},
		{
			name:       "wsl path with bridge is not prefixed twice",
			kubeconfig: Kubeconfig{Path: "/home/me/.kube/config", Type: KubeconfigWSL},
			bridge:     true,
			wantLine:   `kubectl tree -A deployment web --kubeconfig "/home/me/.kube/config"`,
		},
		{
			name:       "host path with bridge is translated",
			kubeconfig: Kubeconfig{Path: `C:\Users\me\.kube\config`, Type: KubeconfigHost},
			bridge:     true,
			wantLine:   `kubectl tree -A deployment web --kubeconfig "/mnt/c/Users/me/.kube/config"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &recordingCommander{res: shell.Result{Stdout: sample}}
			r := NewRunner(cmd, tt.kubeconfig, WithBridge(tt.bridge))

			res, err := r.Tree(context.Background(), "deployment", "web")
			require.NoError(t, err)
			assert.Equal(t, sample, res.Stdout)
			require.Len(t, cmd.lines, 1)
			assert.Equal(t, tt.wantLine, cmd.lines[0])
			assert.Len(t, cmd.opts[0], tt.wantOpts)
		})
	}
}

func TestTreeWithoutKubeconfig(t *testing.T) {
	cmd := &recordingCommander{}
	r := NewRunner(cmd, Kubeconfig{})

	_, err := r.Tree(context.Background(), "pod", "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrConfigUnavailable)
	assert.Contains(t, err.Error(), "k8s configuration not available")
	assert.Empty(t, cmd.lines)
}

func TestTreeUnsupportedKubeconfigType(t *testing.T) {
	r := NewRunner(&recordingCommander{}, Kubeconfig{Path: "/x", Type: "remote"})
	_, err := r.Tree(context.Background(), "pod", "p")
	assert.ErrorIs(t, err, failure.ErrConfigUnavailable)
}

func TestTreeRejectsBadInput(t *testing.T) {
	cmd := &recordingCommander{}
	r := NewRunner(cmd, Kubeconfig{Path: "/k", Type: KubeconfigHost})

	_, err := r.Tree(context.Background(), "deployment", "")
	assert.ErrorIs(t, err, failure.ErrConfigUnavailable)

	_, err = r.Tree(context.Background(), "pod", "p; rm -rf /")
	assert.Error(t, err)
	assert.Empty(t, cmd.lines)
}

func TestTreeFailure(t *testing.T) {
	cmd := &recordingCommander{res: shell.Result{ExitCode: 1, Stderr: `Error from server (NotFound): pods "p" not found` + "\n"}}
	r := NewRunner(cmd, Kubeconfig{Path: "/k", Type: KubeconfigHost})

	res, err := r.Tree(context.Background(), "pod", "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrExec)
	assert.Equal(t, `Treeview failed: Error from server (NotFound): pods "p" not found`, err.Error())
	assert.Equal(t, 1, res.ExitCode)

	cmd.res = shell.Result{ExitCode: 1}
	_, err = r.Tree(context.Background(), "pod", "p")
	assert.Equal(t, "Treeview failed: Unable to get the resource pod/p", err.Error())
}

func TestTreeSpawnErrorPassesThrough(t *testing.T) {
	spawn := errors.New("boom")
	r := NewRunner(&recordingCommander{err: spawn}, Kubeconfig{Path: "/k"})
	_, err := r.Tree(context.Background(), "pod", "p")
	assert.ErrorIs(t, err, spawn)
}

func TestRender(t *testing.T) {
	plain := Render("HEADER\r\n\r\nok True\nbad False\n", false)
	assert.Equal(t, "HEADER\nok True\nbad False", plain)

	styled := Render("HEADER\nok True\nbad False\nother", true)
	lines := strings.Split(styled, "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "\x1b[1m"), "header is bold: %q", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "\x1b[32m"), "True is green: %q", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "\x1b[31m"), "False is red: %q", lines[2])
	assert.Equal(t, "other", lines[3])
}
