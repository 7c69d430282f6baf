package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmylchreest/kubetree/internal/autoinstall"
	"github.com/jmylchreest/kubetree/internal/config"
	"github.com/jmylchreest/kubetree/internal/download"
	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/install"
	"github.com/jmylchreest/kubetree/internal/notify"
	"github.com/jmylchreest/kubetree/internal/platform"
	"github.com/jmylchreest/kubetree/internal/process"
	"github.com/jmylchreest/kubetree/internal/shell"
	"github.com/jmylchreest/kubetree/internal/tools"
	"github.com/jmylchreest/kubetree/internal/tree"
)

type globalFlags struct {
	configPath     string
	logLevel       string
	verbose        bool
	quiet          bool
	noColor        bool
	bridge         bool
	kubeconfig     string
	kubeconfigType string
}

// app holds everything a command needs. setup fills it in before any
// command runs.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	// Test seams; nil means the real implementation.
	runner     process.ProcessRunner
	environ    func() []string
	httpClient *http.Client
	goos       string

	flags globalFlags

	cfg       config.Config
	logger    hclog.Logger
	logFile   io.Closer
	notifier  notify.Notifier
	resolver  *platform.Resolver
	manager   *tools.Manager
	executor  *shell.Executor
	installer *install.Installer
}

func newApp(stdout, stderr io.Writer, getenv func(string) string) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		getenv: getenv,
		logger: hclog.NewNullLogger(),
	}
}

// setup loads configuration and wires the components together.
func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := a.loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := newLogger(cfg.Log, a.flags.verbose, a.flags.quiet, a.stderr)
	if err != nil {
		return err
	}
	a.logger, a.logFile = logger, closer

	noColor := a.flags.noColor || !isTerminal(a.stdout)
	if a.flags.quiet {
		a.notifier = quietNotifier{notify.NewConsole(a.stderr, noColor)}
	} else {
		a.notifier = notify.NewConsole(a.stderr, noColor)
	}

	resolverOpts := []platform.Option{
		platform.WithBridge(cfg.Bridge.Enabled),
		platform.WithGetenv(a.getenv),
		platform.WithLogger(logger),
	}
	if a.goos != "" {
		resolverOpts = append(resolverOpts, platform.WithGOOS(a.goos))
	}
	if a.runner != nil {
		resolverOpts = append(resolverOpts, platform.WithRunner(a.runner))
	}
	a.resolver = platform.NewResolver(resolverOpts...)

	a.manager = tools.NewBuilder(a.resolver).
		WithConfig(cfg.ToolsConfig()).
		WithEnvConfig().
		WithLogger(logger).
		Build()

	execOpts := []shell.Option{
		shell.WithLogger(logger),
		shell.WithDirectories(a.manager),
	}
	if a.runner != nil {
		execOpts = append(execOpts, shell.WithRunner(a.runner))
	}
	if a.environ != nil {
		execOpts = append(execOpts, shell.WithEnviron(a.environ))
	}
	a.executor = shell.New(a.resolver, execOpts...)

	dlOpts := []download.Option{
		download.WithTimeout(cfg.Download.Timeout.Duration),
		download.WithMaxBytes(cfg.Download.MaxBytes),
		download.WithLogger(logger),
	}
	if cfg.Download.TempDir != "" {
		dlOpts = append(dlOpts, download.WithTempDir(cfg.Download.TempDir))
	}
	if a.httpClient != nil {
		dlOpts = append(dlOpts, download.WithHTTPClient(a.httpClient))
	}
	a.installer = install.New(a.manager, download.New(dlOpts...), a.executor, logger)

	logger.Debug("configured",
		"platform", a.resolver.Platform(),
		"bridge", a.resolver.BridgeEnabled(),
		"namespace", a.manager.Namespace())
	return nil
}

// loadConfig reads the config file and layers environment and flag
// overrides on top, in that order.
func (a *app) loadConfig(ctx context.Context, cmd *cobra.Command) (config.Config, error) {
	path := a.flags.configPath
	if path == "" {
		path = a.getenv("KUBETREE_CONFIG")
	}
	if path == "" {
		home, err := platform.NewResolver(platform.WithGetenv(a.getenv)).Home(ctx)
		if err == nil && home != "" {
			path = config.DefaultPath(home)
		}
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(a.getenv); err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("wsl") {
		cfg.Bridge.Enabled = a.flags.bridge
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.flags.logLevel
	}
	if flags.Changed("kubeconfig") {
		cfg.Kubeconfig.Path = a.flags.kubeconfig
	}
	if flags.Changed("kubeconfig-type") {
		cfg.Kubeconfig.Type = a.flags.kubeconfigType
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// orchestrator returns the install-on-demand wrapper for toolName.
func (a *app) orchestrator(toolName string) (*autoinstall.Orchestrator, error) {
	tool, ok := a.manager.Get(toolName)
	if !ok {
		return nil, failure.New(failure.KindConfigUnavailable, "unknown tool %q", toolName)
	}
	return autoinstall.New(tool, a.executor, a.installer,
		autoinstall.WithNotifier(a.notifier),
		autoinstall.WithLogger(a.logger)), nil
}

// kubeconfig returns the configured kubeconfig. A host setup without an
// explicit path falls back to ~/.kube/config when that file exists.
func (a *app) kubeconfig(ctx context.Context) tree.Kubeconfig {
	kc := tree.Kubeconfig{Path: a.cfg.Kubeconfig.Path, Type: a.cfg.Kubeconfig.Type}
	if kc.Path != "" || kc.Type != config.KubeconfigHost || a.resolver.BridgeEnabled() {
		return kc
	}
	home, err := a.resolver.Home(ctx)
	if err != nil || home == "" {
		return kc
	}
	candidate := filepath.Join(home, ".kube", "config")
	if _, err := os.Stat(candidate); err == nil {
		kc.Path = candidate
	}
	return kc
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// quietNotifier drops informational notices.
type quietNotifier struct {
	notify.Notifier
}

func (quietNotifier) Info(string) {}
