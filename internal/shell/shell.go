// Package shell runs command lines for kubetree. It builds the child
// environment so installed tools are found first on PATH, routes commands
// through the WSL bridge when enabled, and reports results as values.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/kubetree/internal/bridge"
	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/platform"
	"github.com/jmylchreest/kubetree/internal/process"
)

// Result is the outcome of one command. ExitCode 0 is success; anything else
// is failure whatever Stderr contains.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports whether the command exited 0.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Message returns stdout on success and stderr otherwise.
func (r Result) Message() string {
	if r.Succeeded() {
		return r.Stdout
	}
	return r.Stderr
}

// DirectoryProvider lists the install directories to put on PATH for a
// given home directory.
type DirectoryProvider interface {
	DirectoriesFor(home string) []string
}

// Executor runs command lines. It holds no state between calls.
type Executor struct {
	resolver *platform.Resolver
	dirs     DirectoryProvider
	runner   process.ProcessRunner
	logger   hclog.Logger
	environ  func() []string
	workDir  string
	stdout   io.Writer
	stderr   io.Writer
}

// Option configures an Executor.
type Option func(*Executor)

// WithRunner sets the process runner.
func WithRunner(runner process.ProcessRunner) Option {
	return func(e *Executor) { e.runner = runner }
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithDirectories sets the source of tool directories prepended to PATH.
func WithDirectories(dirs DirectoryProvider) Option {
	return func(e *Executor) { e.dirs = dirs }
}

// WithEnviron replaces os.Environ as the base environment.
func WithEnviron(environ func() []string) Option {
	return func(e *Executor) { e.environ = environ }
}

// WithWorkingDir sets the default working directory for commands.
func WithWorkingDir(dir string) Option {
	return func(e *Executor) { e.workDir = dir }
}

// WithOutput streams a live copy of command output to the given writers.
// Either may be nil.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// New creates an Executor.
func New(resolver *platform.Resolver, opts ...Option) *Executor {
	e := &Executor{
		resolver: resolver,
		runner:   process.NewRealProcessRunner(),
		logger:   hclog.NewNullLogger(),
		environ:  os.Environ,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("shell")
	return e
}

// Resolver returns the platform resolver.
func (e *Executor) Resolver() *platform.Resolver {
	return e.resolver
}

// With returns a copy of e with opts applied on top.
func (e *Executor) With(opts ...Option) *Executor {
	c := *e
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// ExecOption adjusts a single invocation.
type ExecOption func(*execConfig)

type execConfig struct {
	kubeconfig string
	stdin      string
	dir        string
}

// WithKubeconfig sets KUBECONFIG for the child.
func WithKubeconfig(path string) ExecOption {
	return func(c *execConfig) { c.kubeconfig = path }
}

// WithStdin writes text to the child's stdin and then closes it.
func WithStdin(text string) ExecOption {
	return func(c *execConfig) { c.stdin = text }
}

// WithDir runs the command in dir.
func WithDir(dir string) ExecOption {
	return func(c *execConfig) { c.dir = dir }
}

// Exec runs command and waits for it. A non-zero exit is returned as a Result
// with a nil error; the error is reserved for commands that could not be run.
func (e *Executor) Exec(ctx context.Context, command string, opts ...ExecOption) (Result, error) {
	return e.ExecStreaming(ctx, command, nil, opts...)
}

// ExecStreaming runs command and hands the live process to onStart right
// after it is spawned, so callers can stop it. It then waits and returns the
// collected output.
func (e *Executor) ExecStreaming(ctx context.Context, command string, onStart func(*process.Handle), opts ...ExecOption) (Result, error) {
	cfg := execConfig{dir: e.workDir}
	for _, opt := range opts {
		opt(&cfg)
	}

	cmd := e.command(ctx, command, cfg)
	e.logger.Debug("exec", "command", cmd.Line, "dir", cmd.Dir)

	h, err := e.runner.Start(ctx, cmd)
	if err != nil {
		return Result{ExitCode: -1}, failure.Wrap(failure.KindExec, fmt.Sprintf("Unable to run %q: ", command), err)
	}
	if onStart != nil {
		onStart(h)
	}

	out, err := h.Wait()
	res := Result{ExitCode: out.ExitCode, Stdout: string(out.Stdout), Stderr: string(out.Stderr)}
	if err != nil {
		return res, failure.Wrap(failure.KindExec, fmt.Sprintf("Command %q did not complete: ", command), err)
	}

	e.logger.Debug("exec finished", "command", cmd.Line, "exit_code", res.ExitCode)
	return res, nil
}

func (e *Executor) command(ctx context.Context, command string, cfg execConfig) process.Command {
	line := command
	if e.resolver.BridgeEnabled() {
		line = bridge.Prefix(command)
	}

	env := e.Environment(ctx, e.environ())
	if cfg.kubeconfig != "" {
		env = setEnv(env, "KUBECONFIG", cfg.kubeconfig, e.resolver.HostWindows())
	}

	cmd := process.Command{
		Line:   line,
		Env:    env,
		Dir:    cfg.dir,
		Stdout: e.stdout,
		Stderr: e.stderr,
	}
	if cfg.stdin != "" {
		cmd.Stdin = strings.NewReader(cfg.stdin)
	}
	return cmd
}

// Environment returns a copy of base prepared for a child process. HOME is
// set from the resolver on native Windows and in bridge mode, and every
// managed tool directory is prepended to the PATH variable. Each call
// prepends again; entries are not deduplicated.
//
// The home directory is resolved once per call. PATH belongs to the host
// process, so on a Windows host its name is matched case-insensitively and
// entries are joined with ';', bridged or not.
func (e *Executor) Environment(ctx context.Context, base []string) []string {
	env := append([]string(nil), base...)
	hostWindows := e.resolver.HostWindows()

	home, err := e.resolver.Home(ctx)
	if err != nil {
		e.logger.Warn("could not resolve home directory", "error", err)
	} else if e.resolver.IsWindows() || e.resolver.BridgeEnabled() {
		env = setEnv(env, "HOME", home, hostWindows)
	}

	if e.dirs != nil && err == nil {
		name := pathVariableName(env, hostWindows)
		sep := pathSeparator(hostWindows)
		for _, dir := range e.dirs.DirectoriesFor(home) {
			current, _ := getEnv(env, name, hostWindows)
			value := dir
			if current != "" {
				value = dir + sep + current
			}
			env = setEnv(env, name, value, hostWindows)
		}
	}

	logEnvironmentTrace(e.logger, env)
	return env
}

// pathVariableName finds the PATH variable. Windows environment names are
// case-insensitive, so the existing spelling is reused there.
func pathVariableName(env []string, windows bool) string {
	if windows {
		for _, kv := range env {
			name, _, _ := strings.Cut(kv, "=")
			if strings.EqualFold(name, "path") {
				return name
			}
		}
	}
	return "PATH"
}

func pathSeparator(windows bool) string {
	if windows {
		return ";"
	}
	return ":"
}

func getEnv(env []string, key string, foldCase bool) (string, bool) {
	for _, kv := range env {
		name, value, _ := strings.Cut(kv, "=")
		if name == key || (foldCase && strings.EqualFold(name, key)) {
			return value, true
		}
	}
	return "", false
}

// setEnv replaces key in env, or appends it. With foldCase the match ignores
// case and keeps the existing spelling.
func setEnv(env []string, key, value string, foldCase bool) []string {
	for i, kv := range env {
		name, _, _ := strings.Cut(kv, "=")
		if name == key || (foldCase && strings.EqualFold(name, key)) {
			env[i] = name + "=" + value
			return env
		}
	}
	return append(env, key+"="+value)
}
