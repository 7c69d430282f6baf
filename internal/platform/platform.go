// Package platform resolves the host operating system, the user's home
// directory and a few path conventions that differ between native Windows and
// Unix-like hosts, including the WSL bridge.
package platform

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/process"
)

// Platform identifies the operating system a tool binary must be built for.
type Platform int

// Supported platforms.
const (
	Unsupported Platform = iota
	Windows
	MacOS
	Linux
)

func (p Platform) String() string {
	switch p {
	case Windows:
		return "Windows"
	case MacOS:
		return "MacOS"
	case Linux:
		return "Linux"
	default:
		return "Unsupported"
	}
}

// Label returns the platform segment used in release artifact names.
func Label(p Platform) (string, bool) {
	switch p {
	case Windows:
		return "windows", true
	case MacOS:
		return "darwin", true
	case Linux:
		return "linux", true
	default:
		return "", false
	}
}

// bridgeHomeCommand asks the Linux side of the bridge for its home directory.
// ${HOME} is expanded by the bridged shell, not the host.
const bridgeHomeCommand = "wsl.exe echo ${HOME}"

// Resolver answers platform questions for one configuration. The bridge flag
// is captured at construction, so reading it never has side effects.
type Resolver struct {
	goos   string
	bridge bool
	getenv func(string) string
	runner process.ProcessRunner
	logger hclog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGOOS overrides runtime.GOOS.
func WithGOOS(goos string) Option {
	return func(r *Resolver) { r.goos = goos }
}

// WithBridge enables or disables WSL bridge mode.
func WithBridge(enabled bool) Option {
	return func(r *Resolver) { r.bridge = enabled }
}

// WithGetenv replaces os.Getenv for home directory lookups.
func WithGetenv(getenv func(string) string) Option {
	return func(r *Resolver) { r.getenv = getenv }
}

// WithRunner sets the process runner used to query the bridge.
func WithRunner(runner process.ProcessRunner) Option {
	return func(r *Resolver) { r.runner = runner }
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a Resolver for the current host.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		goos:   runtime.GOOS,
		getenv: os.Getenv,
		runner: process.NewRealProcessRunner(),
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BridgeEnabled reports whether commands are routed through WSL.
func (r *Resolver) BridgeEnabled() bool {
	return r.bridge
}

// HostWindows reports whether the host OS is Windows, regardless of bridge
// mode. It decides which shell spawns the command line.
func (r *Resolver) HostWindows() bool {
	return r.goos == "windows"
}

// IsWindows reports whether commands run natively on Windows. Bridge mode is
// not Windows from the point of view of the command.
func (r *Resolver) IsWindows() bool {
	return r.HostWindows() && !r.bridge
}

// IsUnixLike is the complement of IsWindows.
func (r *Resolver) IsUnixLike() bool {
	return !r.IsWindows()
}

// Platform returns the platform that tool binaries must target.
func (r *Resolver) Platform() Platform {
	if r.bridge {
		return Linux
	}
	switch r.goos {
	case "windows":
		return Windows
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unsupported
	}
}

// Home returns the user's home directory as seen by the commands that will
// run. In bridge mode that is the Linux home inside WSL, which costs one
// subprocess. Natively the result may be empty when no variable is set.
func (r *Resolver) Home(ctx context.Context) (string, error) {
	if r.bridge {
		out, err := r.runner.Run(ctx, process.Command{Line: bridgeHomeCommand})
		if err != nil {
			return "", failure.Wrap(failure.KindConfigUnavailable, "query bridge home: ", err)
		}
		if out.ExitCode != 0 {
			return "", failure.New(failure.KindConfigUnavailable,
				"query bridge home: exit code %d: %s", out.ExitCode, strings.TrimSpace(string(out.Stderr)))
		}
		home := strings.TrimSpace(string(out.Stdout))
		r.logger.Trace("resolved bridge home", "home", home)
		return home, nil
	}
	return r.nativeHome(), nil
}

func (r *Resolver) nativeHome() string {
	if home := r.getenv("HOME"); home != "" {
		return home
	}
	if home := safeDrivePath(r.getenv("HOMEDRIVE"), r.getenv("HOMEPATH")); home != "" {
		return home
	}
	return r.getenv("USERPROFILE")
}

// safeDrivePath joins HOMEDRIVE and HOMEPATH unless HOMEPATH points into the
// system directory, which is what service accounts get.
func safeDrivePath(drive, path string) string {
	if drive == "" || path == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(path), `\windows\system32`) {
		return ""
	}
	return drive + path
}

// Join appends rel to base using the separator of the command platform.
// On native Windows forward slashes in rel are converted.
func (r *Resolver) Join(base, rel string) string {
	if r.IsWindows() {
		return base + `\` + strings.ReplaceAll(rel, "/", `\`)
	}
	return base + "/" + rel
}

// UnquotedPath strips one pair of surrounding double quotes on native Windows,
// where paths with spaces are often handed around quoted.
func (r *Resolver) UnquotedPath(p string) string {
	if r.IsWindows() && len(p) > 1 && strings.HasPrefix(p, `"`) && strings.HasSuffix(p, `"`) {
		return p[1 : len(p)-1]
	}
	return p
}

// FileURI converts a local path to a file URI.
func FileURI(p string) string {
	if isDrivePath(p) {
		return "file:///" + strings.ReplaceAll(p, `\`, "/")
	}
	return "file://" + p
}

func isDrivePath(p string) bool {
	return len(p) > 2 && p[1] == ':' && p[2] == '\\'
}
