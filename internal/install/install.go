// Package install downloads a tool's release archive and unpacks it into the
// tool's install directory.
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/kubetree/internal/archive"
	"github.com/jmylchreest/kubetree/internal/bridge"
	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/platform"
	"github.com/jmylchreest/kubetree/internal/shell"
	"github.com/jmylchreest/kubetree/internal/tools"
)

// Stage prefixes of user-facing failure messages.
const (
	DownloadFailedPrefix = "Failed to download: error was "
	UnpackFailedPrefix   = "Failed to unpack: error was "
)

// Target is where one tool version gets installed.
type Target struct {
	ToolName  string
	Version   string
	Directory string
}

// DownloadSpec says where the artifact comes from and how it is packed.
type DownloadSpec struct {
	URLTemplate string
	Kind        archive.Kind
}

// Fetcher downloads a URL to a temp file. *download.Downloader satisfies it.
type Fetcher interface {
	ToTempFile(ctx context.Context, url string) (string, error)
}

// Runner runs command lines. *shell.Executor satisfies it.
type Runner interface {
	Exec(ctx context.Context, command string, opts ...shell.ExecOption) (shell.Result, error)
}

// Installer installs managed tools. Installs of the same tool are not
// serialised; two concurrent installs write into the same directory.
type Installer struct {
	tools    *tools.Manager
	resolver *platform.Resolver
	fetcher  Fetcher
	runner   Runner
	logger   hclog.Logger
}

// New creates an Installer.
func New(manager *tools.Manager, fetcher Fetcher, runner Runner, logger hclog.Logger) *Installer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Installer{
		tools:    manager,
		resolver: manager.Resolver(),
		fetcher:  fetcher,
		runner:   runner,
		logger:   logger.Named("install"),
	}
}

// URL expands spec's template for the current platform. Unsupported platforms
// fail here, before any network access.
func (i *Installer) URL(spec DownloadSpec, target Target) (string, error) {
	p := i.resolver.Platform()
	label, ok := platform.Label(p)
	if !ok {
		return "", failure.New(failure.KindUnsupportedPlatform, "Unsupported platform %s", p)
	}
	return tools.ExpandURL(spec.URLTemplate, target.ToolName, target.Version, label), nil
}

// Install downloads and unpacks one artifact. Stages run in order and the
// first failure ends the install. The downloaded archive is deleted only after
// a successful unpack so a failed one can be inspected.
func (i *Installer) Install(ctx context.Context, spec DownloadSpec, target Target) error {
	url, err := i.URL(spec, target)
	if err != nil {
		return err
	}

	if !i.resolver.BridgeEnabled() {
		if err := os.MkdirAll(target.Directory, 0o755); err != nil { // #nosec G301 -- tool directory must be traversable
			return failure.Wrap(failure.KindExtract, UnpackFailedPrefix, err)
		}
	}

	i.logger.Info("installing tool", "tool", target.ToolName, "version", target.Version, "url", url)

	archivePath, err := i.fetcher.ToTempFile(ctx, url)
	if err != nil {
		return failure.Wrap(failure.KindDownload, DownloadFailedPrefix, err)
	}

	if err := i.unpack(ctx, archivePath, target, spec.Kind); err != nil {
		i.logger.Error("unpack failed, archive kept", "archive", archivePath, "error", err)
		return failure.Wrap(failure.KindExtract, UnpackFailedPrefix, err)
	}

	if err := os.Remove(archivePath); err != nil {
		i.logger.Warn("could not remove downloaded archive", "archive", archivePath, "error", err)
	}

	i.logger.Info("tool installed", "tool", target.ToolName, "directory", target.Directory)
	return nil
}

func (i *Installer) unpack(ctx context.Context, archivePath string, target Target, kind archive.Kind) error {
	if kind == archive.Unknown {
		if k, ok := archive.Detect(archivePath); ok {
			kind = k
		}
	}
	entries, err := archive.List(archivePath, kind)
	if err != nil {
		return err
	}
	if !archive.Contains(entries, target.ToolName) && !archive.Contains(entries, target.ToolName+".exe") {
		i.logger.Warn("archive has no file named after the tool", "tool", target.ToolName, "entries", len(entries))
	}

	dest := target.Directory
	source := archivePath
	if i.resolver.BridgeEnabled() {
		dest = bridge.NormalizeSeparators(dest)
		if err := i.run(ctx, fmt.Sprintf(`mkdir -p "%s"`, dest), "mkdir"); err != nil {
			return err
		}
		source = bridge.ToBridgePath(archivePath, true)
	} else if err := os.MkdirAll(dest, 0o755); err != nil { // #nosec G301 -- tool directory must be traversable
		return fmt.Errorf("create %s: %w", dest, err)
	}

	return i.run(ctx, fmt.Sprintf(`tar -C "%s" -xf "%s"`, dest, source), "tar")
}

// run executes command and turns anything but exit 0 into an error. The exit
// code is the only success signal; stderr output alone is not a failure.
func (i *Installer) run(ctx context.Context, command, what string) error {
	res, err := i.runner.Exec(ctx, command)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if !res.Succeeded() {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		return fmt.Errorf("%s failed: %s", what, msg)
	}
	return nil
}

// Directory returns a tool's install directory.
func (i *Installer) Directory(ctx context.Context, toolName string) (string, error) {
	return i.tools.Directory(ctx, toolName)
}

// BinaryPath returns where a tool's executable lives once installed.
func (i *Installer) BinaryPath(ctx context.Context, toolName string) (string, error) {
	return i.tools.BinaryPath(ctx, toolName)
}

// IsInstalled reports whether the tool's executable exists. In bridge mode
// the check runs inside WSL.
func (i *Installer) IsInstalled(ctx context.Context, toolName string) (bool, error) {
	bin, err := i.BinaryPath(ctx, toolName)
	if err != nil {
		return false, err
	}

	if i.resolver.BridgeEnabled() {
		res, err := i.runner.Exec(ctx, fmt.Sprintf(`test -f "%s"`, bin))
		if err != nil {
			return false, err
		}
		return res.Succeeded(), nil
	}

	info, err := os.Stat(bin)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", bin, err)
	}
	return !info.IsDir(), nil
}

// Target resolves the install target of a tool.
func (i *Installer) Target(ctx context.Context, tool tools.Tool) (Target, error) {
	dir, err := i.Directory(ctx, tool.Name)
	if err != nil {
		return Target{}, err
	}
	return Target{ToolName: tool.Name, Version: tool.Version, Directory: dir}, nil
}

// InstallTool installs a tool definition, replacing whatever is in its
// directory.
func (i *Installer) InstallTool(ctx context.Context, tool tools.Tool) error {
	target, err := i.Target(ctx, tool)
	if err != nil {
		return err
	}
	return i.Install(ctx, DownloadSpec{URLTemplate: tool.URLTemplate, Kind: tool.Archive}, target)
}

// InstallIfMissing installs a registered tool unless its executable is
// already present. It reports whether an install was attempted.
func (i *Installer) InstallIfMissing(ctx context.Context, toolName string) (bool, error) {
	tool, ok := i.tools.Get(toolName)
	if !ok {
		return false, failure.New(failure.KindConfigUnavailable, "unknown tool %q", toolName)
	}
	if !i.tools.IsEnabled(toolName) {
		return false, failure.New(failure.KindConfigUnavailable, "tool %q is disabled", toolName)
	}

	installed, err := i.IsInstalled(ctx, toolName)
	if err != nil {
		return false, err
	}
	if installed {
		i.logger.Debug("tool already installed", "tool", toolName)
		return false, nil
	}
	return true, i.InstallTool(ctx, tool)
}

// InstallFromTemplate installs toolName at version from a versioned URL
// template, for tools that are not registered.
func (i *Installer) InstallFromTemplate(ctx context.Context, toolName, version, urlTemplate string) error {
	kind, ok := archive.Detect(urlTemplate)
	if !ok {
		kind = archive.TarGz
	}
	return i.InstallTool(ctx, tools.Tool{Name: toolName, Version: version, URLTemplate: urlTemplate, Archive: kind})
}
