// Package tools defines the external command line tools kubetree installs on
// demand and tracks which of them are enabled.
package tools

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jmylchreest/kubetree/internal/archive"
)

// Placeholders understood by URL templates.
const (
	PlaceholderPlatform = "{platform}"
	PlaceholderVersion  = "{version}"
	PlaceholderTool     = "{tool}"
)

// KubectlTreeName is the name of the kubectl tree plugin.
const KubectlTreeName = "kubectl-tree"

// Tool describes one managed tool and where its release artifacts live.
type Tool struct {
	// Name is the tool name and the base name of its binary.
	Name string

	// Version is the pinned release tag.
	Version string

	// URLTemplate is the artifact URL with {platform}, {version} and {tool}
	// placeholders.
	URLTemplate string

	// Archive is the artifact's compression.
	Archive archive.Kind

	// MissingSignature is the stderr text produced when a command needs the
	// tool but cannot find it.
	MissingSignature string

	// ManualInstall is the command a user can run to install the tool
	// themselves.
	ManualInstall string

	// Homepage is shown alongside ManualInstall when installing fails.
	Homepage string
}

// ExecutableName returns the binary file name on the given platform.
func (t Tool) ExecutableName(windows bool) string {
	if windows {
		return t.Name + ".exe"
	}
	return t.Name
}

// Remediation tells the user how to install the tool by hand.
func (t Tool) Remediation() string {
	what := t.Name
	if plugin, ok := strings.CutPrefix(t.Name, "kubectl-"); ok {
		what = fmt.Sprintf("kubectl plugin %q", plugin)
	}
	msg := "Make sure you have installed " + what + "."
	if t.ManualInstall != "" {
		msg += fmt.Sprintf(" Run %q,", t.ManualInstall)
	}
	if t.Homepage != "" {
		msg += " More details " + t.Homepage
	}
	return strings.TrimSuffix(msg, ",")
}

// ExpandURL fills the URL template placeholders.
func ExpandURL(template, tool, version, platform string) string {
	return strings.NewReplacer(
		PlaceholderPlatform, platform,
		PlaceholderVersion, version,
		PlaceholderTool, tool,
	).Replace(template)
}

var toolDefinitions = map[string]Tool{
	KubectlTreeName: {
		Name:             KubectlTreeName,
		Version:          "v0.4.0",
		URLTemplate:      "https://github.com/ahmetb/kubectl-tree/releases/download/{version}/{tool}_{version}_{platform}_amd64.tar.gz",
		Archive:          archive.TarGz,
		MissingSignature: `unknown command "tree" for "kubectl"`,
		ManualInstall:    "kubectl krew install tree",
		Homepage:         "https://github.com/ahmetb/kubectl-tree",
	},
}

// KnownTools returns the built-in tool names.
func KnownTools() []string {
	names := make([]string, 0, len(toolDefinitions))
	for name := range toolDefinitions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Definition returns the built-in definition for name.
func Definition(name string) (Tool, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}
