// Package cli provides the command-line interface for kubetree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/kubetree/internal/config"
	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/version"
)

// exitError carries a child's exit code up to Execute.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command with the process's arguments and
// environment. This is called by main.main().
func Execute() {
	a := newApp(os.Stdout, os.Stderr, os.Getenv)
	root := newRootCommand(a)
	err := root.Execute()
	a.close()
	os.Exit(exitCode(err, os.Stderr))
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	for _, msg := range failure.Messages(err) {
		fmt.Fprintln(stderr, "Error:", msg)
	}
	return 1
}

// newRootCommand builds the command tree around a.
func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kubetree",
		Short: "Show Kubernetes ownership trees, installing kubectl-tree on demand",
		Long: `kubetree runs "kubectl tree" for a resource and shows the objects it owns.

When the kubectl-tree plugin is missing, kubetree downloads the pinned release,
unpacks it into ~/.kubetree/tools and runs the command again. On Windows the
commands can be routed through WSL.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.configPath, "config", "", "config file (default ~/.kubetree/config.yaml, or KUBETREE_CONFIG)")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.BoolVarP(&a.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&a.flags.quiet, "quiet", "q", false, "suppress non-error output")
	flags.BoolVar(&a.flags.noColor, "no-color", false, "disable coloured output")
	flags.BoolVar(&a.flags.bridge, "wsl", false, "route commands through WSL")
	flags.StringVar(&a.flags.kubeconfig, "kubeconfig", "", "path to the kubeconfig file")
	flags.Var(newChoiceValue(&a.flags.kubeconfigType, config.KubeconfigHost, config.KubeconfigWSL), "kubeconfig-type", `where the kubeconfig lives, "host" or "wsl"`)

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(newVersionCommand(a))
	rootCmd.AddCommand(newTreeCommand(a))
	rootCmd.AddCommand(newExecCommand(a))
	rootCmd.AddCommand(newToolsCommand(a))
	rootCmd.AddCommand(newPlatformCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))
	return rootCmd
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.stdout, version.String())
		},
	}
}
