package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/kubetree/internal/failure"
)

func newToolsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage the tools kubetree installs on demand",
	}
	cmd.AddCommand(newToolsListCommand(a))
	cmd.AddCommand(newToolsInstallCommand(a))
	cmd.AddCommand(newToolsPathCommand(a))
	return cmd
}

func newToolsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List managed tools and whether they are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			table := NewTable([]string{"TOOL", "VERSION", "STATUS", "PATH"}, !a.flags.noColor && isTerminal(a.stdout))
			table.SetColumnMaxWidth(3, 60)

			for _, tool := range a.manager.All() {
				status := table.style(faintStyle, "disabled")
				if a.manager.IsEnabled(tool.Name) {
					installed, err := a.installer.IsInstalled(ctx, tool.Name)
					switch {
					case err != nil:
						status = table.style(warnStyle, "unknown")
						a.logger.Warn("install check failed", "tool", tool.Name, "error", err)
					case installed:
						status = table.style(okStyle, "installed")
					default:
						status = table.style(warnStyle, "missing")
					}
				}
				path, err := a.manager.BinaryPath(ctx, tool.Name)
				if err != nil {
					path = "-"
				}
				table.AddRow(tool.Name, tool.Version, status, path)
			}
			fmt.Fprint(a.stdout, table.Render())
			return nil
		},
	}
}

func newToolsInstallCommand(a *app) *cobra.Command {
	var (
		force   bool
		version string
		url     string
	)

	cmd := &cobra.Command{
		Use:   "install [tool...]",
		Short: "Install managed tools that are not installed yet",
		Long: `Install managed tools. With no arguments every enabled tool is considered.
Already installed tools are skipped unless --force is given.`,
		Example: `  kubetree tools install
  kubetree tools install kubectl-tree --version v0.4.3 --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			names := args
			if len(names) == 0 {
				for _, tool := range a.manager.Enabled() {
					names = append(names, tool.Name)
				}
			}
			if (version != "" || url != "") && len(names) != 1 {
				return fmt.Errorf("--version and --url need exactly one tool")
			}

			for _, name := range names {
				tool, ok := a.manager.Get(name)
				if !ok {
					return failure.New(failure.KindConfigUnavailable, "unknown tool %q", name)
				}

				if version != "" || url != "" {
					if version == "" {
						version = tool.Version
					}
					if url == "" {
						url = tool.URLTemplate
					}
					if err := a.installer.InstallFromTemplate(ctx, name, version, url); err != nil {
						a.notifier.Error(tool.Remediation())
						return err
					}
					a.notifier.Info(fmt.Sprintf("installed %s %s", name, version))
					continue
				}

				if force {
					if err := a.installer.InstallTool(ctx, tool); err != nil {
						a.notifier.Error(tool.Remediation())
						return err
					}
					a.notifier.Info(fmt.Sprintf("installed %s %s", name, tool.Version))
					continue
				}

				attempted, err := a.installer.InstallIfMissing(ctx, name)
				if err != nil {
					a.notifier.Error(tool.Remediation())
					return err
				}
				if attempted {
					a.notifier.Info(fmt.Sprintf("installed %s %s", name, tool.Version))
				} else {
					a.notifier.Info(fmt.Sprintf("%s is already installed", name))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "reinstall even if present")
	cmd.Flags().StringVar(&version, "version", "", "install this version instead of the pinned one")
	cmd.Flags().StringVar(&url, "url", "", "artifact URL template ({tool}, {version}, {platform})")
	return cmd
}

func newToolsPathCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path [tool]",
		Short: "Print install directories, or one tool's binary path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				if _, ok := a.manager.Get(args[0]); !ok {
					return failure.New(failure.KindConfigUnavailable, "unknown tool %q", args[0])
				}
				p, err := a.manager.BinaryPath(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, p)
				return nil
			}
			root, err := a.manager.Root(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, root)
			for _, dir := range a.manager.Directories(ctx) {
				fmt.Fprintln(a.stdout, dir)
			}
			return nil
		},
	}
}
