package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/kubetree/internal/tools"
	"github.com/jmylchreest/kubetree/internal/tree"
)

func newTreeCommand(a *app) *cobra.Command {
	var (
		watch time.Duration
		count int
	)

	cmd := &cobra.Command{
		Use:   "tree <kind> <name> | tree <kind>/<name>",
		Short: "Show the ownership tree of a resource",
		Long: `Show the objects owned by a Kubernetes resource using "kubectl tree -A".

If the kubectl-tree plugin is missing it is installed once and the command
is retried.`,
		Example: `  kubetree tree deployment web
  kubetree tree statefulset/db --watch 5s`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, name, err := parseResource(args)
			if err != nil {
				return err
			}

			orch, err := a.orchestrator(tools.KubectlTreeName)
			if err != nil {
				return err
			}
			runner := tree.NewRunner(orch, a.kubeconfig(cmd.Context()),
				tree.WithBridge(a.resolver.BridgeEnabled()),
				tree.WithLogger(a.logger))
			registry, err := tree.NewRegistry(runner, a.cfg.Views.Capacity)
			if err != nil {
				return err
			}

			styled := !a.flags.noColor && isTerminal(a.stdout)
			view, err := registry.Open(cmd.Context(), kind, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, tree.Render(view.Output, styled))
			if watch <= 0 {
				return nil
			}

			ticker := time.NewTicker(watch)
			defer ticker.Stop()
			for i := 1; count <= 0 || i < count; i++ {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
				}
				view, err = registry.Refresh(cmd.Context())
				if err != nil {
					a.notifier.Error(err.Error())
					continue
				}
				fmt.Fprintf(a.stdout, "\n# %s at %s\n", view.Key(), view.Updated.Format(time.TimeOnly))
				fmt.Fprintln(a.stdout, tree.Render(view.Output, styled))
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&watch, "watch", "w", 0, "refresh the tree at this interval")
	cmd.Flags().IntVar(&count, "count", 0, "with --watch, stop after this many renders (0 means forever)")
	return cmd
}

// parseResource accepts "kind name" or "kind/name".
func parseResource(args []string) (string, string, error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	kind, name, ok := strings.Cut(args[0], "/")
	if !ok {
		// A bare kind; Runner.Tree reports that only resources are supported.
		return args[0], "", nil
	}
	if kind == "" || name == "" {
		return "", "", fmt.Errorf("invalid resource %q, expected <kind>/<name>", args[0])
	}
	return kind, name, nil
}
