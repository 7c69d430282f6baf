package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/kubetree/internal/platform"
)

func newPlatformCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform, home directory and kubeconfig",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r := a.resolver

			label, ok := platform.Label(r.Platform())
			if !ok {
				label = "unsupported"
			}
			home, err := r.Home(ctx)
			if err != nil {
				a.logger.Warn("home directory unavailable", "error", err)
			}
			root, err := a.manager.Root(ctx)
			if err != nil {
				root = "-"
			}
			kc := a.kubeconfig(ctx)

			table := NewTable([]string{"KEY", "VALUE"}, false)
			table.AddRow("platform", label)
			table.AddRow("bridge", fmt.Sprintf("%t", r.BridgeEnabled()))
			table.AddRow("home", home)
			table.AddRow("tools", root)
			table.AddRow("kubeconfig", kc.Path)
			table.AddRow("kubeconfig-type", kc.Type)
			fmt.Fprint(a.stdout, table.Render())
			return nil
		},
	}
}
