package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration after file, environment and flag overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "yaml", "toml":
			default:
				return fmt.Errorf("unknown format %q, expected yaml or toml", format)
			}
			return a.cfg.Encode(a.stdout, format)
		},
	}
	show.Flags().StringVarP(&format, "format", "o", "yaml", "output format (yaml, toml)")
	cmd.AddCommand(show)
	return cmd
}
