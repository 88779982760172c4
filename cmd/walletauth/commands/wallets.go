package commands

import (
	"github.com/spf13/cobra"
	"moff.io/walletauth/internal/wallets"
)

func walletsCmd() *cobra.Command {
	var flat bool
	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "Discover the wallets installed in the host environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *App) error {
				if flat {
					return printJSON(cmd.OutOrStdout(), app.Host.Aggregator.Flat(cmd.Context()))
				}
				grouped := app.Host.Aggregator.Grouped(cmd.Context())
				if len(grouped) == 0 {
					return printJSON(cmd.OutOrStdout(), map[string]interface{}{"wallets": grouped, "install": wallets.InstallLinks})
				}
				return printJSON(cmd.OutOrStdout(), grouped)
			})
		},
	}
	cmd.Flags().BoolVar(&flat, "flat", false, "print one entry per discovered handle")
	return cmd
}
