package commands

import (
	"github.com/spf13/cobra"
	"moff.io/walletauth/internal/chain"
	"moff.io/walletauth/internal/claims"
	"moff.io/walletauth/internal/wallets"
	"moff.io/walletauth/pkg/errors"
)

func loginCmd() *cobra.Command {
	var wallet, chainName, statement string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a discovered wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind chain.Kind
			if chainName != "" {
				var ok bool
				if kind, ok = chain.ParseKind(chainName); !ok {
					return errors.Errorf("unsupported chain %q", chainName)
				}
			}
			return withApp(cmd.Context(), func(app *App) error {
				picker := wallets.NewPicker(app.Host.Aggregator.Grouped(cmd.Context()))
				if picker.Empty() {
					return errors.New("no wallet detected")
				}
				if wallet != "" {
					if err := picker.Select(wallets.GroupID(wallet)); err != nil {
						return err
					}
				}
				sel, err := picker.Choose(kind)
				if err != nil {
					if action, aerr := picker.Action(); aerr == nil {
						return errors.Errorf("%v: %v supports %v", err, picker.Selected().Name, action.Chains)
					}
					return err
				}
				if statement == "" {
					statement = app.Config.Dispatch.Statement
				}
				session, err := app.Dispatcher.Dispatch(cmd.Context(), sel.Chain, sel.Provider, statement)
				if err != nil {
					return err
				}
				view := claims.Project(claims.Decode(session.User))
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"wallet":  sel.WalletName,
					"session": session,
					"claims":  view,
				})
			})
		},
	}
	cmd.Flags().StringVar(&wallet, "wallet", "", "wallet name or group uuid, optional with a single wallet")
	cmd.Flags().StringVar(&chainName, "chain", "", "ethereum or solana, required for multi-chain wallets")
	cmd.Flags().StringVar(&statement, "statement", "", "statement shown in the sign-in message")
	return cmd
}
