package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"moff.io/walletauth/internal/config"
	"moff.io/walletauth/pkg/log"
)

var configPath string

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "walletauth",
		Short:         "Sign in with Ethereum and Solana wallets",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Read(configPath); err != nil {
				return err
			}
			return log.SetLevelName(config.Global.LogLevel)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config-path", config.DefaultPath, "path of the yaml configuration")
	root.AddCommand(serveCmd(), walletsCmd(), loginCmd(), claimsCmd())
	return root
}

// withApp runs fn against the wired application and releases it afterwards.
func withApp(ctx context.Context, fn func(*App) error) error {
	app, err := newApp(ctx, config.Global)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
