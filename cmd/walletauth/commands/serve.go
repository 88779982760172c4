package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"moff.io/walletauth/internal/http"
	"moff.io/walletauth/internal/starter"
	"moff.io/walletauth/pkg/log"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve wallet discovery, sign-in and the development token grant over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, func(app *App) error {
				server := http.NewServer(http.Deps{
					Aggregator:  app.Host.Aggregator,
					Dispatcher:  app.Dispatcher,
					Issuer:      app.Issuer,
					TokenSecret: app.TokenSecret(),
				})
				starter.Start(ctx, app.Config, server)
				<-ctx.Done()
				log.Info("shutting down")
				starter.Stop(server)
				return nil
			})
		},
	}
}
