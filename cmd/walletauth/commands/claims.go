package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"moff.io/walletauth/internal/claims"
)

func claimsCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "claims <access-token>",
		Short: "Decode the wallet identity carried by an access token",
		Args:  cobra.ExactArgs(1),
		// 只解码令牌，不需要读取配置
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(strings.TrimPrefix(args[0], "Bearer "))
			var (
				r   claims.Result
				err error
			)
			if secret != "" {
				r, err = claims.DecodeVerifiedToken(token, []byte(secret))
			} else {
				r, err = claims.DecodeToken(token)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"present": r.IsPresent(),
				"claims":  claims.Project(r),
			})
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 secret to verify the token with")
	return cmd
}
