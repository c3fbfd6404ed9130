package cmd

import (
	"github.com/spf13/cobra"
	c "github.com/textileio/marketgate/cmd/market/common"
)

func init() {
	authCmd.AddCommand(authNewCmd, authWhoamiCmd)
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Provides commands to manage auth tokens",
	Long:  `Provides commands to manage auth tokens`,
}

var authNewCmd = &cobra.Command{
	Use:   "new [account]",
	Short: "Create an auth token for an account. Requires the admin token",
	Long:  `Create an auth token for an account. Requires the admin token`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		token, err := c.MarketClient.Auth.New(ctx, args[0])
		c.CheckErr(err)
		c.Success("Token for %s: %s", args[0], token)
	},
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the account of the auth token",
	Long:  `Print the account of the auth token`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		account, err := c.MarketClient.Auth.Whoami(ctx)
		c.CheckErr(err)
		c.Message("%s", account)
	},
}
