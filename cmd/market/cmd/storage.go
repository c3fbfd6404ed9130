package cmd

import (
	"github.com/spf13/cobra"
	c "github.com/textileio/marketgate/cmd/market/common"
)

func init() {
	storageCmd.AddCommand(storageDepositCmd, storageWithdrawCmd, storageBalanceCmd, storageMinimumCmd)
}

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Provides commands to manage prepaid listing storage",
	Long:  `Provides commands to manage prepaid listing storage`,
}

var storageDepositCmd = &cobra.Command{
	Use:   "deposit [payment tx] [account]",
	Short: "Add to the storage balance of an account, yours by default",
	Long:  `Add to the storage balance of an account, yours by default. Payment tx is the host node transaction that paid the amount to the market account`,
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		var account string
		if len(args) == 2 {
			account = args[1]
		}
		balance, err := c.MarketClient.Storage.Deposit(ctx, args[0], account)
		c.CheckErr(err)
		c.Success("Storage balance: %s", balance)
	},
}

var storageWithdrawCmd = &cobra.Command{
	Use:   "withdraw [payment tx]",
	Short: "Withdraw the storage balance not required by your sales",
	Long:  `Withdraw the storage balance not required by your sales. Payment tx must pay one unit to the market account`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		surplus, err := c.MarketClient.Storage.Withdraw(ctx, args[0])
		c.CheckErr(err)
		c.Success("Withdrew %s", surplus)
	},
}

var storageBalanceCmd = &cobra.Command{
	Use:   "balance [account]",
	Short: "Print the storage balance of an account",
	Long:  `Print the storage balance of an account`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		balance, err := c.MarketClient.Storage.BalanceOf(ctx, args[0])
		c.CheckErr(err)
		c.Message("%s", balance)
	},
}

var storageMinimumCmd = &cobra.Command{
	Use:   "minimum",
	Short: "Print the storage amount required per sale",
	Long:  `Print the storage amount required per sale`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		min, err := c.MarketClient.Storage.MinimumBalance(ctx)
		c.CheckErr(err)
		c.Message("%s", min)
	},
}
