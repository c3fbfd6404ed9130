package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	c "github.com/textileio/marketgate/cmd/market/common"
	"github.com/textileio/marketgate/wallet"
)

func init() {
	walletTransfersCmd.Flags().String("resolution", "", "list the transfers of a resolution instead")

	walletCmd.AddCommand(walletTransfersCmd)
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Provides commands about funds sent by the market",
	Long:  `Provides commands about funds sent by the market`,
}

var walletTransfersCmd = &cobra.Command{
	Use:   "transfers [account]",
	Short: "List the transfers sent to an account",
	Long:  `List the transfers sent to an account`,
	Args:  cobra.RangeArgs(0, 1),
	PreRun: func(cmd *cobra.Command, args []string) {
		err := viper.BindPFlags(cmd.Flags())
		c.CheckErr(err)
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		var (
			evs []wallet.TransferEvent
			err error
		)
		switch {
		case viper.GetString("resolution") != "":
			evs, err = c.MarketClient.Wallet.TransfersOf(ctx, viper.GetString("resolution"))
		case len(args) == 1:
			evs, err = c.MarketClient.Wallet.Transfers(ctx, args[0])
		default:
			c.Fatal(fmt.Errorf("an account or --resolution is required"))
		}
		c.CheckErr(err)

		rows := make([][]string, len(evs))
		for i, ev := range evs {
			rows[i] = []string{
				ev.ID,
				ev.To,
				ev.Amount.String(),
				string(ev.Reason),
				ev.ResolutionID,
				ev.Status.String(),
				ev.TxID,
				humanize.Time(ev.Time),
			}
		}
		c.RenderTable(c.FmtOutput, []string{"id", "to", "amount", "reason", "resolution", "status", "tx", "time"}, rows)
	},
}
