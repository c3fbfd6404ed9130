package cmd

import (
	"context"
	"fmt"

	"github.com/caarlos0/spin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	c "github.com/textileio/marketgate/cmd/market/common"
	"github.com/textileio/marketgate/market"
)

func init() {
	exchangeOfferCmd.Flags().BoolP("wait", "w", false, "wait until the purchase is settled")
	exchangeUseCmd.Flags().BoolP("wait", "w", false, "wait until the use application is settled")
	exchangeResolveCmd.Flags().String("error", "", "report a failed custody call with this message")
	exchangeLsCmd.Flags().Bool("pending", false, "list pending resolutions instead of settled ones")

	exchangeCmd.AddCommand(exchangeOfferCmd, exchangeUseCmd, exchangeResolveCmd, exchangeGetCmd, exchangeLsCmd, exchangeWatchCmd)
}

var exchangeCmd = &cobra.Command{
	Use:     "exchange",
	Aliases: []string{"x"},
	Short:   "Provides commands to buy and use assets",
	Long:    `Provides commands to buy and use assets`,
}

var exchangeOfferCmd = &cobra.Command{
	Use:   "offer [contract] [token] [payment tx]",
	Short: "Buy an asset",
	Long:  `Buy an asset with the payment of a host node transaction to the market account, which must cover the sale price`,
	Args:  cobra.ExactArgs(3),
	PreRun: func(cmd *cobra.Command, args []string) {
		err := viper.BindPFlags(cmd.Flags())
		c.CheckErr(err)
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		r, err := c.MarketClient.Exchange.Offer(ctx, args[2], args[0], args[1])
		c.CheckErr(err)
		c.Success("Purchase %s started", r.ID)
		if viper.GetBool("wait") {
			r = waitSettled(ctx, r.ID)
		}
		c.RenderResolution(r)
	},
}

var exchangeUseCmd = &cobra.Command{
	Use:   "use [contract] [token] [payment tx]",
	Short: "Pay for one use of an asset",
	Long:  `Pay for one use of an asset with the payment of a host node transaction to the market account, which must cover the use price`,
	Args:  cobra.ExactArgs(3),
	PreRun: func(cmd *cobra.Command, args []string) {
		err := viper.BindPFlags(cmd.Flags())
		c.CheckErr(err)
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		r, err := c.MarketClient.Exchange.ApplyUse(ctx, args[2], args[0], args[1])
		c.CheckErr(err)
		c.Success("Use application %s started", r.ID)
		if viper.GetBool("wait") {
			r = waitSettled(ctx, r.ID)
		}
		c.RenderResolution(r)
	},
}

var exchangeResolveCmd = &cobra.Command{
	Use:   "resolve [id] [payout json]",
	Short: "Deliver the outcome of a custody call. Requires the admin token",
	Long:  `Deliver the outcome of a custody call. Requires the admin token`,
	Args:  cobra.RangeArgs(1, 2),
	PreRun: func(cmd *cobra.Command, args []string) {
		err := viper.BindPFlags(cmd.Flags())
		c.CheckErr(err)
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		var value []byte
		if len(args) == 2 {
			value = []byte(args[1])
		}
		r, err := c.MarketClient.Exchange.Resolve(ctx, args[0], value, viper.GetString("error"))
		c.CheckErr(err)
		c.RenderResolution(r)
	},
}

var exchangeGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Print a resolution",
	Long:  `Print a resolution`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		r, err := c.MarketClient.Exchange.Resolution(ctx, args[0])
		c.CheckErr(err)
		c.RenderResolution(r)
	},
}

var exchangeLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List resolutions",
	Long:  `List resolutions`,
	Args:  cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		err := viper.BindPFlags(cmd.Flags())
		c.CheckErr(err)
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		rs, err := c.MarketClient.Exchange.Resolutions(ctx, viper.GetBool("pending"))
		c.CheckErr(err)
		c.RenderResolutions(rs)
	},
}

var exchangeWatchCmd = &cobra.Command{
	Use:   "watch [id...]",
	Short: "Watch resolutions being settled",
	Long:  `Watch resolutions being settled. Without ids, every settlement is printed until interrupted`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch, err := c.MarketClient.Exchange.Watch(ctx, args...)
		c.CheckErr(err)
		for r := range ch {
			c.RenderResolution(r)
		}
	},
}

func waitSettled(ctx context.Context, id string) market.Resolution {
	s := spin.New("%s Waiting for the custody outcome...")
	s.Start()
	defer s.Stop()

	ch, err := c.MarketClient.Exchange.Watch(ctx, id)
	c.CheckErr(err)
	select {
	case r, ok := <-ch:
		if !ok {
			c.Fatal(fmt.Errorf("watching resolution %s ended", id))
		}
		return r
	case <-ctx.Done():
		c.Fatal(ctx.Err())
	}
	return market.Resolution{}
}
