package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	c "github.com/textileio/marketgate/cmd/market/common"
	"github.com/textileio/marketgate/market"
)

func init() {
	listingsLsCmd.Flags().Uint64("from", 0, "index of the first listing")
	listingsLsCmd.Flags().Uint64("limit", 50, "maximum number of listings")
	listingsLsCmd.Flags().String("owner", "", "only list sales of this owner")
	listingsLsCmd.Flags().String("contract", "", "only list sales of this asset contract")
	listingsLsCmd.Flags().Bool("uses", false, "list use offers instead of sales")

	listingsCmd.AddCommand(
		listingsApproveCmd,
		listingsLsCmd,
		listingsGetCmd,
		listingsSupplyCmd,
		listingsRemoveCmd,
		listingsRemoveUseCmd,
		listingsPriceCmd,
		listingsUsePriceCmd,
	)
}

var listingsCmd = &cobra.Command{
	Use:     "listings",
	Aliases: []string{"l"},
	Short:   "Provides commands to create and browse listings",
	Long:    `Provides commands to create and browse listings`,
}

var listingsApproveCmd = &cobra.Command{
	Use:   "approve [contract] [signer] [token] [owner] [approval id] [terms]",
	Short: "Relay an approval of an asset contract, creating a listing. Requires the admin token",
	Long:  `Relay an approval of an asset contract, creating a listing. Requires the admin token. Terms is a JSON object with sale_condition and use_condition decimal strings`,
	Args:  cobra.ExactArgs(6),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		approvalID, err := strconv.ParseUint(args[4], 10, 64)
		c.CheckErr(err)
		sale, err := c.MarketClient.Listings.NotifyApproval(ctx, args[0], args[1], args[2], args[3], approvalID, args[5])
		c.CheckErr(err)
		c.Success("Listed %s", sale.Key())
	},
}

var listingsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List sales or use offers",
	Long:  `List sales or use offers`,
	Args:  cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		err := viper.BindPFlags(cmd.Flags())
		c.CheckErr(err)
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		from := viper.GetUint64("from")
		limit := viper.GetUint64("limit")
		if viper.GetBool("uses") {
			uses, err := c.MarketClient.Listings.Uses(ctx, from, limit)
			c.CheckErr(err)
			c.RenderUses(uses)
			return
		}

		var (
			sales []market.Sale
			err   error
		)
		switch {
		case viper.GetString("owner") != "":
			sales, err = c.MarketClient.Listings.SalesByOwner(ctx, viper.GetString("owner"), from, limit)
		case viper.GetString("contract") != "":
			sales, err = c.MarketClient.Listings.SalesByContract(ctx, viper.GetString("contract"), from, limit)
		default:
			sales, err = c.MarketClient.Listings.Sales(ctx, from, limit)
		}
		c.CheckErr(err)
		c.RenderSales(sales)
	},
}

var listingsGetCmd = &cobra.Command{
	Use:   "get [contract] [token]",
	Short: "Print the sale and use offer of an asset",
	Long:  `Print the sale and use offer of an asset`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		sale, err := c.MarketClient.Listings.Sale(ctx, args[0], args[1])
		if err == nil {
			c.PrintJSON(sale)
		} else {
			c.Message("No sale: %s", err)
		}
		use, err := c.MarketClient.Listings.Use(ctx, args[0], args[1])
		c.CheckErr(err)
		c.PrintJSON(use)
	},
}

var listingsSupplyCmd = &cobra.Command{
	Use:   "supply [owner|contract]",
	Short: "Print the number of listings",
	Long:  `Print the number of listings. With an argument, print the number of sales of that owner and of that asset contract`,
	Args:  cobra.RangeArgs(0, 1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		if len(args) == 1 {
			byOwner, err := c.MarketClient.Listings.SupplyByOwner(ctx, args[0])
			c.CheckErr(err)
			byContract, err := c.MarketClient.Listings.SupplyByContract(ctx, args[0])
			c.CheckErr(err)
			c.Message("Sales owned by %s: %d", args[0], byOwner)
			c.Message("Sales of contract %s: %d", args[0], byContract)
			return
		}
		sales, uses, err := c.MarketClient.Listings.Supply(ctx)
		c.CheckErr(err)
		c.Message("Sales: %d", sales)
		c.Message("Use offers: %d", uses)
	},
}

var listingsRemoveCmd = &cobra.Command{
	Use:   "rm [contract] [token] [payment tx]",
	Short: "Remove a sale you own",
	Long:  `Remove a sale you own. Its use offer stays active. Payment tx must pay one unit to the market account`,
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		sale, err := c.MarketClient.Listings.RemoveSale(ctx, args[2], args[0], args[1])
		c.CheckErr(err)
		c.Success("Removed sale %s", sale.Key())
	},
}

var listingsRemoveUseCmd = &cobra.Command{
	Use:   "rm-use [contract] [token] [payment tx]",
	Short: "Remove a use offer you own",
	Long:  `Remove a use offer you own. Payment tx must pay one unit to the market account`,
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		use, err := c.MarketClient.Listings.RemoveUse(ctx, args[2], args[0], args[1])
		c.CheckErr(err)
		c.Success("Removed use offer %s", use.Key())
	},
}

var listingsPriceCmd = &cobra.Command{
	Use:   "price [contract] [token] [price] [payment tx]",
	Short: "Change the price of a sale you own",
	Long:  `Change the price of a sale you own. Payment tx must pay one unit to the market account`,
	Args:  cobra.ExactArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		err := c.MarketClient.Listings.UpdatePrice(ctx, args[3], args[0], args[1], c.MustParseAmount(args[2]))
		c.CheckErr(err)
		c.Success("Updated price of %s.%s to %s", args[0], args[1], args[2])
	},
}

var listingsUsePriceCmd = &cobra.Command{
	Use:   "use-price [contract] [token] [price] [payment tx]",
	Short: "Change the price of a use offer you own",
	Long:  `Change the price of a use offer you own. Payment tx must pay one unit to the market account`,
	Args:  cobra.ExactArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		err := c.MarketClient.Listings.UpdateUsePrice(ctx, args[3], args[0], args[1], c.MustParseAmount(args[2]))
		c.CheckErr(err)
		c.Success("Updated use price of %s.%s to %s", args[0], args[1], args[2])
	},
}
