package cmd

import (
	"github.com/caarlos0/spin"
	"github.com/spf13/cobra"
	"github.com/textileio/marketgate/buildinfo"
	c "github.com/textileio/marketgate/cmd/market/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information for market and the connected server",
	Long:  `Display version information for market and the connected server`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		c.Message("market build info:\n%s", buildinfo.Summary())

		s := spin.New("%s Getting marketd build info...")
		s.Start()
		info, err := c.MarketClient.BuildInfo(ctx)
		s.Stop()
		c.CheckErr(err)

		c.PrintJSON(info)
	},
}
