package cmd

import (
	"os"

	"github.com/caarlos0/spin"
	"github.com/spf13/cobra"
	c "github.com/textileio/marketgate/cmd/market/common"
	"github.com/textileio/marketgate/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Display the marketd node health status",
	Long:  `Display the marketd node health status`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := c.Ctx()
		defer cancel()

		s := spin.New("%s Checking node health...")
		s.Start()
		report, err := c.MarketClient.Health(ctx)
		s.Stop()
		c.CheckErr(err)

		if report.Status == health.Ok {
			c.Success("Health status: %v", report.Status)
			return
		}
		c.Message("Health status: %v", report.Status)
		for _, msg := range report.Messages {
			c.Message("  %s", msg)
		}
		os.Exit(1)
	},
}
