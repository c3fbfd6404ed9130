package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/multiformats/go-multiaddr"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	"github.com/spf13/viper"
	"github.com/textileio/marketgate/api/client"
	c "github.com/textileio/marketgate/cmd/market/common"
)

func init() {
	cobra.OnInitialize(initConfig)
	Cmd.PersistentFlags().String("serverAddress", "/ip4/127.0.0.1/tcp/5010", "address of the marketd JSON-RPC api")
	Cmd.PersistentFlags().StringP("token", "t", "", "auth token")

	Cmd.AddCommand(authCmd, listingsCmd, exchangeCmd, storageCmd, walletCmd, healthCmd, versionCmd, docsCmd)
}

func initConfig() {
	viper.SetEnvPrefix("MARKET")
	viper.AutomaticEnv()
	replacer := strings.NewReplacer("-", "_")
	viper.SetEnvKeyReplacer(replacer)
}

// Cmd is the command.
var Cmd = &cobra.Command{
	Use:               "market",
	Short:             "A client for listing, buying and using assets through marketd",
	Long:              `A client for listing, buying and using assets through marketd`,
	DisableAutoGenTag: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "docs" {
			return
		}
		err := viper.BindPFlag("serverAddress", cmd.Root().PersistentFlags().Lookup("serverAddress"))
		c.CheckErr(err)
		err = viper.BindPFlag("token", cmd.Root().PersistentFlags().Lookup("token"))
		c.CheckErr(err)

		ma, err := multiaddr.NewMultiaddr(viper.GetString("serverAddress"))
		c.CheckErr(err)
		c.MarketClient, err = client.NewClient(context.Background(), ma, viper.GetString("token"))
		c.CheckErr(err)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if c.MarketClient != nil {
			c.MarketClient.Close()
		}
	},
}

var docsCmd = &cobra.Command{
	Use:    "docs [outdir]",
	Short:  "Generate markdown docs for market command",
	Long:   `Generate markdown docs for market command`,
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := args[0]
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			err = os.MkdirAll(dir, os.ModePerm)
			c.CheckErr(err)
		}
		err := doc.GenMarkdownTree(Cmd, args[0])
		c.CheckErr(err)
	},
}
