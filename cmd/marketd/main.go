package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"
	homedir "github.com/mitchellh/go-homedir"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/textileio/marketgate/api/server"
	"github.com/textileio/marketgate/buildinfo"
	"github.com/textileio/marketgate/health"
	"github.com/textileio/marketgate/market"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/exporters/metric/prometheus"
)

var (
	log    = logging.Logger("marketd")
	config = viper.New()
)

func main() {
	// Configure flags.
	if err := setupFlags(); err != nil {
		log.Fatalf("configuring flags: %s", err)
	}

	// Create configuration from flags/envs.
	conf, err := configFromFlags()
	if err != nil {
		log.Fatalf("creating config from flags: %s", err)
	}

	// Configure logging.
	if err := setupLogging(conf.RepoPath); err != nil {
		log.Fatalf("configuring logging: %s", err)
	}

	log.Infof("starting marketd:\n%s", buildinfo.Summary())

	// Configuring Prometheus exporter.
	closeInstr, err := setupInstrumentation()
	if err != nil {
		log.Fatalf("starting instrumentation: %s", err)
	}
	confJSON, err := json.MarshalIndent(redacted(conf), "", "  ")
	if err != nil {
		log.Fatalf("marshaling configuration: %s", err)
	}
	log.Infof("%s", confJSON)

	// Start server.
	log.Info("starting server...")
	marketd, err := server.NewServer(conf)
	if err != nil {
		log.Fatalf("starting server: %s", err)
	}
	log.Info("server started.")

	// Wait for Ctrl+C and close.
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	log.Info("Closing...")
	closeInstr()
	marketd.Close()
	log.Info("Closed")
}

func configFromFlags() (server.Config, error) {
	repoPath, err := getRepoPath()
	if err != nil {
		return server.Config{}, fmt.Errorf("getting repo path: %s", err)
	}

	rpcHostMaddr, err := ma.NewMultiaddr(config.GetString("rpchostaddr"))
	if err != nil {
		return server.Config{}, fmt.Errorf("parsing rpchostaddr: %s", err)
	}

	hostMaddr, err := ma.NewMultiaddr(config.GetString("hostaddr"))
	if err != nil {
		return server.Config{}, fmt.Errorf("parsing host api multiaddr: %s", err)
	}

	hostToken, err := getHostToken()
	if err != nil {
		return server.Config{}, fmt.Errorf("getting host auth token: %s", err)
	}

	adminToken := config.GetString("admintoken")
	if adminToken == "" {
		return server.Config{}, fmt.Errorf("admin token can't be empty")
	}

	marketOpts, err := marketOptions()
	if err != nil {
		return server.Config{}, err
	}

	return server.Config{
		RepoPath:        repoPath,
		RPCHostAddr:     rpcHostMaddr,
		GatewayHostAddr: config.GetString("gatewayhostaddr"),
		HostAddr:        hostMaddr,
		HostAuthToken:   hostToken,
		HostConnRetries: config.GetInt("hostconnretries"),
		HostMonitor:     !config.GetBool("disablehostmonitor"),
		AdminToken:      adminToken,
		MarketAccount:   config.GetString("marketaccount"),
		MarketOptions:   marketOpts,

		MaxPendingResolutions: config.GetInt("maxpendingresolutions"),
	}, nil
}

func marketOptions() ([]market.Option, error) {
	storagePerSale, err := market.ParseAmount(config.GetString("storagepersale"))
	if err != nil {
		return nil, fmt.Errorf("parsing storagepersale: %s", err)
	}
	payoutTolerance, err := market.ParseAmount(config.GetString("payouttolerance"))
	if err != nil {
		return nil, fmt.Errorf("parsing payouttolerance: %s", err)
	}
	return []market.Option{
		market.WithStoragePerSale(storagePerSale),
		market.WithPayoutTolerance(payoutTolerance),
		market.WithMaxPayoutRecipients(config.GetUint32("maxpayoutrecipients")),
		market.WithCustodyTimeout(config.GetDuration("custodytimeout")),
		market.WithResolverWorkers(config.GetInt("resolverworkers")),
	}, nil
}

func redacted(conf server.Config) server.Config {
	if conf.AdminToken != "" {
		conf.AdminToken = "<redacted>"
	}
	if conf.HostAuthToken != "" {
		conf.HostAuthToken = "<redacted>"
	}
	conf.MarketOptions = nil
	return conf
}

func setupInstrumentation() (func(), error) {
	exporter, err := prometheus.InstallNewPipeline(prometheus.Config{
		DefaultHistogramBoundaries: []float64{1e-3, 1e-2, 1e-1, 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prometheus exporter %v", err)
	}
	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		return nil, fmt.Errorf("starting Go runtime metrics: %s", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter)
	srv := &http.Server{Addr: config.GetString("metricsaddr"), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("running prometheus scrape endpoint: %v", err)
		}
	}()
	closeFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("shutting down prometheus server: %s", err)
		}
	}

	return closeFunc, nil
}

func setupLogging(repoPath string) error {
	if err := os.MkdirAll(repoPath, os.ModePerm); err != nil {
		return fmt.Errorf("creating repo folder: %s", err)
	}
	cfg := logging.Config{
		Level:  logging.LevelError,
		Stdout: true,
		File:   filepath.Join(repoPath, "marketd.log"),
	}
	logging.SetupLogging(cfg)
	loggers := []string{
		// Top-level
		"marketd",
		"server",
		"gateway",
		"signaler",

		// Host node client
		"host",

		// Market
		"market",
		"market-store",
		"market-quota",
		"market-dispatcher",
		"market-auth",
		"market-rpc",

		// Wallet Module
		"wallet",
		"wallet-sendstore",
	}

	// marketd registered loggers get info level by default.
	for _, l := range loggers {
		if err := logging.SetLogLevel(l, "info"); err != nil {
			return fmt.Errorf("setting up logger %s: %s", l, err)
		}
	}
	debugLevel := config.GetBool("debug")
	if debugLevel {
		for _, l := range loggers {
			if err := logging.SetLogLevel(l, "debug"); err != nil {
				return err
			}
		}
	}
	return nil
}

func getRepoPath() (string, error) {
	repoPath := config.GetString("repopath")
	if repoPath == "~/.marketgate" {
		expandedPath, err := homedir.Expand(repoPath)
		if err != nil {
			return "", fmt.Errorf("expanding homedir: %s", err)
		}
		repoPath = expandedPath
	}
	return repoPath, nil
}

func getHostToken() (string, error) {
	token := config.GetString("hosttoken")
	if token != "" {
		return token, nil
	}

	path := config.GetString("hosttokenfile")
	if path == "" {
		return "", nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("host token file %s doesn't exist", path)
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading host token file: %s", err)
	}
	return string(b), nil
}

func setupFlags() error {
	pflag.Bool("debug", false, "Enable debug log level in all loggers.")
	pflag.String("repopath", "~/.marketgate", "Path of the repository where market state will be saved.")
	pflag.String("rpchostaddr", "/ip4/0.0.0.0/tcp/5010", "JSON-RPC API listening address.")
	pflag.String("gatewayhostaddr", "0.0.0.0:7010", "Gateway host listening address.")
	pflag.String("metricsaddr", ":8888", "Prometheus scrape endpoint listening address.")
	pflag.String("hostaddr", "/ip4/127.0.0.1/tcp/3030", "Host node API endpoint multiaddress.")
	pflag.String("hosttoken", "", "Host node API authorization token.")
	pflag.String("hosttokenfile", "", "Path of a file that contains the host node API authorization token.")
	pflag.Int("hostconnretries", 3, "Number of connection attempts to the host node API.")
	pflag.Bool("disablehostmonitor", false, "Disable the periodic host node health check.")
	pflag.String("admintoken", "", "Token that authenticates the market account with admin rights. (Mandatory)")
	pflag.String("marketaccount", market.DefaultHostID, "Account of the market on the host node. Only it can deliver custody outcomes.")
	pflag.String("storagepersale", market.DefaultStoragePerSale.String(), "Prepaid storage amount required per active sale.")
	pflag.String("payouttolerance", "1", "Maximum difference accepted between a payout sum and the deposit.")
	pflag.Uint32("maxpayoutrecipients", market.DefaultMaxPayoutRecipients, "Maximum number of recipients accepted in a payout.")
	pflag.Duration("custodytimeout", time.Minute, "Timeout of custody calls to the host node.")
	pflag.Int("resolverworkers", 4, "Number of concurrent custody calls.")
	pflag.Int("maxpendingresolutions", health.DefaultMaxPending, "Pending resolutions above which the node reports a degraded health.")
	pflag.Parse()

	config.SetEnvPrefix("MARKETD")
	config.AutomaticEnv()
	if err := config.BindPFlags(pflag.CommandLine); err != nil {
		return fmt.Errorf("binding pflags: %s", err)
	}
	return nil
}
