package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/ipfs/go-datastore"
	badger "github.com/ipfs/go-ds-badger2"
	logging "github.com/ipfs/go-log/v2"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/textileio/marketgate/gateway"
	"github.com/textileio/marketgate/health"
	"github.com/textileio/marketgate/host"
	"github.com/textileio/marketgate/market"
	"github.com/textileio/marketgate/market/auth"
	"github.com/textileio/marketgate/market/module"
	marketRpc "github.com/textileio/marketgate/market/rpc"
	"github.com/textileio/marketgate/util"
	txndstr "github.com/textileio/marketgate/txndstransform"
	walletModule "github.com/textileio/marketgate/wallet/module"
)

const (
	datastoreFolderName = "datastore"
	rpcPath             = "/rpc/v0"
)

var (
	log = logging.Logger("server")
)

// Server wires the market coordinator with its datastore, the host node
// and the JSON-RPC and gateway endpoints.
type Server struct {
	ds datastore.TxnDatastore

	hm *host.Monitor
	wm *walletModule.Module
	mm *module.Module
	am *auth.Auth
	hl *health.Module

	rpcListener net.Listener
	rpcServer   *http.Server
	gateway     *gateway.Gateway
}

// Config specifies server settings.
type Config struct {
	RepoPath        string
	RPCHostAddr     ma.Multiaddr
	GatewayHostAddr string

	HostAddr        ma.Multiaddr
	HostAuthToken   string
	HostConnRetries int
	HostMonitor     bool

	// AdminToken authenticates the market account with admin rights.
	AdminToken    string
	MarketAccount string
	MarketOptions []market.Option

	// MaxPendingResolutions is the backlog above which health is degraded.
	MaxPendingResolutions int
}

// NewServer starts and returns a new server with the given configuration.
func NewServer(conf Config) (*Server, error) {
	if conf.MarketAccount == "" {
		conf.MarketAccount = market.DefaultHostID
	}
	cb, err := host.NewBuilder(conf.HostAddr, conf.HostAuthToken, conf.HostConnRetries)
	if err != nil {
		return nil, fmt.Errorf("creating host client builder: %s", err)
	}

	s := &Server{}
	if conf.HostMonitor {
		if s.hm, err = host.NewMonitor(cb); err != nil {
			return nil, fmt.Errorf("creating host monitor: %s", err)
		}
	}

	if err := s.start(conf, cb); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// start opens the datastore and builds the modules and endpoints. What it
// opened before failing is closed by Close.
func (s *Server) start(conf Config, cb host.ClientBuilder) error {
	path := filepath.Join(conf.RepoPath, datastoreFolderName)
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		return fmt.Errorf("creating repo folder: %s", err)
	}

	opts := &badger.DefaultOptions
	opts.NumVersionsToKeep = 0
	ds, err := badger.NewDatastore(path, opts)
	if err != nil {
		return fmt.Errorf("opening datastore on repo: %s", err)
	}
	s.ds = ds

	s.wm, err = walletModule.New(txndstr.Wrap(ds, "wallet"), cb, conf.MarketAccount)
	if err != nil {
		return fmt.Errorf("creating wallet module: %s", err)
	}

	mopts := append([]market.Option{market.WithHostID(conf.MarketAccount)}, conf.MarketOptions...)
	mconf := market.DefaultConfig()
	for _, o := range mopts {
		if err := o(&mconf); err != nil {
			return fmt.Errorf("applying market option: %s", err)
		}
	}
	state := module.NewState(txndstr.Wrap(ds, "market"), mconf.StoragePerSale)
	s.mm, err = module.New(state, host.NewCustodian(cb), s.wm, mopts...)
	if err != nil {
		return fmt.Errorf("creating market module: %s", err)
	}

	s.am = auth.New(txndstr.Wrap(ds, "auth"))

	var hc health.Host
	if s.hm != nil {
		hc = s.hm
	}
	s.hl = health.New(hc, s.mm, conf.MaxPendingResolutions)

	s.gateway = gateway.NewGateway(conf.GatewayHostAddr, s.mm, s.hl)
	s.gateway.Start()

	if err := s.startRPCServer(conf); err != nil {
		return fmt.Errorf("starting rpc server: %s", err)
	}
	return nil
}

func (s *Server) startRPCServer(conf Config) error {
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register(marketRpc.Namespace, marketRpc.New(s.mm, s.wm, s.am, s.hl))

	mux := http.NewServeMux()
	mux.Handle(rpcPath, &marketRpc.Handler{
		Auth:        s.am,
		AdminToken:  conf.AdminToken,
		HostAccount: conf.MarketAccount,
		Next:        rpcServer,
	})

	hostAddr, err := util.TCPAddrFromMultiAddr(conf.RPCHostAddr)
	if err != nil {
		return fmt.Errorf("parsing rpc host multiaddr: %s", err)
	}
	listener, err := net.Listen("tcp", hostAddr)
	if err != nil {
		return fmt.Errorf("listening to rpc: %s", err)
	}
	s.rpcListener = listener
	s.rpcServer = &http.Server{Handler: mux}
	go func() {
		if err := s.rpcServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Errorf("serving rpc endpoint: %s", err)
		}
	}()
	log.Infof("rpc endpoint listening at %s", listener.Addr())
	return nil
}

// RPCAddr returns the address the JSON-RPC endpoint listens at.
func (s *Server) RPCAddr() string {
	return s.rpcListener.Addr().String()
}

// Close shuts down the server.
func (s *Server) Close() {
	if s.rpcServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.rpcServer.Shutdown(ctx); err != nil {
			log.Errorf("shutting down rpc server: %s", err)
		}
	}
	if s.mm != nil {
		if err := s.mm.Close(); err != nil {
			log.Errorf("closing market module: %s", err)
		}
	}
	if s.hm != nil {
		s.hm.Close()
	}
	if s.gateway != nil {
		if err := s.gateway.Stop(); err != nil {
			log.Errorf("closing gateway: %s", err)
		}
	}
	if s.ds != nil {
		if err := s.ds.Close(); err != nil {
			log.Errorf("closing datastore: %s", err)
		}
	}
}
