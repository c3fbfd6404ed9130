package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/filecoin-project/go-state-types/big"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/textileio/marketgate/buildinfo"
	"github.com/textileio/marketgate/health"
	"github.com/textileio/marketgate/market"
	marketRpc "github.com/textileio/marketgate/market/rpc"
	"github.com/textileio/marketgate/util"
	"github.com/textileio/marketgate/wallet"
)

// Client provides the client api.
type Client struct {
	Listings *Listings
	Exchange *Exchange
	Storage  *Storage
	Auth     *Auth
	Wallet   *Wallet
	api      *api
	closer   jsonrpc.ClientCloser
}

type api struct {
	BuildInfo func(ctx context.Context) (buildinfo.Info, error)
	Health    func(ctx context.Context) (health.Report, error)

	AuthNew    func(ctx context.Context, account string) (string, error)
	AuthWhoami func(ctx context.Context) (string, error)

	NftOnApprove   func(ctx context.Context, contractID, signerID, tokenID, ownerID string, approvalID uint64, msg string) (market.Sale, error)
	RemoveSale     func(ctx context.Context, txID, contractID, tokenID string) (market.Sale, error)
	RemoveUse      func(ctx context.Context, txID, contractID, tokenID string) (market.UseOffer, error)
	UpdatePrice    func(ctx context.Context, txID, contractID, tokenID string, price big.Int) error
	UpdateUsePrice func(ctx context.Context, txID, contractID, tokenID string, price big.Int) error

	Offer          func(ctx context.Context, txID, contractID, tokenID string) (market.Resolution, error)
	ApplyUse       func(ctx context.Context, txID, contractID, tokenID string) (market.Resolution, error)
	Resolve        func(ctx context.Context, id string, outcome marketRpc.Outcome) (market.Resolution, error)
	GetResolution  func(ctx context.Context, id string) (market.Resolution, error)
	GetResolutions func(ctx context.Context, pending bool) ([]market.Resolution, error)

	WatchResolutions func(ctx context.Context, ids []string) (<-chan market.Resolution, error)

	StorageDeposit        func(ctx context.Context, txID, account string) (big.Int, error)
	StorageWithdraw       func(ctx context.Context, txID string) (big.Int, error)
	StorageMinimumBalance func(ctx context.Context) (big.Int, error)
	StorageBalanceOf      func(ctx context.Context, account string) (big.Int, error)

	GetSupplySales        func(ctx context.Context) (uint64, error)
	GetSupplyUses         func(ctx context.Context) (uint64, error)
	GetSupplyByOwnerID    func(ctx context.Context, ownerID string) (uint64, error)
	GetSupplyByContractID func(ctx context.Context, contractID string) (uint64, error)
	GetSales              func(ctx context.Context, from, limit uint64) ([]market.Sale, error)
	GetUses               func(ctx context.Context, from, limit uint64) ([]market.UseOffer, error)
	GetSalesByOwnerID     func(ctx context.Context, ownerID string, from, limit uint64) ([]market.Sale, error)
	GetSalesByContractID  func(ctx context.Context, contractID string, from, limit uint64) ([]market.Sale, error)
	GetSale               func(ctx context.Context, contractID, tokenID string) (market.Sale, error)
	GetUse                func(ctx context.Context, contractID, tokenID string) (market.UseOffer, error)

	Transfers   func(ctx context.Context, account string) ([]wallet.TransferEvent, error)
	TransfersOf func(ctx context.Context, resolutionID string) ([]wallet.TransferEvent, error)
}

// NewClient connects to the marketd JSON-RPC endpoint at maddr. An empty
// token connects anonymously, which only allows read calls.
func NewClient(ctx context.Context, maddr ma.Multiaddr, token string) (*Client, error) {
	addr, err := util.TCPAddrFromMultiAddr(maddr)
	if err != nil {
		return nil, fmt.Errorf("parsing marketd address: %s", err)
	}
	var headers http.Header
	if token != "" {
		headers = http.Header{"Authorization": []string{"Bearer " + token}}
	}
	var a api
	closer, err := jsonrpc.NewMergeClient(ctx, "ws://"+addr+"/rpc/v0", marketRpc.Namespace, []interface{}{&a}, headers)
	if err != nil {
		return nil, fmt.Errorf("connecting to marketd: %s", err)
	}
	return &Client{
		Listings: &Listings{api: &a},
		Exchange: &Exchange{api: &a},
		Storage:  &Storage{api: &a},
		Auth:     &Auth{api: &a},
		Wallet:   &Wallet{api: &a},
		api:      &a,
		closer:   closer,
	}, nil
}

// BuildInfo returns information about the marketd build.
func (c *Client) BuildInfo(ctx context.Context) (buildinfo.Info, error) {
	info, err := c.api.BuildInfo(ctx)
	if err != nil {
		return buildinfo.Info{}, fmt.Errorf("calling BuildInfo: %v", err)
	}
	return info, nil
}

// Health returns the health report of the market node.
func (c *Client) Health(ctx context.Context) (health.Report, error) {
	report, err := c.api.Health(ctx)
	if err != nil {
		return health.Report{}, fmt.Errorf("calling Health: %v", err)
	}
	return report, nil
}

// Close closes the client connection.
func (c *Client) Close() {
	c.closer()
}
