package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/filecoin-project/go-state-types/big"
	logging "github.com/ipfs/go-log/v2"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/textileio/marketgate/util"
)

const (
	// Namespace is the JSON-RPC namespace of the host node API.
	Namespace = "Host"
)

var (
	log = logging.Logger("host")

	connRetryDelay = time.Second * 10
)

// API is the JSON-RPC API of the host node. It runs custody calls against
// asset contracts and moves funds of the accounts it manages.
type API struct {
	Internal struct {
		NftTransferPayout func(ctx context.Context, contractID, receiverID, tokenID string, approvalID uint64, memo string, balance big.Int, maxLenPayout uint32) (json.RawMessage, error)
		NftUsePayout      func(ctx context.Context, contractID, userID, tokenID, memo string, balance big.Int, maxLenPayout uint32) (json.RawMessage, error)
		Transfer          func(ctx context.Context, from, to string, amount big.Int) (string, error)
		GetTransfer       func(ctx context.Context, txID string) (Tx, error)
		Balance           func(ctx context.Context, account string) (big.Int, error)
		Version           func(ctx context.Context) (string, error)
	}
}

// NftTransferPayout transfers an asset to receiverID and returns the payout
// split computed by its contract.
func (a *API) NftTransferPayout(ctx context.Context, contractID, receiverID, tokenID string, approvalID uint64, memo string, balance big.Int, maxLenPayout uint32) (json.RawMessage, error) {
	return a.Internal.NftTransferPayout(ctx, contractID, receiverID, tokenID, approvalID, memo, balance, maxLenPayout)
}

// NftUsePayout grants one use of an asset to userID and returns the payout
// split computed by its contract.
func (a *API) NftUsePayout(ctx context.Context, contractID, userID, tokenID, memo string, balance big.Int, maxLenPayout uint32) (json.RawMessage, error) {
	return a.Internal.NftUsePayout(ctx, contractID, userID, tokenID, memo, balance, maxLenPayout)
}

// Transfer moves amount from one account to another and returns the
// transaction id.
func (a *API) Transfer(ctx context.Context, from, to string, amount big.Int) (string, error) {
	return a.Internal.Transfer(ctx, from, to, amount)
}

// GetTransfer returns a confirmed transfer by transaction id.
func (a *API) GetTransfer(ctx context.Context, txID string) (Tx, error) {
	return a.Internal.GetTransfer(ctx, txID)
}

// Balance returns the balance of an account.
func (a *API) Balance(ctx context.Context, account string) (big.Int, error) {
	return a.Internal.Balance(ctx, account)
}

// Version returns the host node version.
func (a *API) Version(ctx context.Context) (string, error) {
	return a.Internal.Version(ctx)
}

// Tx is a confirmed fund transfer between two accounts of the host node.
type Tx struct {
	ID     string  `json:"id"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount big.Int `json:"amount"`
}

// ClientBuilder creates a new host client.
type ClientBuilder func(ctx context.Context) (*API, func(), error)

// NewBuilder creates a new ClientBuilder for the host node listening at maddr.
func NewBuilder(maddr ma.Multiaddr, authToken string, connRetries int) (ClientBuilder, error) {
	addr, err := util.TCPAddrFromMultiAddr(maddr)
	if err != nil {
		return nil, fmt.Errorf("parsing host address: %s", err)
	}
	if connRetries <= 0 {
		connRetries = 1
	}
	headers := http.Header{
		"Authorization": []string{"Bearer " + authToken},
	}

	return func(ctx context.Context) (*API, func(), error) {
		var api API
		var closer jsonrpc.ClientCloser
		var err error
		for i := 0; i < connRetries; i++ {
			if ctx.Err() != nil {
				return nil, nil, fmt.Errorf("canceled by context")
			}
			closer, err = jsonrpc.NewMergeClient(ctx, "ws://"+addr+"/rpc/v0", Namespace,
				[]interface{}{
					&api.Internal,
				}, headers)
			if err == nil {
				break
			}
			log.Warnf("failed to connect to host client %s, retrying...", err)
			if i < connRetries-1 {
				time.Sleep(connRetryDelay)
			}
		}
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't connect to host API: %s", err)
		}

		return &api, closer, nil
	}, nil
}
