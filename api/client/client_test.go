package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/filecoin-project/go-state-types/big"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/phayes/freeport"
	"github.com/stretchr/testify/require"
	"github.com/textileio/marketgate/api/server"
	"github.com/textileio/marketgate/health"
	"github.com/textileio/marketgate/host"
	"github.com/textileio/marketgate/market"
	"github.com/textileio/marketgate/util"
	"github.com/textileio/marketgate/wallet"
)

const (
	adminToken = "admin"
	terms      = `{"sale_condition":"500","use_condition":"10"}`
)

type hostNode struct {
	lock sync.Mutex
	txs  map[string]host.Tx
}

func (*hostNode) NftTransferPayout(ctx context.Context, contractID, receiverID, tokenID string, approvalID uint64, memo string, balance big.Int, maxLenPayout uint32) (json.RawMessage, error) {
	return json.Marshal(market.Payout{Payout: map[string]big.Int{"alice": balance}})
}

func (*hostNode) NftUsePayout(ctx context.Context, contractID, userID, tokenID, memo string, balance big.Int, maxLenPayout uint32) (json.RawMessage, error) {
	return json.Marshal(market.Payout{Payout: map[string]big.Int{"alice": balance}})
}

func (n *hostNode) Transfer(ctx context.Context, from, to string, amount big.Int) (string, error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	id := fmt.Sprintf("tx-%d", len(n.txs)+1)
	n.txs[id] = host.Tx{ID: id, From: from, To: to, Amount: amount}
	return id, nil
}

func (n *hostNode) GetTransfer(ctx context.Context, txID string) (host.Tx, error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	tx, ok := n.txs[txID]
	if !ok {
		return host.Tx{}, fmt.Errorf("transaction %s not found", txID)
	}
	return tx, nil
}

// pay sends amount from an account to the market account.
func (n *hostNode) pay(t *testing.T, from string, amount big.Int) string {
	t.Helper()
	txID, err := n.Transfer(context.Background(), from, market.DefaultHostID, amount)
	require.NoError(t, err)
	return txID
}

func (*hostNode) Balance(ctx context.Context, account string) (big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (*hostNode) Version(ctx context.Context) (string, error) {
	return "test", nil
}

func TestListingAndPurchase(t *testing.T) {
	ctx := context.Background()
	s, node, gatewayAddr := setupServer(t)

	admin := newClient(t, s, adminToken)
	alice := newClient(t, s, token(t, admin, "alice"))
	bob := newClient(t, s, token(t, admin, "bob"))

	who, err := alice.Auth.Whoami(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", who)

	min, err := alice.Storage.MinimumBalance(ctx)
	require.NoError(t, err)
	_, err = alice.Storage.Deposit(ctx, node.pay(t, "alice", min), "")
	require.NoError(t, err)

	_, err = alice.Listings.NotifyApproval(ctx, "nft.contract", "alice", "T1", "alice", 1, terms)
	require.Error(t, err)
	_, err = admin.Listings.NotifyApproval(ctx, "nft.contract", "alice", "T1", "alice", 1, terms)
	require.NoError(t, err)
	sales, uses, err := bob.Listings.Supply(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), sales)
	require.Equal(t, uint64(1), uses)

	res, err := http.Get(fmt.Sprintf("http://%s/sale/nft.contract/T1", gatewayAddr))
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	require.Equal(t, http.StatusOK, res.StatusCode)

	use, err := bob.Exchange.ApplyUse(ctx, node.pay(t, "bob", big.NewInt(10)), "nft.contract", "T1")
	require.NoError(t, err)
	r, err := bob.Exchange.Offer(ctx, node.pay(t, "bob", big.NewInt(500)), "nft.contract", "T1")
	require.NoError(t, err)

	watchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ch, err := bob.Exchange.Watch(watchCtx, r.ID)
	require.NoError(t, err)
	settled, ok := <-ch
	require.True(t, ok)
	require.Equal(t, r.ID, settled.ID)
	require.Equal(t, market.StatusPaidOut, settled.Status)

	requirePaidOut(t, bob, use.ID, big.NewInt(10))
	requirePaidOut(t, bob, r.ID, big.NewInt(500))

	sales, uses, err = bob.Listings.Supply(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), sales)
	require.Equal(t, uint64(0), uses)

	evs, err := bob.Wallet.Transfers(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, evs, 2)

	surplus, err := alice.Storage.Withdraw(ctx, node.pay(t, "alice", market.OneUnit))
	require.NoError(t, err)
	require.True(t, surplus.Equals(min))
}

func TestAnonymousClient(t *testing.T) {
	ctx := context.Background()
	s, node, _ := setupServer(t)

	anon := newClient(t, s, "")
	info, err := anon.BuildInfo(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, info.Version)
	report, err := anon.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, health.Ok, report.Status)
	_, err = anon.Auth.Whoami(ctx)
	require.Error(t, err)
	_, err = anon.Storage.Deposit(ctx, node.pay(t, "alice", big.NewInt(1)), "alice")
	require.Error(t, err)
	_, err = anon.Exchange.Resolve(ctx, "missing", nil, "failed")
	require.Error(t, err)

	sales, err := anon.Listings.Sales(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, sales, 0)
	_, err = anon.Listings.Sale(ctx, "nft.contract", "T1")
	require.Error(t, err)
}

func setupServer(t *testing.T) (*server.Server, *hostNode, string) {
	t.Helper()
	node := &hostNode{txs: make(map[string]host.Tx)}
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register(host.Namespace, node)
	hostServ := httptest.NewServer(rpcServer)
	t.Cleanup(hostServ.Close)

	gatewayPort, err := freeport.GetFreePort()
	require.NoError(t, err)
	gatewayAddr := fmt.Sprintf("127.0.0.1:%d", gatewayPort)

	conf := server.Config{
		RepoPath:        t.TempDir(),
		RPCHostAddr:     util.MustParseAddr("/ip4/127.0.0.1/tcp/0"),
		GatewayHostAddr: gatewayAddr,
		HostAddr:        multiaddrOf(t, hostServ.Listener.Addr().String()),
		HostConnRetries: 1,
		HostMonitor:     true,
		AdminToken:      adminToken,
		MarketOptions:   []market.Option{market.WithCustodyTimeout(5 * time.Second)},
	}
	s, err := server.NewServer(conf)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, node, gatewayAddr
}

func newClient(t *testing.T, s *server.Server, token string) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), multiaddrOf(t, s.RPCAddr()), token)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func token(t *testing.T, admin *Client, account string) string {
	t.Helper()
	tok, err := admin.Auth.New(context.Background(), account)
	require.NoError(t, err)
	return tok
}

func requirePaidOut(t *testing.T, c *Client, id string, amount big.Int) {
	t.Helper()
	require.Eventually(t, func() bool {
		r, err := c.Exchange.Resolution(context.Background(), id)
		if err != nil || r.Status != market.StatusPaidOut {
			return false
		}
		evs, err := c.Wallet.TransfersOf(context.Background(), id)
		return err == nil && len(evs) == 1 && evs[0].Status == wallet.TransferSuccess && evs[0].Amount.Equals(amount)
	}, 10*time.Second, 50*time.Millisecond)
}

func multiaddrOf(t *testing.T, addr string) ma.Multiaddr {
	t.Helper()
	h, p, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	maddr, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/tcp/%s", h, p))
	require.NoError(t, err)
	return maddr
}
