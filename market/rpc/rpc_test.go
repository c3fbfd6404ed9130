package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/require"
	"github.com/textileio/marketgate/health"
	"github.com/textileio/marketgate/host"
	"github.com/textileio/marketgate/market"
	"github.com/textileio/marketgate/market/auth"
	"github.com/textileio/marketgate/market/module"
	"github.com/textileio/marketgate/tests"
	"github.com/textileio/marketgate/tests/mocks"
	"github.com/textileio/marketgate/wallet"
	wmodule "github.com/textileio/marketgate/wallet/module"
)

const (
	adminToken = "admin-secret"
	terms      = `{"sale_condition":"500","use_condition":"10"}`
)

type client struct {
	Health                func(ctx context.Context) (health.Report, error)
	AuthNew               func(ctx context.Context, account string) (string, error)
	AuthWhoami            func(ctx context.Context) (string, error)
	NftOnApprove          func(ctx context.Context, contractID, signerID, tokenID, ownerID string, approvalID uint64, msg string) (market.Sale, error)
	RemoveSale            func(ctx context.Context, txID, contractID, tokenID string) (market.Sale, error)
	UpdatePrice           func(ctx context.Context, txID, contractID, tokenID string, price big.Int) error
	Offer                 func(ctx context.Context, txID, contractID, tokenID string) (market.Resolution, error)
	Resolve               func(ctx context.Context, id string, outcome Outcome) (market.Resolution, error)
	StorageDeposit        func(ctx context.Context, txID, account string) (big.Int, error)
	StorageMinimumBalance func(ctx context.Context) (big.Int, error)
	StorageBalanceOf      func(ctx context.Context, account string) (big.Int, error)
	GetSupplySales        func(ctx context.Context) (uint64, error)
	GetSale               func(ctx context.Context, contractID, tokenID string) (market.Sale, error)
	GetResolution         func(ctx context.Context, id string) (market.Resolution, error)
	Transfers             func(ctx context.Context, account string) ([]wallet.TransferEvent, error)
	TransfersOf           func(ctx context.Context, resolutionID string) ([]wallet.TransferEvent, error)
}

func TestAuth(t *testing.T) {
	t.Parallel()
	addr, _, _ := setup(t)
	ctx := context.Background()

	anon := newClient(t, addr, "")
	_, err := anon.AuthWhoami(ctx)
	require.Error(t, err)
	_, err = anon.AuthNew(ctx, "alice")
	require.Error(t, err)
	report, err := anon.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, health.Ok, report.Status)

	admin := newClient(t, addr, adminToken)
	who, err := admin.AuthWhoami(ctx)
	require.NoError(t, err)
	require.Equal(t, market.DefaultHostID, who)

	token, err := admin.AuthNew(ctx, "alice")
	require.NoError(t, err)
	alice := newClient(t, addr, token)
	who, err = alice.AuthWhoami(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", who)
	_, err = alice.AuthNew(ctx, "bob")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unauthorized")
}

func TestUnknownToken(t *testing.T) {
	t.Parallel()
	addr, _, _ := setup(t)

	headers := http.Header{"Authorization": []string{"Bearer unknown"}}
	var c client
	_, err := jsonrpc.NewMergeClient(context.Background(), "ws://"+addr+"/rpc/v0", Namespace, []interface{}{&c}, headers)
	require.Error(t, err)
}

func TestPurchase(t *testing.T) {
	t.Parallel()
	addr, admin, node := setup(t)
	ctx := context.Background()

	alice := newClient(t, addr, tokenFor(t, admin, "alice"))
	bob := newClient(t, addr, tokenFor(t, admin, "bob"))
	anon := newClient(t, addr, "")

	min, err := anon.StorageMinimumBalance(ctx)
	require.NoError(t, err)
	_, err = anon.StorageDeposit(ctx, node.pay("alice", min), "")
	require.Error(t, err)
	_, err = alice.StorageDeposit(ctx, node.pay("alice", min), "")
	require.NoError(t, err)

	_, err = admin.NftOnApprove(ctx, "nft.contract", "alice", "T1", "alice", 3, terms)
	require.NoError(t, err)
	n, err := anon.GetSupplySales(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	err = bob.UpdatePrice(ctx, node.pay("bob", market.OneUnit), "nft.contract", "T1", big.NewInt(1))
	require.Error(t, err)
	require.NoError(t, alice.UpdatePrice(ctx, node.pay("alice", market.OneUnit), "nft.contract", "T1", big.NewInt(600)))
	sale, err := anon.GetSale(ctx, "nft.contract", "T1")
	require.NoError(t, err)
	require.True(t, sale.SaleConditions.Equals(big.NewInt(600)))

	r, err := bob.Offer(ctx, node.pay("bob", big.NewInt(600)), "nft.contract", "T1")
	require.NoError(t, err)
	require.Equal(t, market.StatusPending, r.Status)

	// Only the host can deliver outcomes.
	_, err = bob.Resolve(ctx, r.ID, Outcome{Error: "failed"})
	require.Error(t, err)

	require.Eventually(t, func() bool {
		r, err = anon.GetResolution(ctx, r.ID)
		return err == nil && r.Status == market.StatusPaidOut
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		evs, err := anon.TransfersOf(ctx, r.ID)
		return err == nil && len(evs) == 1 && evs[0].To == "alice" && evs[0].Amount.Equals(big.NewInt(600))
	}, 5*time.Second, 10*time.Millisecond)

	_, err = anon.GetSale(ctx, "nft.contract", "T1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestApprovalRelayedByHost(t *testing.T) {
	t.Parallel()
	addr, admin, node := setup(t)
	ctx := context.Background()

	alice := newClient(t, addr, tokenFor(t, admin, "alice"))
	mallory := newClient(t, addr, tokenFor(t, admin, "mallory"))
	nft := newClient(t, addr, tokenFor(t, admin, "nft.contract"))

	min, err := alice.StorageMinimumBalance(ctx)
	require.NoError(t, err)
	_, err = alice.StorageDeposit(ctx, node.pay("alice", min), "")
	require.NoError(t, err)

	// An account can't list an asset in the name of another signer.
	_, err = mallory.NftOnApprove(ctx, "mallory", "alice", "T1", "alice", 1, terms)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unauthorized")
	_, err = alice.NftOnApprove(ctx, "nft.contract", "alice", "T1", "alice", 1, terms)
	require.Error(t, err)
	_, err = nft.NftOnApprove(ctx, "nft.contract", "alice", "T1", "alice", 1, terms)
	require.Error(t, err)

	n, err := alice.GetSupplySales(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)

	// The host still can't forge an approval the owner didn't sign.
	_, err = admin.NftOnApprove(ctx, "nft.contract", "mallory", "T1", "alice", 1, terms)
	require.Error(t, err)
	_, err = admin.NftOnApprove(ctx, "nft.contract", "alice", "T1", "alice", 1, terms)
	require.NoError(t, err)
}

func TestUnbackedPayment(t *testing.T) {
	t.Parallel()
	addr, admin, node := setup(t)
	ctx := context.Background()

	alice := newClient(t, addr, tokenFor(t, admin, "alice"))
	bob := newClient(t, addr, tokenFor(t, admin, "bob"))

	min, err := alice.StorageMinimumBalance(ctx)
	require.NoError(t, err)
	_, err = alice.StorageDeposit(ctx, node.pay("alice", min), "")
	require.NoError(t, err)
	_, err = admin.NftOnApprove(ctx, "nft.contract", "alice", "T1", "alice", 1, terms)
	require.NoError(t, err)

	// No transaction on the host node backs the payment.
	_, err = bob.Offer(ctx, "tx-made-up", "nft.contract", "T1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid payment receipt")
	_, err = bob.StorageDeposit(ctx, "tx-made-up", "")
	require.Error(t, err)

	// Transactions that don't pay the market from the caller.
	_, err = bob.Offer(ctx, node.pay("alice", big.NewInt(500)), "nft.contract", "T1")
	require.Error(t, err)
	_, err = bob.Offer(ctx, node.transfer("bob", "carol", big.NewInt(500)), "nft.contract", "T1")
	require.Error(t, err)

	// A transaction pays for a single call.
	txID := node.pay("bob", min)
	_, err = bob.StorageDeposit(ctx, txID, "")
	require.NoError(t, err)
	_, err = bob.StorageDeposit(ctx, txID, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "already used")

	balance, err := bob.StorageBalanceOf(ctx, "bob")
	require.NoError(t, err)
	require.True(t, balance.Equals(min))
	n, err := bob.GetSupplySales(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)
	evs, err := bob.Transfers(ctx, "bob")
	require.NoError(t, err)
	require.Empty(t, evs)
}

func TestFailedCallReturnsPayment(t *testing.T) {
	t.Parallel()
	addr, admin, node := setup(t)
	ctx := context.Background()

	alice := newClient(t, addr, tokenFor(t, admin, "alice"))
	bob := newClient(t, addr, tokenFor(t, admin, "bob"))

	min, err := alice.StorageMinimumBalance(ctx)
	require.NoError(t, err)
	_, err = alice.StorageDeposit(ctx, node.pay("alice", min), "")
	require.NoError(t, err)
	_, err = admin.NftOnApprove(ctx, "nft.contract", "alice", "T1", "alice", 1, terms)
	require.NoError(t, err)

	// The payment is below the price.
	_, err = bob.Offer(ctx, node.pay("bob", big.NewInt(100)), "nft.contract", "T1")
	require.Error(t, err)

	evs, err := bob.Transfers(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.Equal(t, market.ReasonReturn, evs[0].Reason)
	require.True(t, evs[0].Amount.Equals(big.NewInt(100)))
	require.Equal(t, wallet.TransferSuccess, evs[0].Status)

	sale, err := bob.GetSale(ctx, "nft.contract", "T1")
	require.NoError(t, err)
	require.Equal(t, "alice", sale.OwnerID)
}

// hostNode is an in-memory ledger of the host node transactions.
type hostNode struct {
	lock sync.Mutex
	txs  map[string]host.Tx
}

func (n *hostNode) transfer(from, to string, amount big.Int) string {
	n.lock.Lock()
	defer n.lock.Unlock()
	id := fmt.Sprintf("tx-%d", len(n.txs)+1)
	n.txs[id] = host.Tx{ID: id, From: from, To: to, Amount: amount}
	return id
}

// pay sends amount from an account to the market account.
func (n *hostNode) pay(from string, amount big.Int) string {
	return n.transfer(from, market.DefaultHostID, amount)
}

func (n *hostNode) get(id string) (host.Tx, error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	tx, ok := n.txs[id]
	if !ok {
		return host.Tx{}, fmt.Errorf("transaction %s not found", id)
	}
	return tx, nil
}

func setup(t *testing.T) (string, *client, *hostNode) {
	t.Helper()
	ds := tests.NewTxMapDatastore()

	node := &hostNode{txs: make(map[string]host.Tx)}
	api := &host.API{}
	api.Internal.Transfer = func(ctx context.Context, from, to string, amount big.Int) (string, error) {
		return node.transfer(from, to, amount), nil
	}
	api.Internal.GetTransfer = func(ctx context.Context, txID string) (host.Tx, error) {
		return node.get(txID)
	}
	cb := func(ctx context.Context) (*host.API, func(), error) {
		return api, func() {}, nil
	}
	w, err := wmodule.New(ds, cb, market.DefaultHostID)
	require.NoError(t, err)

	c := mocks.NewCustodianMock()
	c.SetOwner("alice")
	m, err := module.New(module.NewState(ds, market.DefaultStoragePerSale), c, w)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, m.Close()) })

	a := auth.New(ds)
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register(Namespace, New(m, w, a, health.New(nil, m, 0)))
	mux := http.NewServeMux()
	mux.Handle("/rpc/v0", &Handler{
		Auth:        a,
		AdminToken:  adminToken,
		HostAccount: market.DefaultHostID,
		Next:        rpcServer,
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	addr := strings.TrimPrefix(srv.URL, "http://")
	return addr, newClient(t, addr, adminToken), node
}

func newClient(t *testing.T, addr, token string) *client {
	t.Helper()
	var headers http.Header
	if token != "" {
		headers = http.Header{"Authorization": []string{"Bearer " + token}}
	}
	var c client
	closer, err := jsonrpc.NewMergeClient(context.Background(), "ws://"+addr+"/rpc/v0", Namespace, []interface{}{&c}, headers)
	require.NoError(t, err)
	t.Cleanup(closer)
	return &c
}

func tokenFor(t *testing.T, admin *client, account string) string {
	t.Helper()
	token, err := admin.AuthNew(context.Background(), account)
	require.NoError(t, err)
	return token
}
