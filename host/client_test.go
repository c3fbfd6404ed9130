package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/filecoin-project/go-state-types/big"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"
	"github.com/textileio/marketgate/market"
)

type fakeNode struct {
	lock      sync.Mutex
	transfers map[string]big.Int
	txs       map[string]Tx
	memos     []string
}

func (n *fakeNode) NftTransferPayout(ctx context.Context, contractID, receiverID, tokenID string, approvalID uint64, memo string, balance big.Int, maxLenPayout uint32) (json.RawMessage, error) {
	if contractID == "missing" {
		return nil, fmt.Errorf("contract %s doesn't exist", contractID)
	}
	n.lock.Lock()
	n.memos = append(n.memos, memo)
	n.lock.Unlock()
	return json.Marshal(market.Payout{Payout: map[string]big.Int{"owner": balance}})
}

func (n *fakeNode) NftUsePayout(ctx context.Context, contractID, userID, tokenID, memo string, balance big.Int, maxLenPayout uint32) (json.RawMessage, error) {
	return json.RawMessage(fmt.Sprintf(`{"payout":{"owner":"%s"}}`, balance)), nil
}

func (n *fakeNode) Transfer(ctx context.Context, from, to string, amount big.Int) (string, error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	b, ok := n.transfers[to]
	if !ok {
		b = big.Zero()
	}
	n.transfers[to] = big.Add(b, amount)
	id := fmt.Sprintf("tx-%d", len(n.txs)+1)
	n.txs[id] = Tx{ID: id, From: from, To: to, Amount: amount}
	return id, nil
}

func (n *fakeNode) GetTransfer(ctx context.Context, txID string) (Tx, error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	tx, ok := n.txs[txID]
	if !ok {
		return Tx{}, fmt.Errorf("transaction %s not found", txID)
	}
	return tx, nil
}

func (n *fakeNode) Balance(ctx context.Context, account string) (big.Int, error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	b, ok := n.transfers[account]
	if !ok {
		return big.Zero(), nil
	}
	return b, nil
}

func (n *fakeNode) getMemos() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string(nil), n.memos...)
}

func (n *fakeNode) Version(ctx context.Context) (string, error) {
	return "fake-1.0", nil
}

func TestCustodian(t *testing.T) {
	t.Parallel()
	node, cb := newFakeNode(t)
	c := NewCustodian(cb)
	ctx := context.Background()

	res, err := c.TransferWithPayout(ctx, "nft", "buyer", "1", 3, "purchase:abc", big.NewInt(500), 10)
	require.NoError(t, err)
	p, err := market.ParsePayout(res, 10)
	require.NoError(t, err)
	require.True(t, p.Payout["owner"].Equals(big.NewInt(500)))
	require.Equal(t, []string{"purchase:abc"}, node.getMemos())

	res, err = c.TransferForUse(ctx, "nft", "user", "1", "use:abc", big.NewInt(10), 10)
	require.NoError(t, err)
	p, err = market.ParsePayout(res, 10)
	require.NoError(t, err)
	require.True(t, p.Payout["owner"].Equals(big.NewInt(10)))

	_, err = c.TransferWithPayout(ctx, "missing", "buyer", "1", 3, "purchase:abc", big.NewInt(500), 10)
	require.Error(t, err)
}

func TestTransferAndBalance(t *testing.T) {
	t.Parallel()
	_, cb := newFakeNode(t)
	ctx := context.Background()

	client, cls, err := cb(ctx)
	require.NoError(t, err)
	defer cls()

	txID, err := client.Transfer(ctx, "market", "alice", big.NewInt(7))
	require.NoError(t, err)
	b, err := client.Balance(ctx, "alice")
	require.NoError(t, err)
	require.True(t, b.Equals(big.NewInt(7)))

	tx, err := client.GetTransfer(ctx, txID)
	require.NoError(t, err)
	require.Equal(t, "market", tx.From)
	require.Equal(t, "alice", tx.To)
	require.True(t, tx.Amount.Equals(big.NewInt(7)))

	_, err = client.GetTransfer(ctx, "tx-unknown")
	require.Error(t, err)
}

func TestMonitor(t *testing.T) {
	t.Parallel()
	_, cb := newFakeNode(t)

	m, err := NewMonitor(cb)
	require.NoError(t, err)
	defer m.Close()
	require.True(t, m.Up())
	require.Equal(t, "fake-1.0", m.Version())
}

func newFakeNode(t *testing.T) (*fakeNode, ClientBuilder) {
	node := &fakeNode{transfers: make(map[string]big.Int), txs: make(map[string]Tx)}
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register(Namespace, node)
	testServ := httptest.NewServer(rpcServer)
	t.Cleanup(testServ.Close)

	host, port, err := net.SplitHostPort(testServ.Listener.Addr().String())
	require.NoError(t, err)
	maddr, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/tcp/%s", host, port))
	require.NoError(t, err)
	cb, err := NewBuilder(maddr, "token", 1)
	require.NoError(t, err)
	return node, cb
}
