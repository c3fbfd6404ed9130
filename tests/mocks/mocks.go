package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/textileio/marketgate/market"
)

var _ market.Custodian = (*CustodianMock)(nil)

// CustodyCall is a call received by CustodianMock.
type CustodyCall struct {
	Kind       market.ResolutionKind
	ContractID string
	ReceiverID string
	TokenID    string
	ApprovalID uint64
	Memo       string
	Balance    big.Int
	MaxLen     uint32
}

// CustodianMock provides a mock Custodian. By default it answers with a
// payout that pays the whole balance to the owner set with SetOwner, or to
// "owner". Respond overrides the answer.
type CustodianMock struct {
	lock    sync.Mutex
	calls   []CustodyCall
	owner   string
	respond func(CustodyCall) ([]byte, error)
	block   chan struct{}
}

// NewCustodianMock returns a new CustodianMock.
func NewCustodianMock() *CustodianMock {
	return &CustodianMock{owner: "owner"}
}

// SetOwner sets the recipient of the default payout.
func (c *CustodianMock) SetOwner(owner string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.owner = owner
}

// Respond sets the function that builds the answer of every call.
func (c *CustodianMock) Respond(f func(CustodyCall) ([]byte, error)) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.respond = f
}

// Block makes calls wait until Unblock is called or their context is done.
func (c *CustodianMock) Block() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.block = make(chan struct{})
}

// Unblock releases blocked calls.
func (c *CustodianMock) Unblock() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.block != nil {
		close(c.block)
		c.block = nil
	}
}

// Calls returns the received calls.
func (c *CustodianMock) Calls() []CustodyCall {
	c.lock.Lock()
	defer c.lock.Unlock()
	res := make([]CustodyCall, len(c.calls))
	copy(res, c.calls)
	return res
}

// TransferWithPayout implements TransferWithPayout.
func (c *CustodianMock) TransferWithPayout(ctx context.Context, contractID, receiverID, tokenID string, approvalID uint64, memo string, balance big.Int, maxLenPayout uint32) ([]byte, error) {
	return c.call(ctx, CustodyCall{
		Kind:       market.KindPurchase,
		ContractID: contractID,
		ReceiverID: receiverID,
		TokenID:    tokenID,
		ApprovalID: approvalID,
		Memo:       memo,
		Balance:    balance,
		MaxLen:     maxLenPayout,
	})
}

// TransferForUse implements TransferForUse.
func (c *CustodianMock) TransferForUse(ctx context.Context, contractID, userID, tokenID, memo string, balance big.Int, maxLenPayout uint32) ([]byte, error) {
	return c.call(ctx, CustodyCall{
		Kind:       market.KindUse,
		ContractID: contractID,
		ReceiverID: userID,
		TokenID:    tokenID,
		Memo:       memo,
		Balance:    balance,
		MaxLen:     maxLenPayout,
	})
}

func (c *CustodianMock) call(ctx context.Context, cc CustodyCall) ([]byte, error) {
	c.lock.Lock()
	c.calls = append(c.calls, cc)
	block, respond, owner := c.block, c.respond, c.owner
	c.lock.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if respond != nil {
		return respond(cc)
	}
	return json.Marshal(market.Payout{Payout: map[string]big.Int{owner: cc.Balance}})
}

var _ market.Wallet = (*WalletMock)(nil)

// Transfer is a transfer received by WalletMock.
type Transfer struct {
	To     string
	Amount big.Int
	Ref    market.TransferRef
}

// WalletMock provides a mock Wallet that records transfers.
type WalletMock struct {
	lock      sync.Mutex
	transfers []Transfer
	failing   map[string]bool
}

// NewWalletMock returns a new WalletMock.
func NewWalletMock() *WalletMock {
	return &WalletMock{failing: make(map[string]bool)}
}

// FailTo makes transfers to an account fail.
func (w *WalletMock) FailTo(account string) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.failing[account] = true
}

// Transfer implements Transfer.
func (w *WalletMock) Transfer(ctx context.Context, to string, amount big.Int, ref market.TransferRef) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.failing[to] {
		return fmt.Errorf("transfer to %s rejected", to)
	}
	w.transfers = append(w.transfers, Transfer{To: to, Amount: amount, Ref: ref})
	return nil
}

// Transfers returns the successful transfers.
func (w *WalletMock) Transfers() []Transfer {
	w.lock.Lock()
	defer w.lock.Unlock()
	res := make([]Transfer, len(w.transfers))
	copy(res, w.transfers)
	return res
}

// Total returns the sum of transfers of a resolution.
func (w *WalletMock) Total(resolutionID string) big.Int {
	w.lock.Lock()
	defer w.lock.Unlock()
	total := big.Zero()
	for _, t := range w.transfers {
		if t.Ref.ResolutionID == resolutionID {
			total = big.Add(total, t.Amount)
		}
	}
	return total
}
