package module

import (
	"context"
	"fmt"
	"time"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/google/uuid"
	"github.com/ipfs/go-datastore"
	logger "github.com/ipfs/go-log/v2"
	"github.com/textileio/marketgate/host"
	"github.com/textileio/marketgate/market"
	"github.com/textileio/marketgate/wallet"
	"github.com/textileio/marketgate/wallet/receiptstore"
	"github.com/textileio/marketgate/wallet/sendstore"
)

var (
	log = logger.Logger("wallet")
)

var _ wallet.Module = (*Module)(nil)

// Module moves funds out of the market account through the host node and
// records every movement, successful or not. Payments into the market
// account are verified on the host node and claimed once.
type Module struct {
	clientBuilder host.ClientBuilder
	account       string
	store         *sendstore.SendStore
	receipts      *receiptstore.ReceiptStore
}

// New creates a new wallet module that sends funds from account.
func New(ds datastore.TxnDatastore, clientBuilder host.ClientBuilder, account string) (*Module, error) {
	if account == "" {
		return nil, fmt.Errorf("market account can't be empty")
	}
	return &Module{
		clientBuilder: clientBuilder,
		account:       account,
		store:         sendstore.New(ds),
		receipts:      receiptstore.New(ds),
	}, nil
}

// Account returns the account funds are sent from.
func (m *Module) Account() string {
	return m.account
}

// Transfer sends amount to an account. The transfer is recorded with the
// given reference whatever its result.
func (m *Module) Transfer(ctx context.Context, to string, amount big.Int, ref market.TransferRef) error {
	if amount.Nil() || amount.Sign() <= 0 {
		return fmt.Errorf("transfer amount must be positive")
	}
	ev := wallet.TransferEvent{
		ID:           uuid.New().String(),
		From:         m.account,
		To:           to,
		Amount:       amount,
		ResolutionID: ref.ResolutionID,
		Reason:       ref.Reason,
		Status:       wallet.TransferSuccess,
		Time:         time.Now(),
	}

	txID, sendErr := m.send(ctx, to, amount)
	if sendErr != nil {
		ev.Status = wallet.TransferFailed
		ev.ErrMsg = sendErr.Error()
	}
	ev.TxID = txID

	if err := m.store.Put(ev); err != nil {
		log.Errorf("saving transfer %s of %s to %s: %s", ev.ID, amount, to, err)
	}
	if sendErr != nil {
		return sendErr
	}
	log.Infof("transferred %s to %s (%s), tx %s", amount, to, ref.Reason, txID)
	return nil
}

// Claim verifies that txID is a transfer from an account to the market
// account and marks it as used. It returns the transferred amount.
func (m *Module) Claim(ctx context.Context, from, txID string) (big.Int, error) {
	if txID == "" {
		return big.Zero(), fmt.Errorf("%w: empty transaction id", wallet.ErrInvalidReceipt)
	}
	client, cls, err := m.clientBuilder(ctx)
	if err != nil {
		return big.Zero(), fmt.Errorf("creating host client: %s", err)
	}
	defer cls()

	tx, err := client.GetTransfer(ctx, txID)
	if err != nil {
		return big.Zero(), fmt.Errorf("%w: getting transaction %s: %s", wallet.ErrInvalidReceipt, txID, err)
	}
	if tx.To != m.account {
		return big.Zero(), fmt.Errorf("%w: transaction %s doesn't pay %s", wallet.ErrInvalidReceipt, txID, m.account)
	}
	if tx.From != from {
		return big.Zero(), fmt.Errorf("%w: transaction %s wasn't sent by %s", wallet.ErrInvalidReceipt, txID, from)
	}
	if tx.Amount.Nil() || tx.Amount.Sign() <= 0 {
		return big.Zero(), fmt.Errorf("%w: transaction %s has no amount", wallet.ErrInvalidReceipt, txID)
	}

	r := wallet.Receipt{TxID: txID, From: from, Amount: tx.Amount, Time: time.Now()}
	if err := m.receipts.Claim(r); err != nil {
		return big.Zero(), err
	}
	log.Infof("claimed payment of %s from %s, tx %s", tx.Amount, from, txID)
	return tx.Amount, nil
}

// Balance returns the balance of the market account.
func (m *Module) Balance(ctx context.Context) (big.Int, error) {
	client, cls, err := m.clientBuilder(ctx)
	if err != nil {
		return big.Zero(), fmt.Errorf("creating host client: %s", err)
	}
	defer cls()
	b, err := client.Balance(ctx, m.account)
	if err != nil {
		return big.Zero(), fmt.Errorf("getting balance from host: %s", err)
	}
	return b, nil
}

// Transfers returns the transfers sent to an account.
func (m *Module) Transfers(to string) ([]wallet.TransferEvent, error) {
	return m.store.To(to)
}

// TransfersOf returns the transfers that settled a resolution.
func (m *Module) TransfersOf(resolutionID string) ([]wallet.TransferEvent, error) {
	return m.store.ForResolution(resolutionID)
}

func (m *Module) send(ctx context.Context, to string, amount big.Int) (string, error) {
	client, cls, err := m.clientBuilder(ctx)
	if err != nil {
		return "", fmt.Errorf("creating host client: %s", err)
	}
	defer cls()

	txID, err := client.Transfer(ctx, m.account, to, amount)
	if err != nil {
		return "", fmt.Errorf("transferring funds: %s", err)
	}
	return txID, nil
}
