package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/textileio/marketgate/market"
)

var (
	// ErrInvalidReceipt indicates the transaction doesn't pay the market
	// account from the caller.
	ErrInvalidReceipt = fmt.Errorf("%w: invalid payment receipt", market.ErrInsufficientDeposit)
	// ErrReceiptClaimed indicates the transaction already paid for a call.
	ErrReceiptClaimed = fmt.Errorf("%w: payment receipt already used", market.ErrInsufficientDeposit)
)

// Module provides fund movements out of the market account and verifies
// payments into it.
type Module interface {
	market.Wallet
	// Claim verifies on the host node that txID paid the market account
	// from the given account and marks it as used. It returns the paid
	// amount.
	Claim(ctx context.Context, from, txID string) (big.Int, error)
	Balance(ctx context.Context) (big.Int, error)
	Transfers(to string) ([]TransferEvent, error)
	TransfersOf(resolutionID string) ([]TransferEvent, error)
}

// TransferStatus is the result of a transfer.
type TransferStatus int

const (
	// TransferSuccess means the host node accepted the transfer.
	TransferSuccess TransferStatus = iota
	// TransferFailed means the host node rejected the transfer. Failed
	// transfers aren't retried.
	TransferFailed
)

// TransferStatusStr maps statuses to human readable names.
var TransferStatusStr = map[TransferStatus]string{
	TransferSuccess: "success",
	TransferFailed:  "failed",
}

func (s TransferStatus) String() string {
	return TransferStatusStr[s]
}

// TransferEvent records a fund movement out of the market account.
type TransferEvent struct {
	ID           string                `json:"id"`
	TxID         string                `json:"tx_id,omitempty"`
	From         string                `json:"from"`
	To           string                `json:"to"`
	Amount       big.Int               `json:"amount"`
	ResolutionID string                `json:"resolution_id,omitempty"`
	Reason       market.TransferReason `json:"reason"`
	Status       TransferStatus        `json:"status"`
	ErrMsg       string                `json:"err_msg,omitempty"`
	Time         time.Time             `json:"time"`
}

// Receipt records a payment into the market account that was claimed by a
// call.
type Receipt struct {
	TxID   string    `json:"tx_id"`
	From   string    `json:"from"`
	Amount big.Int   `json:"amount"`
	Time   time.Time `json:"time"`
}
