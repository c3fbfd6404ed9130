package market

import (
	"context"

	"github.com/filecoin-project/go-state-types/big"
)

// Custodian is the external asset-custody service. It holds the
// authoritative ownership record of assets and computes royalty splits.
// Both calls return the raw payout object produced by the custodian.
type Custodian interface {
	TransferWithPayout(ctx context.Context, contractID, receiverID, tokenID string, approvalID uint64, memo string, balance big.Int, maxLenPayout uint32) ([]byte, error)
	TransferForUse(ctx context.Context, contractID, userID, tokenID, memo string, balance big.Int, maxLenPayout uint32) ([]byte, error)
}

// Wallet moves funds out of the market account.
type Wallet interface {
	Transfer(ctx context.Context, to string, amount big.Int, ref TransferRef) error
}

// TransferReason describes why funds leave the market account.
type TransferReason string

const (
	// ReasonPayout is a payout split entry.
	ReasonPayout TransferReason = "payout"
	// ReasonRefund is a full refund of a deposit to the buyer.
	ReasonRefund TransferReason = "refund"
	// ReasonStorageWithdraw is a storage surplus returned to its owner.
	ReasonStorageWithdraw TransferReason = "storage_withdraw"
	// ReasonReturn gives back a payment attached to a call that failed.
	ReasonReturn TransferReason = "return"
)

// TransferRef links a fund movement to what caused it.
type TransferRef struct {
	ResolutionID string
	Reason       TransferReason
}
