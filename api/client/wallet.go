package client

import (
	"context"
	"fmt"

	"github.com/textileio/marketgate/wallet"
)

// Wallet provides an API for inspecting funds sent by the market.
type Wallet struct {
	api *api
}

// Transfers returns the transfers sent to an account.
func (w *Wallet) Transfers(ctx context.Context, account string) ([]wallet.TransferEvent, error) {
	res, err := w.api.Transfers(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("calling Transfers: %v", err)
	}
	return res, nil
}

// TransfersOf returns the transfers that settled a resolution.
func (w *Wallet) TransfersOf(ctx context.Context, resolutionID string) ([]wallet.TransferEvent, error) {
	res, err := w.api.TransfersOf(ctx, resolutionID)
	if err != nil {
		return nil, fmt.Errorf("calling TransfersOf: %v", err)
	}
	return res, nil
}
