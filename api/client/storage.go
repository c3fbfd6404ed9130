package client

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"
)

// Storage provides an API for managing prepaid listing storage.
type Storage struct {
	api *api
}

// Deposit adds the payment of the host node transaction txID to the
// storage balance of account, or of the caller if account is empty.
func (s *Storage) Deposit(ctx context.Context, txID, account string) (big.Int, error) {
	b, err := s.api.StorageDeposit(ctx, txID, account)
	if err != nil {
		return big.Zero(), fmt.Errorf("calling StorageDeposit: %v", err)
	}
	return b, nil
}

// Withdraw returns the storage surplus of the caller. txID must pay one
// unit to the market account.
func (s *Storage) Withdraw(ctx context.Context, txID string) (big.Int, error) {
	b, err := s.api.StorageWithdraw(ctx, txID)
	if err != nil {
		return big.Zero(), fmt.Errorf("calling StorageWithdraw: %v", err)
	}
	return b, nil
}

// MinimumBalance returns the storage amount required per sale.
func (s *Storage) MinimumBalance(ctx context.Context) (big.Int, error) {
	b, err := s.api.StorageMinimumBalance(ctx)
	if err != nil {
		return big.Zero(), fmt.Errorf("calling StorageMinimumBalance: %v", err)
	}
	return b, nil
}

// BalanceOf returns the storage balance of an account.
func (s *Storage) BalanceOf(ctx context.Context, account string) (big.Int, error) {
	b, err := s.api.StorageBalanceOf(ctx, account)
	if err != nil {
		return big.Zero(), fmt.Errorf("calling StorageBalanceOf: %v", err)
	}
	return b, nil
}
