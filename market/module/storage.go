package module

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/textileio/marketgate/market"
)

// StorageDeposit adds the attached deposit to the storage balance of
// account, or of the caller if account is empty. It returns the new balance.
func (m *Module) StorageDeposit(call market.Call, account string) (big.Int, error) {
	if account == "" {
		account = call.Predecessor
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	balance, err := m.state.Quota.Deposit(account, call.Deposit)
	if err != nil {
		return big.Zero(), err
	}
	log.Infof("storage deposit of %s for %s", call.Deposit, account)
	return balance, nil
}

// StorageWithdraw returns to the caller the part of its storage balance
// that isn't required by its active sales. It returns the withdrawn amount.
func (m *Module) StorageWithdraw(ctx context.Context, call market.Call) (big.Int, error) {
	if err := requireOneUnit(call); err != nil {
		return big.Zero(), err
	}
	owner := call.Predecessor

	m.lock.Lock()
	defer m.lock.Unlock()

	send := func(surplus big.Int) error {
		ref := market.TransferRef{Reason: market.ReasonStorageWithdraw}
		if err := m.wallet.Transfer(ctx, owner, surplus, ref); err != nil {
			return fmt.Errorf("transferring to %s: %s", owner, err)
		}
		return nil
	}
	surplus, err := m.state.Quota.Withdraw(owner, send)
	if err != nil {
		return big.Zero(), err
	}
	log.Infof("storage withdraw of %s for %s", surplus, owner)
	return surplus, nil
}

// StorageMinimumBalance returns the storage amount required per sale.
func (m *Module) StorageMinimumBalance() big.Int {
	return m.state.Quota.MinimumBalance()
}

// StorageBalanceOf returns the storage balance of an account.
func (m *Module) StorageBalanceOf(account string) (big.Int, error) {
	return m.state.Quota.BalanceOf(account)
}
