package quota

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/ipfs/go-datastore"
	logging "github.com/ipfs/go-log/v2"
	"github.com/textileio/marketgate/market"
)

var (
	dsBase = datastore.NewKey("storage-deposit")

	log = logging.Logger("market-quota")
)

// SaleCounter counts the active sales of an owner.
type SaleCounter interface {
	CountByOwner(owner string) (uint64, error)
}

// Ledger tracks prepaid storage balances per account. Balances aren't
// decremented per listing: the required amount is recomputed from the
// current number of active sales whenever it's checked.
type Ledger struct {
	ds      datastore.Datastore
	counter SaleCounter
	perSale big.Int

	lock sync.Mutex
}

// New returns a new *Ledger.
func New(ds datastore.Datastore, counter SaleCounter, perSale big.Int) *Ledger {
	return &Ledger{
		ds:      ds,
		counter: counter,
		perSale: perSale,
	}
}

// MinimumBalance returns the storage amount required per sale.
func (l *Ledger) MinimumBalance() big.Int {
	return l.perSale
}

// Deposit adds amount to the account balance and returns the new balance.
func (l *Ledger) Deposit(account string, amount big.Int) (big.Int, error) {
	if account == "" {
		return big.Zero(), fmt.Errorf("%w: empty account", market.ErrInvalidInput)
	}
	if amount.Nil() || amount.LessThan(l.perSale) {
		return big.Zero(), fmt.Errorf("%w: require deposit minimum of %s", market.ErrInsufficientDeposit, l.perSale)
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	balance, err := l.balanceOf(account)
	if err != nil {
		return big.Zero(), err
	}
	balance = big.Add(balance, amount)
	if err := l.put(account, balance); err != nil {
		return big.Zero(), err
	}
	log.Debugf("storage deposit of %s for %s, balance %s", amount, account, balance)
	return balance, nil
}

// BalanceOf returns the stored balance of an account.
func (l *Ledger) BalanceOf(account string) (big.Int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.balanceOf(account)
}

// RequiredFor returns the storage amount the account needs to keep its
// active sales plus extra new ones.
func (l *Ledger) RequiredFor(account string, extra uint64) (big.Int, error) {
	n, err := l.counter.CountByOwner(account)
	if err != nil {
		return big.Zero(), fmt.Errorf("counting sales of %s: %s", account, err)
	}
	return big.Mul(big.NewIntUnsigned(n+extra), l.perSale), nil
}

// CheckCapacity returns ErrInsufficientStorageQuota if the account balance
// can't cover its active sales plus extra new ones.
func (l *Ledger) CheckCapacity(account string, extra uint64) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	balance, err := l.balanceOf(account)
	if err != nil {
		return err
	}
	required, err := l.RequiredFor(account, extra)
	if err != nil {
		return err
	}
	if balance.LessThan(required) {
		return fmt.Errorf("%w: paid %s, for %s sales at %s rate of per sale", market.ErrInsufficientStorageQuota, balance, big.Div(required, l.perSale), l.perSale)
	}
	return nil
}

// Withdraw returns the surplus of the account balance over the amount
// required by its active sales. The surplus is handed to send; the balance
// is updated only if send succeeds. The retained balance is exactly the
// required amount, or no record at all if the account has no sales.
func (l *Ledger) Withdraw(account string, send func(surplus big.Int) error) (big.Int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	balance, err := l.balanceOf(account)
	if err != nil {
		return big.Zero(), err
	}
	required, err := l.RequiredFor(account, 0)
	if err != nil {
		return big.Zero(), err
	}
	if balance.LessThan(required) {
		log.Errorf("storage balance of %s is %s but %s is required", account, balance, required)
		return big.Zero(), fmt.Errorf("%w: balance %s below required %s", market.ErrAccountingInconsistency, balance, required)
	}
	surplus := big.Sub(balance, required)
	if surplus.Sign() > 0 {
		if err := send(surplus); err != nil {
			return big.Zero(), fmt.Errorf("sending storage surplus: %s", err)
		}
	}
	if required.Sign() == 0 {
		if err := l.ds.Delete(makeKey(account)); err != nil && err != datastore.ErrNotFound {
			return big.Zero(), fmt.Errorf("deleting storage balance: %s", err)
		}
		return surplus, nil
	}
	if err := l.put(account, required); err != nil {
		return big.Zero(), err
	}
	return surplus, nil
}

func (l *Ledger) balanceOf(account string) (big.Int, error) {
	buf, err := l.ds.Get(makeKey(account))
	if err == datastore.ErrNotFound {
		return big.Zero(), nil
	}
	if err != nil {
		return big.Zero(), fmt.Errorf("getting storage balance from datastore: %s", err)
	}
	var balance big.Int
	if err := json.Unmarshal(buf, &balance); err != nil {
		return big.Zero(), fmt.Errorf("unmarshaling storage balance: %s", err)
	}
	return balance, nil
}

func (l *Ledger) put(account string, balance big.Int) error {
	buf, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("marshaling storage balance: %s", err)
	}
	if err := l.ds.Put(makeKey(account), buf); err != nil {
		return fmt.Errorf("saving storage balance: %s", err)
	}
	return nil
}

func makeKey(account string) datastore.Key {
	return dsBase.ChildString(hex.EncodeToString([]byte(account)))
}
