package receiptstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ipfs/go-datastore"
	"github.com/textileio/marketgate/wallet"
)

var (
	// ErrNotFound indicates the receipt doesn't exist.
	ErrNotFound = errors.New("not found")

	dsBase = datastore.NewKey("receipt")
)

// ReceiptStore stores the payments claimed by calls, so a transaction
// pays for one call only.
type ReceiptStore struct {
	ds   datastore.TxnDatastore
	lock sync.Mutex
}

// New creates a new ReceiptStore.
func New(ds datastore.TxnDatastore) *ReceiptStore {
	return &ReceiptStore{
		ds: ds,
	}
}

// Claim saves a receipt. It returns wallet.ErrReceiptClaimed if the
// transaction was already claimed.
func (s *ReceiptStore) Claim(r wallet.Receipt) error {
	if r.TxID == "" {
		return fmt.Errorf("transaction id is empty")
	}
	bytes, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling json: %s", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	txn, err := s.ds.NewTransaction(false)
	if err != nil {
		return fmt.Errorf("creating transaction: %s", err)
	}
	defer txn.Discard()

	key := makeKey(r.TxID)
	exists, err := txn.Has(key)
	if err != nil {
		return fmt.Errorf("checking receipt: %s", err)
	}
	if exists {
		return wallet.ErrReceiptClaimed
	}
	if err := txn.Put(key, bytes); err != nil {
		return fmt.Errorf("putting receipt: %s", err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %s", err)
	}
	return nil
}

// Get returns the receipt of a transaction.
func (s *ReceiptStore) Get(txID string) (wallet.Receipt, error) {
	bytes, err := s.ds.Get(makeKey(txID))
	if err == datastore.ErrNotFound {
		return wallet.Receipt{}, ErrNotFound
	}
	if err != nil {
		return wallet.Receipt{}, fmt.Errorf("getting receipt: %s", err)
	}
	var r wallet.Receipt
	if err := json.Unmarshal(bytes, &r); err != nil {
		return wallet.Receipt{}, fmt.Errorf("unmarshaling receipt: %s", err)
	}
	return r, nil
}

func makeKey(txID string) datastore.Key {
	return dsBase.ChildString(txID)
}
