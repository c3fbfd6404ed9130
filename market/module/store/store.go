package store

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	logging "github.com/ipfs/go-log/v2"
	"github.com/textileio/marketgate/market"
)

var (
	dsBaseSale       = datastore.NewKey("sale")
	dsBaseUse        = datastore.NewKey("use")
	dsBaseByOwner    = datastore.NewKey("index").ChildString("owner")
	dsBaseByContract = datastore.NewKey("index").ChildString("contract")
	dsBasePending    = datastore.NewKey("resolution-pending")
	dsBaseFinal      = datastore.NewKey("resolution-final")

	// ErrNotFound indicates the listing or resolution doesn't exist.
	ErrNotFound = fmt.Errorf("listing store: %w", market.ErrNotFound)

	log = logging.Logger("market-store")
)

// Store is the listing index. It keeps the sale and use tables together
// with the by-owner and by-contract indexes over sales, plus the records
// of in-flight and settled exchanges. Every mutation that touches more than
// one key runs in a single transaction so indexes never diverge from the
// sale table.
type Store struct {
	ds   datastore.TxnDatastore
	lock sync.Mutex
}

// New returns a new *Store.
func New(ds datastore.TxnDatastore) *Store {
	return &Store{
		ds: ds,
	}
}

// Create inserts a sale and its use offer and indexes the sale by owner and
// contract. If a sale already exists for the same key it's replaced,
// including its index entries.
func (s *Store) Create(sale market.Sale, use market.UseOffer) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if sale.Key() != use.Key() {
		return fmt.Errorf("sale and use offer keys differ: %s, %s", sale.Key(), use.Key())
	}
	key := sale.Key()

	txn, err := s.ds.NewTransaction(false)
	if err != nil {
		return fmt.Errorf("creating transaction: %s", err)
	}
	defer txn.Discard()

	old, err := getSale(txn, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil {
		if err := unindexSale(txn, old); err != nil {
			return err
		}
	}

	if err := putJSON(txn, makeSaleKey(key), sale); err != nil {
		return fmt.Errorf("put sale: %s", err)
	}
	if err := putJSON(txn, makeUseKey(key), use); err != nil {
		return fmt.Errorf("put use offer: %s", err)
	}
	if err := putJSON(txn, makeByOwnerKey(sale.OwnerID, key), key); err != nil {
		return fmt.Errorf("put owner index: %s", err)
	}
	if err := putJSON(txn, makeByContractKey(key), key); err != nil {
		return fmt.Errorf("put contract index: %s", err)
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %s", err)
	}
	return nil
}

// GetSale returns the sale for a key. It returns ErrNotFound if there isn't any.
func (s *Store) GetSale(key market.ListingKey) (market.Sale, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return getSale(s.ds, key)
}

// GetUse returns the use offer for a key. It returns ErrNotFound if there isn't any.
func (s *Store) GetUse(key market.ListingKey) (market.UseOffer, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return getUse(s.ds, key)
}

// RemoveSale removes a sale and its index entries, and returns it.
func (s *Store) RemoveSale(key market.ListingKey) (market.Sale, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	txn, err := s.ds.NewTransaction(false)
	if err != nil {
		return market.Sale{}, fmt.Errorf("creating transaction: %s", err)
	}
	defer txn.Discard()

	sale, err := removeSale(txn, key)
	if err != nil {
		return market.Sale{}, err
	}
	if err := txn.Commit(); err != nil {
		return market.Sale{}, fmt.Errorf("committing transaction: %s", err)
	}
	return sale, nil
}

// RemoveUse removes a use offer and returns it. Use offers aren't indexed.
func (s *Store) RemoveUse(key market.ListingKey) (market.UseOffer, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	use, err := getUse(s.ds, key)
	if err != nil {
		return market.UseOffer{}, err
	}
	if err := s.ds.Delete(makeUseKey(key)); err != nil {
		return market.UseOffer{}, fmt.Errorf("deleting use offer: %s", err)
	}
	return use, nil
}

// RepriceSale overwrites the price of a sale owned by caller.
func (s *Store) RepriceSale(key market.ListingKey, caller string, price big.Int) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	sale, err := getSale(s.ds, key)
	if err != nil {
		return err
	}
	if sale.OwnerID != caller {
		return fmt.Errorf("%w: %s isn't the sale owner", market.ErrUnauthorized, caller)
	}
	sale.SaleConditions = price
	if err := putJSON(s.ds, makeSaleKey(key), sale); err != nil {
		return fmt.Errorf("put sale: %s", err)
	}
	return nil
}

// RepriceUse overwrites the price of a use offer owned by caller.
func (s *Store) RepriceUse(key market.ListingKey, caller string, price big.Int) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	use, err := getUse(s.ds, key)
	if err != nil {
		return err
	}
	if use.OwnerID != caller {
		return fmt.Errorf("%w: %s isn't the use offer owner", market.ErrUnauthorized, caller)
	}
	use.UseConditions = price
	if err := putJSON(s.ds, makeUseKey(key), use); err != nil {
		return fmt.Errorf("put use offer: %s", err)
	}
	return nil
}

// ConsumeSale removes the sale and the use offer of a key and saves the
// pending resolution in the same transaction. After it returns, the listing
// can't be purchased again and the resolution must be settled.
func (s *Store) ConsumeSale(key market.ListingKey, r market.Resolution) (market.Sale, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if r.Status != market.StatusPending {
		return market.Sale{}, fmt.Errorf("the resolution isn't pending")
	}

	txn, err := s.ds.NewTransaction(false)
	if err != nil {
		return market.Sale{}, fmt.Errorf("creating transaction: %s", err)
	}
	defer txn.Discard()

	sale, err := removeSale(txn, key)
	if err != nil {
		return market.Sale{}, err
	}
	if err := txn.Delete(makeUseKey(key)); err != nil {
		return market.Sale{}, fmt.Errorf("deleting use offer: %s", err)
	}
	if err := putJSON(txn, makePendingKey(r.ID), r); err != nil {
		return market.Sale{}, fmt.Errorf("put pending resolution: %s", err)
	}
	if err := txn.Commit(); err != nil {
		return market.Sale{}, fmt.Errorf("committing transaction: %s", err)
	}
	return sale, nil
}

// PutPending saves a pending resolution.
func (s *Store) PutPending(r market.Resolution) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if r.Status != market.StatusPending {
		return fmt.Errorf("the resolution isn't pending")
	}
	if err := putJSON(s.ds, makePendingKey(r.ID), r); err != nil {
		return fmt.Errorf("put pending resolution: %s", err)
	}
	return nil
}

// FinalizeResolution moves a pending resolution to its final state.
// It returns ErrNotFound if the resolution isn't pending, so an outcome
// can be applied at most once.
func (s *Store) FinalizeResolution(r market.Resolution) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if r.Status == market.StatusPending {
		return fmt.Errorf("the resolution is still pending")
	}

	txn, err := s.ds.NewTransaction(false)
	if err != nil {
		return fmt.Errorf("creating transaction: %s", err)
	}
	defer txn.Discard()

	ok, err := txn.Has(makePendingKey(r.ID))
	if err != nil {
		return fmt.Errorf("checking pending resolution: %s", err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := txn.Delete(makePendingKey(r.ID)); err != nil {
		return fmt.Errorf("deleting pending resolution: %s", err)
	}
	if err := putJSON(txn, makeFinalKey(r.ID), r); err != nil {
		return fmt.Errorf("put final resolution: %s", err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %s", err)
	}
	return nil
}

// GetResolution returns a pending or final resolution.
func (s *Store) GetResolution(id string) (market.Resolution, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var r market.Resolution
	err := getJSON(s.ds, makePendingKey(id), &r)
	if errors.Is(err, ErrNotFound) {
		err = getJSON(s.ds, makeFinalKey(id), &r)
	}
	if err != nil {
		return market.Resolution{}, err
	}
	return r, nil
}

// GetPendingResolutions returns all pending resolutions.
func (s *Store) GetPendingResolutions() ([]market.Resolution, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return queryResolutions(s.ds, dsBasePending)
}

// GetFinalResolutions returns all settled resolutions.
func (s *Store) GetFinalResolutions() ([]market.Resolution, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return queryResolutions(s.ds, dsBaseFinal)
}

func removeSale(txn datastore.Txn, key market.ListingKey) (market.Sale, error) {
	sale, err := getSale(txn, key)
	if err != nil {
		return market.Sale{}, err
	}
	if err := txn.Delete(makeSaleKey(key)); err != nil {
		return market.Sale{}, fmt.Errorf("deleting sale: %s", err)
	}
	if err := unindexSale(txn, sale); err != nil {
		return market.Sale{}, err
	}
	return sale, nil
}

// unindexSale deletes the index entries of a sale. Index sets are key
// prefixes, so removing the last entry of an owner or contract leaves
// nothing behind.
func unindexSale(txn datastore.Txn, sale market.Sale) error {
	if err := txn.Delete(makeByOwnerKey(sale.OwnerID, sale.Key())); err != nil {
		return fmt.Errorf("deleting owner index: %s", err)
	}
	if err := txn.Delete(makeByContractKey(sale.Key())); err != nil {
		return fmt.Errorf("deleting contract index: %s", err)
	}
	return nil
}

func getSale(r datastore.Read, key market.ListingKey) (market.Sale, error) {
	var sale market.Sale
	if err := getJSON(r, makeSaleKey(key), &sale); err != nil {
		return market.Sale{}, err
	}
	return sale, nil
}

func getUse(r datastore.Read, key market.ListingKey) (market.UseOffer, error) {
	var use market.UseOffer
	if err := getJSON(r, makeUseKey(key), &use); err != nil {
		return market.UseOffer{}, err
	}
	return use, nil
}

func queryResolutions(r datastore.Read, base datastore.Key) ([]market.Resolution, error) {
	q := query.Query{Prefix: base.String()}
	res, err := r.Query(q)
	if err != nil {
		return nil, fmt.Errorf("executing query: %s", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			log.Errorf("closing query result: %s", err)
		}
	}()

	var ret []market.Resolution
	for r := range res.Next() {
		if r.Error != nil {
			return nil, fmt.Errorf("iter next: %s", r.Error)
		}
		var rr market.Resolution
		if err := json.Unmarshal(r.Value, &rr); err != nil {
			return nil, fmt.Errorf("unmarshaling query result: %s", err)
		}
		ret = append(ret, rr)
	}
	return ret, nil
}

func getJSON(r datastore.Read, key datastore.Key, v interface{}) error {
	buf, err := r.Get(key)
	if err == datastore.ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("getting %s from datastore: %s", key, err)
	}
	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("unmarshaling %s: %s", key, err)
	}
	return nil
}

func putJSON(w datastore.Write, key datastore.Key, v interface{}) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling: %s", err)
	}
	return w.Put(key, buf)
}

// escape makes an arbitrary identifier safe to use as a key component.
func escape(s string) string {
	return hex.EncodeToString([]byte(s))
}

func childListingKey(base datastore.Key, key market.ListingKey) datastore.Key {
	return base.ChildString(escape(key.ContractID)).ChildString(escape(key.TokenID))
}

func makeSaleKey(key market.ListingKey) datastore.Key {
	return childListingKey(dsBaseSale, key)
}

func makeUseKey(key market.ListingKey) datastore.Key {
	return childListingKey(dsBaseUse, key)
}

func makeOwnerPrefix(owner string) datastore.Key {
	return dsBaseByOwner.ChildString(escape(owner))
}

func makeByOwnerKey(owner string, key market.ListingKey) datastore.Key {
	return childListingKey(makeOwnerPrefix(owner), key)
}

func makeContractPrefix(contractID string) datastore.Key {
	return dsBaseByContract.ChildString(escape(contractID))
}

func makeByContractKey(key market.ListingKey) datastore.Key {
	return makeContractPrefix(key.ContractID).ChildString(escape(key.TokenID))
}

func makePendingKey(id string) datastore.Key {
	return dsBasePending.ChildString(id)
}

func makeFinalKey(id string) datastore.Key {
	return dsBaseFinal.ChildString(id)
}
