package store

import (
	"encoding/json"
	"fmt"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	"github.com/textileio/marketgate/market"
)

// CountSales returns the number of active sales.
func (s *Store) CountSales() (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return count(s.ds, dsBaseSale)
}

// CountUses returns the number of active use offers.
func (s *Store) CountUses() (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return count(s.ds, dsBaseUse)
}

// CountByOwner returns the number of active sales of an owner.
func (s *Store) CountByOwner(owner string) (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return count(s.ds, makeOwnerPrefix(owner))
}

// CountByContract returns the number of active sales of an asset-contract.
func (s *Store) CountByContract(contractID string) (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return count(s.ds, makeContractPrefix(contractID))
}

// ListSales returns at most limit sales ordered by key, skipping the first from.
func (s *Store) ListSales(from, limit uint64) ([]market.Sale, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ret := []market.Sale{}
	err := page(s.ds, dsBaseSale, from, limit, func(v []byte) error {
		var sale market.Sale
		if err := json.Unmarshal(v, &sale); err != nil {
			return fmt.Errorf("unmarshaling sale: %s", err)
		}
		ret = append(ret, sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// ListUses returns at most limit use offers ordered by key, skipping the first from.
func (s *Store) ListUses(from, limit uint64) ([]market.UseOffer, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ret := []market.UseOffer{}
	err := page(s.ds, dsBaseUse, from, limit, func(v []byte) error {
		var use market.UseOffer
		if err := json.Unmarshal(v, &use); err != nil {
			return fmt.Errorf("unmarshaling use offer: %s", err)
		}
		ret = append(ret, use)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// ListSalesByOwner pages over the sales of an owner.
func (s *Store) ListSalesByOwner(owner string, from, limit uint64) ([]market.Sale, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.salesFromIndex(makeOwnerPrefix(owner), from, limit)
}

// ListSalesByContract pages over the sales of an asset-contract.
func (s *Store) ListSalesByContract(contractID string, from, limit uint64) ([]market.Sale, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.salesFromIndex(makeContractPrefix(contractID), from, limit)
}

func (s *Store) salesFromIndex(prefix datastore.Key, from, limit uint64) ([]market.Sale, error) {
	ret := []market.Sale{}
	err := page(s.ds, prefix, from, limit, func(v []byte) error {
		var key market.ListingKey
		if err := json.Unmarshal(v, &key); err != nil {
			return fmt.Errorf("unmarshaling index entry: %s", err)
		}
		sale, err := getSale(s.ds, key)
		if err != nil {
			return fmt.Errorf("getting indexed sale %s: %w", key, err)
		}
		ret = append(ret, sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func count(r datastore.Read, prefix datastore.Key) (uint64, error) {
	q := query.Query{Prefix: prefix.String() + "/", KeysOnly: true}
	res, err := r.Query(q)
	if err != nil {
		return 0, fmt.Errorf("executing query: %s", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			log.Errorf("closing query result: %s", err)
		}
	}()
	var total uint64
	for r := range res.Next() {
		if r.Error != nil {
			return 0, fmt.Errorf("iter next: %s", r.Error)
		}
		total++
	}
	return total, nil
}

// page iterates values under prefix in key order. A zero limit yields nothing.
func page(r datastore.Read, prefix datastore.Key, from, limit uint64, f func([]byte) error) error {
	if limit == 0 {
		return nil
	}
	q := query.Query{
		Prefix: prefix.String() + "/",
		Orders: []query.Order{query.OrderByKey{}},
		Offset: int(from),
		Limit:  int(limit),
	}
	res, err := r.Query(q)
	if err != nil {
		return fmt.Errorf("executing query: %s", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			log.Errorf("closing query result: %s", err)
		}
	}()
	for r := range res.Next() {
		if r.Error != nil {
			return fmt.Errorf("iter next: %s", r.Error)
		}
		if err := f(r.Value); err != nil {
			return err
		}
	}
	return nil
}
