package tests

import (
	"fmt"
	"sync"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
)

// TxMapDatastore is an in-memory datastore that satisfies TxnDatastore.
// Transactions see their own writes and commit atomically.
type TxMapDatastore struct {
	*datastore.MapDatastore
	lock sync.RWMutex
}

var _ datastore.TxnDatastore = (*TxMapDatastore)(nil)

// NewTxMapDatastore returns a new TxMapDatastore.
func NewTxMapDatastore() *TxMapDatastore {
	return &TxMapDatastore{
		MapDatastore: datastore.NewMapDatastore(),
	}
}

// Get returns the value for a key.
func (d *TxMapDatastore) Get(key datastore.Key) ([]byte, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.MapDatastore.Get(key)
}

// Has returns true if the key exists.
func (d *TxMapDatastore) Has(key datastore.Key) (bool, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.MapDatastore.Has(key)
}

// GetSize returns the size of the value of a key.
func (d *TxMapDatastore) GetSize(key datastore.Key) (int, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.MapDatastore.GetSize(key)
}

// Put sets the value of a key.
func (d *TxMapDatastore) Put(key datastore.Key, data []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.MapDatastore.Put(key, data)
}

// Delete deletes a key.
func (d *TxMapDatastore) Delete(key datastore.Key) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.MapDatastore.Delete(key)
}

// Query executes a query in the datastore. Results are materialized so
// they stay valid while the datastore changes.
func (d *TxMapDatastore) Query(q query.Query) (query.Results, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	snapshot, err := d.snapshot(nil)
	if err != nil {
		return nil, err
	}
	return snapshot.Query(q)
}

// Keys returns all the keys in the datastore.
func (d *TxMapDatastore) Keys() ([]datastore.Key, error) {
	res, err := d.Query(query.Query{KeysOnly: true})
	if err != nil {
		return nil, fmt.Errorf("querying datastore: %s", err)
	}
	defer func() { _ = res.Close() }()

	var keys []datastore.Key
	for v := range res.Next() {
		if v.Error != nil {
			return nil, fmt.Errorf("iter next: %s", v.Error)
		}
		keys = append(keys, datastore.NewKey(v.Key))
	}
	return keys, nil
}

// NewTransaction creates a transaction. Writes of a read-only transaction
// fail.
func (d *TxMapDatastore) NewTransaction(readOnly bool) (datastore.Txn, error) {
	return &txn{
		ds:       d,
		readOnly: readOnly,
		writes:   make(map[datastore.Key]write),
	}, nil
}

// snapshot copies the datastore contents with the given writes applied.
// The caller must hold the lock.
func (d *TxMapDatastore) snapshot(writes map[datastore.Key]write) (*datastore.MapDatastore, error) {
	res, err := d.MapDatastore.Query(query.Query{})
	if err != nil {
		return nil, fmt.Errorf("querying datastore: %s", err)
	}
	all, err := res.Rest()
	if err != nil {
		return nil, fmt.Errorf("reading datastore entries: %s", err)
	}

	snapshot := datastore.NewMapDatastore()
	for _, e := range all {
		if err := snapshot.Put(datastore.NewKey(e.Key), e.Value); err != nil {
			return nil, fmt.Errorf("copying entry: %s", err)
		}
	}
	if err := apply(snapshot, writes); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func apply(ds datastore.Datastore, writes map[datastore.Key]write) error {
	for k, w := range writes {
		var err error
		if w.delete {
			err = ds.Delete(k)
		} else {
			err = ds.Put(k, w.value)
		}
		if err != nil {
			return fmt.Errorf("applying write to %s: %s", k, err)
		}
	}
	return nil
}

type write struct {
	delete bool
	value  []byte
}

// txn buffers writes until Commit. Reads observe the buffered writes on top
// of the committed state.
type txn struct {
	ds       *TxMapDatastore
	readOnly bool

	lock      sync.Mutex
	writes    map[datastore.Key]write
	discarded bool
}

func (t *txn) Get(key datastore.Key) ([]byte, error) {
	t.lock.Lock()
	w, ok := t.writes[key]
	t.lock.Unlock()
	if ok {
		if w.delete {
			return nil, datastore.ErrNotFound
		}
		return w.value, nil
	}
	return t.ds.Get(key)
}

func (t *txn) Has(key datastore.Key) (bool, error) {
	_, err := t.Get(key)
	if err == datastore.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (t *txn) GetSize(key datastore.Key) (int, error) {
	v, err := t.Get(key)
	if err != nil {
		return -1, err
	}
	return len(v), nil
}

func (t *txn) Query(q query.Query) (query.Results, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.writes) == 0 {
		return t.ds.Query(q)
	}

	t.ds.lock.RLock()
	defer t.ds.lock.RUnlock()
	snapshot, err := t.ds.snapshot(t.writes)
	if err != nil {
		return nil, err
	}
	return snapshot.Query(q)
}

func (t *txn) Put(key datastore.Key, value []byte) error {
	return t.buffer(key, write{value: value})
}

func (t *txn) Delete(key datastore.Key) error {
	return t.buffer(key, write{delete: true})
}

func (t *txn) buffer(key datastore.Key, w write) error {
	if t.readOnly {
		return fmt.Errorf("writing %s in a read-only transaction", key)
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.discarded {
		return fmt.Errorf("transaction already discarded")
	}
	t.writes[key] = w
	return nil
}

func (t *txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.discarded {
		return fmt.Errorf("transaction already discarded")
	}
	t.discarded = true

	t.ds.lock.Lock()
	defer t.ds.lock.Unlock()
	return apply(t.ds.MapDatastore, t.writes)
}

func (t *txn) Discard() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.discarded = true
	t.writes = nil
}
