package txndstransform

import (
	"fmt"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/keytransform"
)

var _ datastore.TxnDatastore = (*Datastore)(nil)

// Datastore is a TxnDatastore that namespaces every key under a prefix,
// including the keys read and written inside transactions.
type Datastore struct {
	*keytransform.Datastore
	child     datastore.TxnDatastore
	transform keytransform.KeyTransform
}

// Wrap returns a TxnDatastore that keeps its keys under prefix in child.
func Wrap(child datastore.TxnDatastore, prefix string) *Datastore {
	t := keytransform.PrefixTransform{Prefix: datastore.NewKey(prefix)}
	return &Datastore{
		Datastore: keytransform.Wrap(child, t),
		child:     child,
		transform: t,
	}
}

// NewTransaction starts a transaction in the child datastore whose keys are
// transformed like the ones of the wrapping datastore.
func (d *Datastore) NewTransaction(readOnly bool) (datastore.Txn, error) {
	t, err := d.child.NewTransaction(readOnly)
	if err != nil {
		return nil, fmt.Errorf("creating child transaction: %s", err)
	}
	return &txn{
		Datastore: keytransform.Wrap(txnShim{Txn: t}, d.transform),
		child:     t,
	}, nil
}

type txn struct {
	*keytransform.Datastore
	child datastore.Txn
}

func (t *txn) Commit() error {
	return t.child.Commit()
}

func (t *txn) Discard() {
	t.child.Discard()
}

// txnShim lets a transaction be wrapped as a datastore. Transactions are
// synced and closed by Commit and Discard.
type txnShim struct {
	datastore.Txn
}

func (txnShim) Sync(datastore.Key) error {
	return nil
}

func (txnShim) Close() error {
	return nil
}
