package sendstore

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	logging "github.com/ipfs/go-log/v2"
	"github.com/textileio/marketgate/wallet"
)

var (
	log = logging.Logger("wallet-sendstore")

	// ErrNotFound indicates the transfer doesn't exist.
	ErrNotFound = errors.New("not found")

	dsBaseEvent           = datastore.NewKey("event")
	dsBaseIndexTo         = datastore.NewKey("index").ChildString("to")
	dsBaseIndexResolution = datastore.NewKey("index").ChildString("resolution")
)

// SendStore stores transfers out of the market account.
type SendStore struct {
	ds datastore.TxnDatastore
}

// New creates a new SendStore.
func New(ds datastore.TxnDatastore) *SendStore {
	return &SendStore{
		ds: ds,
	}
}

// Put saves a transfer and indexes it by recipient and resolution.
func (s *SendStore) Put(ev wallet.TransferEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("transfer id is empty")
	}
	bytes, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling json: %v", err)
	}

	tx, err := s.ds.NewTransaction(false)
	if err != nil {
		return fmt.Errorf("creating transaction: %v", err)
	}
	defer tx.Discard()

	dataKey := eventKey(ev.ID)
	if err := tx.Put(dataKey, bytes); err != nil {
		return fmt.Errorf("putting rec: %v", err)
	}
	if err := tx.Put(indexToKey(ev), dataKey.Bytes()); err != nil {
		return fmt.Errorf("putting to index: %v", err)
	}
	if ev.ResolutionID != "" {
		if err := tx.Put(indexResolutionKey(ev), dataKey.Bytes()); err != nil {
			return fmt.Errorf("putting resolution index: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %v", err)
	}
	return nil
}

// Get retrieves a transfer by id.
func (s *SendStore) Get(id string) (wallet.TransferEvent, error) {
	return s.get(eventKey(id))
}

// To returns all transfers sent to an account, oldest first.
func (s *SendStore) To(to string) ([]wallet.TransferEvent, error) {
	return s.withIndexPrefix(indexToPrefix(to))
}

// ForResolution returns all transfers that settled a resolution, oldest first.
func (s *SendStore) ForResolution(resolutionID string) ([]wallet.TransferEvent, error) {
	return s.withIndexPrefix(dsBaseIndexResolution.ChildString(resolutionID))
}

func (s *SendStore) withIndexPrefix(prefix datastore.Key) ([]wallet.TransferEvent, error) {
	q := query.Query{Prefix: prefix.String() + "/", Orders: []query.Order{query.OrderByKey{}}}
	res, err := s.ds.Query(q)
	if err != nil {
		return nil, fmt.Errorf("querying datastore: %s", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			log.Errorf("closing index query result: %s", err)
		}
	}()
	events := []wallet.TransferEvent{}
	for r := range res.Next() {
		if r.Error != nil {
			return nil, fmt.Errorf("iter next: %s", r.Error)
		}
		event, err := s.get(datastore.NewKey(string(r.Value)))
		if err != nil {
			return nil, fmt.Errorf("getting event: %v", err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *SendStore) get(key datastore.Key) (wallet.TransferEvent, error) {
	bytes, err := s.ds.Get(key)
	if err == datastore.ErrNotFound {
		return wallet.TransferEvent{}, ErrNotFound
	}
	if err != nil {
		return wallet.TransferEvent{}, fmt.Errorf("getting event bytes from ds: %v", err)
	}
	var event wallet.TransferEvent
	if err := json.Unmarshal(bytes, &event); err != nil {
		return wallet.TransferEvent{}, fmt.Errorf("unmarshaling bytes into event: %v", err)
	}
	return event, nil
}

func eventKey(id string) datastore.Key {
	return dsBaseEvent.ChildString(id)
}

func indexToPrefix(to string) datastore.Key {
	return dsBaseIndexTo.ChildString(hex.EncodeToString([]byte(to)))
}

func indexToKey(ev wallet.TransferEvent) datastore.Key {
	return indexToPrefix(ev.To).ChildString(fmt.Sprintf("%020d", ev.Time.UnixNano())).ChildString(ev.ID)
}

func indexResolutionKey(ev wallet.TransferEvent) datastore.Key {
	return dsBaseIndexResolution.ChildString(ev.ResolutionID).ChildString(fmt.Sprintf("%020d", ev.Time.UnixNano())).ChildString(ev.ID)
}
