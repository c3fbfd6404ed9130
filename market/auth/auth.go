package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	ds "github.com/ipfs/go-datastore"
	logging "github.com/ipfs/go-log/v2"
)

var (
	// ErrNotFound indicates that the auth-token isn't registered.
	ErrNotFound = errors.New("auth token not found")

	dsBase = ds.NewKey("auth")
	log    = logging.Logger("market-auth")
)

// Auth contains a mapping between auth-tokens and the accounts they
// authenticate.
type Auth struct {
	lock sync.Mutex
	ds   ds.Datastore
}

type entry struct {
	Token   string
	Account string
}

// New returns a new Auth.
func New(store ds.Datastore) *Auth {
	return &Auth{
		ds: store,
	}
}

// Generate generates a new auth-token mapped to account.
func (r *Auth) Generate(account string) (string, error) {
	if account == "" {
		return "", fmt.Errorf("account can't be empty")
	}
	log.Infof("generating auth-token for account %s", account)
	r.lock.Lock()
	defer r.lock.Unlock()
	e := entry{
		Token:   uuid.New().String(),
		Account: account,
	}
	buf, err := json.Marshal(&e)
	if err != nil {
		return "", fmt.Errorf("marshaling new auth token for account %s: %s", account, err)
	}
	if err := r.ds.Put(makeKey(e.Token), buf); err != nil {
		return "", fmt.Errorf("saving generated token for %s to datastore: %s", account, err)
	}
	return e.Token, nil
}

// Get returns the account associated with token.
// It returns ErrNotFound if there isn't such.
func (r *Auth) Get(token string) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	buf, err := r.ds.Get(makeKey(token))
	if err == ds.ErrNotFound {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting token %s from datastore: %s", token, err)
	}
	var e entry
	if err := json.Unmarshal(buf, &e); err != nil {
		return "", fmt.Errorf("unmarshaling %s information from datastore: %s", token, err)
	}
	return e.Account, nil
}

// Revoke removes a token.
// It returns ErrNotFound if there isn't such.
func (r *Auth) Revoke(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	ok, err := r.ds.Has(makeKey(token))
	if err != nil {
		return fmt.Errorf("checking token %s in datastore: %s", token, err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := r.ds.Delete(makeKey(token)); err != nil {
		return fmt.Errorf("deleting token %s from datastore: %s", token, err)
	}
	return nil
}

func makeKey(token string) ds.Key {
	return dsBase.ChildString(token)
}
