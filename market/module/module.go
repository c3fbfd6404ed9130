package module

import (
	"context"
	"fmt"
	"sync"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	logging "github.com/ipfs/go-log/v2"
	"github.com/textileio/marketgate/market"
	"github.com/textileio/marketgate/market/module/dispatcher"
	"github.com/textileio/marketgate/market/module/quota"
	"github.com/textileio/marketgate/market/module/store"
	"github.com/textileio/marketgate/signaler"
	txndstr "github.com/textileio/marketgate/txndstransform"
	"go.opentelemetry.io/otel/metric"
)

var (
	log = logging.Logger("market")
)

// State is the aggregate root of the market: the listing index and the
// storage quota ledger that gates it. It's owned by a single Module.
type State struct {
	Listings *store.Store
	Quota    *quota.Ledger
}

// NewState builds the market State on top of ds. Listings and quota
// balances live under separate namespaces.
func NewState(ds datastore.TxnDatastore, storagePerSale big.Int) *State {
	listings := store.New(txndstr.Wrap(ds, "listings"))
	return &State{
		Listings: listings,
		Quota:    quota.New(namespace.Wrap(ds, datastore.NewKey("quota")), listings, storagePerSale),
	}
}

// Module is the escrow coordinator. It's the only writer of the market
// State, creates listings on approval notifications and drives the
// two-phase purchase and use-application exchanges.
type Module struct {
	conf       market.Config
	state      *State
	custodian  market.Custodian
	wallet     market.Wallet
	dispatcher *dispatcher.Dispatcher
	signaler   *signaler.Signaler

	lock sync.Mutex

	metricListings    metric.Int64Counter
	metricExchanges   metric.Int64Counter
	metricResolutions metric.Int64Counter
	metricTransfers   metric.Int64Counter
}

// New returns a new Module. Pending resolutions found in state are
// dispatched again.
func New(state *State, custodian market.Custodian, wallet market.Wallet, opts ...market.Option) (*Module, error) {
	conf := market.DefaultConfig()
	for _, o := range opts {
		if err := o(&conf); err != nil {
			return nil, fmt.Errorf("applying option: %s", err)
		}
	}
	if state == nil || state.Listings == nil || state.Quota == nil {
		return nil, fmt.Errorf("state is incomplete")
	}
	if !state.Quota.MinimumBalance().Equals(conf.StoragePerSale) {
		return nil, fmt.Errorf("quota ledger storage per sale %s differs from configured %s", state.Quota.MinimumBalance(), conf.StoragePerSale)
	}

	m := &Module{
		conf:      conf,
		state:     state,
		custodian: custodian,
		wallet:    wallet,
		signaler:  signaler.New(),
	}
	m.initMetrics()
	m.dispatcher = dispatcher.New(m.execute, m.deliver, conf.ResolverWorkers)

	log.Infof("resuming pending resolutions")
	if err := m.resumePendingResolutions(); err != nil {
		_ = m.dispatcher.Close()
		m.signaler.Close()
		return nil, fmt.Errorf("resuming pending resolutions: %s", err)
	}

	return m, nil
}

// Config returns the configuration of the module.
func (m *Module) Config() market.Config {
	return m.conf
}

// Close stops the module. In-flight custody calls are abandoned and their
// resolutions stay pending until the next start.
func (m *Module) Close() error {
	log.Info("closing...")
	defer log.Info("closed")
	defer m.signaler.Close()
	if err := m.dispatcher.Close(); err != nil {
		return fmt.Errorf("closing dispatcher: %s", err)
	}
	return nil
}

func (m *Module) resumePendingResolutions() error {
	pending, err := m.state.Listings.GetPendingResolutions()
	if err != nil {
		return fmt.Errorf("getting pending resolutions: %s", err)
	}
	for _, r := range pending {
		log.Infof("resuming %s resolution %s of %s", r.Kind, r.ID, r.Key())
		if err := m.dispatcher.Dispatch(r); err != nil {
			return fmt.Errorf("dispatching resolution %s: %s", r.ID, err)
		}
	}
	return nil
}

// execute runs the custody call of a pending resolution. It runs outside
// the module lock.
func (m *Module) execute(ctx context.Context, r market.Resolution) market.Outcome {
	ctx, cancel := context.WithTimeout(ctx, m.conf.CustodyTimeout)
	defer cancel()

	var (
		res []byte
		err error
	)
	switch r.Kind {
	case market.KindPurchase:
		res, err = m.custodian.TransferWithPayout(ctx, r.ContractID, r.BuyerID, r.TokenID, r.ApprovalID, memo(r), r.Deposit, m.conf.MaxPayoutRecipients)
	case market.KindUse:
		res, err = m.custodian.TransferForUse(ctx, r.ContractID, r.BuyerID, r.TokenID, memo(r), r.Deposit, m.conf.MaxPayoutRecipients)
	default:
		err = fmt.Errorf("unknown resolution kind %d", r.Kind)
	}
	if err != nil {
		log.Warnf("custody call of resolution %s failed: %s", r.ID, err)
		return market.Outcome{Err: err}
	}
	return market.Outcome{Value: res}
}

// deliver hands a custody outcome to Resolve with the host identity.
func (m *Module) deliver(r market.Resolution, o market.Outcome) error {
	call := market.Call{Predecessor: m.conf.HostID, Signer: m.conf.HostID}
	_, err := m.Resolve(context.Background(), call, r.ID, o)
	return err
}

func memo(r market.Resolution) string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
