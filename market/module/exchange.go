package module

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/google/uuid"
	"github.com/textileio/marketgate/market"
	"github.com/textileio/marketgate/market/module/store"
	"go.opentelemetry.io/otel/attribute"
)

// Offer buys the sale of an asset with the attached deposit. The sale and
// its use offer are consumed before the custody transfer is requested, so
// the listing can't be bought twice. The returned resolution is pending
// and gets settled when the custodian answers.
func (m *Module) Offer(call market.Call, contractID, tokenID string) (market.Resolution, error) {
	key := market.NewListingKey(contractID, tokenID)
	if err := key.Validate(); err != nil {
		return market.Resolution{}, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	sale, err := m.state.Listings.GetSale(key)
	if err != nil {
		return market.Resolution{}, fmt.Errorf("getting sale: %w", err)
	}
	if err := requireDeposit(call, sale.SaleConditions); err != nil {
		return market.Resolution{}, err
	}
	if call.Predecessor == sale.OwnerID {
		return market.Resolution{}, fmt.Errorf("%w: can't buy your own sale", market.ErrUnauthorized)
	}

	r := newResolution(market.KindPurchase, key, call, sale.OwnerID)
	r.ApprovalID = sale.ApprovalID
	if _, err := m.state.Listings.ConsumeSale(key, r); err != nil {
		return market.Resolution{}, fmt.Errorf("consuming sale: %w", err)
	}
	m.metricExchanges.Add(context.Background(), 1, attribute.Key("kind").String(r.Kind.String()))
	log.Infof("%s bought %s for %s, resolution %s", r.BuyerID, key, r.Deposit, r.ID)

	m.dispatch(r)
	return r, nil
}

// ApplyUse pays for one use of an asset with the attached deposit. The use
// offer stays listed, so it can be exercised again.
func (m *Module) ApplyUse(call market.Call, contractID, tokenID string) (market.Resolution, error) {
	key := market.NewListingKey(contractID, tokenID)
	if err := key.Validate(); err != nil {
		return market.Resolution{}, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	use, err := m.state.Listings.GetUse(key)
	if err != nil {
		return market.Resolution{}, fmt.Errorf("getting use offer: %w", err)
	}
	if err := requireDeposit(call, use.UseConditions); err != nil {
		return market.Resolution{}, err
	}
	if call.Predecessor == use.OwnerID {
		return market.Resolution{}, fmt.Errorf("%w: can't apply to your own use offer", market.ErrUnauthorized)
	}

	r := newResolution(market.KindUse, key, call, use.OwnerID)
	if err := m.state.Listings.PutPending(r); err != nil {
		return market.Resolution{}, fmt.Errorf("saving pending resolution: %s", err)
	}
	m.metricExchanges.Add(context.Background(), 1, attribute.Key("kind").String(r.Kind.String()))
	log.Infof("%s applied to use %s for %s, resolution %s", r.BuyerID, key, r.Deposit, r.ID)

	m.dispatch(r)
	return r, nil
}

// Resolve settles a pending resolution with the outcome of its custody
// call. Only the host can call it, and a resolution is settled once.
// Every outcome ends either in the payout of a valid split or in a full
// refund of the deposit to the buyer. Failed transfers are logged and
// recorded by the wallet but not retried.
func (m *Module) Resolve(ctx context.Context, call market.Call, id string, o market.Outcome) (market.Resolution, error) {
	if call.Predecessor != m.conf.HostID {
		return market.Resolution{}, fmt.Errorf("%w: only the host can resolve", market.ErrUnauthorized)
	}

	r, err := m.settle(id, o)
	if err != nil {
		return market.Resolution{}, err
	}

	switch r.Status {
	case market.StatusRefunded:
		log.Infof("refunding %s to %s, resolution %s: %s", r.Deposit, r.BuyerID, r.ID, r.ErrMsg)
		m.transfer(ctx, r.BuyerID, r.Deposit, market.TransferRef{ResolutionID: r.ID, Reason: market.ReasonRefund})
	case market.StatusPaidOut:
		recipients := make([]string, 0, len(r.Payout))
		for rcpt := range r.Payout {
			recipients = append(recipients, rcpt)
		}
		sort.Strings(recipients)
		for _, rcpt := range recipients {
			m.transfer(ctx, rcpt, r.Payout[rcpt], market.TransferRef{ResolutionID: r.ID, Reason: market.ReasonPayout})
		}
	}
	m.metricResolutions.Add(ctx, 1, attribute.Key("kind").String(r.Kind.String()), attribute.Key("status").String(r.Status.String()))
	m.signaler.Signal(r)

	return r, nil
}

// settle interprets the outcome and moves the resolution to its final state.
func (m *Module) settle(id string, o market.Outcome) (market.Resolution, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	r, err := m.state.Listings.GetResolution(id)
	if err != nil {
		return market.Resolution{}, fmt.Errorf("getting resolution: %w", err)
	}
	if r.Status != market.StatusPending {
		return market.Resolution{}, fmt.Errorf("%w: resolution %s is already %s", market.ErrNotFound, id, r.Status)
	}

	payout, err := market.InterpretOutcome(o, r.Deposit, m.conf.MaxPayoutRecipients, m.conf.PayoutTolerance)
	if err != nil {
		r.Status = market.StatusRefunded
		r.ErrMsg = err.Error()
	} else {
		r.Status = market.StatusPaidOut
		r.Payout = payout
	}
	r.ResolvedAt = time.Now().Unix()

	if err := m.state.Listings.FinalizeResolution(r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return market.Resolution{}, fmt.Errorf("%w: resolution %s isn't pending", market.ErrNotFound, id)
		}
		return market.Resolution{}, fmt.Errorf("finalizing resolution: %s", err)
	}
	return r, nil
}

func (m *Module) transfer(ctx context.Context, to string, amount big.Int, ref market.TransferRef) {
	if amount.IsZero() {
		log.Debugf("skipping zero %s transfer to %s, resolution %s", ref.Reason, to, ref.ResolutionID)
		return
	}
	status := "ok"
	if err := m.wallet.Transfer(ctx, to, amount, ref); err != nil {
		status = "failed"
		log.Errorf("%s transfer of %s to %s for resolution %s failed: %s", ref.Reason, amount, to, ref.ResolutionID, err)
	}
	m.metricTransfers.Add(ctx, 1, attribute.Key("reason").String(string(ref.Reason)), attribute.Key("status").String(status))
}

// dispatch hands a pending resolution to the dispatcher. If it can't be
// dispatched now it stays pending and is resumed on the next start.
func (m *Module) dispatch(r market.Resolution) {
	if err := m.dispatcher.Dispatch(r); err != nil {
		log.Errorf("dispatching resolution %s: %s", r.ID, err)
	}
}

func requireDeposit(call market.Call, price big.Int) error {
	if call.Deposit.Nil() || call.Deposit.Sign() <= 0 {
		return fmt.Errorf("%w: attached deposit must be greater than 0", market.ErrInsufficientDeposit)
	}
	if call.Deposit.LessThan(price) {
		return fmt.Errorf("%w: attached deposit %s is less than the price %s", market.ErrInsufficientDeposit, call.Deposit, price)
	}
	return nil
}

func newResolution(kind market.ResolutionKind, key market.ListingKey, call market.Call, ownerID string) market.Resolution {
	return market.Resolution{
		ID:         uuid.New().String(),
		Kind:       kind,
		Status:     market.StatusPending,
		ContractID: key.ContractID,
		TokenID:    key.TokenID,
		BuyerID:    call.Predecessor,
		OwnerID:    ownerID,
		Deposit:    call.Deposit,
		CreatedAt:  time.Now().Unix(),
	}
}
