package module

import (
	"context"
	"errors"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/textileio/marketgate/market"
	"github.com/textileio/marketgate/market/module/store"
	"go.opentelemetry.io/otel/attribute"
)

// OnApprove creates a listing for an asset whose custody contract approved
// the market. The asset contract is the immediate caller and the owner must
// have signed the transaction. msg carries the listing terms.
func (m *Module) OnApprove(call market.Call, tokenID, ownerID string, approvalID uint64, msg string) (market.Sale, error) {
	contractID := call.Predecessor
	if contractID == call.Signer {
		return market.Sale{}, fmt.Errorf("%w: approval must be notified by the asset contract", market.ErrUnauthorized)
	}
	if ownerID != call.Signer {
		return market.Sale{}, fmt.Errorf("%w: owner %s didn't sign the approval", market.ErrUnauthorized, ownerID)
	}
	terms, err := market.ParseListingTerms(msg)
	if err != nil {
		return market.Sale{}, err
	}
	key := market.NewListingKey(contractID, tokenID)
	if err := key.Validate(); err != nil {
		return market.Sale{}, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	var extra uint64 = 1
	current, err := m.state.Listings.GetSale(key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return market.Sale{}, fmt.Errorf("getting current sale: %s", err)
	}
	if err == nil && current.OwnerID == ownerID {
		extra = 0
	}
	if err := m.state.Quota.CheckCapacity(ownerID, extra); err != nil {
		return market.Sale{}, err
	}

	sale := market.Sale{
		OwnerID:        ownerID,
		ApprovalID:     approvalID,
		NFTContractID:  contractID,
		TokenID:        tokenID,
		SaleConditions: terms.SaleCondition,
	}
	use := market.UseOffer{
		OwnerID:       ownerID,
		NFTContractID: contractID,
		TokenID:       tokenID,
		UseConditions: terms.UseCondition,
	}
	if err := m.state.Listings.Create(sale, use); err != nil {
		return market.Sale{}, fmt.Errorf("creating listing: %s", err)
	}
	m.metricListings.Add(context.Background(), 1, attribute.Key("op").String("created"))
	log.Infof("listed %s by %s for %s (use %s)", key, ownerID, sale.SaleConditions, use.UseConditions)

	return sale, nil
}

// RemoveSale removes the sale of an asset owned by the caller.
func (m *Module) RemoveSale(call market.Call, contractID, tokenID string) (market.Sale, error) {
	key, err := guardedKey(call, contractID, tokenID)
	if err != nil {
		return market.Sale{}, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	sale, err := m.state.Listings.GetSale(key)
	if err != nil {
		return market.Sale{}, fmt.Errorf("getting sale: %w", err)
	}
	if sale.OwnerID != call.Predecessor {
		return market.Sale{}, fmt.Errorf("%w: %s isn't the sale owner", market.ErrUnauthorized, call.Predecessor)
	}
	removed, err := m.state.Listings.RemoveSale(key)
	if err != nil {
		return market.Sale{}, fmt.Errorf("removing sale: %w", err)
	}
	m.metricListings.Add(context.Background(), 1, attribute.Key("op").String("removed"))
	return removed, nil
}

// RemoveUse removes the use offer of an asset owned by the caller.
func (m *Module) RemoveUse(call market.Call, contractID, tokenID string) (market.UseOffer, error) {
	key, err := guardedKey(call, contractID, tokenID)
	if err != nil {
		return market.UseOffer{}, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	use, err := m.state.Listings.GetUse(key)
	if err != nil {
		return market.UseOffer{}, fmt.Errorf("getting use offer: %w", err)
	}
	if use.OwnerID != call.Predecessor {
		return market.UseOffer{}, fmt.Errorf("%w: %s isn't the use offer owner", market.ErrUnauthorized, call.Predecessor)
	}
	removed, err := m.state.Listings.RemoveUse(key)
	if err != nil {
		return market.UseOffer{}, fmt.Errorf("removing use offer: %w", err)
	}
	return removed, nil
}

// UpdatePrice changes the price of a sale owned by the caller.
func (m *Module) UpdatePrice(call market.Call, contractID, tokenID string, price big.Int) error {
	key, err := guardedKey(call, contractID, tokenID)
	if err != nil {
		return err
	}
	if err := market.ValidateAmount(price); err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.state.Listings.RepriceSale(key, call.Predecessor, price); err != nil {
		return fmt.Errorf("repricing sale: %w", err)
	}
	return nil
}

// UpdateUsePrice changes the price of a use offer owned by the caller.
func (m *Module) UpdateUsePrice(call market.Call, contractID, tokenID string, price big.Int) error {
	key, err := guardedKey(call, contractID, tokenID)
	if err != nil {
		return err
	}
	if err := market.ValidateAmount(price); err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.state.Listings.RepriceUse(key, call.Predecessor, price); err != nil {
		return fmt.Errorf("repricing use offer: %w", err)
	}
	return nil
}

// guardedKey checks the anti-spam payment of an ownership-guarded
// mutation and returns the listing key.
func guardedKey(call market.Call, contractID, tokenID string) (market.ListingKey, error) {
	if err := requireOneUnit(call); err != nil {
		return market.ListingKey{}, err
	}
	key := market.NewListingKey(contractID, tokenID)
	if err := key.Validate(); err != nil {
		return market.ListingKey{}, err
	}
	return key, nil
}

func requireOneUnit(call market.Call) error {
	if call.Deposit.Nil() || !call.Deposit.Equals(market.OneUnit) {
		return fmt.Errorf("%w: requires attached deposit of exactly %s", market.ErrInsufficientDeposit, market.OneUnit)
	}
	return nil
}
