package client

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/textileio/marketgate/market"
)

// Listings provides an API for creating, modifying and browsing listings.
type Listings struct {
	api *api
}

// NotifyApproval relays that signerID approved the market to sell tokenID
// on contractID. It requires the admin token.
func (l *Listings) NotifyApproval(ctx context.Context, contractID, signerID, tokenID, ownerID string, approvalID uint64, terms string) (market.Sale, error) {
	s, err := l.api.NftOnApprove(ctx, contractID, signerID, tokenID, ownerID, approvalID, terms)
	if err != nil {
		return market.Sale{}, fmt.Errorf("calling NftOnApprove: %v", err)
	}
	return s, nil
}

// RemoveSale removes a sale owned by the caller. txID is the host node
// transaction paying one unit to the market account.
func (l *Listings) RemoveSale(ctx context.Context, txID, contractID, tokenID string) (market.Sale, error) {
	s, err := l.api.RemoveSale(ctx, txID, contractID, tokenID)
	if err != nil {
		return market.Sale{}, fmt.Errorf("calling RemoveSale: %v", err)
	}
	return s, nil
}

// RemoveUse removes a use offer owned by the caller.
func (l *Listings) RemoveUse(ctx context.Context, txID, contractID, tokenID string) (market.UseOffer, error) {
	u, err := l.api.RemoveUse(ctx, txID, contractID, tokenID)
	if err != nil {
		return market.UseOffer{}, fmt.Errorf("calling RemoveUse: %v", err)
	}
	return u, nil
}

// UpdatePrice changes the price of a sale owned by the caller.
func (l *Listings) UpdatePrice(ctx context.Context, txID, contractID, tokenID string, price big.Int) error {
	if err := l.api.UpdatePrice(ctx, txID, contractID, tokenID, price); err != nil {
		return fmt.Errorf("calling UpdatePrice: %v", err)
	}
	return nil
}

// UpdateUsePrice changes the price of a use offer owned by the caller.
func (l *Listings) UpdateUsePrice(ctx context.Context, txID, contractID, tokenID string, price big.Int) error {
	if err := l.api.UpdateUsePrice(ctx, txID, contractID, tokenID, price); err != nil {
		return fmt.Errorf("calling UpdateUsePrice: %v", err)
	}
	return nil
}

// Supply returns the number of sales and use offers.
func (l *Listings) Supply(ctx context.Context) (uint64, uint64, error) {
	sales, err := l.api.GetSupplySales(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("calling GetSupplySales: %v", err)
	}
	uses, err := l.api.GetSupplyUses(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("calling GetSupplyUses: %v", err)
	}
	return sales, uses, nil
}

// SupplyByOwner returns the number of sales of an owner.
func (l *Listings) SupplyByOwner(ctx context.Context, ownerID string) (uint64, error) {
	n, err := l.api.GetSupplyByOwnerID(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("calling GetSupplyByOwnerID: %v", err)
	}
	return n, nil
}

// SupplyByContract returns the number of sales of an asset contract.
func (l *Listings) SupplyByContract(ctx context.Context, contractID string) (uint64, error) {
	n, err := l.api.GetSupplyByContractID(ctx, contractID)
	if err != nil {
		return 0, fmt.Errorf("calling GetSupplyByContractID: %v", err)
	}
	return n, nil
}

// Sales returns a page of sales.
func (l *Listings) Sales(ctx context.Context, from, limit uint64) ([]market.Sale, error) {
	res, err := l.api.GetSales(ctx, from, limit)
	if err != nil {
		return nil, fmt.Errorf("calling GetSales: %v", err)
	}
	return res, nil
}

// SalesByOwner returns a page of the sales of an owner.
func (l *Listings) SalesByOwner(ctx context.Context, ownerID string, from, limit uint64) ([]market.Sale, error) {
	res, err := l.api.GetSalesByOwnerID(ctx, ownerID, from, limit)
	if err != nil {
		return nil, fmt.Errorf("calling GetSalesByOwnerID: %v", err)
	}
	return res, nil
}

// SalesByContract returns a page of the sales of an asset contract.
func (l *Listings) SalesByContract(ctx context.Context, contractID string, from, limit uint64) ([]market.Sale, error) {
	res, err := l.api.GetSalesByContractID(ctx, contractID, from, limit)
	if err != nil {
		return nil, fmt.Errorf("calling GetSalesByContractID: %v", err)
	}
	return res, nil
}

// Uses returns a page of use offers.
func (l *Listings) Uses(ctx context.Context, from, limit uint64) ([]market.UseOffer, error) {
	res, err := l.api.GetUses(ctx, from, limit)
	if err != nil {
		return nil, fmt.Errorf("calling GetUses: %v", err)
	}
	return res, nil
}

// Sale returns the sale of an asset.
func (l *Listings) Sale(ctx context.Context, contractID, tokenID string) (market.Sale, error) {
	s, err := l.api.GetSale(ctx, contractID, tokenID)
	if err != nil {
		return market.Sale{}, fmt.Errorf("calling GetSale: %v", err)
	}
	return s, nil
}

// Use returns the use offer of an asset.
func (l *Listings) Use(ctx context.Context, contractID, tokenID string) (market.UseOffer, error) {
	u, err := l.api.GetUse(ctx, contractID, tokenID)
	if err != nil {
		return market.UseOffer{}, fmt.Errorf("calling GetUse: %v", err)
	}
	return u, nil
}
