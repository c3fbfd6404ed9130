package module

import (
	"github.com/textileio/marketgate/market"
)

// GetSupplySales returns the number of active sales.
func (m *Module) GetSupplySales() (uint64, error) {
	return m.state.Listings.CountSales()
}

// GetSupplyUses returns the number of active use offers.
func (m *Module) GetSupplyUses() (uint64, error) {
	return m.state.Listings.CountUses()
}

// GetSupplyByOwnerID returns the number of active sales of an owner.
func (m *Module) GetSupplyByOwnerID(ownerID string) (uint64, error) {
	return m.state.Listings.CountByOwner(ownerID)
}

// GetSupplyByContractID returns the number of active sales of an asset contract.
func (m *Module) GetSupplyByContractID(contractID string) (uint64, error) {
	return m.state.Listings.CountByContract(contractID)
}

// GetSales returns a page of sales ordered by listing key.
func (m *Module) GetSales(from, limit uint64) ([]market.Sale, error) {
	return m.state.Listings.ListSales(from, limit)
}

// GetUses returns a page of use offers ordered by listing key.
func (m *Module) GetUses(from, limit uint64) ([]market.UseOffer, error) {
	return m.state.Listings.ListUses(from, limit)
}

// GetSalesByOwnerID returns a page of the sales of an owner.
func (m *Module) GetSalesByOwnerID(ownerID string, from, limit uint64) ([]market.Sale, error) {
	return m.state.Listings.ListSalesByOwner(ownerID, from, limit)
}

// GetSalesByContractID returns a page of the sales of an asset contract.
func (m *Module) GetSalesByContractID(contractID string, from, limit uint64) ([]market.Sale, error) {
	return m.state.Listings.ListSalesByContract(contractID, from, limit)
}

// GetSale returns the sale of an asset.
func (m *Module) GetSale(contractID, tokenID string) (market.Sale, error) {
	return m.state.Listings.GetSale(market.NewListingKey(contractID, tokenID))
}

// GetUse returns the use offer of an asset.
func (m *Module) GetUse(contractID, tokenID string) (market.UseOffer, error) {
	return m.state.Listings.GetUse(market.NewListingKey(contractID, tokenID))
}

// GetResolution returns a pending or settled resolution.
func (m *Module) GetResolution(id string) (market.Resolution, error) {
	return m.state.Listings.GetResolution(id)
}

// GetResolutions returns the pending resolutions, or the settled ones if
// pending is false.
func (m *Module) GetResolutions(pending bool) ([]market.Resolution, error) {
	if pending {
		return m.state.Listings.GetPendingResolutions()
	}
	return m.state.Listings.GetFinalResolutions()
}
