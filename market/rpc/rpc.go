package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"
	logging "github.com/ipfs/go-log/v2"
	"github.com/textileio/marketgate/buildinfo"
	"github.com/textileio/marketgate/health"
	"github.com/textileio/marketgate/market"
	"github.com/textileio/marketgate/market/auth"
	"github.com/textileio/marketgate/market/module"
	"github.com/textileio/marketgate/wallet"
)

const (
	// Namespace is the JSON-RPC namespace of the market API.
	Namespace = "Market"
)

var (
	log = logging.Logger("market-rpc")
)

// Outcome is the wire representation of a custody call outcome.
type Outcome struct {
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Service implements the market JSON-RPC API. The caller of every method
// is the account authenticated by the request token.
type Service struct {
	module *module.Module
	wallet wallet.Module
	auth   *auth.Auth
	health *health.Module
}

// New creates a new Service.
func New(m *module.Module, w wallet.Module, a *auth.Auth, h *health.Module) *Service {
	return &Service{
		module: m,
		wallet: w,
		auth:   a,
		health: h,
	}
}

// BuildInfo returns information about the marketd build.
func (s *Service) BuildInfo(ctx context.Context) (buildinfo.Info, error) {
	return buildinfo.Get(), nil
}

// Health checks the health of the market node.
func (s *Service) Health(ctx context.Context) (health.Report, error) {
	return s.health.Check(ctx)
}

// AuthNew creates a token for an account. Only admins can call it.
func (s *Service) AuthNew(ctx context.Context, account string) (string, error) {
	c, err := callerOf(ctx)
	if err != nil {
		return "", err
	}
	if !c.admin {
		return "", fmt.Errorf("%w: admin token required", market.ErrUnauthorized)
	}
	return s.auth.Generate(account)
}

// AuthWhoami returns the account of the caller.
func (s *Service) AuthWhoami(ctx context.Context) (string, error) {
	c, err := callerOf(ctx)
	if err != nil {
		return "", err
	}
	return c.account, nil
}

// NftOnApprove notifies that signerID approved the market for tokenID on
// contractID. Only the host relays approvals, attesting both the contract
// and the signer.
func (s *Service) NftOnApprove(ctx context.Context, contractID, signerID, tokenID, ownerID string, approvalID uint64, msg string) (market.Sale, error) {
	c, err := callerOf(ctx)
	if err != nil {
		return market.Sale{}, err
	}
	if !c.admin {
		return market.Sale{}, fmt.Errorf("%w: approvals are relayed by the host", market.ErrUnauthorized)
	}
	call := market.Call{Predecessor: contractID, Signer: signerID, Deposit: big.Zero()}
	return s.module.OnApprove(call, tokenID, ownerID, approvalID, msg)
}

// RemoveSale removes a sale of the caller. txID must pay exactly one unit.
func (s *Service) RemoveSale(ctx context.Context, txID, contractID, tokenID string) (market.Sale, error) {
	var sale market.Sale
	err := s.paid(ctx, txID, func(call market.Call) (err error) {
		sale, err = s.module.RemoveSale(call, contractID, tokenID)
		return err
	})
	return sale, err
}

// RemoveUse removes a use offer of the caller. txID must pay exactly one unit.
func (s *Service) RemoveUse(ctx context.Context, txID, contractID, tokenID string) (market.UseOffer, error) {
	var use market.UseOffer
	err := s.paid(ctx, txID, func(call market.Call) (err error) {
		use, err = s.module.RemoveUse(call, contractID, tokenID)
		return err
	})
	return use, err
}

// UpdatePrice changes the price of a sale of the caller. txID must pay
// exactly one unit.
func (s *Service) UpdatePrice(ctx context.Context, txID, contractID, tokenID string, price big.Int) error {
	return s.paid(ctx, txID, func(call market.Call) error {
		return s.module.UpdatePrice(call, contractID, tokenID, price)
	})
}

// UpdateUsePrice changes the price of a use offer of the caller. txID must
// pay exactly one unit.
func (s *Service) UpdateUsePrice(ctx context.Context, txID, contractID, tokenID string, price big.Int) error {
	return s.paid(ctx, txID, func(call market.Call) error {
		return s.module.UpdateUsePrice(call, contractID, tokenID, price)
	})
}

// Offer buys a sale with the payment of txID.
func (s *Service) Offer(ctx context.Context, txID, contractID, tokenID string) (market.Resolution, error) {
	var r market.Resolution
	err := s.paid(ctx, txID, func(call market.Call) (err error) {
		r, err = s.module.Offer(call, contractID, tokenID)
		return err
	})
	return r, err
}

// ApplyUse pays for one use of an asset with the payment of txID.
func (s *Service) ApplyUse(ctx context.Context, txID, contractID, tokenID string) (market.Resolution, error) {
	var r market.Resolution
	err := s.paid(ctx, txID, func(call market.Call) (err error) {
		r, err = s.module.ApplyUse(call, contractID, tokenID)
		return err
	})
	return r, err
}

// Resolve delivers the outcome of a custody call. Only the host account
// can settle resolutions.
func (s *Service) Resolve(ctx context.Context, id string, outcome Outcome) (market.Resolution, error) {
	c, err := callerOf(ctx)
	if err != nil {
		return market.Resolution{}, err
	}
	call := market.NewCall(c.account, big.Zero())
	o := market.Outcome{Value: outcome.Value}
	if outcome.Error != "" {
		o.Err = fmt.Errorf("%s", outcome.Error)
	}
	return s.module.Resolve(ctx, call, id, o)
}

// WatchResolutions streams settled resolutions. With no ids every
// settlement is streamed.
func (s *Service) WatchResolutions(ctx context.Context, ids []string) (<-chan market.Resolution, error) {
	return s.module.Watch(ctx, ids...)
}

// StorageDeposit adds the payment of txID to the storage balance of
// account, or of the caller if empty.
func (s *Service) StorageDeposit(ctx context.Context, txID, account string) (big.Int, error) {
	balance := big.Zero()
	err := s.paid(ctx, txID, func(call market.Call) (err error) {
		balance, err = s.module.StorageDeposit(call, account)
		return err
	})
	return balance, err
}

// StorageWithdraw returns the storage surplus of the caller. txID must pay
// exactly one unit.
func (s *Service) StorageWithdraw(ctx context.Context, txID string) (big.Int, error) {
	surplus := big.Zero()
	err := s.paid(ctx, txID, func(call market.Call) (err error) {
		surplus, err = s.module.StorageWithdraw(ctx, call)
		return err
	})
	return surplus, err
}

// StorageMinimumBalance returns the storage amount required per sale.
func (s *Service) StorageMinimumBalance(ctx context.Context) (big.Int, error) {
	return s.module.StorageMinimumBalance(), nil
}

// StorageBalanceOf returns the storage balance of an account.
func (s *Service) StorageBalanceOf(ctx context.Context, account string) (big.Int, error) {
	return s.module.StorageBalanceOf(account)
}

// GetSupplySales returns the number of sales.
func (s *Service) GetSupplySales(ctx context.Context) (uint64, error) {
	return s.module.GetSupplySales()
}

// GetSupplyUses returns the number of use offers.
func (s *Service) GetSupplyUses(ctx context.Context) (uint64, error) {
	return s.module.GetSupplyUses()
}

// GetSupplyByOwnerID returns the number of sales of an owner.
func (s *Service) GetSupplyByOwnerID(ctx context.Context, ownerID string) (uint64, error) {
	return s.module.GetSupplyByOwnerID(ownerID)
}

// GetSupplyByContractID returns the number of sales of an asset contract.
func (s *Service) GetSupplyByContractID(ctx context.Context, contractID string) (uint64, error) {
	return s.module.GetSupplyByContractID(contractID)
}

// GetSales returns a page of sales.
func (s *Service) GetSales(ctx context.Context, from, limit uint64) ([]market.Sale, error) {
	return s.module.GetSales(from, limit)
}

// GetUses returns a page of use offers.
func (s *Service) GetUses(ctx context.Context, from, limit uint64) ([]market.UseOffer, error) {
	return s.module.GetUses(from, limit)
}

// GetSalesByOwnerID returns a page of the sales of an owner.
func (s *Service) GetSalesByOwnerID(ctx context.Context, ownerID string, from, limit uint64) ([]market.Sale, error) {
	return s.module.GetSalesByOwnerID(ownerID, from, limit)
}

// GetSalesByContractID returns a page of the sales of an asset contract.
func (s *Service) GetSalesByContractID(ctx context.Context, contractID string, from, limit uint64) ([]market.Sale, error) {
	return s.module.GetSalesByContractID(contractID, from, limit)
}

// GetSale returns the sale of an asset.
func (s *Service) GetSale(ctx context.Context, contractID, tokenID string) (market.Sale, error) {
	return s.module.GetSale(contractID, tokenID)
}

// GetUse returns the use offer of an asset.
func (s *Service) GetUse(ctx context.Context, contractID, tokenID string) (market.UseOffer, error) {
	return s.module.GetUse(contractID, tokenID)
}

// GetResolution returns a resolution.
func (s *Service) GetResolution(ctx context.Context, id string) (market.Resolution, error) {
	return s.module.GetResolution(id)
}

// GetResolutions returns pending or settled resolutions.
func (s *Service) GetResolutions(ctx context.Context, pending bool) ([]market.Resolution, error) {
	return s.module.GetResolutions(pending)
}

// Transfers returns the transfers sent to an account.
func (s *Service) Transfers(ctx context.Context, account string) ([]wallet.TransferEvent, error) {
	return s.wallet.Transfers(account)
}

// TransfersOf returns the transfers that settled a resolution.
func (s *Service) TransfersOf(ctx context.Context, resolutionID string) ([]wallet.TransferEvent, error) {
	return s.wallet.TransfersOf(resolutionID)
}

// paid runs op on behalf of the caller with the payment of txID attached.
// The payment is verified and claimed on the host node first, so it can't
// be claimed twice. An empty txID attaches nothing. If op fails the payment
// is returned to the caller.
func (s *Service) paid(ctx context.Context, txID string, op func(call market.Call) error) error {
	c, err := callerOf(ctx)
	if err != nil {
		return err
	}
	deposit := big.Zero()
	if txID != "" {
		if deposit, err = s.wallet.Claim(ctx, c.account, txID); err != nil {
			return err
		}
	}

	if err := op(market.NewCall(c.account, deposit)); err != nil {
		if deposit.Sign() > 0 {
			ref := market.TransferRef{Reason: market.ReasonReturn}
			if terr := s.wallet.Transfer(ctx, c.account, deposit, ref); terr != nil {
				log.Errorf("returning payment of %s to %s from tx %s: %s", deposit, c.account, txID, terr)
			}
		}
		return err
	}
	return nil
}
