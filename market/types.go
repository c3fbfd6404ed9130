package market

import (
	"fmt"
	"strings"

	"github.com/filecoin-project/go-state-types/big"
)

// Delimiter separates the asset-contract id from the asset id in a ListingKey.
const Delimiter = "."

// ListingKey identifies a listable position: one asset of one asset-contract.
type ListingKey struct {
	ContractID string
	TokenID    string
}

// NewListingKey returns the ListingKey for an asset.
func NewListingKey(contractID, tokenID string) ListingKey {
	return ListingKey{ContractID: contractID, TokenID: tokenID}
}

// String returns the composite representation of the key.
func (k ListingKey) String() string {
	return k.ContractID + Delimiter + k.TokenID
}

// Validate returns an error if any of the components is empty.
func (k ListingKey) Validate() error {
	if strings.TrimSpace(k.ContractID) == "" {
		return fmt.Errorf("%w: empty contract id", ErrInvalidInput)
	}
	if k.TokenID == "" {
		return fmt.Errorf("%w: empty token id", ErrInvalidInput)
	}
	return nil
}

// Sale is an active outright-sale offer for an asset.
type Sale struct {
	OwnerID        string  `json:"owner_id"`
	ApprovalID     uint64  `json:"approval_id"`
	NFTContractID  string  `json:"nft_contract_id"`
	TokenID        string  `json:"token_id"`
	SaleConditions big.Int `json:"sale_conditions"`
}

// Key returns the ListingKey of the sale.
func (s Sale) Key() ListingKey {
	return NewListingKey(s.NFTContractID, s.TokenID)
}

// UseOffer is an active pay-per-use offer for an asset.
type UseOffer struct {
	OwnerID       string  `json:"owner_id"`
	NFTContractID string  `json:"nft_contract_id"`
	TokenID       string  `json:"token_id"`
	UseConditions big.Int `json:"use_conditions"`
}

// Key returns the ListingKey of the use offer.
func (u UseOffer) Key() ListingKey {
	return NewListingKey(u.NFTContractID, u.TokenID)
}

// Call describes who invokes an operation and what payment is attached,
// as attested by the host.
type Call struct {
	// Predecessor is the immediate caller.
	Predecessor string
	// Signer is the account that signed the original transaction.
	Signer string
	// Deposit is the attached payment.
	Deposit big.Int
}

// NewCall returns a Call where the caller is also the signer.
func NewCall(caller string, deposit big.Int) Call {
	return Call{Predecessor: caller, Signer: caller, Deposit: deposit}
}

// ResolutionKind is the kind of exchange a resolution settles.
type ResolutionKind int

const (
	// KindPurchase settles an outright sale.
	KindPurchase ResolutionKind = iota
	// KindUse settles a pay-per-use application.
	KindUse
)

// ResolutionKindStr maps kinds to human readable names.
var ResolutionKindStr = map[ResolutionKind]string{
	KindPurchase: "purchase",
	KindUse:      "use",
}

func (k ResolutionKind) String() string {
	return ResolutionKindStr[k]
}

// ResolutionStatus is the state of a two-phase exchange.
type ResolutionStatus int

const (
	// StatusPending means the listing was consumed and the custody outcome
	// wasn't delivered yet.
	StatusPending ResolutionStatus = iota
	// StatusPaidOut means the payout split was distributed.
	StatusPaidOut
	// StatusRefunded means the deposit was returned to the buyer.
	StatusRefunded
)

// ResolutionStatusStr maps statuses to human readable names.
var ResolutionStatusStr = map[ResolutionStatus]string{
	StatusPending:  "pending",
	StatusPaidOut:  "paid_out",
	StatusRefunded: "refunded",
}

func (s ResolutionStatus) String() string {
	return ResolutionStatusStr[s]
}

// Resolution tracks an exchange from its listing consumption until funds
// are paid out or refunded.
type Resolution struct {
	ID         string             `json:"id"`
	Kind       ResolutionKind     `json:"kind"`
	Status     ResolutionStatus   `json:"status"`
	ContractID string             `json:"contract_id"`
	TokenID    string             `json:"token_id"`
	ApprovalID uint64             `json:"approval_id"`
	BuyerID    string             `json:"buyer_id"`
	OwnerID    string             `json:"owner_id"`
	Deposit    big.Int            `json:"deposit"`
	Payout     map[string]big.Int `json:"payout,omitempty"`
	ErrMsg     string             `json:"err_msg,omitempty"`
	CreatedAt  int64              `json:"created_at"`
	ResolvedAt int64              `json:"resolved_at,omitempty"`
}

// Key returns the ListingKey the resolution refers to.
func (r Resolution) Key() ListingKey {
	return NewListingKey(r.ContractID, r.TokenID)
}

// Outcome is what the host delivers when an external custody call finishes.
// Err is set if the call failed or the custodian doesn't exist, otherwise
// Value holds the raw returned payout object.
type Outcome struct {
	Value []byte
	Err   error
}
