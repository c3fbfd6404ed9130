package host

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/textileio/marketgate/market"
)

var _ market.Custodian = (*Custodian)(nil)

// Custodian runs custody calls against asset contracts through the host node.
type Custodian struct {
	clientBuilder ClientBuilder
}

// NewCustodian returns a new *Custodian.
func NewCustodian(clientBuilder ClientBuilder) *Custodian {
	return &Custodian{clientBuilder: clientBuilder}
}

// TransferWithPayout implements market.Custodian.
func (c *Custodian) TransferWithPayout(ctx context.Context, contractID, receiverID, tokenID string, approvalID uint64, memo string, balance big.Int, maxLenPayout uint32) ([]byte, error) {
	client, cls, err := c.clientBuilder(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating host client: %s", err)
	}
	defer cls()

	res, err := client.NftTransferPayout(ctx, contractID, receiverID, tokenID, approvalID, memo, balance, maxLenPayout)
	if err != nil {
		return nil, fmt.Errorf("calling transfer payout of %s: %s", contractID, err)
	}
	return res, nil
}

// TransferForUse implements market.Custodian.
func (c *Custodian) TransferForUse(ctx context.Context, contractID, userID, tokenID, memo string, balance big.Int, maxLenPayout uint32) ([]byte, error) {
	client, cls, err := c.clientBuilder(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating host client: %s", err)
	}
	defer cls()

	res, err := client.NftUsePayout(ctx, contractID, userID, tokenID, memo, balance, maxLenPayout)
	if err != nil {
		return nil, fmt.Errorf("calling use payout of %s: %s", contractID, err)
	}
	return res, nil
}
