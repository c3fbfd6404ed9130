package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/textileio/marketgate/market"
	marketRpc "github.com/textileio/marketgate/market/rpc"
)

// Exchange provides an API for buying and using assets.
type Exchange struct {
	api *api
}

// Offer buys an asset with the payment of the host node transaction txID.
func (e *Exchange) Offer(ctx context.Context, txID, contractID, tokenID string) (market.Resolution, error) {
	r, err := e.api.Offer(ctx, txID, contractID, tokenID)
	if err != nil {
		return market.Resolution{}, fmt.Errorf("calling Offer: %v", err)
	}
	return r, nil
}

// ApplyUse pays for one use of an asset with the payment of txID.
func (e *Exchange) ApplyUse(ctx context.Context, txID, contractID, tokenID string) (market.Resolution, error) {
	r, err := e.api.ApplyUse(ctx, txID, contractID, tokenID)
	if err != nil {
		return market.Resolution{}, fmt.Errorf("calling ApplyUse: %v", err)
	}
	return r, nil
}

// Resolve delivers the outcome of a custody call. A non-empty errMsg
// reports a failed call. It requires the admin token.
func (e *Exchange) Resolve(ctx context.Context, id string, value json.RawMessage, errMsg string) (market.Resolution, error) {
	r, err := e.api.Resolve(ctx, id, marketRpc.Outcome{Value: value, Error: errMsg})
	if err != nil {
		return market.Resolution{}, fmt.Errorf("calling Resolve: %v", err)
	}
	return r, nil
}

// Resolution returns a resolution.
func (e *Exchange) Resolution(ctx context.Context, id string) (market.Resolution, error) {
	r, err := e.api.GetResolution(ctx, id)
	if err != nil {
		return market.Resolution{}, fmt.Errorf("calling GetResolution: %v", err)
	}
	return r, nil
}

// Resolutions returns pending or settled resolutions.
func (e *Exchange) Resolutions(ctx context.Context, pending bool) ([]market.Resolution, error) {
	res, err := e.api.GetResolutions(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("calling GetResolutions: %v", err)
	}
	return res, nil
}

// Watch streams settled resolutions until ctx is canceled. With ids, only
// those resolutions are streamed and the channel is closed once all of them
// were received.
func (e *Exchange) Watch(ctx context.Context, ids ...string) (<-chan market.Resolution, error) {
	ch, err := e.api.WatchResolutions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("calling WatchResolutions: %v", err)
	}
	return ch, nil
}
