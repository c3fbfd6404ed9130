package market

import (
	"encoding/json"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"
)

// Payout is the royalty split returned by the asset custodian:
// {"payout": {"<account>": "<u128>", ...}}.
type Payout struct {
	Payout map[string]big.Int `json:"payout"`
}

// ParsePayout decodes and validates the shape of a payout object.
func ParsePayout(buf []byte, maxRecipients uint32) (Payout, error) {
	var p Payout
	if err := json.Unmarshal(buf, &p); err != nil {
		return Payout{}, fmt.Errorf("%w: decoding payout: %s", ErrInvalidInput, err)
	}
	if len(p.Payout) == 0 {
		return Payout{}, fmt.Errorf("%w: empty payout", ErrInvalidInput)
	}
	if len(p.Payout) > int(maxRecipients) {
		return Payout{}, fmt.Errorf("%w: payout has %d recipients, max is %d", ErrInvalidInput, len(p.Payout), maxRecipients)
	}
	for acc, amt := range p.Payout {
		if acc == "" {
			return Payout{}, fmt.Errorf("%w: empty payout recipient", ErrInvalidInput)
		}
		if err := ValidateAmount(amt); err != nil {
			return Payout{}, fmt.Errorf("payout to %s: %w", acc, err)
		}
	}
	return p, nil
}

// InterpretOutcome decides how a custody outcome settles a deposit. It
// returns the split to pay out, or an error describing why the deposit must
// be refunded. The split is accepted only if its amounts don't exceed the
// deposit and fall short of it by at most tolerance.
func InterpretOutcome(o Outcome, deposit big.Int, maxRecipients uint32, tolerance big.Int) (map[string]big.Int, error) {
	if o.Err != nil {
		return nil, fmt.Errorf("custody call failed: %s", o.Err)
	}
	p, err := ParsePayout(o.Value, maxRecipients)
	if err != nil {
		return nil, err
	}
	remainder := deposit
	for _, amt := range p.Payout {
		remainder = big.Sub(remainder, amt)
		if remainder.Sign() < 0 {
			return nil, fmt.Errorf("%w: payout exceeds deposit %s", ErrInvalidInput, deposit)
		}
	}
	if remainder.GreaterThan(tolerance) {
		return nil, fmt.Errorf("%w: payout falls short of deposit %s by %s", ErrInvalidInput, deposit, remainder)
	}
	return p.Payout, nil
}
