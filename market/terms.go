package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	gobig "math/big"

	"github.com/filecoin-project/go-state-types/big"
)

// MaxAmount is the largest amount representable on the wire (2^128-1).
var MaxAmount = big.Int{Int: new(gobig.Int).Sub(new(gobig.Int).Lsh(gobig.NewInt(1), 128), gobig.NewInt(1))}

// ListingTerms are the prices an owner sets when approving the market.
type ListingTerms struct {
	SaleCondition big.Int `json:"sale_condition"`
	UseCondition  big.Int `json:"use_condition"`
}

// ParseListingTerms decodes the free-form message of an approval
// notification: {"sale_condition": "<u128>", "use_condition": "<u128>"}.
func ParseListingTerms(msg string) (ListingTerms, error) {
	var lt ListingTerms
	if err := decodeStrict([]byte(msg), &lt); err != nil {
		return ListingTerms{}, fmt.Errorf("%w: decoding listing terms: %s", ErrInvalidInput, err)
	}
	if err := ValidateAmount(lt.SaleCondition); err != nil {
		return ListingTerms{}, fmt.Errorf("sale_condition: %w", err)
	}
	if err := ValidateAmount(lt.UseCondition); err != nil {
		return ListingTerms{}, fmt.Errorf("use_condition: %w", err)
	}
	return lt, nil
}

// ParseAmount parses a decimal u128 amount.
func ParseAmount(s string) (big.Int, error) {
	v, ok := new(gobig.Int).SetString(s, 10)
	if !ok {
		return big.Int{}, fmt.Errorf("%w: parsing amount %q", ErrInvalidInput, s)
	}
	amt := big.Int{Int: v}
	if err := ValidateAmount(amt); err != nil {
		return big.Int{}, err
	}
	return amt, nil
}

// ValidateAmount checks that amt is present and in the u128 range.
func ValidateAmount(amt big.Int) error {
	if amt.Nil() {
		return fmt.Errorf("%w: missing amount", ErrInvalidInput)
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidInput, amt)
	}
	if amt.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: amount %s overflows u128", ErrInvalidInput, amt)
	}
	return nil
}

func decodeStrict(buf []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after object")
	}
	return nil
}
