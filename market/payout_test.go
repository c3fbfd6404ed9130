package market

import (
	"errors"
	"fmt"
	"testing"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/require"
)

var one = big.NewInt(1)

func TestInterpretOutcomeValidSplit(t *testing.T) {
	t.Parallel()
	o := Outcome{Value: []byte(`{"payout": {"alice": "450", "bob": "50"}}`)}
	split, err := InterpretOutcome(o, big.NewInt(500), 10, one)
	require.NoError(t, err)
	require.Len(t, split, 2)
	require.True(t, split["alice"].Equals(big.NewInt(450)))
	require.True(t, split["bob"].Equals(big.NewInt(50)))
}

func TestInterpretOutcomeTolerance(t *testing.T) {
	t.Parallel()
	o := Outcome{Value: []byte(`{"payout": {"alice": "449", "bob": "50"}}`)}
	_, err := InterpretOutcome(o, big.NewInt(500), 10, one)
	require.NoError(t, err)

	o = Outcome{Value: []byte(`{"payout": {"alice": "448", "bob": "50"}}`)}
	_, err = InterpretOutcome(o, big.NewInt(500), 10, one)
	require.True(t, errors.Is(err, ErrInvalidInput))

	_, err = InterpretOutcome(o, big.NewInt(500), 10, big.NewInt(2))
	require.NoError(t, err)

	o = Outcome{Value: []byte(`{"payout": {"alice": "500"}}`)}
	_, err = InterpretOutcome(o, big.NewInt(501), 10, big.Zero())
	require.Error(t, err)
}

func TestInterpretOutcomeRefunds(t *testing.T) {
	t.Parallel()
	deposit := big.NewInt(500)
	eleven := `{"payout": {`
	for i := 0; i < 11; i++ {
		if i > 0 {
			eleven += ","
		}
		eleven += fmt.Sprintf(`"acc%d": "1"`, i)
	}
	eleven += `}}`

	outcomes := map[string]Outcome{
		"call failed":    {Err: errors.New("custodian not found")},
		"malformed":      {Value: []byte(`{"payout": `)},
		"empty":          {Value: []byte(`{"payout": {}}`)},
		"too many":       {Value: []byte(eleven)},
		"exceeds":        {Value: []byte(`{"payout": {"alice": "450", "bob": "51"}}`)},
		"short":          {Value: []byte(`{"payout": {"alice": "400"}}`)},
		"numeric amount": {Value: []byte(`{"payout": {"alice": 500}}`)},
		"negative":       {Value: []byte(`{"payout": {"alice": "600", "bob": "-100"}}`)},
		"null":           {Value: []byte(`null`)},
	}
	for name, o := range outcomes {
		split, err := InterpretOutcome(o, deposit, 10, one)
		require.Error(t, err, name)
		require.Nil(t, split, name)
	}
}

func TestParsePayoutMaxRecipients(t *testing.T) {
	t.Parallel()
	buf := []byte(`{"payout": {"a": "1", "b": "1", "c": "1"}}`)
	_, err := ParsePayout(buf, 2)
	require.True(t, errors.Is(err, ErrInvalidInput))
	p, err := ParsePayout(buf, 3)
	require.NoError(t, err)
	require.Len(t, p.Payout, 3)
}
