package receiptstore

import (
	"testing"
	"time"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/require"
	"github.com/textileio/marketgate/tests"
	"github.com/textileio/marketgate/wallet"
)

func TestClaim(t *testing.T) {
	t.Parallel()
	s := New(tests.NewTxMapDatastore())

	r := wallet.Receipt{TxID: "tx-1", From: "bob", Amount: big.NewInt(500), Time: time.Now()}
	require.NoError(t, s.Claim(r))

	got, err := s.Get("tx-1")
	require.NoError(t, err)
	require.Equal(t, "bob", got.From)
	require.True(t, got.Amount.Equals(big.NewInt(500)))

	err = s.Claim(r)
	require.ErrorIs(t, err, wallet.ErrReceiptClaimed)

	_, err = s.Get("tx-2")
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, s.Claim(wallet.Receipt{}))
}
