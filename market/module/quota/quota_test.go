package quota

import (
	"errors"
	"testing"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/require"
	"github.com/textileio/marketgate/market"
	"github.com/textileio/marketgate/tests"
)

type counter map[string]uint64

func (c counter) CountByOwner(owner string) (uint64, error) {
	return c[owner], nil
}

var unit = big.NewInt(1000)

func TestDeposit(t *testing.T) {
	t.Parallel()
	l := New(tests.NewTxMapDatastore(), counter{}, unit)

	_, err := l.Deposit("alice", big.NewInt(999))
	require.True(t, errors.Is(err, market.ErrInsufficientDeposit))

	b, err := l.Deposit("alice", big.NewInt(1000))
	require.NoError(t, err)
	require.True(t, b.Equals(big.NewInt(1000)))
	b, err = l.Deposit("alice", big.NewInt(1500))
	require.NoError(t, err)
	require.True(t, b.Equals(big.NewInt(2500)))

	b, err = l.BalanceOf("alice")
	require.NoError(t, err)
	require.True(t, b.Equals(big.NewInt(2500)))
	b, err = l.BalanceOf("bob")
	require.NoError(t, err)
	require.True(t, b.IsZero())
}

func TestCheckCapacity(t *testing.T) {
	t.Parallel()
	c := counter{}
	l := New(tests.NewTxMapDatastore(), c, unit)

	err := l.CheckCapacity("alice", 1)
	require.True(t, errors.Is(err, market.ErrInsufficientStorageQuota))

	_, err = l.Deposit("alice", big.NewInt(1000))
	require.NoError(t, err)
	require.NoError(t, l.CheckCapacity("alice", 1))

	c["alice"] = 1
	err = l.CheckCapacity("alice", 1)
	require.True(t, errors.Is(err, market.ErrInsufficientStorageQuota))
	require.NoError(t, l.CheckCapacity("alice", 0))

	req, err := l.RequiredFor("alice", 1)
	require.NoError(t, err)
	require.True(t, req.Equals(big.NewInt(2000)))
}

func TestWithdrawRetainsRequired(t *testing.T) {
	t.Parallel()
	c := counter{"alice": 2}
	l := New(tests.NewTxMapDatastore(), c, unit)
	_, err := l.Deposit("alice", big.NewInt(2000))
	require.NoError(t, err)

	sent := false
	surplus, err := l.Withdraw("alice", func(big.Int) error {
		sent = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, surplus.IsZero())
	require.False(t, sent)

	b, err := l.BalanceOf("alice")
	require.NoError(t, err)
	require.True(t, b.Equals(big.NewInt(2000)))
}

func TestWithdrawSurplus(t *testing.T) {
	t.Parallel()
	c := counter{"alice": 1}
	l := New(tests.NewTxMapDatastore(), c, unit)
	_, err := l.Deposit("alice", big.NewInt(3500))
	require.NoError(t, err)

	var sent big.Int
	surplus, err := l.Withdraw("alice", func(amt big.Int) error {
		sent = amt
		return nil
	})
	require.NoError(t, err)
	require.True(t, surplus.Equals(big.NewInt(2500)))
	require.True(t, sent.Equals(big.NewInt(2500)))

	b, err := l.BalanceOf("alice")
	require.NoError(t, err)
	require.True(t, b.Equals(big.NewInt(1000)))
}

func TestWithdrawWithoutSalesClearsBalance(t *testing.T) {
	t.Parallel()
	ds := tests.NewTxMapDatastore()
	l := New(ds, counter{}, unit)
	_, err := l.Deposit("alice", big.NewInt(1000))
	require.NoError(t, err)

	surplus, err := l.Withdraw("alice", func(big.Int) error { return nil })
	require.NoError(t, err)
	require.True(t, surplus.Equals(big.NewInt(1000)))

	ok, err := ds.Has(makeKey("alice"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWithdrawSendFailureKeepsBalance(t *testing.T) {
	t.Parallel()
	l := New(tests.NewTxMapDatastore(), counter{}, unit)
	_, err := l.Deposit("alice", big.NewInt(1000))
	require.NoError(t, err)

	_, err = l.Withdraw("alice", func(big.Int) error { return errors.New("host unavailable") })
	require.Error(t, err)

	b, err := l.BalanceOf("alice")
	require.NoError(t, err)
	require.True(t, b.Equals(big.NewInt(1000)))
}

func TestWithdrawAccountingInconsistency(t *testing.T) {
	t.Parallel()
	c := counter{"alice": 3}
	l := New(tests.NewTxMapDatastore(), c, unit)
	_, err := l.Deposit("alice", big.NewInt(1000))
	require.NoError(t, err)

	_, err = l.Withdraw("alice", func(big.Int) error { return nil })
	require.True(t, errors.Is(err, market.ErrAccountingInconsistency))
}
