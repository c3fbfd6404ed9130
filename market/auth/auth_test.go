package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/textileio/marketgate/tests"
)

func TestGenerateGet(t *testing.T) {
	t.Parallel()
	a := New(tests.NewTxMapDatastore())

	token, err := a.Generate("alice")
	require.NoError(t, err)
	account, err := a.Get(token)
	require.NoError(t, err)
	require.Equal(t, "alice", account)

	other, err := a.Generate("alice")
	require.NoError(t, err)
	require.NotEqual(t, token, other)

	_, err = a.Generate("")
	require.Error(t, err)
}

func TestGetMissing(t *testing.T) {
	t.Parallel()
	a := New(tests.NewTxMapDatastore())
	_, err := a.Get("nope")
	require.Equal(t, ErrNotFound, err)
}

func TestRevoke(t *testing.T) {
	t.Parallel()
	a := New(tests.NewTxMapDatastore())
	token, err := a.Generate("alice")
	require.NoError(t, err)

	require.NoError(t, a.Revoke(token))
	_, err = a.Get(token)
	require.Equal(t, ErrNotFound, err)
	require.Equal(t, ErrNotFound, a.Revoke(token))
}
