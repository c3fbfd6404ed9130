package health

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/textileio/marketgate/market"
)

var (
	ctx = context.Background()
)

type hostMock struct{ up bool }

func (h hostMock) Up() bool        { return h.up }
func (h hostMock) Version() string { return "test" }

type resolutionsMock struct {
	pending int
	err     error
}

func (r resolutionsMock) GetResolutions(pending bool) ([]market.Resolution, error) {
	return make([]market.Resolution, r.pending), r.err
}

func TestModule(t *testing.T) {
	t.Parallel()

	t.Run("Healthy", func(t *testing.T) {
		m := New(hostMock{up: true}, resolutionsMock{pending: 2}, 0)
		r, err := m.Check(ctx)
		require.NoError(t, err)
		require.Equal(t, Ok, r.Status)
		require.Empty(t, r.Messages)
	})

	t.Run("NoHostMonitor", func(t *testing.T) {
		m := New(nil, resolutionsMock{}, 0)
		r, err := m.Check(ctx)
		require.NoError(t, err)
		require.Equal(t, Ok, r.Status)
	})

	t.Run("Degraded", func(t *testing.T) {
		m := New(hostMock{up: false}, resolutionsMock{pending: 3}, 2)
		r, err := m.Check(ctx)
		require.NoError(t, err)
		require.Equal(t, Degraded, r.Status)
		require.Len(t, r.Messages, 2)
	})

	t.Run("Error", func(t *testing.T) {
		m := New(nil, resolutionsMock{err: fmt.Errorf("datastore closed")}, 0)
		r, err := m.Check(ctx)
		require.Error(t, err)
		require.Equal(t, Error, r.Status)
	})
}
