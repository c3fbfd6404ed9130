package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/textileio/marketgate/market"
)

func TestDispatchDelivers(t *testing.T) {
	t.Parallel()

	var lock sync.Mutex
	delivered := make(map[string]market.Outcome)
	execute := func(ctx context.Context, r market.Resolution) market.Outcome {
		return market.Outcome{Value: []byte(r.ID)}
	}
	deliver := func(r market.Resolution, o market.Outcome) error {
		lock.Lock()
		defer lock.Unlock()
		delivered[r.ID] = o
		return nil
	}
	d := New(execute, deliver, 3)
	defer func() { require.NoError(t, d.Close()) }()

	for i := 0; i < 20; i++ {
		require.NoError(t, d.Dispatch(market.Resolution{ID: fmt.Sprintf("r%d", i)}))
	}
	require.Eventually(t, func() bool { return d.InFlight() == 0 }, 5*time.Second, 10*time.Millisecond)

	lock.Lock()
	defer lock.Unlock()
	require.Len(t, delivered, 20)
	require.Equal(t, "r7", string(delivered["r7"].Value))
}

func TestDispatchDuplicate(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	execute := func(ctx context.Context, r market.Resolution) market.Outcome {
		<-release
		return market.Outcome{}
	}
	deliver := func(r market.Resolution, o market.Outcome) error { return nil }
	d := New(execute, deliver, 1)
	defer func() { require.NoError(t, d.Close()) }()

	require.NoError(t, d.Dispatch(market.Resolution{ID: "r"}))
	require.Equal(t, ErrAlreadyDispatched, d.Dispatch(market.Resolution{ID: "r"}))
	close(release)
	require.Eventually(t, func() bool { return d.InFlight() == 0 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, d.Dispatch(market.Resolution{ID: "r"}))
}

func TestCloseSkipsDelivery(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	execute := func(ctx context.Context, r market.Resolution) market.Outcome {
		close(started)
		<-ctx.Done()
		return market.Outcome{Err: ctx.Err()}
	}
	var delivered int
	var lock sync.Mutex
	deliver := func(r market.Resolution, o market.Outcome) error {
		lock.Lock()
		defer lock.Unlock()
		delivered++
		return nil
	}
	d := New(execute, deliver, 1)

	require.NoError(t, d.Dispatch(market.Resolution{ID: "r"}))
	<-started
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	lock.Lock()
	defer lock.Unlock()
	require.Equal(t, 0, delivered)
	require.Equal(t, ErrClosed, d.Dispatch(market.Resolution{ID: "other"}))
}
