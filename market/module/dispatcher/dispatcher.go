package dispatcher

import (
	"context"
	"errors"
	"sync"

	logger "github.com/ipfs/go-log/v2"
	"github.com/textileio/marketgate/market"
	"go.opentelemetry.io/otel/metric"
)

var (
	log = logger.Logger("market-dispatcher")

	// ErrClosed indicates the dispatcher doesn't accept more work.
	ErrClosed = errors.New("dispatcher closed")
	// ErrAlreadyDispatched indicates the resolution is already queued or in flight.
	ErrAlreadyDispatched = errors.New("resolution already dispatched")
)

// ExecuteFunc runs the external custody call of a pending resolution.
type ExecuteFunc func(ctx context.Context, r market.Resolution) market.Outcome

// DeliverFunc applies the outcome of a custody call.
type DeliverFunc func(r market.Resolution, o market.Outcome) error

// Dispatcher runs custody calls outside of the coordinator and delivers
// their outcome back to it. Every dispatched resolution gets exactly one
// delivery unless the dispatcher is closed while its call is in flight; in
// that case the resolution stays pending and is dispatched again on restart.
type Dispatcher struct {
	execute ExecuteFunc
	deliver DeliverFunc

	lock     sync.Mutex
	queue    []market.Resolution
	inflight map[string]struct{}
	signal   chan struct{}

	closeLock   sync.Mutex
	closeCtx    context.Context
	closeCancel context.CancelFunc
	wg          sync.WaitGroup
	closed      bool

	metricInFlight metric.Int64UpDownCounter
}

// New returns a new Dispatcher running workers concurrent custody calls.
func New(execute ExecuteFunc, deliver DeliverFunc, workers int) *Dispatcher {
	ctx, cls := context.WithCancel(context.Background())
	d := &Dispatcher{
		execute:     execute,
		deliver:     deliver,
		inflight:    make(map[string]struct{}),
		signal:      make(chan struct{}, 1),
		closeCtx:    ctx,
		closeCancel: cls,
	}
	d.initMetrics()

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Dispatch queues a pending resolution. It never blocks.
func (d *Dispatcher) Dispatch(r market.Resolution) error {
	if d.closeCtx.Err() != nil {
		return ErrClosed
	}

	d.lock.Lock()
	if _, ok := d.inflight[r.ID]; ok {
		d.lock.Unlock()
		return ErrAlreadyDispatched
	}
	d.inflight[r.ID] = struct{}{}
	d.queue = append(d.queue, r)
	d.lock.Unlock()

	d.metricInFlight.Add(context.Background(), 1)
	select {
	case d.signal <- struct{}{}:
	default:
	}
	return nil
}

// InFlight returns the number of queued or executing resolutions.
func (d *Dispatcher) InFlight() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.inflight)
}

// Close stops accepting work and waits for running calls to finish.
func (d *Dispatcher) Close() error {
	d.closeLock.Lock()
	defer d.closeLock.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	d.closeCancel()
	d.wg.Wait()
	return nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		r, ok := d.next()
		if !ok {
			select {
			case <-d.closeCtx.Done():
				return
			case <-d.signal:
				continue
			}
		}

		o := d.execute(d.closeCtx, r)
		if d.closeCtx.Err() != nil {
			log.Infof("dispatcher closed while resolution %s was in flight, it stays pending", r.ID)
			d.done(r.ID)
			return
		}
		if err := d.deliver(r, o); err != nil {
			log.Errorf("delivering outcome of resolution %s: %s", r.ID, err)
		}
		d.done(r.ID)
	}
}

func (d *Dispatcher) next() (market.Resolution, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.queue) == 0 {
		return market.Resolution{}, false
	}
	r := d.queue[0]
	d.queue = d.queue[1:]
	// Wake up another worker if there's more work.
	if len(d.queue) > 0 {
		select {
		case d.signal <- struct{}{}:
		default:
		}
	}
	return r, true
}

func (d *Dispatcher) done(id string) {
	d.lock.Lock()
	delete(d.inflight, id)
	d.lock.Unlock()
	d.metricInFlight.Add(context.Background(), -1)
}
