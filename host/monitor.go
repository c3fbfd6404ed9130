package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
)

var (
	monitorInterval = time.Second * 30
)

// Monitor periodically checks that the host node answers and reports it
// as a metric.
type Monitor struct {
	cb ClientBuilder

	lock    sync.Mutex
	version string
	up      bool

	closeCtx    context.Context
	closeCancel context.CancelFunc
	finished    chan struct{}
}

// NewMonitor checks the host node once and keeps checking it in the
// background until Close is called.
func NewMonitor(cb ClientBuilder) (*Monitor, error) {
	ctx, cls := context.WithCancel(context.Background())
	m := &Monitor{
		cb:          cb,
		closeCtx:    ctx,
		closeCancel: cls,
		finished:    make(chan struct{}),
	}
	if err := m.check(); err != nil {
		cls()
		return nil, fmt.Errorf("checking host node: %s", err)
	}

	meter := global.Meter("marketgate")
	_ = metric.Must(meter).NewInt64ValueObserver("marketgate.host.up", m.observeUp)

	go m.run()
	return m, nil
}

// Version returns the last known version of the host node.
func (m *Monitor) Version() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.version
}

// Up returns whether the last check succeeded.
func (m *Monitor) Up() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.up
}

// Close stops the monitor.
func (m *Monitor) Close() {
	m.closeCancel()
	<-m.finished
}

func (m *Monitor) run() {
	defer close(m.finished)
	for {
		select {
		case <-m.closeCtx.Done():
			log.Debug("closing host monitor")
			return
		case <-time.After(monitorInterval):
			if err := m.check(); err != nil {
				log.Warnf("host node check failed: %s", err)
			}
		}
	}
}

func (m *Monitor) check() error {
	ctx, cancel := context.WithTimeout(m.closeCtx, time.Second*5)
	defer cancel()

	version, err := func() (string, error) {
		c, cls, err := m.cb(ctx)
		if err != nil {
			return "", fmt.Errorf("creating host client: %s", err)
		}
		defer cls()
		return c.Version(ctx)
	}()

	m.lock.Lock()
	defer m.lock.Unlock()
	m.up = err == nil
	if err != nil {
		return err
	}
	m.version = version
	return nil
}

func (m *Monitor) observeUp(ctx context.Context, result metric.Int64ObserverResult) {
	var v int64
	if m.Up() {
		v = 1
	}
	result.Observe(v)
}
