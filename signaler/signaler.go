package signaler

import (
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/textileio/marketgate/market"
)

var (
	log = logging.Logger("signaler")

	listenerBuffer = 16
)

// Listener receives the resolutions broadcast by a Signaler.
type Listener struct {
	// C receives settled resolutions. It's closed by Unregister or Close.
	C chan market.Resolution
	// Lagged is notified when C was full and a resolution was dropped.
	// Missed resolutions must be read from their store.
	Lagged chan struct{}
}

// Signaler broadcasts settled resolutions to its listeners.
type Signaler struct {
	lock      sync.Mutex
	listeners map[*Listener]struct{}
	closed    bool
}

// New returns a new Signaler.
func New() *Signaler {
	return &Signaler{
		listeners: make(map[*Listener]struct{}),
	}
}

// Listen returns a new listener.
func (s *Signaler) Listen() *Listener {
	l := &Listener{
		C:      make(chan market.Resolution, listenerBuffer),
		Lagged: make(chan struct{}, 1),
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		close(l.C)
		return l
	}
	s.listeners[l] = struct{}{}
	return l
}

// Unregister removes a listener from the hub and closes it.
func (s *Signaler) Unregister(l *Listener) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.listeners[l]; !ok {
		return
	}
	delete(s.listeners, l)
	close(l.C)
}

// Signal notifies all listeners that r was settled. A listener with a full
// buffer misses the resolution and is marked as lagged.
func (s *Signaler) Signal(r market.Resolution) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for l := range s.listeners {
		select {
		case l.C <- r:
		default:
			log.Warnf("dropping resolution %s signal on blocked listener", r.ID)
			select {
			case l.Lagged <- struct{}{}:
			default:
			}
		}
	}
}

// Close closes the Signaler. Any listener that wasn't explicitly
// unregistered is closed.
func (s *Signaler) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for l := range s.listeners {
		close(l.C)
	}
	s.listeners = nil
}
