package module

import (
	"context"
	"fmt"

	"github.com/textileio/marketgate/market"
)

// Watch returns a channel of settled resolutions. With no ids every
// settlement is sent. Otherwise only the given resolutions are sent,
// including those already settled, and the channel is closed once all of
// them were sent. The channel is also closed when ctx is done or the
// module closes.
//
// If the watcher falls behind and misses signals, the given resolutions
// that weren't sent yet are read again from the store.
func (m *Module) Watch(ctx context.Context, ids ...string) (<-chan market.Resolution, error) {
	filter := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		filter[id] = struct{}{}
	}

	listener := m.signaler.Listen()
	var settled []market.Resolution
	for id := range filter {
		r, err := m.state.Listings.GetResolution(id)
		if err != nil {
			m.signaler.Unregister(listener)
			return nil, fmt.Errorf("getting resolution %s: %w", id, err)
		}
		if r.Status != market.StatusPending {
			settled = append(settled, r)
		}
	}

	ch := make(chan market.Resolution, len(settled))
	go func() {
		defer close(ch)
		defer m.signaler.Unregister(listener)

		sent := make(map[string]struct{}, len(filter))
		send := func(r market.Resolution) bool {
			if len(filter) > 0 {
				if _, ok := filter[r.ID]; !ok {
					return true
				}
			}
			if _, ok := sent[r.ID]; ok {
				return true
			}
			sent[r.ID] = struct{}{}
			select {
			case ch <- r:
			case <-ctx.Done():
				return false
			}
			return len(filter) == 0 || len(sent) < len(filter)
		}

		for _, r := range settled {
			if !send(r) {
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-listener.C:
				if !ok || !send(r) {
					return
				}
			case <-listener.Lagged:
				if len(filter) == 0 {
					log.Warnf("watcher of every settlement missed signals")
					continue
				}
				for id := range filter {
					if _, ok := sent[id]; ok {
						continue
					}
					r, err := m.state.Listings.GetResolution(id)
					if err != nil {
						log.Errorf("reading missed resolution %s: %s", id, err)
						continue
					}
					if r.Status != market.StatusPending && !send(r) {
						return
					}
				}
			}
		}
	}()
	return ch, nil
}
