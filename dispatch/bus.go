package dispatch

import (
	"context"
	"errors"
	"sync"
)

type (
	// Subscriber reacts to aggregate snapshots published after each dispatch.
	// Subscribers are invoked synchronously in registration order; the first
	// error halts delivery for that snapshot. Non-critical failures should be
	// logged and swallowed so later subscribers still run.
	Subscriber interface {
		// HandleSnapshot processes one published snapshot. The context
		// originates from the triggering Dispatch call.
		HandleSnapshot(ctx context.Context, snap Snapshot) error
	}

	// SubscriberFunc adapts a function to the Subscriber interface.
	SubscriberFunc func(ctx context.Context, snap Snapshot) error

	// Subscription is an active registration. Close removes the subscriber
	// and is idempotent.
	Subscription interface {
		Close() error
	}

	// bus fans snapshots out to subscribers in registration order.
	bus struct {
		mu   sync.RWMutex
		subs []*subscription
	}

	subscription struct {
		bus  *bus
		fn   Subscriber
		once sync.Once
	}
)

// HandleSnapshot implements Subscriber.
func (f SubscriberFunc) HandleSnapshot(ctx context.Context, snap Snapshot) error {
	return f(ctx, snap)
}

func newBus() *bus {
	return &bus{}
}

// register adds a subscriber and returns its subscription handle.
func (b *bus) register(sub Subscriber) (Subscription, error) {
	if sub == nil {
		return nil, errors.New("subscriber is required")
	}
	s := &subscription{bus: b, fn: sub}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s, nil
}

// publish delivers snap to every subscriber in registration order, stopping
// at the first error. The subscriber list is captured before iteration so
// registrations during delivery do not affect the current fan-out.
func (b *bus) publish(ctx context.Context, snap Snapshot) error {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()
	for _, s := range subs {
		if err := s.fn.HandleSnapshot(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

// Close removes the subscriber from the bus. Safe to call multiple times.
func (s *subscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		for i, sub := range s.bus.subs {
			if sub == s {
				s.bus.subs = append(s.bus.subs[:i], s.bus.subs[i+1:]...)
				break
			}
		}
	})
	return nil
}
