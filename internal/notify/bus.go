package notify

import (
	"context"
	"sync"
)

// Notification is what listeners receive. Payload is normally a study.ChangeEvent,
// but listeners must tolerate anything.
type Notification struct {
	Payload any
}

// Listener reacts to a notification.
type Listener interface {
	HandleChange(ctx context.Context, n Notification)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, n Notification)

// HandleChange calls f.
func (f ListenerFunc) HandleChange(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Notifier is the registration side of a Bus, accepted by stores.
type Notifier interface {
	Subscribe(listener Listener) *Subscription
}

// Bus fans notifications out to its subscribers.
type Bus struct {
	// mu protects subscribers and nextID.
	mu          sync.Mutex
	subscribers []subscriber
	nextID      uint64
}

type subscriber struct {
	id       uint64
	listener Listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers listener until the returned subscription is closed.
func (b *Bus) Subscribe(listener Listener) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subscribers = append(b.subscribers, subscriber{
		id:       b.nextID,
		listener: listener,
	})

	return &Subscription{
		bus: b,
		id:  b.nextID,
	}
}

// Publish delivers payload to every current subscriber and returns after the last one.
func (b *Bus) Publish(ctx context.Context, payload any) {
	b.mu.Lock()
	listeners := make([]Listener, 0, len(b.subscribers))

	for _, s := range b.subscribers {
		listeners = append(listeners, s.listener)
	}
	b.mu.Unlock()

	n := Notification{Payload: payload}
	for _, listener := range listeners {
		listener.HandleChange(ctx, n)
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers)
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subscribers {
		if s.id == id {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)

			return
		}
	}
}

// Subscription ties a listener's registration to its owner's lifetime.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// Close removes the listener from the bus. Calling it more than once is a no-op.
func (s *Subscription) Close() {
	if s == nil {
		return
	}

	s.once.Do(func() {
		s.bus.unsubscribe(s.id)
	})
}
