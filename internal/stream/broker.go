package stream

import (
	"errors"
	"sync"
)

// ErrSubscribeFailed is returned when a subscription cannot be established.
// Callers degrade to "no live updates" for the view; the initial static
// fetch is unaffected.
var ErrSubscribeFailed = errors.New("change stream subscription failed")

// subscriberBuffer is the per-subscriber channel depth. Sends never block:
// an event that does not fit is dropped and counted, and the debounced
// re-fetch downstream absorbs the loss.
const subscriberBuffer = 16

// Broker fans change events out to per-view subscribers, keyed by entity.
type Broker struct {
	mu      sync.Mutex
	subs    map[string]map[int]chan ChangeEvent
	nextID  int
	closed  bool
	metrics *Metrics
}

// NewBroker creates a broker. metrics may be nil.
func NewBroker(metrics *Metrics) *Broker {
	return &Broker{
		subs:    make(map[string]map[int]chan ChangeEvent),
		metrics: metrics,
	}
}

// Subscribe registers interest in one entity's events. It returns the event
// channel and an unsubscribe function; unsubscribing closes the channel.
// Subscribing to a closed broker returns ErrSubscribeFailed.
func (b *Broker) Subscribe(entity string) (<-chan ChangeEvent, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, ErrSubscribeFailed
	}

	ch := make(chan ChangeEvent, subscriberBuffer)
	id := b.nextID
	b.nextID++

	set, ok := b.subs[entity]
	if !ok {
		set = make(map[int]chan ChangeEvent)
		b.subs[entity] = set
	}
	set[id] = ch
	b.metrics.SetSubscribers(b.countLocked())

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[entity]; ok {
			if ch, ok := set[id]; ok {
				delete(set, id)
				close(ch)
			}
		}
		b.metrics.SetSubscribers(b.countLocked())
	}
	return ch, unsubscribe, nil
}

// Publish delivers an event to every subscriber of its entity without
// blocking. Events for full subscribers are dropped and counted.
func (b *Broker) Publish(ev ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.metrics.IncEvent(ev.Entity, ev.Kind)
	for _, ch := range b.subs[ev.Entity] {
		select {
		case ch <- ev:
		default:
			b.metrics.IncDropped()
		}
	}
}

// Close shuts the broker down, closing every subscriber channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, set := range b.subs {
		for id, ch := range set {
			delete(set, id)
			close(ch)
		}
	}
	b.metrics.SetSubscribers(0)
}

// countLocked returns the subscriber count. Caller holds mu.
func (b *Broker) countLocked() int {
	n := 0
	for _, set := range b.subs {
		n += len(set)
	}
	return n
}
