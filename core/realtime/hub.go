package realtime

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kat-co/vala"
)

// PanicHandler is called when a subscriber callback panics.
type PanicHandler func(evt Event, panicValue interface{})

// Hub is an in-process Subscriber & Publisher. Events are dispatched synchronously, in subscription order.
type Hub struct {
	subs         map[string][]*hubSubscription
	panicHandler PanicHandler
	lastID       uint64
	mu           sync.RWMutex
}

var (
	_ Subscriber = (*Hub)(nil)
	_ Publisher  = (*Hub)(nil)
)

type hubSubscription struct {
	id         uint64
	collection string
	kinds      map[EventKind]bool
	fn         func(Event)
	hub        *Hub
	once       sync.Once
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string][]*hubSubscription)}
}

func (h *Hub) Subscribe(_ context.Context, collection string, kinds []EventKind, fn func(Event)) (Subscription, error) {
	if err := CheckSubscription(collection, kinds, fn); err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		kinds = AllKinds
	}

	s := &hubSubscription{
		id:         atomic.AddUint64(&h.lastID, 1),
		collection: collection,
		kinds:      make(map[EventKind]bool, len(kinds)),
		fn:         fn,
		hub:        h,
	}
	for _, k := range kinds {
		s.kinds[k] = true
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.subs[collection] = append(h.subs[collection], s)
	return s, nil
}

func (s *hubSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.hub.remove(s)
	})
	return nil
}

func (h *Hub) remove(s *hubSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[s.collection]
	for i, sub := range subs {
		if sub.id == s.id {
			// copy so that in-flight dispatches keep iterating their own slice
			newSubs := make([]*hubSubscription, 0, len(subs)-1)
			newSubs = append(newSubs, subs[:i]...)
			newSubs = append(newSubs, subs[i+1:]...)
			if len(newSubs) == 0 {
				delete(h.subs, s.collection)
			} else {
				h.subs[s.collection] = newSubs
			}
			return
		}
	}
}

// Publish sends evt to all the subscribers of evt.Collection listening to evt.Kind.
func (h *Hub) Publish(ctx context.Context, evt Event) error {
	if err := checkArgs(vala.StringNotEmpty(evt.Collection, "collection"), validKinds([]EventKind{evt.Kind})); err != nil {
		return err
	}

	h.mu.RLock()
	subs := h.subs[evt.Collection]
	panicHandler := h.panicHandler
	h.mu.RUnlock()

	for _, s := range subs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.kinds[evt.Kind] {
			h.call(s, evt, panicHandler)
		}
	}
	return nil
}

// Broadcast publishes an event of `kind` on every collection that has subscribers.
func (h *Hub) Broadcast(ctx context.Context, kind EventKind) error {
	for _, collection := range h.Collections() {
		if err := h.Publish(ctx, Event{Collection: collection, Kind: kind}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) call(s *hubSubscription, evt Event, panicHandler PanicHandler) {
	defer func() {
		if r := recover(); r != nil && panicHandler != nil {
			panicHandler(evt, r)
		}
	}()
	s.fn(evt)
}

// Collections returns the sorted names of the collections with at least one subscriber.
func (h *Hub) Collections() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.subs))
	for name := range h.subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Hub) HasSubscribers(collection string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[collection]) > 0
}

// SetPanicHandler sets a function to be called when a subscriber panics
func (h *Hub) SetPanicHandler(handler PanicHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panicHandler = handler
}
