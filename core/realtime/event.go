package realtime

import (
	"context"
	"encoding/json"
	"sync"
)

type EventKind string

const (
	Insert EventKind = "INSERT"
	Update EventKind = "UPDATE"
	Delete EventKind = "DELETE"
	// FormRefresh is broadcast by the application (not the database) to ask bindings to refetch.
	FormRefresh EventKind = "form_refresh"
)

// AllKinds lists every kind a Binding listens to.
var AllKinds = []EventKind{Insert, Update, Delete, FormRefresh}

func (k EventKind) Valid() bool {
	switch k {
	case Insert, Update, Delete, FormRefresh:
		return true
	}
	return false
}

// Event is a change notification on a collection.
// Payload holds the new row (INSERT, UPDATE) and OldPayload the previous one (UPDATE, DELETE), both optional.
type Event struct {
	Collection string          `json:"collection"`
	Kind       EventKind       `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OldPayload json.RawMessage `json:"old_payload,omitempty"`
}

type (
	// Subscription is a registered callback. Unsubscribe must be idempotent.
	Subscription interface {
		Unsubscribe() error
	}

	// Subscriber is the realtime backend: it calls fn for every event of `kinds` on `collection`.
	// ctx only bounds the subscription handshake, not its lifetime.
	Subscriber interface {
		Subscribe(ctx context.Context, collection string, kinds []EventKind, fn func(Event)) (Subscription, error)
	}

	Publisher interface {
		Publish(ctx context.Context, evt Event) error
	}
)

// SubscriptionFunc adapts a release func into a Subscription that runs it at most once.
func SubscriptionFunc(release func() error) Subscription {
	return &funcSubscription{release: release}
}

type funcSubscription struct {
	mu      sync.Mutex
	release func() error
	done    bool
	err     error
}

func (s *funcSubscription) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.done {
		s.done = true
		if s.release != nil {
			s.err = s.release()
		}
	}
	return s.err
}
