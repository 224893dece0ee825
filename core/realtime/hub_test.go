package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_Subscribe(t *testing.T) {
	noop := func(Event) {}
	tests := []struct {
		name       string
		collection string
		kinds      []EventKind
		fn         func(Event)
		wantErr    error
	}{
		{name: "valid", collection: "chantiers", kinds: []EventKind{Insert}, fn: noop},
		{name: "all kinds by default", collection: "chantiers", fn: noop},
		{name: "no collection", collection: "", fn: noop, wantErr: ErrInvalidSubscription},
		{name: "no callback", collection: "chantiers", wantErr: ErrInvalidSubscription},
		{name: "unknown kind", collection: "chantiers", kinds: []EventKind{"TRUNCATE"}, fn: noop, wantErr: ErrInvalidSubscription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub()
			sub, err := hub.Subscribe(context.Background(), tt.collection, tt.kinds, tt.fn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, sub)
				assert.Empty(t, hub.Collections())
				return
			}
			require.NoError(t, err)
			assert.True(t, hub.HasSubscribers(tt.collection))
		})
	}
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub()

	var got []string
	record := func(name string) func(Event) {
		return func(evt Event) { got = append(got, name+":"+string(evt.Kind)) }
	}
	_, err := hub.Subscribe(context.Background(), "factures", nil, record("all"))
	require.NoError(t, err)
	_, err = hub.Subscribe(context.Background(), "factures", []EventKind{Delete}, record("deletes"))
	require.NoError(t, err)
	_, err = hub.Subscribe(context.Background(), "clients", nil, record("clients"))
	require.NoError(t, err)

	require.NoError(t, hub.Publish(context.Background(), Event{Collection: "factures", Kind: Insert}))
	require.NoError(t, hub.Publish(context.Background(), Event{Collection: "factures", Kind: Delete}))
	require.NoError(t, hub.Publish(context.Background(), Event{Collection: "ouvriers", Kind: Delete}))

	assert.Equal(t, []string{"all:INSERT", "all:DELETE", "deletes:DELETE"}, got)

	assert.ErrorIs(t, hub.Publish(context.Background(), Event{Collection: "factures", Kind: "nope"}), ErrInvalidSubscription)
	assert.ErrorIs(t, hub.Publish(context.Background(), Event{Kind: Insert}), ErrInvalidSubscription)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, hub.Publish(ctx, Event{Collection: "factures", Kind: Update}))
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	calls := 0
	sub1, err := hub.Subscribe(context.Background(), "materiel", nil, func(Event) { calls++ })
	require.NoError(t, err)
	sub2, err := hub.Subscribe(context.Background(), "materiel", nil, func(Event) { calls += 10 })
	require.NoError(t, err)

	require.NoError(t, sub1.Unsubscribe())
	require.NoError(t, sub1.Unsubscribe())
	require.NoError(t, hub.Publish(context.Background(), Event{Collection: "materiel", Kind: Update}))
	assert.Equal(t, 10, calls)

	require.NoError(t, sub2.Unsubscribe())
	assert.False(t, hub.HasSubscribers("materiel"))
	assert.Empty(t, hub.Collections())
}

func TestHub_unsubscribeDuringDispatch(t *testing.T) {
	hub := NewHub()
	var sub Subscription
	calls := 0
	sub, err := hub.Subscribe(context.Background(), "ouvriers", nil, func(Event) {
		calls++
		_ = sub.Unsubscribe()
	})
	require.NoError(t, err)
	_, err = hub.Subscribe(context.Background(), "ouvriers", nil, func(Event) { calls++ })
	require.NoError(t, err)

	require.NoError(t, hub.Publish(context.Background(), Event{Collection: "ouvriers", Kind: Insert}))
	assert.Equal(t, 2, calls)
	require.NoError(t, hub.Publish(context.Background(), Event{Collection: "ouvriers", Kind: Insert}))
	assert.Equal(t, 3, calls)
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	var mu sync.Mutex
	seen := map[string]EventKind{}
	for _, c := range []string{"chantiers", "clients"} {
		_, err := hub.Subscribe(context.Background(), c, nil, func(evt Event) {
			mu.Lock()
			seen[evt.Collection] = evt.Kind
			mu.Unlock()
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"chantiers", "clients"}, hub.Collections())
	require.NoError(t, hub.Broadcast(context.Background(), FormRefresh))
	assert.Equal(t, map[string]EventKind{"chantiers": FormRefresh, "clients": FormRefresh}, seen)
}

func TestHub_panicHandler(t *testing.T) {
	hub := NewHub()
	var recovered interface{}
	hub.SetPanicHandler(func(evt Event, v interface{}) { recovered = v })

	after := false
	_, err := hub.Subscribe(context.Background(), "clients", nil, func(Event) { panic("boom") })
	require.NoError(t, err)
	_, err = hub.Subscribe(context.Background(), "clients", nil, func(Event) { after = true })
	require.NoError(t, err)

	require.NoError(t, hub.Publish(context.Background(), Event{Collection: "clients", Kind: Insert}))
	assert.Equal(t, "boom", recovered)
	assert.True(t, after)
}

func TestSubscriptionFunc(t *testing.T) {
	calls := 0
	sub := SubscriptionFunc(func() error {
		calls++
		return nil
	})
	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	assert.Equal(t, 1, calls)
}
