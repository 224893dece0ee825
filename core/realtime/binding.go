// Package realtime keeps local snapshots of remote collections in sync with their change notifications.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

// FetchFunc returns the full current contents of a collection.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusReady
	StatusErrored
	StatusDeactivated
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusErrored:
		return "errored"
	case StatusDeactivated:
		return "deactivated"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// State is a point-in-time copy of a Binding.
type State[T any] struct {
	Data    []T
	Loading bool
	Err     error
}

// Options configures a Binding. The zero value refetches the whole collection on every notification.
type Options[T any] struct {
	// Seed is the initial snapshot, kept until the first successful fetch.
	Seed []T

	// Debounce coalesces notifications received within this window into a single fetch.
	Debounce time.Duration

	// Key identifies a row. When set, INSERT/UPDATE/DELETE events carrying a JSON payload are applied
	// to the snapshot directly instead of triggering a refetch.
	Key func(T) string

	// Less restores the snapshot order after an incremental change.
	Less func(a, b T) bool

	// OnChange is called after every state transition, in order and never concurrently.
	// It may call Refresh or Deactivate; the states they produce are delivered after it returns.
	OnChange func(State[T])

	Logger core.Logger
}

// Binding keeps a snapshot of a collection up to date:
// it fetches on activation and refetches whenever the collection changes.
type Binding[T any] struct {
	sub        Subscriber
	collection string
	fetch      FetchFunc[T]
	opts       Options[T]

	mu           sync.Mutex
	data         []T
	err          error
	status       Status
	activated    bool
	inflight     int
	started      uint64 // sequence number of the last started fetch
	committed    uint64 // sequence number reflected by data
	gen          uint64
	ctx          context.Context
	cancel       context.CancelFunc
	subscription Subscription
	timer        *time.Timer

	emitMu   sync.Mutex
	pending  []State[T]
	emitting bool
	wg       sync.WaitGroup
}

// NewBinding returns an inactive Binding to `collection`; call Activate to start it.
func NewBinding[T any](sub Subscriber, collection string, fetch FetchFunc[T], opts *Options[T]) *Binding[T] {
	b := &Binding[T]{
		sub:        sub,
		collection: collection,
		fetch:      fetch,
	}
	if opts != nil {
		b.opts = *opts
	}
	if b.opts.Logger == nil {
		b.opts.Logger = nopLogger{}
	}
	if b.opts.Seed != nil {
		b.data = append(make([]T, 0, len(b.opts.Seed)), b.opts.Seed...)
	}
	return b
}

func (b *Binding[T]) Collection() string { return b.collection }

// Activate performs the initial fetch then subscribes to INSERT, UPDATE, DELETE & FormRefresh events.
// A fetch failure is only recorded in the state; a subscription failure is recorded and returned.
func (b *Binding[T]) Activate(ctx context.Context) error {
	err := checkArgs(
		given(b.sub != nil, "sub"),
		vala.StringNotEmpty(b.collection, "collection"),
		given(b.fetch != nil, "fetch"),
	)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.status == StatusDeactivated {
		b.mu.Unlock()
		return ErrDeactivated
	}
	if b.activated {
		b.mu.Unlock()
		return ErrAlreadyActivated
	}
	b.activated = true
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()

	_ = b.run(ctx)

	sub, err := b.sub.Subscribe(ctx, b.collection, AllKinds, b.notify)
	if err != nil {
		serr := &SubscriptionError{Collection: b.collection, Err: err}
		b.opts.Logger.Error(fmt.Sprintf("realtime: %v", serr), serr)

		b.mu.Lock()
		if b.status != StatusDeactivated {
			b.err = serr
			b.status = b.settledStatus()
		}
		b.mu.Unlock()
		b.emit()
		return serr
	}

	b.mu.Lock()
	if b.status == StatusDeactivated {
		b.mu.Unlock()
		_ = sub.Unsubscribe()
		return ErrDeactivated
	}
	b.subscription = sub
	b.mu.Unlock()
	return nil
}

// Deactivate releases the subscription. Pending fetches are cancelled and their results discarded.
func (b *Binding[T]) Deactivate() error {
	b.mu.Lock()
	if b.status == StatusDeactivated {
		b.mu.Unlock()
		return nil
	}
	b.status = StatusDeactivated
	b.gen++
	if b.cancel != nil {
		b.cancel()
	}
	if b.timer != nil && b.timer.Stop() {
		b.wg.Done()
	}
	b.timer = nil
	sub := b.subscription
	b.subscription = nil
	b.mu.Unlock()

	b.emit()
	if sub != nil {
		return errors.Wrap(sub.Unsubscribe(), "unsubscribing")
	}
	return nil
}

// Refresh fetches the collection now, whether or not the subscription is active.
func (b *Binding[T]) Refresh(ctx context.Context) error {
	return b.run(ctx)
}

// State returns a copy of the current snapshot.
func (b *Binding[T]) State() State[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Binding[T]) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Wait blocks until the fetches triggered by notifications have settled.
func (b *Binding[T]) Wait() {
	b.wg.Wait()
}

func (b *Binding[T]) stateLocked() State[T] {
	st := State[T]{
		Loading: b.inflight > 0 && b.status != StatusDeactivated,
		Err:     b.err,
	}
	if b.data != nil {
		st.Data = append(make([]T, 0, len(b.data)), b.data...)
	}
	return st
}

func (b *Binding[T]) settledStatus() Status {
	switch {
	case b.inflight > 0:
		return StatusLoading
	case b.err != nil:
		return StatusErrored
	}
	return StatusReady
}

// run performs one fetch and commits its result unless the binding was deactivated meanwhile
// or a fetch started later has already been committed.
func (b *Binding[T]) run(ctx context.Context) error {
	b.mu.Lock()
	if b.status == StatusDeactivated {
		b.mu.Unlock()
		return ErrDeactivated
	}
	gen := b.gen
	b.started++
	seq := b.started
	b.inflight++
	b.status = StatusLoading
	b.mu.Unlock()
	b.emit()

	data, err := b.fetch(ctx)
	var ferr *FetchError
	if err != nil {
		ferr = &FetchError{Collection: b.collection, Err: err}
	}

	b.mu.Lock()
	b.inflight--
	if gen != b.gen {
		b.mu.Unlock()
		return ErrDeactivated
	}
	if seq > b.committed {
		b.committed = seq
		if ferr != nil {
			b.err = ferr
		} else {
			b.data = append(make([]T, 0, len(data)), data...)
			b.err = nil
		}
	}
	b.status = b.settledStatus()
	b.mu.Unlock()
	b.emit()

	if ferr != nil {
		b.opts.Logger.Warn(fmt.Sprintf("realtime: %v", ferr), ferr)
		return ferr
	}
	return nil
}

// notify is the subscription callback.
func (b *Binding[T]) notify(evt Event) {
	if evt.Collection != "" && evt.Collection != b.collection {
		return
	}
	if b.apply(evt) {
		return
	}
	b.schedule()
}

func (b *Binding[T]) schedule() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == StatusDeactivated {
		return
	}
	if b.opts.Debounce <= 0 {
		b.wg.Add(1)
		go b.fire(b.ctx)
		return
	}
	if b.timer != nil && b.timer.Stop() {
		// still pending: push it back, its wg slot is already held
		b.timer.Reset(b.opts.Debounce)
		return
	}
	b.wg.Add(1)
	ctx := b.ctx
	b.timer = time.AfterFunc(b.opts.Debounce, func() { b.fire(ctx) })
}

func (b *Binding[T]) fire(ctx context.Context) {
	defer b.wg.Done()
	_ = b.run(ctx)
}

// apply reports whether evt was applied to the snapshot without refetching.
func (b *Binding[T]) apply(evt Event) bool {
	if b.opts.Key == nil || evt.Kind == FormRefresh {
		return false
	}
	raw := evt.Payload
	if evt.Kind == Delete && emptyJSON(raw) {
		raw = evt.OldPayload
	}
	if emptyJSON(raw) {
		return false
	}

	var row T
	if err := json.Unmarshal(raw, &row); err != nil {
		b.opts.Logger.Debug(fmt.Sprintf("realtime: decoding %s payload on %q: %v", evt.Kind, b.collection, err))
		return false
	}
	key := b.opts.Key(row)
	if key == "" {
		return false
	}

	b.mu.Lock()
	if b.status == StatusDeactivated {
		b.mu.Unlock()
		return true
	}
	idx := -1
	for i := range b.data {
		if b.opts.Key(b.data[i]) == key {
			idx = i
			break
		}
	}
	switch evt.Kind {
	case Insert, Update:
		if idx >= 0 {
			b.data[idx] = row
		} else {
			b.data = append(b.data, row)
		}
	case Delete:
		if idx >= 0 {
			b.data = append(b.data[:idx], b.data[idx+1:]...)
		}
	}
	if b.opts.Less != nil {
		sort.SliceStable(b.data, func(i, j int) bool { return b.opts.Less(b.data[i], b.data[j]) })
	}
	// fetches started before this change may not include it
	b.committed = b.started
	b.mu.Unlock()

	b.emit()
	return true
}

// emit queues the current state for OnChange. The first caller delivers the queue in order;
// callers arriving meanwhile, OnChange itself included, return at once.
func (b *Binding[T]) emit() {
	if b.opts.OnChange == nil {
		return
	}
	b.emitMu.Lock()
	b.pending = append(b.pending, b.State())
	if b.emitting {
		b.emitMu.Unlock()
		return
	}
	b.emitting = true
	b.emitMu.Unlock()

	delivered := false
	defer func() {
		if !delivered { // OnChange panicked
			b.emitMu.Lock()
			b.emitting = false
			b.emitMu.Unlock()
		}
	}()
	for {
		b.emitMu.Lock()
		if len(b.pending) == 0 {
			b.emitting = false
			b.emitMu.Unlock()
			delivered = true
			return
		}
		st := b.pending[0]
		b.pending = b.pending[1:]
		b.emitMu.Unlock()
		b.opts.OnChange(st)
	}
}

func emptyJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
