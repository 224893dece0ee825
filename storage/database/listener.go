package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
)

const listenerPingPeriod = 90 * time.Second

// Listener relays the row changes notified by the database triggers to a realtime.Hub.
// It is a realtime.Subscriber: subscriptions are served by the hub.
type Listener struct {
	hub      *realtime.Hub
	listener *pq.Listener
	channel  string
	logger   core.Logger
}

var _ realtime.Subscriber = (*Listener)(nil)

// NewListener connects a LISTEN session to the app database. Call Run to relay notifications.
func NewListener(conf *core.Config, hub *realtime.Hub, logger core.Logger) (*Listener, error) {
	l := &Listener{hub: hub, channel: conf.Database.NotifyChannel, logger: logger}
	l.listener = pq.NewListener(
		DSN(conf.Database.Name, false, conf),
		conf.Database.MinReconnect,
		conf.Database.MaxReconnect,
		l.onConnectionEvent,
	)
	if err := l.listener.Listen(l.channel); err != nil {
		_ = l.listener.Close()
		return nil, errors.Wrapf(err, "listening to %q", l.channel)
	}
	return l, nil
}

func (l *Listener) Subscribe(ctx context.Context, collection string, kinds []realtime.EventKind, fn func(realtime.Event)) (realtime.Subscription, error) {
	return l.hub.Subscribe(ctx, collection, kinds, fn)
}

// Run relays notifications until ctx is done, then closes the connection.
func (l *Listener) Run(ctx context.Context) error {
	defer func() { _ = l.listener.Close() }()

	ticker := time.NewTicker(listenerPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-l.listener.Notify:
			if !ok {
				return errors.New("listener closed")
			}
			if n == nil {
				// the connection was re-established: notifications may have been missed
				continue
			}
			l.relay(ctx, n.Extra)
		case <-ticker.C:
			go func() {
				if err := l.listener.Ping(); err != nil {
					l.logger.Warn(fmt.Sprintf("database listener: ping: %v", err), err)
				}
			}()
		}
	}
}

func (l *Listener) relay(ctx context.Context, payload string) {
	evt, err := DecodeNotification(payload)
	if err != nil {
		l.logger.Error(fmt.Sprintf("database listener: %v", err), err)
		return
	}
	if err = l.hub.Publish(ctx, evt); err != nil {
		l.logger.Error(fmt.Sprintf("database listener: publishing %s on %q: %v", evt.Kind, evt.Collection, err), err)
	}
}

func (l *Listener) onConnectionEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
		l.logger.Warn(fmt.Sprintf("database listener: connection lost: %v", err), err)
	case pq.ListenerEventReconnected:
		l.logger.Info("database listener: reconnected, refreshing all collections")
		if err := l.hub.Broadcast(context.Background(), realtime.FormRefresh); err != nil {
			l.logger.Error(fmt.Sprintf("database listener: broadcasting refresh: %v", err), err)
		}
	}
}

// DecodeNotification parses the JSON payload sent by the notify_table_change trigger.
func DecodeNotification(payload string) (realtime.Event, error) {
	var evt realtime.Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return realtime.Event{}, errors.Wrap(err, "decoding notification")
	}
	if evt.Collection == "" || !evt.Kind.Valid() {
		return realtime.Event{}, errors.Errorf("invalid notification: %q", payload)
	}
	if string(evt.Payload) == "null" {
		evt.Payload = nil
	}
	if string(evt.OldPayload) == "null" {
		evt.OldPayload = nil
	}
	return evt, nil
}
