package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
)

const closeTimeout = time.Second

// WSSubscriber receives the change notifications of the API over its realtime websocket.
// Every subscription opens its own connection.
type WSSubscriber struct {
	client *Client
	dialer *websocket.Dialer
	logger core.Logger
}

var _ realtime.Subscriber = (*WSSubscriber)(nil)

func NewWSSubscriber(c *Client, logger core.Logger) *WSSubscriber {
	return &WSSubscriber{client: c, dialer: websocket.DefaultDialer, logger: logger}
}

func (s *WSSubscriber) streamURL(collection string) (string, error) {
	u, err := url.Parse(s.client.baseURL + apiPrefix + "/realtime")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := url.Values{"collection": {collection}}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe dials the stream of `collection` and calls fn for every event of `kinds` until unsubscribed.
// fn runs on the connection's read goroutine and may unsubscribe. No call of fn starts after Unsubscribe returns.
func (s *WSSubscriber) Subscribe(ctx context.Context, collection string, kinds []realtime.EventKind, fn func(realtime.Event)) (realtime.Subscription, error) {
	if err := realtime.CheckSubscription(collection, kinds, fn); err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		kinds = realtime.AllKinds
	}
	wanted := make(map[realtime.EventKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	wsURL, err := s.streamURL(collection)
	if err != nil {
		return nil, errors.Wrap(err, "building stream URL")
	}
	header := make(http.Header)
	if s.client.token != "" {
		header.Set("Authorization", "Bearer "+s.client.token)
	}
	conn, resp, err := s.dialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(&APIError{StatusCode: resp.StatusCode}, "subscribing to %q", collection)
		}
		return nil, errors.Wrapf(err, "subscribing to %q", collection)
	}

	var closing, inCallback int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt realtime.Event
			if err := conn.ReadJSON(&evt); err != nil {
				if atomic.LoadInt32(&closing) == 0 && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					s.logger.Error(fmt.Sprintf("realtime stream of %q closed: %v", collection, err), err)
				}
				return
			}
			if evt.Collection == collection && wanted[evt.Kind] && atomic.LoadInt32(&closing) == 0 {
				atomic.StoreInt32(&inCallback, 1)
				fn(evt)
				atomic.StoreInt32(&inCallback, 0)
			}
		}
	}()

	return realtime.SubscriptionFunc(func() error {
		atomic.StoreInt32(&closing, 1)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
		err := conn.Close()
		// fn may be the caller: the reader exits once it returns
		if atomic.LoadInt32(&inCallback) == 0 {
			<-done
		}
		return err
	}), nil
}
