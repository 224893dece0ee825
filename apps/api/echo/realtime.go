package echoapi

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

const (
	collectionParam = "collection"
	maxClientFrame  = 512
)

type realtimeApi struct {
	broker   Broker
	logger   core.Logger
	conf     core.RealtimeConfig
	upgrader websocket.Upgrader
}

func registerRealtimeAPI(g *echo.Group, jwt echo.MiddlewareFunc, broker Broker, logger core.Logger, conf core.RealtimeConfig) {
	api := &realtimeApi{
		broker: broker,
		logger: logger,
		conf:   conf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true }, // token auth, no cookies
		},
	}

	rg := g.Group("/realtime")
	rg.GET("", api.stream, tokenFromQuery, jwt)
	rg.POST("/refresh", api.refresh, jwt)
}

// tokenFromQuery accepts the JWT as `?token=`: browsers cannot set headers on websocket handshakes.
func tokenFromQuery(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		if token := ctx.QueryParam("token"); token != "" && req.Header.Get(echo.HeaderAuthorization) == "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		return next(ctx)
	}
}

func (api *realtimeApi) authorize(ctx echo.Context, collections []string) error {
	claims, err := contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	for _, collection := range collections {
		if !user.HasPermission(claims.Role, user.ReadPermission(collection)) {
			return errHttpForbidden
		}
	}
	return nil
}

// stream upgrades the connection to a websocket and writes the events of the requested collections as JSON.
// Events that do not fit in the buffer are replaced by a form_refresh of their collection.
func (api *realtimeApi) stream(ctx echo.Context) error {
	collections := ctx.QueryParams()[collectionParam]
	if len(collections) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one collection is required")
	}
	if err := api.authorize(ctx, collections); err != nil {
		return err
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		api.logger.Debug(fmt.Sprintf("realtime: upgrading connection: %v", err))
		return nil
	}
	//goland:noinspection GoUnhandledErrorResult
	defer conn.Close()

	bufSize := api.conf.BufferSize
	if bufSize <= 0 {
		bufSize = 64
	}
	var (
		events  = make(chan realtime.Event, bufSize)
		lagging = make(chan struct{}, 1)
		lagMu   sync.Mutex
		lagged  = make(map[string]bool)
	)
	onEvent := func(evt realtime.Event) {
		select {
		case events <- evt:
		default:
			lagMu.Lock()
			lagged[evt.Collection] = true
			lagMu.Unlock()
			select {
			case lagging <- struct{}{}:
			default:
			}
		}
	}

	for _, collection := range collections {
		sub, err := api.broker.Subscribe(ctx.Request().Context(), collection, realtime.AllKinds, onEvent)
		if err != nil {
			api.logger.Error(fmt.Sprintf("realtime: subscribing to %q: %v", collection, err), err)
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
				time.Now().Add(api.writeTimeout()),
			)
			return nil
		}
		//goland:noinspection GoDeferInLoop
		defer func() { _ = sub.Unsubscribe() }()
	}

	done := make(chan struct{})
	go api.readPump(conn, done)
	api.writePump(conn, done, events, lagging, func() []string {
		lagMu.Lock()
		defer lagMu.Unlock()
		colls := make([]string, 0, len(lagged))
		for c := range lagged {
			colls = append(colls, c)
		}
		lagged = make(map[string]bool)
		sort.Strings(colls)
		return colls
	})
	return nil
}

func (api *realtimeApi) writeTimeout() time.Duration {
	if api.conf.WriteTimeout > 0 {
		return api.conf.WriteTimeout
	}
	return 10 * time.Second
}

func (api *realtimeApi) pingPeriod() time.Duration {
	if api.conf.PingPeriod > 0 {
		return api.conf.PingPeriod
	}
	return 30 * time.Second
}

// readPump discards client frames & closes done once the peer is gone.
func (api *realtimeApi) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	pongWait := api.pingPeriod() * 10 / 9
	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				api.logger.Debug(fmt.Sprintf("realtime: reading: %v", err))
			}
			return
		}
	}
}

func (api *realtimeApi) writePump(
	conn *websocket.Conn,
	done <-chan struct{},
	events <-chan realtime.Event,
	lagging <-chan struct{},
	takeLagged func() []string,
) {
	ticker := time.NewTicker(api.pingPeriod())
	defer ticker.Stop()

	write := func(evt realtime.Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(api.writeTimeout()))
		if err := conn.WriteJSON(evt); err != nil {
			api.logger.Debug(fmt.Sprintf("realtime: writing: %v", err))
			return false
		}
		return true
	}

	for {
		select {
		case <-done:
			return
		case evt := <-events:
			if !write(evt) {
				return
			}
		case <-lagging:
			for _, collection := range takeLagged() {
				if !write(realtime.Event{Collection: collection, Kind: realtime.FormRefresh}) {
					return
				}
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(api.writeTimeout())); err != nil {
				return
			}
		}
	}
}

// refresh asks every binding of a collection to refetch. Without collection, all of them are refreshed (admin only).
func (api *realtimeApi) refresh(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	reqCtx := ctx.Request().Context()

	if data.Collection == "" {
		claims, err := contextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.Role != user.RoleAdmin {
			return errHttpForbidden
		}
		if err := api.broker.Broadcast(reqCtx, realtime.FormRefresh); err != nil {
			return errors.Wrap(err, "broadcasting form_refresh")
		}
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.authorize(ctx, []string{data.Collection}); err != nil {
		return err
	}
	if err := api.broker.Publish(reqCtx, realtime.Event{Collection: data.Collection, Kind: realtime.FormRefresh}); err != nil {
		return errors.Wrap(err, "publishing form_refresh")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type RefreshRequest struct {
	Collection string `json:"collection" query:"collection"`
}
