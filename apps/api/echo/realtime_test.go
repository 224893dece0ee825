package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/deepweb1970/gestionchantier-sub001/apps/api/echo"
	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
	testutil "github.com/deepweb1970/gestionchantier-sub001/tests"
)

// dial opens the realtime stream of `collections` & waits for its subscriptions.
func dial(t *testing.T, app *testApp, token string, collections ...string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(app.srv)
	t.Cleanup(ts.Close)

	v := url.Values{"token": {token}, "collection": collections}
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/realtime?" + v.Encode()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		for _, c := range collections {
			if !app.env.Hub.HasSubscribers(c) {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) realtime.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt realtime.Event
	require.NoError(t, conn.ReadJSON(&evt))
	return evt
}

func Test_realtimeApi_handshake(t *testing.T) {
	app := setup(t)
	_, workerToken := app.createUser(t, "worker", user.RoleOuvrier)
	ts := httptest.NewServer(app.srv)
	defer ts.Close()

	get := func(query string) int {
		resp, err := http.Get(ts.URL + "/v1/realtime?" + query)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, get("collection=chantiers"))
	assert.Equal(t, http.StatusBadRequest, get("token="+workerToken))
	assert.Equal(t, http.StatusForbidden, get("token="+workerToken+"&collection=chantiers&collection=factures"))
	// not a websocket handshake
	assert.Equal(t, http.StatusBadRequest, get("token="+workerToken+"&collection=chantiers"))
}

func Test_realtimeApi_stream(t *testing.T) {
	app := setup(t)
	_, token := app.createUser(t, "manager", user.RoleManager)
	conn := dial(t, app, token, chantier.Collection, facture.Collection)

	cl := testutil.CreateClient(t, app.env.ClientRepo, "Mairie", "mairie@example.com")
	rec := app.do(http.MethodPost, "/v1/chantiers", token, marshalObj(t, chantier.NewChantier{
		Name: "Ecole", ClientID: cl.ID, StartDate: testutil.Date(2024, time.March, 4),
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var site chantier.Chantier
	unmarshalBody(t, rec, &site)

	evt := readEvent(t, conn)
	assert.Equal(t, chantier.Collection, evt.Collection)
	assert.Equal(t, realtime.Insert, evt.Kind)
	var payload chantier.Chantier
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, site.ID, payload.ID)

	// clients are not streamed
	testutil.CreateClient(t, app.env.ClientRepo, "BTP SA", "btp@example.com")

	rec = app.do(http.MethodDelete, "/v1/chantiers/"+site.ID, token)
	require.Equal(t, http.StatusNoContent, rec.Code)
	evt = readEvent(t, conn)
	assert.Equal(t, chantier.Collection, evt.Collection)
	assert.Equal(t, realtime.Delete, evt.Kind)

	t.Run("refresh", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/realtime/refresh", token, marshalObj(t, echoapi.RefreshRequest{Collection: facture.Collection}))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		evt := readEvent(t, conn)
		assert.Equal(t, realtime.Event{Collection: facture.Collection, Kind: realtime.FormRefresh}, evt)

		// everything at once is for admins
		rec = app.do(http.MethodPost, "/v1/realtime/refresh", token, []byte(`{}`))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		_, adminToken := app.createUser(t, "admin", user.RoleAdmin)
		rec = app.do(http.MethodPost, "/v1/realtime/refresh", adminToken, []byte(`{}`))
		require.Equal(t, http.StatusNoContent, rec.Code)
		got := map[string]bool{}
		for i := 0; i < 2; i++ {
			evt := readEvent(t, conn)
			assert.Equal(t, realtime.FormRefresh, evt.Kind)
			got[evt.Collection] = true
		}
		assert.Equal(t, map[string]bool{chantier.Collection: true, facture.Collection: true}, got)
	})

	t.Run("unsubscribes on close", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
		require.Eventually(t, func() bool {
			return !app.env.Hub.HasSubscribers(chantier.Collection)
		}, time.Second, 5*time.Millisecond)
	})
}

func Test_realtimeApi_lagging(t *testing.T) {
	app := setup(t, withConfig(func(conf *core.Config) { conf.Realtime.BufferSize = 1 }))
	_, token := app.createUser(t, "manager", user.RoleManager)
	conn := dial(t, app, token, chantier.Collection)

	ctx := context.Background()
	for i := 0; i < 200; i++ {
		require.NoError(t, app.env.Hub.Publish(ctx, realtime.Event{Collection: chantier.Collection, Kind: realtime.Update}))
	}

	// every event is delivered or replaced by a form_refresh
	var refreshed bool
	for i := 0; i < 200 && !refreshed; i++ {
		evt := readEvent(t, conn)
		assert.Equal(t, chantier.Collection, evt.Collection)
		refreshed = evt.Kind == realtime.FormRefresh
	}
	assert.True(t, refreshed, "lagging stream got a form_refresh")
}
