package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/deepweb1970/gestionchantier-sub001/apps/api/echo"
	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
	"github.com/deepweb1970/gestionchantier-sub001/core/rapport"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
	testutil "github.com/deepweb1970/gestionchantier-sub001/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testApp struct {
	env  *testutil.Env
	srv  echoapi.Server
	dash *rapport.Dashboard
}

type setupOptions struct {
	dashboard bool
	configure func(conf *core.Config)
}

type setupOption func(*setupOptions)

// withDashboard activates a live dashboard over the environment.
func withDashboard() setupOption {
	return func(o *setupOptions) { o.dashboard = true }
}

func withConfig(configure func(conf *core.Config)) setupOption {
	return func(o *setupOptions) { o.configure = configure }
}

// setup serves the API over an in-memory environment.
func setup(t *testing.T, opts ...setupOption) *testApp {
	t.Helper()
	var options setupOptions
	for _, opt := range opts {
		opt(&options)
	}

	env := testutil.NewEnv(t)
	env.Conf.Server.DisableReqLogs = true
	if options.configure != nil {
		options.configure(env.Conf)
	}

	var dash *rapport.Dashboard
	if options.dashboard {
		dash = rapport.NewDashboard(env.Hub, rapport.Fetchers{
			Chantiers: func(ctx context.Context) ([]chantier.Chantier, error) { return env.ChantierSvc.Query(ctx, nil, nil) },
			Ouvriers:  func(ctx context.Context) ([]ouvrier.Ouvrier, error) { return env.OuvrierSvc.Query(ctx, nil, nil) },
			Saisies:   func(ctx context.Context) ([]heure.Saisie, error) { return env.SaisieSvc.Query(ctx, nil, nil) },
			Factures:  func(ctx context.Context) ([]facture.Facture, error) { return env.FactureSvc.Query(ctx, nil, nil) },
			Materiel:  func(ctx context.Context) ([]materiel.Materiel, error) { return env.MaterielSvc.Query(ctx, nil, nil) },
		}, rapport.DashboardOptions{Logger: env.Logger})
		if err := dash.Activate(context.Background()); err != nil {
			t.Fatalf("activating dashboard: %v", err)
		}
		t.Cleanup(func() { _ = dash.Deactivate() })
	}

	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       env.Conf,
		Logger:     env.Logger,
		Validate:   env.Validate,
		Translator: env.Translator,
		Broker:     env.Hub,
		Dashboard:  dash,
		ReportSvc: rapport.NewService(
			env.ChantierRepo, env.OuvrierRepo, env.SaisieRepo, env.FactureRepo, env.SaisieSvc.Policy(),
		),
		UserSvc:     env.UserSvc,
		ClientSvc:   env.ClientSvc,
		ChantierSvc: env.ChantierSvc,
		OuvrierSvc:  env.OuvrierSvc,
		MaterielSvc: env.MaterielSvc,
		FactureSvc:  env.FactureSvc,
		SaisieSvc:   env.SaisieSvc,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testApp{env: env, srv: srv, dash: dash}
}

// do serves a request & returns its recorder.
func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.srv.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) createUser(t *testing.T, uname, role string) (user.User, string) {
	t.Helper()
	usr := testutil.CreateUser(t, app.env.UserRepo, "User "+uname, uname, uname+"@example.com", "P@ssw0rd!", role, true)
	return usr, getToken(t, app.env, usr)
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, env *testutil.Env, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(env.Conf, echoapi.GetUserClaims(env.Conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshalBody(): %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
