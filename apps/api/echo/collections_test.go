package echoapi_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/client"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
	testutil "github.com/deepweb1970/gestionchantier-sub001/tests"
)

func Test_collectionApi_permissions(t *testing.T) {
	app := setup(t)
	_, comptableToken := app.createUser(t, "compta", user.RoleComptable)
	_, workerToken := app.createUser(t, "worker", user.RoleOuvrier)
	_, chefToken := app.createUser(t, "chef", user.RoleChefChantier)
	forbidden := marshalObj(t, httpErr{Error: "permission denied"})

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/chantiers", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "worker reads chantiers", path: "/v1/chantiers", token: workerToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{
			name: "worker cannot write chantiers", method: http.MethodPost, path: "/v1/chantiers", token: workerToken,
			body: []byte(`{}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "worker cannot read factures", path: "/v1/factures", token: workerToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "comptable reads factures", path: "/v1/factures", token: comptableToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "comptable cannot read materiel", path: "/v1/materiel", token: comptableToken, wantCode: http.StatusForbidden},
		{
			name: "comptable cannot delete chantiers", method: http.MethodDelete, path: "/v1/chantiers?id=" + uuid.NewString(),
			token: comptableToken, wantCode: http.StatusForbidden,
		},
		{name: "chef reads clients", path: "/v1/clients", token: chefToken, wantCode: http.StatusOK},
		{
			name: "chef cannot write clients", method: http.MethodPost, path: "/v1/clients", token: chefToken,
			body: []byte(`{}`), wantCode: http.StatusForbidden,
		},
	})
}

func Test_collectionApi_chantiers(t *testing.T) {
	app := setup(t)
	_, token := app.createUser(t, "manager", user.RoleManager)
	cl := testutil.CreateClient(t, app.env.ClientRepo, "Mairie de Lyon", "mairie@example.com")

	var created chantier.Chantier
	t.Run("create", func(t *testing.T) {
		nc := chantier.NewChantier{
			Name:      "  Ecole Jaurès ",
			ClientID:  cl.ID,
			StartDate: testutil.Date(2024, time.March, 4),
			Budget:    12000.456,
		}
		rec := app.do(http.MethodPost, "/v1/chantiers", token, marshalObj(t, nc))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshalBody(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Ecole Jaurès", created.Name)
		assert.Equal(t, chantier.StatusPlanifie, created.Status)
		assert.Equal(t, 12000.46, created.Budget)
	})

	t.Run("create (invalid)", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/chantiers", token, []byte(`{"name":" ","client_id":"lol","budget":-1}`))
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		var fields map[string]string
		unmarshalBody(t, rec, &fields)
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "client_id")
		assert.Contains(t, fields, "start_date")
		assert.Contains(t, fields, "budget")
	})

	t.Run("retrieve", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/chantiers/"+created.ID, token)
		require.Equal(t, http.StatusOK, rec.Code)
		var got chantier.Chantier
		unmarshalBody(t, rec, &got)
		assert.Equal(t, created.ID, got.ID)

		rec = app.do(http.MethodGet, "/v1/chantiers/"+uuid.NewString(), token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"chantier not found"}`, rec.Body.String())
	})

	t.Run("update", func(t *testing.T) {
		nc := chantier.NewChantier{
			Name:      "Ecole Jean Jaurès",
			ClientID:  cl.ID,
			Status:    "ACTIF",
			StartDate: created.StartDate,
			Budget:    15000,
		}
		rec := app.do(http.MethodPut, "/v1/chantiers/"+created.ID, token, marshalObj(t, nc))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got chantier.Chantier
		unmarshalBody(t, rec, &got)
		assert.Equal(t, "Ecole Jean Jaurès", got.Name)
		assert.Equal(t, chantier.StatusActif, got.Status)
		assert.Equal(t, 15000.0, got.Budget)

		rec = app.do(http.MethodPut, "/v1/chantiers/"+uuid.NewString(), token, marshalObj(t, nc))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("query", func(t *testing.T) {
		testutil.CreateChantier(t, app.env.ChantierRepo, cl.ID, "Gymnase", chantier.StatusPlanifie, 5000)
		testutil.CreateChantier(t, app.env.ChantierRepo, cl.ID, "Piscine", chantier.StatusTermine, 80000)

		query := func(v url.Values) []string {
			rec := app.do(http.MethodGet, "/v1/chantiers?"+v.Encode(), token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var sites []chantier.Chantier
			unmarshalBody(t, rec, &sites)
			names := make([]string, 0, len(sites))
			for _, s := range sites {
				names = append(names, s.Name)
			}
			return names
		}

		assert.Equal(t, []string{"Ecole Jean Jaurès", "Gymnase", "Piscine"}, query(url.Values{"ordering": {"name"}}))
		assert.Equal(t, []string{"Piscine", "Gymnase", "Ecole Jean Jaurès"}, query(url.Values{"ordering": {"-name"}}))
		assert.Equal(t, []string{"Piscine", "Ecole Jean Jaurès", "Gymnase"}, query(url.Values{"ordering": {"-budget"}}))
		assert.Equal(t, []string{"Gymnase"}, query(url.Values{"search": {"gymn"}}))
		assert.ElementsMatch(t,
			[]string{"Ecole Jean Jaurès", "Piscine"},
			query(url.Values{"status": {chantier.StatusActif, chantier.StatusTermine}}),
		)
		assert.Empty(t, query(url.Values{"client_id": {uuid.NewString()}}))
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/v1/chantiers/"+created.ID, token)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = app.do(http.MethodDelete, "/v1/chantiers/"+created.ID, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = app.do(http.MethodGet, "/v1/chantiers", token)
		var sites []chantier.Chantier
		unmarshalBody(t, rec, &sites)
		require.Len(t, sites, 2)

		rec = app.do(http.MethodDelete, "/v1/chantiers?id="+sites[0].ID+"&id="+sites[1].ID, token)
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = app.do(http.MethodGet, "/v1/chantiers", token)
		assert.JSONEq(t, `[]`, rec.Body.String())

		// nothing to delete
		rec = app.do(http.MethodDelete, "/v1/chantiers", token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_collectionApi_clients(t *testing.T) {
	app := setup(t)
	_, token := app.createUser(t, "compta", user.RoleComptable)

	runHTTPTests(t, app, []httpTest{
		{
			name: "siret required for companies", method: http.MethodPost, path: "/v1/clients", token: token,
			body:     marshalObj(t, client.NewClient{Name: "BTP SA", Kind: client.KindEntreprise}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown kind", method: http.MethodPost, path: "/v1/clients", token: token,
			body:     marshalObj(t, client.NewClient{Name: "BTP SA", Kind: "lol"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "company", method: http.MethodPost, path: "/v1/clients", token: token,
			body:     marshalObj(t, client.NewClient{Name: "BTP SA", Kind: client.KindEntreprise, Siret: "73282932000074"}),
			wantCode: http.StatusCreated,
		},
		{
			name: "individual", method: http.MethodPost, path: "/v1/clients", token: token,
			body:     marshalObj(t, client.NewClient{Name: "Jean Dupont", Kind: client.KindParticulier, Email: "jean@example.com"}),
			wantCode: http.StatusCreated,
		},
	})

	rec := app.do(http.MethodGet, "/v1/clients?kind="+client.KindEntreprise, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var clients []client.Client
	unmarshalBody(t, rec, &clients)
	require.Len(t, clients, 1)
	assert.Equal(t, "BTP SA", clients[0].Name)
}

func Test_collectionApi_materiel(t *testing.T) {
	app := setup(t)
	_, token := app.createUser(t, "chef", user.RoleChefChantier)
	past := time.Now().UTC().AddDate(0, 0, -2)
	grue := testutil.CreateMateriel(t, app.env.MaterielRepo, "Grue", materiel.StatusDisponible, &past)

	runHTTPTests(t, app, []httpTest{
		{name: "invalid due_before", path: "/v1/materiel?due_before=lol", token: token, wantCode: http.StatusBadRequest},
		{
			name: "due_before", path: "/v1/materiel?due_before=" + url.QueryEscape(time.Now().UTC().Format(time.RFC3339)),
			token: token, wantCode: http.StatusOK,
		},
		{name: "maintenance not found", path: "/v1/maintenances/" + uuid.NewString(), token: token, wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "maintenance not found"})},
	})

	nm := materiel.NewMaintenance{
		MaterielID:    grue.ID,
		Kind:          "preventive",
		ScheduledDate: time.Now().UTC(),
	}
	rec := app.do(http.MethodPost, "/v1/maintenances", token, marshalObj(t, nm))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var mnt materiel.Maintenance
	unmarshalBody(t, rec, &mnt)
	assert.Equal(t, materiel.MaintenancePlanifiee, mnt.Status)

	rec = app.do(http.MethodGet, "/v1/maintenances?materiel_id="+grue.ID, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var mnts []materiel.Maintenance
	unmarshalBody(t, rec, &mnts)
	require.Len(t, mnts, 1)
	assert.Equal(t, mnt.ID, mnts[0].ID)

	// deleting the equipment removes its maintenances
	rec = app.do(http.MethodDelete, "/v1/materiel/"+grue.ID, token)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, "/v1/maintenances/"+mnt.ID, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
