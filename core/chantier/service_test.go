package chantier_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	clt := testutil.CreateClient(t, env.ClientRepo, "Dupont", "")

	start := testutil.Date(2024, time.March, 4)
	before := start.AddDate(0, 0, -1)
	after := start.AddDate(0, 6, 0)

	tests := []struct {
		name       string
		data       chantier.NewChantier
		wantStatus string
		wantField  string
	}{
		{
			name:       "defaults to planifie",
			data:       chantier.NewChantier{Name: "Maison Dupont", ClientID: clt.ID, StartDate: start, EndDate: &after, Budget: 120000.456},
			wantStatus: chantier.StatusPlanifie,
		},
		{
			name:       "explicit status",
			data:       chantier.NewChantier{Name: "Garage", ClientID: clt.ID, Status: " ACTIF ", StartDate: start},
			wantStatus: chantier.StatusActif,
		},
		{name: "end before start", data: chantier.NewChantier{Name: "X", ClientID: clt.ID, StartDate: start, EndDate: &before}, wantField: "end_date"},
		{name: "negative budget", data: chantier.NewChantier{Name: "X", ClientID: clt.ID, StartDate: start, Budget: -1}, wantField: "budget"},
		{name: "bad client", data: chantier.NewChantier{Name: "X", ClientID: "nope", StartDate: start}, wantField: "client_id"},
		{name: "unknown status", data: chantier.NewChantier{Name: "X", ClientID: clt.ID, Status: "fini", StartDate: start}, wantField: "status"},
		{name: "no start date", data: chantier.NewChantier{Name: "X", ClientID: clt.ID}, wantField: "start_date"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := env.ChantierSvc.Create(ctx, tc.data)
			if tc.wantField != "" {
				assert.Contains(t, testutil.ErrorFields(err), tc.wantField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, c.Status)
			assert.Equal(t, core.RoundCents(tc.data.Budget), c.Budget)
		})
	}

	actif, err := env.ChantierSvc.Query(ctx, &chantier.QueryFilter{Statuses: []string{chantier.StatusActif}}, nil)
	require.NoError(t, err)
	require.Len(t, actif, 1)
	assert.Equal(t, "Garage", actif[0].Name)
	assert.True(t, actif[0].IsActive())
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	clt := testutil.CreateClient(t, env.ClientRepo, "Dupont", "")
	c := testutil.CreateChantier(t, env.ChantierRepo, clt.ID, "Maison", chantier.StatusPlanifie, 1000)

	end := c.StartDate.AddDate(0, 1, 0)
	got, err := env.ChantierSvc.Update(ctx, c.ID, chantier.NewChantier{
		Name: "Maison Dupont", ClientID: clt.ID, Status: chantier.StatusTermine, StartDate: c.StartDate, EndDate: &end, Budget: 1500,
	})
	require.NoError(t, err)
	assert.Equal(t, chantier.StatusTermine, got.Status)
	require.NotNil(t, got.EndDate)
	assert.True(t, got.EndDate.Equal(end))

	_, err = env.ChantierSvc.GetByID(ctx, "unknown")
	assert.True(t, core.IsNotFound(err))
	assert.EqualError(t, err, "chantier not found")
}
