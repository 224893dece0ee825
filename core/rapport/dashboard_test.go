package rapport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
	"github.com/deepweb1970/gestionchantier-sub001/core/rapport"
	testutil "github.com/deepweb1970/gestionchantier-sub001/tests"
)

func newFetchers(env *testutil.Env) rapport.Fetchers {
	return rapport.Fetchers{
		Chantiers: func(ctx context.Context) ([]chantier.Chantier, error) {
			return env.ChantierSvc.Query(ctx, nil, nil)
		},
		Ouvriers: func(ctx context.Context) ([]ouvrier.Ouvrier, error) {
			return env.OuvrierSvc.Query(ctx, nil, nil)
		},
		Saisies: func(ctx context.Context) ([]heure.Saisie, error) {
			return env.SaisieSvc.Query(ctx, nil, nil)
		},
		Factures: func(ctx context.Context) ([]facture.Facture, error) {
			return env.FactureSvc.Query(ctx, nil, nil)
		},
		Materiel: func(ctx context.Context) ([]materiel.Materiel, error) {
			return env.MaterielSvc.Query(ctx, nil, nil)
		},
	}
}

func TestDashboard(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	cl := testutil.CreateClient(t, env.ClientRepo, "Mairie", "mairie@example.com")
	site := testutil.CreateChantier(t, env.ChantierRepo, cl.ID, "Ecole", chantier.StatusActif, 10000)
	testutil.CreateChantier(t, env.ChantierRepo, cl.ID, "Gymnase", chantier.StatusPlanifie, 5000)

	alice := testutil.CreateOuvrier(t, env.OuvrierRepo, "Martin", "Alice", 20, ouvrier.StatusActif)
	testutil.CreateOuvrier(t, env.OuvrierRepo, "Durand", "Bruno", 15, ouvrier.StatusActif)
	chloe := testutil.CreateOuvrier(t, env.OuvrierRepo, "Petit", "Chloé", 30, ouvrier.StatusConge)

	monday := heure.WeekStart(now)
	for i := 0; i < 4; i++ {
		testutil.CreateSaisie(t, env.SaisieRepo, alice.ID, site.ID, monday.AddDate(0, 0, i), 10)
	}
	// last week
	testutil.CreateSaisie(t, env.SaisieRepo, alice.ID, site.ID, monday.AddDate(0, 0, -3), 8)

	overdue := testutil.CreateFacture(t, env.FactureRepo, cl.ID, site.ID, facture.StatusEnvoyee, 1000, now.AddDate(0, 0, -10))
	testutil.CreateFacture(t, env.FactureRepo, cl.ID, site.ID, facture.StatusEnvoyee, 500, now.AddDate(0, 1, 0))
	testutil.CreateFacture(t, env.FactureRepo, cl.ID, site.ID, facture.StatusPayee, 200, now.AddDate(0, 0, -10))
	testutil.CreateFacture(t, env.FactureRepo, cl.ID, site.ID, facture.StatusBrouillon, 100, now.AddDate(0, 0, -10))

	past := now.AddDate(0, 0, -1)
	testutil.CreateMateriel(t, env.MaterielRepo, "Grue", materiel.StatusMaintenance, nil)
	testutil.CreateMateriel(t, env.MaterielRepo, "Bétonnière", materiel.StatusDisponible, &past)
	testutil.CreateMateriel(t, env.MaterielRepo, "Compresseur", materiel.StatusHorsService, &past)

	dash := rapport.NewDashboard(env.Hub, newFetchers(env), rapport.DashboardOptions{Logger: env.Logger})
	require.NoError(t, dash.Activate(ctx))
	t.Cleanup(func() { _ = dash.Deactivate() })

	stats := dash.Stats(now)
	assert.Equal(t, 1, stats.ActiveSites)
	assert.Equal(t, 2, stats.ActiveWorkers)
	assert.Equal(t, 40.0, stats.HoursThisWeek)
	assert.Equal(t, 5.0, stats.OvertimeHoursThisWeek)
	assert.Equal(t, 1800.0, stats.UnpaidTTC)
	assert.Equal(t, 1, stats.OverdueInvoices)
	assert.Equal(t, 1, stats.EquipmentInMaintenance)
	assert.Equal(t, 1, stats.MaintenanceDue)
	assert.False(t, stats.Loading)
	assert.Empty(t, stats.Errors)
	assert.Equal(t, now, stats.ComputedAt)

	// writes are picked up through the hub
	testutil.CreateChantier(t, env.ChantierRepo, cl.ID, "Piscine", chantier.StatusActif, 0)
	dash.Wait()
	assert.Equal(t, 2, dash.Stats(now).ActiveSites)

	chloe.Status = ouvrier.StatusActif
	_, err := env.OuvrierRepo.UpdateOuvrier(ctx, chloe)
	require.NoError(t, err)
	dash.Wait()
	assert.Equal(t, 3, dash.Stats(now).ActiveWorkers)

	_, err = env.FactureSvc.MarkPaid(ctx, overdue.ID)
	require.NoError(t, err)
	dash.Wait()
	stats = dash.Stats(now)
	assert.Equal(t, 600.0, stats.UnpaidTTC)
	assert.Equal(t, 0, stats.OverdueInvoices)

	testutil.CreateSaisie(t, env.SaisieRepo, alice.ID, site.ID, monday.AddDate(0, 0, 4), 6)
	dash.Wait()
	stats = dash.Stats(now)
	assert.Equal(t, 46.0, stats.HoursThisWeek)
	assert.Equal(t, 11.0, stats.OvertimeHoursThisWeek)

	// no more updates once deactivated
	require.NoError(t, dash.Deactivate())
	testutil.CreateChantier(t, env.ChantierRepo, cl.ID, "Stade", chantier.StatusActif, 0)
	dash.Wait()
	assert.Equal(t, 2, dash.Stats(now).ActiveSites)
}

func TestDashboard_fetchError(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	fetchers := newFetchers(env)
	fetchers.Factures = func(context.Context) ([]facture.Facture, error) {
		return nil, errors.New("connection refused")
	}

	testutil.CreateOuvrier(t, env.OuvrierRepo, "Martin", "Alice", 20, ouvrier.StatusActif)

	dash := rapport.NewDashboard(env.Hub, fetchers, rapport.DashboardOptions{})
	require.NoError(t, dash.Activate(ctx))
	t.Cleanup(func() { _ = dash.Deactivate() })

	stats := dash.Stats(time.Now())
	assert.Equal(t, 1, stats.ActiveWorkers)
	assert.Zero(t, stats.UnpaidTTC)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0], "connection refused")
}

func TestDashboard_debounce(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	calls := 0
	fetchers := newFetchers(env)
	fetchers.Chantiers = func(ctx context.Context) ([]chantier.Chantier, error) {
		calls++
		return env.ChantierSvc.Query(ctx, nil, nil)
	}

	dash := rapport.NewDashboard(env.Hub, fetchers, rapport.DashboardOptions{Debounce: 20 * time.Millisecond})
	require.NoError(t, dash.Activate(ctx))
	t.Cleanup(func() { _ = dash.Deactivate() })
	require.Equal(t, 1, calls)

	cl := testutil.CreateClient(t, env.ClientRepo, "Mairie", "")
	for i := 0; i < 5; i++ {
		testutil.CreateChantier(t, env.ChantierRepo, cl.ID, "Chantier", chantier.StatusActif, 0)
	}
	dash.Wait()
	assert.Equal(t, 2, calls)
	assert.Equal(t, 5, dash.Stats(time.Now()).ActiveSites)
}
