package materiel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/tests"
)

func strPtr(s string) *string { return &s }

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	clt := testutil.CreateClient(t, env.ClientRepo, "Dupont", "")
	site := testutil.CreateChantier(t, env.ChantierRepo, clt.ID, "Maison", chantier.StatusActif, 0)

	tests := []struct {
		name       string
		data       materiel.NewMateriel
		wantStatus string
		wantField  string
	}{
		{name: "at the depot", data: materiel.NewMateriel{Name: "Bétonnière"}, wantStatus: materiel.StatusDisponible},
		{name: "on a site", data: materiel.NewMateriel{Name: "Grue", ChantierID: strPtr(site.ID)}, wantStatus: materiel.StatusEnService},
		{name: "blank site", data: materiel.NewMateriel{Name: "Pelle", ChantierID: strPtr(" ")}, wantStatus: materiel.StatusDisponible},
		{name: "explicit status", data: materiel.NewMateriel{Name: "Nacelle", Status: "HORS_SERVICE"}, wantStatus: materiel.StatusHorsService},
		{name: "no name", data: materiel.NewMateriel{}, wantField: "name"},
		{name: "bad site", data: materiel.NewMateriel{Name: "X", ChantierID: strPtr("nope")}, wantField: "chantier_id"},
		{name: "unknown status", data: materiel.NewMateriel{Name: "X", Status: "perdu"}, wantField: "status"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := env.MaterielSvc.Create(ctx, tc.data)
			if tc.wantField != "" {
				assert.Contains(t, testutil.ErrorFields(err), tc.wantField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, m.Status)
		})
	}
}

func TestService_Assign(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	clt := testutil.CreateClient(t, env.ClientRepo, "Dupont", "")
	site := testutil.CreateChantier(t, env.ChantierRepo, clt.ID, "Maison", chantier.StatusActif, 0)

	eqp := testutil.CreateMateriel(t, env.MaterielRepo, "Grue", materiel.StatusDisponible, nil)
	broken := testutil.CreateMateriel(t, env.MaterielRepo, "Nacelle", materiel.StatusHorsService, nil)
	repairing := testutil.CreateMateriel(t, env.MaterielRepo, "Compresseur", materiel.StatusMaintenance, nil)

	got, err := env.MaterielSvc.Assign(ctx, eqp.ID, materiel.Assignment{ChantierID: site.ID})
	require.NoError(t, err)
	assert.Equal(t, materiel.StatusEnService, got.Status)
	require.NotNil(t, got.ChantierID)
	assert.Equal(t, site.ID, *got.ChantierID)

	got, err = env.MaterielSvc.Assign(ctx, eqp.ID, materiel.Assignment{})
	require.NoError(t, err)
	assert.Equal(t, materiel.StatusDisponible, got.Status)
	assert.Nil(t, got.ChantierID)

	got, err = env.MaterielSvc.Assign(ctx, repairing.ID, materiel.Assignment{ChantierID: site.ID})
	require.NoError(t, err)
	assert.Equal(t, materiel.StatusMaintenance, got.Status)

	_, err = env.MaterielSvc.Assign(ctx, broken.ID, materiel.Assignment{ChantierID: site.ID})
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = env.MaterielSvc.Assign(ctx, "unknown", materiel.Assignment{})
	assert.True(t, core.IsNotFound(err))
}

func TestService_Due(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.AddDate(0, 0, -3)
	older := now.AddDate(0, -1, 0)
	future := now.AddDate(0, 1, 0)

	late := testutil.CreateMateriel(t, env.MaterielRepo, "Grue", materiel.StatusEnService, &past)
	later := testutil.CreateMateriel(t, env.MaterielRepo, "Pelle", materiel.StatusDisponible, &older)
	testutil.CreateMateriel(t, env.MaterielRepo, "Nacelle", materiel.StatusHorsService, &past)
	testutil.CreateMateriel(t, env.MaterielRepo, "Scie", materiel.StatusDisponible, &future)
	testutil.CreateMateriel(t, env.MaterielRepo, "Marteau", materiel.StatusDisponible, nil)

	due, err := env.MaterielSvc.Due(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, later.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)
}

func TestService_MaintenanceLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	clt := testutil.CreateClient(t, env.ClientRepo, "Dupont", "")
	site := testutil.CreateChantier(t, env.ChantierRepo, clt.ID, "Maison", chantier.StatusActif, 0)
	past := time.Now().UTC().AddDate(0, 0, -1)
	eqp := testutil.CreateMateriel(t, env.MaterielRepo, "Grue", materiel.StatusDisponible, &past)
	eqp, err := env.MaterielSvc.Assign(ctx, eqp.ID, materiel.Assignment{ChantierID: site.ID})
	require.NoError(t, err)

	_, err = env.MaterielSvc.CreateMaintenance(ctx, materiel.NewMaintenance{
		MaterielID: "2b7c1f4e-0000-4000-8000-000000000000", Kind: materiel.KindPreventive, ScheduledDate: time.Now(),
	})
	assert.Equal(t, []string{"materiel_id"}, testutil.ErrorFields(err))

	mnt, err := env.MaterielSvc.CreateMaintenance(ctx, materiel.NewMaintenance{
		MaterielID:    eqp.ID,
		Kind:          " Preventive ",
		Description:   "Révision annuelle",
		ScheduledDate: time.Now(),
		Cost:          450.456,
	})
	require.NoError(t, err)
	assert.Equal(t, materiel.MaintenancePlanifiee, mnt.Status)
	assert.Equal(t, materiel.KindPreventive, mnt.Kind)
	assert.Equal(t, 450.46, mnt.Cost)

	mnt, err = env.MaterielSvc.StartMaintenance(ctx, mnt.ID)
	require.NoError(t, err)
	assert.Equal(t, materiel.MaintenanceEnCours, mnt.Status)
	eqp, err = env.MaterielSvc.GetByID(ctx, eqp.ID)
	require.NoError(t, err)
	assert.Equal(t, materiel.StatusMaintenance, eqp.Status)

	cost := 510.0
	next := time.Now().UTC().AddDate(1, 0, 0)
	mnt, err = env.MaterielSvc.CompleteMaintenance(ctx, mnt.ID, materiel.Completion{Cost: &cost, NextMaintenance: &next})
	require.NoError(t, err)
	assert.Equal(t, materiel.MaintenanceTerminee, mnt.Status)
	assert.NotNil(t, mnt.CompletedDate)
	assert.Equal(t, 510.0, mnt.Cost)

	eqp, err = env.MaterielSvc.GetByID(ctx, eqp.ID)
	require.NoError(t, err)
	assert.Equal(t, materiel.StatusDisponible, eqp.Status)
	assert.Nil(t, eqp.ChantierID)
	require.NotNil(t, eqp.NextMaintenance)
	assert.True(t, eqp.NextMaintenance.Equal(next))
	assert.False(t, eqp.MaintenanceDue(time.Now()))

	// a completed maintenance is read-only
	var vErr *core.ValidationError
	_, err = env.MaterielSvc.CompleteMaintenance(ctx, mnt.ID, materiel.Completion{})
	assert.ErrorAs(t, err, &vErr)
	_, err = env.MaterielSvc.StartMaintenance(ctx, mnt.ID)
	assert.ErrorAs(t, err, &vErr)
	_, err = env.MaterielSvc.UpdateMaintenance(ctx, mnt.ID, materiel.NewMaintenance{
		MaterielID: eqp.ID, Kind: materiel.KindCorrective, ScheduledDate: time.Now(),
	})
	assert.ErrorAs(t, err, &vErr)

	list, err := env.MaterielSvc.QueryMaintenances(ctx, &materiel.MaintenanceFilter{MaterielID: eqp.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	cnt, err := env.MaterielSvc.Delete(ctx, eqp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
	_, err = env.MaterielSvc.GetMaintenance(ctx, mnt.ID)
	assert.True(t, core.IsNotFound(err))
}
