package inmemdb

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Publish(_ context.Context, evt realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) kinds() []realtime.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]realtime.EventKind, 0, len(r.events))
	for _, evt := range r.events {
		kinds = append(kinds, evt.Kind)
	}
	return kinds
}

func TestTable_publishesChanges(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	repo := NewOuvrierRepository(Open(rec, nil))

	o, err := repo.CreateOuvrier(ctx, ouvrier.Ouvrier{LastName: "Martin", FirstName: "Paul", Status: ouvrier.StatusActif})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)

	o.HourlyRate = 18.5
	_, err = repo.UpdateOuvrier(ctx, o)
	require.NoError(t, err)

	cnt, err := repo.DeleteOuvriersByID(ctx, o.ID, "unknown")
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)

	assert.Equal(t, []realtime.EventKind{realtime.Insert, realtime.Update, realtime.Delete}, rec.kinds())
	for _, evt := range rec.events {
		assert.Equal(t, ouvrier.Collection, evt.Collection)
	}

	var inserted, updated, deleted ouvrier.Ouvrier
	require.NoError(t, json.Unmarshal(rec.events[0].Payload, &inserted))
	require.NoError(t, json.Unmarshal(rec.events[1].Payload, &updated))
	require.NoError(t, json.Unmarshal(rec.events[2].OldPayload, &deleted))
	assert.Equal(t, o.ID, inserted.ID)
	assert.Equal(t, 18.5, updated.HourlyRate)
	assert.Equal(t, o.ID, deleted.ID)
	assert.Empty(t, rec.events[2].Payload)

	_, err = repo.UpdateOuvrier(ctx, o)
	assert.True(t, core.IsNotFound(err))
	assert.Len(t, rec.events, 3)
}

func TestTable_passwordHashNotPublished(t *testing.T) {
	rec := &recorder{}
	repo := NewUserRepository(Open(rec, nil))

	usr := user.User{Name: "Admin", Username: "admin", Role: user.RoleAdmin}
	require.NoError(t, usr.SetPassword("S3cure!pwd"))
	_, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	assert.NotContains(t, string(rec.events[0].Payload), "password")
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(Open(nil, nil))

	now := time.Now().UTC()
	jane, err := repo.CreateUser(ctx, user.User{Name: "Jane", Username: "jane", Email: "jane@test.test", Role: user.RoleManager, CreatedAt: now})
	require.NoError(t, err)
	john, err := repo.CreateUser(ctx, user.User{Name: "John", Username: "john", Email: "john@test.test", Role: user.RoleOuvrier, CreatedAt: now.Add(time.Hour)})
	require.NoError(t, err)
	jane.SetActive(true)
	_, err = repo.UpdateUser(ctx, jane)
	require.NoError(t, err)

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUserExists, repo.CheckUsernameUniqueness(ctx, "jane", "other@test.test"))
		assert.Equal(t, user.ErrUserExists, repo.CheckUsernameUniqueness(ctx, "other", "john@test.test"))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "jane", "jane@test.test", jane))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "new", ""))
	})

	t.Run("get", func(t *testing.T) {
		tests := []struct {
			name   string
			filter user.GetFilter
			wantID string
		}{
			{"by ID", user.GetFilter{ID: john.ID}, john.ID},
			{"by username", user.GetFilter{Username: "jane"}, jane.ID},
			{"by email", user.GetFilter{Email: "john@test.test"}, john.ID},
			{"username or email: username", user.GetFilter{UsernameOrEmail: []string{"john"}}, john.ID},
			{"username or email: email", user.GetFilter{UsernameOrEmail: []string{"jane@test.test"}}, jane.ID},
			{"not found", user.GetFilter{Username: "nobody"}, ""},
			{"empty", user.GetFilter{}, ""},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				usr, err := repo.GetUser(ctx, tc.filter)
				if tc.wantID == "" {
					assert.Equal(t, user.ErrNotFound, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tc.wantID, usr.ID)
			})
		}
	})

	t.Run("query", func(t *testing.T) {
		active := true
		tests := []struct {
			name     string
			filter   *user.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{"default ordering: newest first", nil, nil, []string{john.ID, jane.ID}},
			{"by name", nil, []core.DBOrdering{{Field: "name", Ascending: true}}, []string{jane.ID, john.ID}},
			{"search", &user.QueryFilter{Search: "JOHN"}, nil, []string{john.ID}},
			{"roles", &user.QueryFilter{Roles: []string{user.RoleManager}}, nil, []string{jane.ID}},
			{"active", &user.QueryFilter{IsActive: &active}, nil, []string{jane.ID}},
			{"created from", &user.QueryFilter{CreatedFrom: now.Add(time.Minute)}, nil, []string{john.ID}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				users, err := repo.QueryUsers(ctx, tc.filter, tc.ordering)
				require.NoError(t, err)
				ids := make([]string, 0, len(users))
				for _, u := range users {
					ids = append(ids, u.ID)
				}
				assert.Equal(t, tc.want, ids)
			})
		}
	})
}

func TestMaterielRepository_cascade(t *testing.T) {
	ctx := context.Background()
	repo := NewMaterielRepository(Open(nil, nil))

	m, err := repo.CreateMateriel(ctx, materiel.Materiel{Name: "Pelleteuse", Status: materiel.StatusDisponible})
	require.NoError(t, err)
	mnt, err := repo.CreateMaintenance(ctx, materiel.Maintenance{MaterielID: m.ID, Kind: materiel.KindPreventive})
	require.NoError(t, err)

	cnt, err := repo.DeleteMaterielByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)

	_, err = repo.GetMaintenance(ctx, mnt.ID)
	assert.Equal(t, materiel.ErrMaintenanceNotFound, err)
}

func TestMaterielRepository_dueBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewMaterielRepository(Open(nil, nil))

	now := time.Now().UTC()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)
	due, err := repo.CreateMateriel(ctx, materiel.Materiel{Name: "A", NextMaintenance: &past})
	require.NoError(t, err)
	_, err = repo.CreateMateriel(ctx, materiel.Materiel{Name: "B", NextMaintenance: &future})
	require.NoError(t, err)
	_, err = repo.CreateMateriel(ctx, materiel.Materiel{Name: "C"})
	require.NoError(t, err)

	list, err := repo.QueryMateriel(ctx, &materiel.QueryFilter{DueBefore: now}, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.ID, list[0].ID)
}

func TestFactureRepository_NextNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewFactureRepository(Open(nil, nil))

	for want := 1; want <= 3; want++ {
		seq, err := repo.NextNumber(ctx, 2024)
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}
	seq, err := repo.NextNumber(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	_, err = repo.GetFacture(ctx, "missing")
	assert.Equal(t, facture.ErrNotFound, err)
}

func TestSaisieRepository_query(t *testing.T) {
	ctx := context.Background()
	repo := NewSaisieRepository(Open(nil, nil))

	monday := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := repo.CreateSaisie(ctx, heure.Saisie{OuvrierID: "o1", ChantierID: "c1", Date: monday.AddDate(0, 0, i), Hours: 8})
		require.NoError(t, err)
	}
	_, err := repo.CreateSaisie(ctx, heure.Saisie{OuvrierID: "o2", ChantierID: "c1", Date: monday, Hours: 7})
	require.NoError(t, err)

	list, err := repo.QuerySaisies(ctx, &heure.QueryFilter{OuvrierID: "o1", From: monday.AddDate(0, 0, 1), To: monday.AddDate(0, 0, 2)}, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, monday.AddDate(0, 0, 1), list[0].Date)

	list, err = repo.QuerySaisies(ctx, &heure.QueryFilter{ChantierID: "c1"}, []core.DBOrdering{{Field: "date"}})
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, monday.AddDate(0, 0, 2), list[0].Date)
}

func TestSortRows(t *testing.T) {
	sites := []chantier.Chantier{
		{Name: "b", Budget: 10},
		{Name: "a", Budget: 10},
		{Name: "c", Budget: 5},
	}
	sortRows(sites, []core.DBOrdering{{Field: "budget"}, {Field: "name", Ascending: true}, {Field: "unknown"}}, chantierFields)
	assert.Equal(t, []string{"a", "b", "c"}, []string{sites[0].Name, sites[1].Name, sites[2].Name})

	sortRows(sites, []core.DBOrdering{{Field: "unknown"}}, chantierFields, core.DBOrdering{Field: "name"})
	assert.Equal(t, []string{"c", "b", "a"}, []string{sites[0].Name, sites[1].Name, sites[2].Name})
}
