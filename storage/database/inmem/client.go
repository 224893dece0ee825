package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/client"
)

type clientRepository struct {
	db *table[client.Client]
}

var _ client.Repository = (*clientRepository)(nil) // interface compliance check

func NewClientRepository(db *DB) *clientRepository {
	return &clientRepository{db: db.clients}
}

var clientFields = map[string]comparer[client.Client]{
	"name":       func(a, b client.Client) int { return compareStrings(a.Name, b.Name) },
	"kind":       func(a, b client.Client) int { return compareStrings(a.Kind, b.Kind) },
	"created_at": func(a, b client.Client) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
}

func (repo *clientRepository) CreateClient(ctx context.Context, c client.Client) (client.Client, error) {
	c.ID = uuid.New().String()
	repo.db.insert(ctx, c.ID, c)
	return c, nil
}

func (repo *clientRepository) QueryClients(_ context.Context, filter *client.QueryFilter, ordering []core.DBOrdering) ([]client.Client, error) {
	clients := repo.db.filter(func(c client.Client) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !contains(filter.Search, c.Name, c.Email, c.Siret) {
			return false
		}
		return len(filter.Kinds) == 0 || in(c.Kind, filter.Kinds)
	})
	sortRows(clients, ordering, clientFields, core.DBOrdering{Field: "name", Ascending: true})
	return clients, nil
}

func (repo *clientRepository) GetClient(_ context.Context, id string) (client.Client, error) {
	if c, ok := repo.db.get(id); ok {
		return c, nil
	}
	return client.Client{}, client.ErrNotFound
}

func (repo *clientRepository) UpdateClient(ctx context.Context, c client.Client) (client.Client, error) {
	if !repo.db.update(ctx, c.ID, c) {
		return client.Client{}, client.ErrNotFound
	}
	return c, nil
}

func (repo *clientRepository) DeleteClientsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.db.delete(ctx, ids...), nil
}
