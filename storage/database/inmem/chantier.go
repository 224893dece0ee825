package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
)

type chantierRepository struct {
	db *table[chantier.Chantier]
}

var _ chantier.Repository = (*chantierRepository)(nil) // interface compliance check

func NewChantierRepository(db *DB) *chantierRepository {
	return &chantierRepository{db: db.chantiers}
}

var chantierFields = map[string]comparer[chantier.Chantier]{
	"name":       func(a, b chantier.Chantier) int { return compareStrings(a.Name, b.Name) },
	"status":     func(a, b chantier.Chantier) int { return compareStrings(a.Status, b.Status) },
	"start_date": func(a, b chantier.Chantier) int { return compareTimes(a.StartDate, b.StartDate) },
	"budget":     func(a, b chantier.Chantier) int { return compareFloats(a.Budget, b.Budget) },
	"created_at": func(a, b chantier.Chantier) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
}

func (repo *chantierRepository) CreateChantier(ctx context.Context, c chantier.Chantier) (chantier.Chantier, error) {
	c.ID = uuid.New().String()
	repo.db.insert(ctx, c.ID, c)
	return c, nil
}

func (repo *chantierRepository) QueryChantiers(_ context.Context, filter *chantier.QueryFilter, ordering []core.DBOrdering) ([]chantier.Chantier, error) {
	sites := repo.db.filter(func(c chantier.Chantier) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !contains(filter.Search, c.Name, c.Address) {
			return false
		}
		if len(filter.Statuses) > 0 && !in(c.Status, filter.Statuses) {
			return false
		}
		return filter.ClientID == "" || c.ClientID == filter.ClientID
	})
	sortRows(sites, ordering, chantierFields, core.DBOrdering{Field: "start_date"})
	return sites, nil
}

func (repo *chantierRepository) GetChantier(_ context.Context, id string) (chantier.Chantier, error) {
	if c, ok := repo.db.get(id); ok {
		return c, nil
	}
	return chantier.Chantier{}, chantier.ErrNotFound
}

func (repo *chantierRepository) UpdateChantier(ctx context.Context, c chantier.Chantier) (chantier.Chantier, error) {
	if !repo.db.update(ctx, c.ID, c) {
		return chantier.Chantier{}, chantier.ErrNotFound
	}
	return c, nil
}

func (repo *chantierRepository) DeleteChantiersByID(ctx context.Context, ids ...string) (int, error) {
	return repo.db.delete(ctx, ids...), nil
}
