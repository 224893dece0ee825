package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
)

type ouvrierRepository struct {
	db *table[ouvrier.Ouvrier]
}

var _ ouvrier.Repository = (*ouvrierRepository)(nil) // interface compliance check

func NewOuvrierRepository(db *DB) *ouvrierRepository {
	return &ouvrierRepository{db: db.ouvriers}
}

var ouvrierFields = map[string]comparer[ouvrier.Ouvrier]{
	"last_name":   func(a, b ouvrier.Ouvrier) int { return compareStrings(a.LastName, b.LastName) },
	"first_name":  func(a, b ouvrier.Ouvrier) int { return compareStrings(a.FirstName, b.FirstName) },
	"hourly_rate": func(a, b ouvrier.Ouvrier) int { return compareFloats(a.HourlyRate, b.HourlyRate) },
	"hire_date":   func(a, b ouvrier.Ouvrier) int { return compareTimes(a.HireDate, b.HireDate) },
	"created_at":  func(a, b ouvrier.Ouvrier) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
}

func (repo *ouvrierRepository) CreateOuvrier(ctx context.Context, o ouvrier.Ouvrier) (ouvrier.Ouvrier, error) {
	o.ID = uuid.New().String()
	repo.db.insert(ctx, o.ID, o)
	return o, nil
}

func (repo *ouvrierRepository) QueryOuvriers(_ context.Context, filter *ouvrier.QueryFilter, ordering []core.DBOrdering) ([]ouvrier.Ouvrier, error) {
	workers := repo.db.filter(func(o ouvrier.Ouvrier) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !contains(filter.Search, o.LastName, o.FirstName, o.Email) {
			return false
		}
		if len(filter.Statuses) > 0 && !in(o.Status, filter.Statuses) {
			return false
		}
		return filter.Qualification == "" || contains(filter.Qualification, o.Qualification)
	})
	sortRows(workers, ordering, ouvrierFields, ouvrier.DefaultOrdering...)
	return workers, nil
}

func (repo *ouvrierRepository) GetOuvrier(_ context.Context, id string) (ouvrier.Ouvrier, error) {
	if o, ok := repo.db.get(id); ok {
		return o, nil
	}
	return ouvrier.Ouvrier{}, ouvrier.ErrNotFound
}

func (repo *ouvrierRepository) UpdateOuvrier(ctx context.Context, o ouvrier.Ouvrier) (ouvrier.Ouvrier, error) {
	if !repo.db.update(ctx, o.ID, o) {
		return ouvrier.Ouvrier{}, ouvrier.ErrNotFound
	}
	return o, nil
}

func (repo *ouvrierRepository) DeleteOuvriersByID(ctx context.Context, ids ...string) (int, error) {
	return repo.db.delete(ctx, ids...), nil
}
