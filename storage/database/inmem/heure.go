package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
)

type saisieRepository struct {
	db *table[heure.Saisie]
}

var _ heure.Repository = (*saisieRepository)(nil) // interface compliance check

func NewSaisieRepository(db *DB) *saisieRepository {
	return &saisieRepository{db: db.saisies}
}

var saisieFields = map[string]comparer[heure.Saisie]{
	"date":       func(a, b heure.Saisie) int { return compareTimes(a.Date, b.Date) },
	"hours":      func(a, b heure.Saisie) int { return compareFloats(a.Hours, b.Hours) },
	"created_at": func(a, b heure.Saisie) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
}

func (repo *saisieRepository) CreateSaisie(ctx context.Context, s heure.Saisie) (heure.Saisie, error) {
	s.ID = uuid.New().String()
	repo.db.insert(ctx, s.ID, s)
	return s, nil
}

func (repo *saisieRepository) QuerySaisies(_ context.Context, filter *heure.QueryFilter, ordering []core.DBOrdering) ([]heure.Saisie, error) {
	list := repo.db.filter(func(s heure.Saisie) bool {
		if filter == nil {
			return true
		}
		if filter.OuvrierID != "" && s.OuvrierID != filter.OuvrierID {
			return false
		}
		if filter.ChantierID != "" && s.ChantierID != filter.ChantierID {
			return false
		}
		if !filter.From.IsZero() && s.Date.Before(filter.From) {
			return false
		}
		if !filter.To.IsZero() && !s.Date.Before(filter.To) {
			return false
		}
		return filter.Validated == nil || s.Validated == *filter.Validated
	})
	sortRows(list, ordering, saisieFields, core.DBOrdering{Field: "date"})
	return list, nil
}

func (repo *saisieRepository) GetSaisie(_ context.Context, id string) (heure.Saisie, error) {
	if s, ok := repo.db.get(id); ok {
		return s, nil
	}
	return heure.Saisie{}, heure.ErrNotFound
}

func (repo *saisieRepository) UpdateSaisie(ctx context.Context, s heure.Saisie) (heure.Saisie, error) {
	if !repo.db.update(ctx, s.ID, s) {
		return heure.Saisie{}, heure.ErrNotFound
	}
	return s, nil
}

func (repo *saisieRepository) DeleteSaisiesByID(ctx context.Context, ids ...string) (int, error) {
	return repo.db.delete(ctx, ids...), nil
}
