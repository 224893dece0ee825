package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
)

type factureRepository struct {
	db  *table[facture.Facture]
	seq *DB
}

var _ facture.Repository = (*factureRepository)(nil) // interface compliance check

func NewFactureRepository(db *DB) *factureRepository {
	return &factureRepository{db: db.factures, seq: db}
}

var factureFields = map[string]comparer[facture.Facture]{
	"number":     func(a, b facture.Facture) int { return compareStrings(a.Number, b.Number) },
	"issue_date": func(a, b facture.Facture) int { return compareTimes(a.IssueDate, b.IssueDate) },
	"due_date":   func(a, b facture.Facture) int { return compareTimes(a.DueDate, b.DueDate) },
	"amount_ht":  func(a, b facture.Facture) int { return compareFloats(a.AmountHT, b.AmountHT) },
	"status":     func(a, b facture.Facture) int { return compareStrings(a.Status, b.Status) },
	"created_at": func(a, b facture.Facture) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
}

func (repo *factureRepository) CreateFacture(ctx context.Context, f facture.Facture) (facture.Facture, error) {
	f.ID = uuid.New().String()
	repo.db.insert(ctx, f.ID, f)
	return f, nil
}

func (repo *factureRepository) QueryFactures(_ context.Context, filter *facture.QueryFilter, ordering []core.DBOrdering) ([]facture.Facture, error) {
	list := repo.db.filter(func(f facture.Facture) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !contains(filter.Search, f.Number) {
			return false
		}
		if len(filter.Statuses) > 0 && !in(f.Status, filter.Statuses) {
			return false
		}
		if filter.ClientID != "" && f.ClientID != filter.ClientID {
			return false
		}
		if filter.ChantierID != "" && f.ChantierID != filter.ChantierID {
			return false
		}
		return filter.DueBefore.IsZero() || f.DueDate.Before(filter.DueBefore)
	})
	sortRows(list, ordering, factureFields, core.DBOrdering{Field: "number"})
	return list, nil
}

func (repo *factureRepository) GetFacture(_ context.Context, id string) (facture.Facture, error) {
	if f, ok := repo.db.get(id); ok {
		return f, nil
	}
	return facture.Facture{}, facture.ErrNotFound
}

func (repo *factureRepository) UpdateFacture(ctx context.Context, f facture.Facture) (facture.Facture, error) {
	if !repo.db.update(ctx, f.ID, f) {
		return facture.Facture{}, facture.ErrNotFound
	}
	return f, nil
}

func (repo *factureRepository) DeleteFacturesByID(ctx context.Context, ids ...string) (int, error) {
	return repo.db.delete(ctx, ids...), nil
}

func (repo *factureRepository) NextNumber(_ context.Context, year int) (int, error) {
	repo.seq.seqMu.Lock()
	defer repo.seq.seqMu.Unlock()
	repo.seq.sequences[year]++
	return repo.seq.sequences[year], nil
}
