package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
)

type saisieRow struct {
	ID          string    `db:"id"`
	OuvrierID   string    `db:"ouvrier_id"`
	ChantierID  string    `db:"chantier_id"`
	Date        time.Time `db:"date"`
	Hours       float64   `db:"hours"`
	Description string    `db:"description"`
	Validated   bool      `db:"validated"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type saisieRepository struct {
	crud[saisieRow]
}

var _ heure.Repository = (*saisieRepository)(nil) // interface compliance check

func NewSaisieRepository(db sqlx.ExtContext) *saisieRepository {
	return &saisieRepository{crud[saisieRow]{
		db:    db,
		table: heure.Collection,
		columns: []string{
			"id", "ouvrier_id", "chantier_id", "date", "hours", "description", "validated", "created_at", "updated_at",
		},
		orderable: []string{"date", "hours", "validated", "created_at"},
		notFound:  heure.ErrNotFound,
	}}
}

func (repo saisieRepository) values(s heure.Saisie) map[string]interface{} {
	return map[string]interface{}{
		"id":          s.ID,
		"ouvrier_id":  s.OuvrierID,
		"chantier_id": s.ChantierID,
		"date":        s.Date.UTC(),
		"hours":       s.Hours,
		"description": s.Description,
		"validated":   s.Validated,
		"created_at":  s.CreatedAt.UTC(),
		"updated_at":  s.UpdatedAt.UTC(),
	}
}

func (repo saisieRepository) unrow(r saisieRow) heure.Saisie {
	return heure.Saisie{
		ID:          r.ID,
		OuvrierID:   r.OuvrierID,
		ChantierID:  r.ChantierID,
		Date:        r.Date.UTC(),
		Hours:       r.Hours,
		Description: r.Description,
		Validated:   r.Validated,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (repo saisieRepository) CreateSaisie(ctx context.Context, s heure.Saisie) (heure.Saisie, error) {
	s.ID = uuid.New().String()
	if err := repo.insert(ctx, repo.values(s)); err != nil {
		return heure.Saisie{}, err
	}
	return s, nil
}

func (repo saisieRepository) QuerySaisies(ctx context.Context, filter *heure.QueryFilter, ordering []core.DBOrdering) ([]heure.Saisie, error) {
	var where []sq.Sqlizer
	if filter != nil {
		if filter.OuvrierID != "" {
			where = append(where, sq.Eq{"ouvrier_id": filter.OuvrierID})
		}
		if filter.ChantierID != "" {
			where = append(where, sq.Eq{"chantier_id": filter.ChantierID})
		}
		if !filter.From.IsZero() {
			where = append(where, sq.GtOrEq{"date": filter.From.UTC()})
		}
		if !filter.To.IsZero() {
			where = append(where, sq.Lt{"date": filter.To.UTC()})
		}
		if filter.Validated != nil {
			where = append(where, sq.Eq{"validated": *filter.Validated})
		}
	}

	rows, err := repo.query(ctx, where, ordering, core.DBOrdering{Field: "date"})
	if err != nil {
		return nil, err
	}
	list := make([]heure.Saisie, 0, len(rows))
	for _, r := range rows {
		list = append(list, repo.unrow(r))
	}
	return list, nil
}

func (repo saisieRepository) GetSaisie(ctx context.Context, id string) (heure.Saisie, error) {
	r, err := repo.get(ctx, id)
	if err != nil {
		return heure.Saisie{}, err
	}
	return repo.unrow(r), nil
}

func (repo saisieRepository) UpdateSaisie(ctx context.Context, s heure.Saisie) (heure.Saisie, error) {
	if err := repo.update(ctx, s.ID, repo.values(s)); err != nil {
		return heure.Saisie{}, err
	}
	return s, nil
}

func (repo saisieRepository) DeleteSaisiesByID(ctx context.Context, ids ...string) (int, error) {
	return repo.delete(ctx, ids...)
}
