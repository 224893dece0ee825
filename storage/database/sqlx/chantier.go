package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
)

type chantierRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	ClientID    string    `db:"client_id"`
	Address     string    `db:"address"`
	Status      string    `db:"status"`
	StartDate   time.Time `db:"start_date"`
	EndDate     null.Time `db:"end_date"`
	Budget      float64   `db:"budget"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type chantierRepository struct {
	crud[chantierRow]
}

var _ chantier.Repository = (*chantierRepository)(nil) // interface compliance check

func NewChantierRepository(db sqlx.ExtContext) *chantierRepository {
	return &chantierRepository{crud[chantierRow]{
		db:    db,
		table: chantier.Collection,
		columns: []string{
			"id", "name", "client_id", "address", "status", "start_date", "end_date", "budget", "description",
			"created_at", "updated_at",
		},
		orderable: []string{"name", "status", "start_date", "end_date", "budget", "created_at"},
		notFound:  chantier.ErrNotFound,
	}}
}

func (repo chantierRepository) values(c chantier.Chantier) map[string]interface{} {
	return map[string]interface{}{
		"id":          c.ID,
		"name":        c.Name,
		"client_id":   c.ClientID,
		"address":     c.Address,
		"status":      c.Status,
		"start_date":  c.StartDate.UTC(),
		"end_date":    null.TimeFromPtr(c.EndDate),
		"budget":      c.Budget,
		"description": c.Description,
		"created_at":  c.CreatedAt.UTC(),
		"updated_at":  c.UpdatedAt.UTC(),
	}
}

func (repo chantierRepository) unrow(r chantierRow) chantier.Chantier {
	return chantier.Chantier{
		ID:          r.ID,
		Name:        r.Name,
		ClientID:    r.ClientID,
		Address:     r.Address,
		Status:      r.Status,
		StartDate:   r.StartDate.UTC(),
		EndDate:     utcPtr(r.EndDate),
		Budget:      r.Budget,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (repo chantierRepository) CreateChantier(ctx context.Context, c chantier.Chantier) (chantier.Chantier, error) {
	c.ID = uuid.New().String()
	if err := repo.insert(ctx, repo.values(c)); err != nil {
		return chantier.Chantier{}, err
	}
	return c, nil
}

func (repo chantierRepository) QueryChantiers(ctx context.Context, filter *chantier.QueryFilter, ordering []core.DBOrdering) ([]chantier.Chantier, error) {
	var where []sq.Sqlizer
	if filter != nil {
		if filter.Search != "" {
			where = append(where, search(filter.Search, "name", "address"))
		}
		if len(filter.Statuses) > 0 {
			where = append(where, sq.Eq{"status": filter.Statuses})
		}
		if filter.ClientID != "" {
			where = append(where, sq.Eq{"client_id": filter.ClientID})
		}
	}

	rows, err := repo.query(ctx, where, ordering, core.DBOrdering{Field: "start_date"})
	if err != nil {
		return nil, err
	}
	sites := make([]chantier.Chantier, 0, len(rows))
	for _, r := range rows {
		sites = append(sites, repo.unrow(r))
	}
	return sites, nil
}

func (repo chantierRepository) GetChantier(ctx context.Context, id string) (chantier.Chantier, error) {
	r, err := repo.get(ctx, id)
	if err != nil {
		return chantier.Chantier{}, err
	}
	return repo.unrow(r), nil
}

func (repo chantierRepository) UpdateChantier(ctx context.Context, c chantier.Chantier) (chantier.Chantier, error) {
	if err := repo.update(ctx, c.ID, repo.values(c)); err != nil {
		return chantier.Chantier{}, err
	}
	return c, nil
}

func (repo chantierRepository) DeleteChantiersByID(ctx context.Context, ids ...string) (int, error) {
	return repo.delete(ctx, ids...)
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}
