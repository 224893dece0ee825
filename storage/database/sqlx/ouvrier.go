package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
)

type ouvrierRow struct {
	ID            string    `db:"id"`
	LastName      string    `db:"last_name"`
	FirstName     string    `db:"first_name"`
	Email         string    `db:"email"`
	Phone         string    `db:"phone"`
	Qualification string    `db:"qualification"`
	HourlyRate    float64   `db:"hourly_rate"`
	Status        string    `db:"status"`
	HireDate      time.Time `db:"hire_date"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type ouvrierRepository struct {
	crud[ouvrierRow]
}

var _ ouvrier.Repository = (*ouvrierRepository)(nil) // interface compliance check

func NewOuvrierRepository(db sqlx.ExtContext) *ouvrierRepository {
	return &ouvrierRepository{crud[ouvrierRow]{
		db:    db,
		table: ouvrier.Collection,
		columns: []string{
			"id", "last_name", "first_name", "email", "phone", "qualification", "hourly_rate", "status", "hire_date",
			"created_at", "updated_at",
		},
		orderable: []string{"last_name", "first_name", "hourly_rate", "status", "hire_date", "created_at"},
		notFound:  ouvrier.ErrNotFound,
	}}
}

func (repo ouvrierRepository) values(o ouvrier.Ouvrier) map[string]interface{} {
	return map[string]interface{}{
		"id":            o.ID,
		"last_name":     o.LastName,
		"first_name":    o.FirstName,
		"email":         o.Email,
		"phone":         o.Phone,
		"qualification": o.Qualification,
		"hourly_rate":   o.HourlyRate,
		"status":        o.Status,
		"hire_date":     o.HireDate.UTC(),
		"created_at":    o.CreatedAt.UTC(),
		"updated_at":    o.UpdatedAt.UTC(),
	}
}

func (repo ouvrierRepository) unrow(r ouvrierRow) ouvrier.Ouvrier {
	return ouvrier.Ouvrier{
		ID:            r.ID,
		LastName:      r.LastName,
		FirstName:     r.FirstName,
		Email:         r.Email,
		Phone:         r.Phone,
		Qualification: r.Qualification,
		HourlyRate:    r.HourlyRate,
		Status:        r.Status,
		HireDate:      r.HireDate.UTC(),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (repo ouvrierRepository) CreateOuvrier(ctx context.Context, o ouvrier.Ouvrier) (ouvrier.Ouvrier, error) {
	o.ID = uuid.New().String()
	if err := repo.insert(ctx, repo.values(o)); err != nil {
		return ouvrier.Ouvrier{}, err
	}
	return o, nil
}

func (repo ouvrierRepository) QueryOuvriers(ctx context.Context, filter *ouvrier.QueryFilter, ordering []core.DBOrdering) ([]ouvrier.Ouvrier, error) {
	var where []sq.Sqlizer
	if filter != nil {
		if filter.Search != "" {
			where = append(where, search(filter.Search, "last_name", "first_name", "email"))
		}
		if len(filter.Statuses) > 0 {
			where = append(where, sq.Eq{"status": filter.Statuses})
		}
		if filter.Qualification != "" {
			where = append(where, search(filter.Qualification, "qualification"))
		}
	}

	rows, err := repo.query(ctx, where, ordering, ouvrier.DefaultOrdering...)
	if err != nil {
		return nil, err
	}
	workers := make([]ouvrier.Ouvrier, 0, len(rows))
	for _, r := range rows {
		workers = append(workers, repo.unrow(r))
	}
	return workers, nil
}

func (repo ouvrierRepository) GetOuvrier(ctx context.Context, id string) (ouvrier.Ouvrier, error) {
	r, err := repo.get(ctx, id)
	if err != nil {
		return ouvrier.Ouvrier{}, err
	}
	return repo.unrow(r), nil
}

func (repo ouvrierRepository) UpdateOuvrier(ctx context.Context, o ouvrier.Ouvrier) (ouvrier.Ouvrier, error) {
	if err := repo.update(ctx, o.ID, repo.values(o)); err != nil {
		return ouvrier.Ouvrier{}, err
	}
	return o, nil
}

func (repo ouvrierRepository) DeleteOuvriersByID(ctx context.Context, ids ...string) (int, error) {
	return repo.delete(ctx, ids...)
}
