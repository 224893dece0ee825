package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
)

type materielRow struct {
	ID              string      `db:"id"`
	Name            string      `db:"name"`
	Type            string      `db:"type"`
	Brand           string      `db:"brand"`
	SerialNumber    string      `db:"serial_number"`
	Status          string      `db:"status"`
	ChantierID      null.String `db:"chantier_id"`
	PurchaseDate    null.Time   `db:"purchase_date"`
	NextMaintenance null.Time   `db:"next_maintenance"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

type maintenanceRow struct {
	ID            string    `db:"id"`
	MaterielID    string    `db:"materiel_id"`
	Kind          string    `db:"kind"`
	Description   string    `db:"description"`
	ScheduledDate time.Time `db:"scheduled_date"`
	CompletedDate null.Time `db:"completed_date"`
	Cost          float64   `db:"cost"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// maintenances are deleted along with their equipment (ON DELETE CASCADE).
type materielRepository struct {
	items        crud[materielRow]
	maintenances crud[maintenanceRow]
}

var _ materiel.Repository = (*materielRepository)(nil) // interface compliance check

func NewMaterielRepository(db sqlx.ExtContext) *materielRepository {
	return &materielRepository{
		items: crud[materielRow]{
			db:    db,
			table: materiel.Collection,
			columns: []string{
				"id", "name", "type", "brand", "serial_number", "status", "chantier_id", "purchase_date",
				"next_maintenance", "created_at", "updated_at",
			},
			orderable: []string{"name", "type", "brand", "status", "purchase_date", "next_maintenance", "created_at"},
			notFound:  materiel.ErrNotFound,
		},
		maintenances: crud[maintenanceRow]{
			db:    db,
			table: materiel.MaintenanceCollection,
			columns: []string{
				"id", "materiel_id", "kind", "description", "scheduled_date", "completed_date", "cost", "status",
				"created_at", "updated_at",
			},
			orderable: []string{"kind", "scheduled_date", "completed_date", "cost", "status", "created_at"},
			notFound:  materiel.ErrMaintenanceNotFound,
		},
	}
}

func (repo materielRepository) values(m materiel.Materiel) map[string]interface{} {
	return map[string]interface{}{
		"id":               m.ID,
		"name":             m.Name,
		"type":             m.Type,
		"brand":            m.Brand,
		"serial_number":    m.SerialNumber,
		"status":           m.Status,
		"chantier_id":      null.StringFromPtr(m.ChantierID),
		"purchase_date":    null.TimeFromPtr(m.PurchaseDate),
		"next_maintenance": null.TimeFromPtr(m.NextMaintenance),
		"created_at":       m.CreatedAt.UTC(),
		"updated_at":       m.UpdatedAt.UTC(),
	}
}

func (repo materielRepository) unrow(r materielRow) materiel.Materiel {
	return materiel.Materiel{
		ID:              r.ID,
		Name:            r.Name,
		Type:            r.Type,
		Brand:           r.Brand,
		SerialNumber:    r.SerialNumber,
		Status:          r.Status,
		ChantierID:      r.ChantierID.Ptr(),
		PurchaseDate:    utcPtr(r.PurchaseDate),
		NextMaintenance: utcPtr(r.NextMaintenance),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func (repo materielRepository) maintenanceValues(m materiel.Maintenance) map[string]interface{} {
	return map[string]interface{}{
		"id":             m.ID,
		"materiel_id":    m.MaterielID,
		"kind":           m.Kind,
		"description":    m.Description,
		"scheduled_date": m.ScheduledDate.UTC(),
		"completed_date": null.TimeFromPtr(m.CompletedDate),
		"cost":           m.Cost,
		"status":         m.Status,
		"created_at":     m.CreatedAt.UTC(),
		"updated_at":     m.UpdatedAt.UTC(),
	}
}

func (repo materielRepository) unrowMaintenance(r maintenanceRow) materiel.Maintenance {
	return materiel.Maintenance{
		ID:            r.ID,
		MaterielID:    r.MaterielID,
		Kind:          r.Kind,
		Description:   r.Description,
		ScheduledDate: r.ScheduledDate.UTC(),
		CompletedDate: utcPtr(r.CompletedDate),
		Cost:          r.Cost,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (repo materielRepository) CreateMateriel(ctx context.Context, m materiel.Materiel) (materiel.Materiel, error) {
	m.ID = uuid.New().String()
	if err := repo.items.insert(ctx, repo.values(m)); err != nil {
		return materiel.Materiel{}, err
	}
	return m, nil
}

func (repo materielRepository) QueryMateriel(ctx context.Context, filter *materiel.QueryFilter, ordering []core.DBOrdering) ([]materiel.Materiel, error) {
	var where []sq.Sqlizer
	if filter != nil {
		if filter.Search != "" {
			where = append(where, search(filter.Search, "name", "type", "brand", "serial_number"))
		}
		if len(filter.Statuses) > 0 {
			where = append(where, sq.Eq{"status": filter.Statuses})
		}
		if filter.ChantierID != "" {
			where = append(where, sq.Eq{"chantier_id": filter.ChantierID})
		}
		if !filter.DueBefore.IsZero() {
			where = append(where, sq.Lt{"next_maintenance": filter.DueBefore.UTC()})
		}
	}

	rows, err := repo.items.query(ctx, where, ordering, core.DBOrdering{Field: "name", Ascending: true})
	if err != nil {
		return nil, err
	}
	list := make([]materiel.Materiel, 0, len(rows))
	for _, r := range rows {
		list = append(list, repo.unrow(r))
	}
	return list, nil
}

func (repo materielRepository) GetMateriel(ctx context.Context, id string) (materiel.Materiel, error) {
	r, err := repo.items.get(ctx, id)
	if err != nil {
		return materiel.Materiel{}, err
	}
	return repo.unrow(r), nil
}

func (repo materielRepository) UpdateMateriel(ctx context.Context, m materiel.Materiel) (materiel.Materiel, error) {
	if err := repo.items.update(ctx, m.ID, repo.values(m)); err != nil {
		return materiel.Materiel{}, err
	}
	return m, nil
}

func (repo materielRepository) DeleteMaterielByID(ctx context.Context, ids ...string) (int, error) {
	return repo.items.delete(ctx, ids...)
}

func (repo materielRepository) CreateMaintenance(ctx context.Context, m materiel.Maintenance) (materiel.Maintenance, error) {
	m.ID = uuid.New().String()
	if err := repo.maintenances.insert(ctx, repo.maintenanceValues(m)); err != nil {
		return materiel.Maintenance{}, err
	}
	return m, nil
}

func (repo materielRepository) QueryMaintenances(ctx context.Context, filter *materiel.MaintenanceFilter, ordering []core.DBOrdering) ([]materiel.Maintenance, error) {
	var where []sq.Sqlizer
	if filter != nil {
		if filter.MaterielID != "" {
			where = append(where, sq.Eq{"materiel_id": filter.MaterielID})
		}
		if len(filter.Kinds) > 0 {
			where = append(where, sq.Eq{"kind": filter.Kinds})
		}
		if len(filter.Statuses) > 0 {
			where = append(where, sq.Eq{"status": filter.Statuses})
		}
	}

	rows, err := repo.maintenances.query(ctx, where, ordering, core.DBOrdering{Field: "scheduled_date"})
	if err != nil {
		return nil, err
	}
	list := make([]materiel.Maintenance, 0, len(rows))
	for _, r := range rows {
		list = append(list, repo.unrowMaintenance(r))
	}
	return list, nil
}

func (repo materielRepository) GetMaintenance(ctx context.Context, id string) (materiel.Maintenance, error) {
	r, err := repo.maintenances.get(ctx, id)
	if err != nil {
		return materiel.Maintenance{}, err
	}
	return repo.unrowMaintenance(r), nil
}

func (repo materielRepository) UpdateMaintenance(ctx context.Context, m materiel.Maintenance) (materiel.Maintenance, error) {
	if err := repo.maintenances.update(ctx, m.ID, repo.maintenanceValues(m)); err != nil {
		return materiel.Maintenance{}, err
	}
	return m, nil
}

func (repo materielRepository) DeleteMaintenancesByID(ctx context.Context, ids ...string) (int, error) {
	return repo.maintenances.delete(ctx, ids...)
}
