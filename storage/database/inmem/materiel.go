package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
)

type materielRepository struct {
	db           *table[materiel.Materiel]
	maintenances *table[materiel.Maintenance]
}

var _ materiel.Repository = (*materielRepository)(nil) // interface compliance check

func NewMaterielRepository(db *DB) *materielRepository {
	return &materielRepository{db: db.materiel, maintenances: db.maintenances}
}

var materielFields = map[string]comparer[materiel.Materiel]{
	"name":   func(a, b materiel.Materiel) int { return compareStrings(a.Name, b.Name) },
	"type":   func(a, b materiel.Materiel) int { return compareStrings(a.Type, b.Type) },
	"status": func(a, b materiel.Materiel) int { return compareStrings(a.Status, b.Status) },
	"next_maintenance": func(a, b materiel.Materiel) int {
		switch {
		case a.NextMaintenance == nil && b.NextMaintenance == nil:
			return 0
		case a.NextMaintenance == nil:
			return 1
		case b.NextMaintenance == nil:
			return -1
		}
		return compareTimes(*a.NextMaintenance, *b.NextMaintenance)
	},
	"created_at": func(a, b materiel.Materiel) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
}

var maintenanceFields = map[string]comparer[materiel.Maintenance]{
	"scheduled_date": func(a, b materiel.Maintenance) int { return compareTimes(a.ScheduledDate, b.ScheduledDate) },
	"cost":           func(a, b materiel.Maintenance) int { return compareFloats(a.Cost, b.Cost) },
	"status":         func(a, b materiel.Maintenance) int { return compareStrings(a.Status, b.Status) },
	"created_at":     func(a, b materiel.Maintenance) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
}

func (repo *materielRepository) CreateMateriel(ctx context.Context, m materiel.Materiel) (materiel.Materiel, error) {
	m.ID = uuid.New().String()
	repo.db.insert(ctx, m.ID, m)
	return m, nil
}

func (repo *materielRepository) QueryMateriel(_ context.Context, filter *materiel.QueryFilter, ordering []core.DBOrdering) ([]materiel.Materiel, error) {
	list := repo.db.filter(func(m materiel.Materiel) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !contains(filter.Search, m.Name, m.Type, m.Brand, m.SerialNumber) {
			return false
		}
		if len(filter.Statuses) > 0 && !in(m.Status, filter.Statuses) {
			return false
		}
		if filter.ChantierID != "" && (m.ChantierID == nil || *m.ChantierID != filter.ChantierID) {
			return false
		}
		if !filter.DueBefore.IsZero() && (m.NextMaintenance == nil || !m.NextMaintenance.Before(filter.DueBefore)) {
			return false
		}
		return true
	})
	sortRows(list, ordering, materielFields, core.DBOrdering{Field: "name", Ascending: true})
	return list, nil
}

func (repo *materielRepository) GetMateriel(_ context.Context, id string) (materiel.Materiel, error) {
	if m, ok := repo.db.get(id); ok {
		return m, nil
	}
	return materiel.Materiel{}, materiel.ErrNotFound
}

func (repo *materielRepository) UpdateMateriel(ctx context.Context, m materiel.Materiel) (materiel.Materiel, error) {
	if !repo.db.update(ctx, m.ID, m) {
		return materiel.Materiel{}, materiel.ErrNotFound
	}
	return m, nil
}

// DeleteMaterielByID also deletes the maintenances of the deleted equipment.
func (repo *materielRepository) DeleteMaterielByID(ctx context.Context, ids ...string) (int, error) {
	deleted := make(map[string]bool, len(ids))
	for _, id := range ids {
		deleted[id] = true
	}
	cascade := repo.maintenances.filter(func(m materiel.Maintenance) bool { return deleted[m.MaterielID] })
	mntIDs := make([]string, 0, len(cascade))
	for _, m := range cascade {
		mntIDs = append(mntIDs, m.ID)
	}
	repo.maintenances.delete(ctx, mntIDs...)
	return repo.db.delete(ctx, ids...), nil
}

func (repo *materielRepository) CreateMaintenance(ctx context.Context, m materiel.Maintenance) (materiel.Maintenance, error) {
	m.ID = uuid.New().String()
	repo.maintenances.insert(ctx, m.ID, m)
	return m, nil
}

func (repo *materielRepository) QueryMaintenances(_ context.Context, filter *materiel.MaintenanceFilter, ordering []core.DBOrdering) ([]materiel.Maintenance, error) {
	list := repo.maintenances.filter(func(m materiel.Maintenance) bool {
		if filter == nil {
			return true
		}
		if filter.MaterielID != "" && m.MaterielID != filter.MaterielID {
			return false
		}
		if len(filter.Kinds) > 0 && !in(m.Kind, filter.Kinds) {
			return false
		}
		return len(filter.Statuses) == 0 || in(m.Status, filter.Statuses)
	})
	sortRows(list, ordering, maintenanceFields, core.DBOrdering{Field: "scheduled_date"})
	return list, nil
}

func (repo *materielRepository) GetMaintenance(_ context.Context, id string) (materiel.Maintenance, error) {
	if m, ok := repo.maintenances.get(id); ok {
		return m, nil
	}
	return materiel.Maintenance{}, materiel.ErrMaintenanceNotFound
}

func (repo *materielRepository) UpdateMaintenance(ctx context.Context, m materiel.Maintenance) (materiel.Maintenance, error) {
	if !repo.maintenances.update(ctx, m.ID, m) {
		return materiel.Maintenance{}, materiel.ErrMaintenanceNotFound
	}
	return m, nil
}

func (repo *materielRepository) DeleteMaintenancesByID(ctx context.Context, ids ...string) (int, error) {
	return repo.maintenances.delete(ctx, ids...), nil
}
