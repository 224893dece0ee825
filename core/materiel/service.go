package materiel

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

var (
	ErrNotFound            = core.NewNotFoundError("materiel")
	ErrMaintenanceNotFound = core.NewNotFoundError("maintenance")

	errOutOfService      = errors.New("equipment is out of service")
	errAlreadyCompleted  = errors.New("maintenance is already completed")
	errCompletedReadOnly = errors.New("a completed maintenance cannot be modified")
)

type (
	Repository interface {
		CreateMateriel(ctx context.Context, m Materiel) (Materiel, error)
		QueryMateriel(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Materiel, error)
		GetMateriel(ctx context.Context, id string) (Materiel, error)
		UpdateMateriel(ctx context.Context, m Materiel) (Materiel, error)
		DeleteMaterielByID(ctx context.Context, ids ...string) (int, error)

		CreateMaintenance(ctx context.Context, m Maintenance) (Maintenance, error)
		QueryMaintenances(ctx context.Context, filter *MaintenanceFilter, ordering []core.DBOrdering) ([]Maintenance, error)
		GetMaintenance(ctx context.Context, id string) (Maintenance, error)
		UpdateMaintenance(ctx context.Context, m Maintenance) (Maintenance, error)
		DeleteMaintenancesByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nm NewMateriel) (Materiel, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Materiel{}, err
	}
	now := time.Now().UTC()
	m := Materiel{CreatedAt: now}
	nm.apply(&m, now)
	return svc.repo.CreateMateriel(ctx, m)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Materiel, error) {
	return svc.repo.QueryMateriel(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Materiel, error) {
	return svc.repo.GetMateriel(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, nm NewMateriel) (Materiel, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Materiel{}, err
	}
	m, err := svc.repo.GetMateriel(ctx, id)
	if err != nil {
		return Materiel{}, err
	}
	nm.apply(&m, time.Now().UTC())
	return svc.repo.UpdateMateriel(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	return svc.repo.DeleteMaterielByID(ctx, ids...)
}

// Assign puts the equipment in service on a site. An empty ChantierID brings it back to the depot.
func (svc *Service) Assign(ctx context.Context, id string, a Assignment) (Materiel, error) {
	a.ChantierID = core.CleanString(a.ChantierID)
	if err := svc.validate.Struct(a); err != nil {
		return Materiel{}, err
	}
	m, err := svc.repo.GetMateriel(ctx, id)
	if err != nil {
		return Materiel{}, err
	}
	if m.Status == StatusHorsService {
		return Materiel{}, core.NewValidationError(errOutOfService)
	}

	if a.ChantierID == "" {
		m.ChantierID = nil
		if m.Status == StatusEnService {
			m.Status = StatusDisponible
		}
	} else {
		chantierID := a.ChantierID
		m.ChantierID = &chantierID
		if m.Status != StatusMaintenance {
			m.Status = StatusEnService
		}
	}
	m.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMateriel(ctx, m)
}

// Due lists the equipment whose next maintenance date is before `now`.
func (svc *Service) Due(ctx context.Context, now time.Time) ([]Materiel, error) {
	list, err := svc.repo.QueryMateriel(ctx, &QueryFilter{DueBefore: now}, []core.DBOrdering{{Field: "next_maintenance", Ascending: true}})
	if err != nil {
		return nil, err
	}
	due := make([]Materiel, 0, len(list))
	for _, m := range list {
		if m.MaintenanceDue(now) {
			due = append(due, m)
		}
	}
	return due, nil
}

func (svc *Service) CreateMaintenance(ctx context.Context, nm NewMaintenance) (Maintenance, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Maintenance{}, err
	}
	if _, err := svc.repo.GetMateriel(ctx, nm.MaterielID); err != nil {
		if core.IsNotFound(err) {
			return Maintenance{}, core.NewFieldValidationError("materiel_id", err.Error())
		}
		return Maintenance{}, err
	}
	now := time.Now().UTC()
	m := Maintenance{Status: MaintenancePlanifiee, CreatedAt: now}
	nm.apply(&m, now)
	return svc.repo.CreateMaintenance(ctx, m)
}

func (svc *Service) QueryMaintenances(ctx context.Context, filter *MaintenanceFilter, ordering []core.DBOrdering) ([]Maintenance, error) {
	return svc.repo.QueryMaintenances(ctx, filter, ordering)
}

func (svc *Service) GetMaintenance(ctx context.Context, id string) (Maintenance, error) {
	return svc.repo.GetMaintenance(ctx, id)
}

func (svc *Service) UpdateMaintenance(ctx context.Context, id string, nm NewMaintenance) (Maintenance, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Maintenance{}, err
	}
	m, err := svc.repo.GetMaintenance(ctx, id)
	if err != nil {
		return Maintenance{}, err
	}
	if m.Status == MaintenanceTerminee {
		return Maintenance{}, core.NewValidationError(errCompletedReadOnly)
	}
	nm.apply(&m, time.Now().UTC())
	return svc.repo.UpdateMaintenance(ctx, m)
}

func (svc *Service) DeleteMaintenances(ctx context.Context, ids ...string) (int, error) {
	return svc.repo.DeleteMaintenancesByID(ctx, ids...)
}

// StartMaintenance marks the maintenance in progress and takes the equipment out of service.
func (svc *Service) StartMaintenance(ctx context.Context, id string) (Maintenance, error) {
	mnt, err := svc.repo.GetMaintenance(ctx, id)
	if err != nil {
		return Maintenance{}, err
	}
	if mnt.Status == MaintenanceTerminee {
		return Maintenance{}, core.NewValidationError(errAlreadyCompleted)
	}

	eqp, err := svc.repo.GetMateriel(ctx, mnt.MaterielID)
	if err != nil {
		return Maintenance{}, errors.Wrap(err, "getting materiel")
	}
	now := time.Now().UTC()
	eqp.Status = StatusMaintenance
	eqp.UpdatedAt = now
	if _, err = svc.repo.UpdateMateriel(ctx, eqp); err != nil {
		return Maintenance{}, errors.Wrap(err, "updating materiel")
	}

	mnt.Status = MaintenanceEnCours
	mnt.UpdatedAt = now
	return svc.repo.UpdateMaintenance(ctx, mnt)
}

// CompleteMaintenance stamps the completion date, closes the maintenance and makes the equipment available.
func (svc *Service) CompleteMaintenance(ctx context.Context, id string, c Completion) (Maintenance, error) {
	if err := svc.validate.Struct(c); err != nil {
		return Maintenance{}, err
	}
	mnt, err := svc.repo.GetMaintenance(ctx, id)
	if err != nil {
		return Maintenance{}, err
	}
	if mnt.Status == MaintenanceTerminee {
		return Maintenance{}, core.NewValidationError(errAlreadyCompleted)
	}

	eqp, err := svc.repo.GetMateriel(ctx, mnt.MaterielID)
	if err != nil {
		return Maintenance{}, errors.Wrap(err, "getting materiel")
	}

	now := time.Now().UTC()
	mnt.CompletedDate = &now
	mnt.Status = MaintenanceTerminee
	if c.Cost != nil {
		mnt.Cost = core.RoundCents(*c.Cost)
	}
	mnt.UpdatedAt = now
	if mnt, err = svc.repo.UpdateMaintenance(ctx, mnt); err != nil {
		return Maintenance{}, err
	}

	eqp.Status = StatusDisponible
	eqp.ChantierID = nil
	eqp.NextMaintenance = nil
	if c.NextMaintenance != nil {
		next := c.NextMaintenance.UTC()
		eqp.NextMaintenance = &next
	}
	eqp.UpdatedAt = now
	if _, err = svc.repo.UpdateMateriel(ctx, eqp); err != nil {
		return Maintenance{}, errors.Wrap(err, "updating materiel")
	}
	return mnt, nil
}

func (nm NewMateriel) apply(m *Materiel, now time.Time) {
	m.Name = nm.Name
	m.Type = nm.Type
	m.Brand = nm.Brand
	m.SerialNumber = nm.SerialNumber
	m.Status = nm.Status
	m.ChantierID = nm.ChantierID
	m.PurchaseDate = utcPtr(nm.PurchaseDate)
	m.NextMaintenance = utcPtr(nm.NextMaintenance)
	m.UpdatedAt = now
}

func (nm NewMaintenance) apply(m *Maintenance, now time.Time) {
	m.MaterielID = nm.MaterielID
	m.Kind = nm.Kind
	m.Description = nm.Description
	m.ScheduledDate = nm.ScheduledDate.UTC()
	m.Cost = core.RoundCents(nm.Cost)
	m.UpdatedAt = now
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
