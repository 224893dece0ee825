package ouvrier

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

var ErrNotFound = core.NewNotFoundError("ouvrier")

type (
	Repository interface {
		CreateOuvrier(ctx context.Context, o Ouvrier) (Ouvrier, error)
		QueryOuvriers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Ouvrier, error)
		GetOuvrier(ctx context.Context, id string) (Ouvrier, error)
		UpdateOuvrier(ctx context.Context, o Ouvrier) (Ouvrier, error)
		DeleteOuvriersByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, no NewOuvrier) (Ouvrier, error) {
	if err := no.Validate(svc.validate); err != nil {
		return Ouvrier{}, err
	}
	now := time.Now().UTC()
	o := Ouvrier{CreatedAt: now}
	no.apply(&o, now)
	return svc.repo.CreateOuvrier(ctx, o)
}

// Query lists workers, by name unless another ordering is requested.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Ouvrier, error) {
	if len(ordering) == 0 {
		ordering = DefaultOrdering
	}
	return svc.repo.QueryOuvriers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Ouvrier, error) {
	return svc.repo.GetOuvrier(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, no NewOuvrier) (Ouvrier, error) {
	if err := no.Validate(svc.validate); err != nil {
		return Ouvrier{}, err
	}
	o, err := svc.repo.GetOuvrier(ctx, id)
	if err != nil {
		return Ouvrier{}, err
	}
	no.apply(&o, time.Now().UTC())
	return svc.repo.UpdateOuvrier(ctx, o)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	return svc.repo.DeleteOuvriersByID(ctx, ids...)
}

func (no NewOuvrier) apply(o *Ouvrier, now time.Time) {
	o.LastName = no.LastName
	o.FirstName = no.FirstName
	o.Email = no.Email
	o.Phone = no.Phone
	o.Qualification = no.Qualification
	o.HourlyRate = core.RoundCents(no.HourlyRate)
	o.Status = no.Status
	o.HireDate = no.HireDate.UTC()
	o.UpdatedAt = now
}
