package chantier

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

var ErrNotFound = core.NewNotFoundError("chantier")

type (
	Repository interface {
		CreateChantier(ctx context.Context, c Chantier) (Chantier, error)
		QueryChantiers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Chantier, error)
		GetChantier(ctx context.Context, id string) (Chantier, error)
		UpdateChantier(ctx context.Context, c Chantier) (Chantier, error)
		DeleteChantiersByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nc NewChantier) (Chantier, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Chantier{}, err
	}
	now := time.Now().UTC()
	c := Chantier{CreatedAt: now}
	nc.apply(&c, now)
	return svc.repo.CreateChantier(ctx, c)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Chantier, error) {
	return svc.repo.QueryChantiers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Chantier, error) {
	return svc.repo.GetChantier(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, nc NewChantier) (Chantier, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Chantier{}, err
	}
	c, err := svc.repo.GetChantier(ctx, id)
	if err != nil {
		return Chantier{}, err
	}
	nc.apply(&c, time.Now().UTC())
	return svc.repo.UpdateChantier(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	return svc.repo.DeleteChantiersByID(ctx, ids...)
}

func (nc NewChantier) apply(c *Chantier, now time.Time) {
	c.Name = nc.Name
	c.ClientID = nc.ClientID
	c.Address = nc.Address
	c.Status = nc.Status
	c.StartDate = nc.StartDate.UTC()
	c.EndDate = nil
	if nc.EndDate != nil {
		end := nc.EndDate.UTC()
		c.EndDate = &end
	}
	c.Budget = core.RoundCents(nc.Budget)
	c.Description = nc.Description
	c.UpdatedAt = now
}
