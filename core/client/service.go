package client

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

var ErrNotFound = core.NewNotFoundError("client")

type (
	Repository interface {
		CreateClient(ctx context.Context, c Client) (Client, error)
		QueryClients(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Client, error)
		GetClient(ctx context.Context, id string) (Client, error)
		UpdateClient(ctx context.Context, c Client) (Client, error)
		DeleteClientsByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nc NewClient) (Client, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Client{}, err
	}
	now := time.Now().UTC()
	c := Client{CreatedAt: now}
	nc.apply(&c, now)
	return svc.repo.CreateClient(ctx, c)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Client, error) {
	return svc.repo.QueryClients(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Client, error) {
	return svc.repo.GetClient(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, nc NewClient) (Client, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Client{}, err
	}
	c, err := svc.repo.GetClient(ctx, id)
	if err != nil {
		return Client{}, err
	}
	nc.apply(&c, time.Now().UTC())
	return svc.repo.UpdateClient(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	return svc.repo.DeleteClientsByID(ctx, ids...)
}

func (nc NewClient) apply(c *Client, now time.Time) {
	c.Name = nc.Name
	c.Kind = nc.Kind
	c.Email = nc.Email
	c.Phone = nc.Phone
	c.Address = nc.Address
	c.Siret = nc.Siret
	c.UpdatedAt = now
}
