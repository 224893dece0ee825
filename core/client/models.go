package client

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

// Collection is the name of the clients table and realtime collection.
const Collection = "clients"

// Kinds
const (
	KindParticulier = "particulier"
	KindEntreprise  = "entreprise"
	KindPublic      = "public"
)

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Siret     string    `json:"siret"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewClient contains the information needed to create or replace a Client.
type NewClient struct {
	Name    string `json:"name" validate:"required,notblank"`
	Kind    string `json:"kind" validate:"required,oneof=particulier entreprise public"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,max=20"`
	Address string `json:"address"`
	Siret   string `json:"siret" validate:"required_if=Kind entreprise,omitempty,numeric,len=14"`
}

func (nc *NewClient) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Kind = core.CleanString(nc.Kind, true /* lower */)
	nc.Email = core.CleanString(nc.Email, true /* lower */)
	nc.Phone = core.CleanString(nc.Phone)
	nc.Address = core.CleanString(nc.Address)
	nc.Siret = core.CleanString(nc.Siret)
	return validate.Struct(nc)
}

type QueryFilter struct {
	Search string   `query:"search"`
	Kinds  []string `query:"kind"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
