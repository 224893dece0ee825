package chantier

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

// Collection is the name of the chantiers table and realtime collection.
const Collection = "chantiers"

// Statuses
const (
	StatusPlanifie = "planifie"
	StatusActif    = "actif"
	StatusSuspendu = "suspendu"
	StatusTermine  = "termine"
)

type Chantier struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ClientID    string     `json:"client_id"`
	Address     string     `json:"address"`
	Status      string     `json:"status"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Budget      float64    `json:"budget"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

func (c Chantier) IsActive() bool {
	return c.Status == StatusActif
}

// NewChantier contains the information needed to create or replace a Chantier.
type NewChantier struct {
	Name        string     `json:"name" validate:"required,notblank"`
	ClientID    string     `json:"client_id" validate:"required,uuid"`
	Address     string     `json:"address"`
	Status      string     `json:"status" validate:"omitempty,oneof=planifie actif suspendu termine"`
	StartDate   time.Time  `json:"start_date" validate:"required"`
	EndDate     *time.Time `json:"end_date"`
	Budget      float64    `json:"budget" validate:"gte=0"`
	Description string     `json:"description"`
}

func (nc *NewChantier) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Address = core.CleanString(nc.Address)
	nc.Status = core.CleanString(nc.Status, true /* lower */)
	if nc.Status == "" {
		nc.Status = StatusPlanifie
	}
	nc.Description = core.CleanString(nc.Description)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	if nc.EndDate != nil && nc.EndDate.Before(nc.StartDate) {
		return core.NewFieldValidationError("end_date", "end date cannot be before start date")
	}
	return nil
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Statuses []string `query:"status"`
	ClientID string   `query:"client_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClientID = core.CleanString(qf.ClientID)
}
