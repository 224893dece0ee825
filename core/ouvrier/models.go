package ouvrier

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

// Collection is the name of the ouvriers table and realtime collection.
const Collection = "ouvriers"

// Statuses
const (
	StatusActif   = "actif"
	StatusConge   = "conge"
	StatusArret   = "arret"
	StatusInactif = "inactif"
)

// DefaultOrdering sorts workers by name.
var DefaultOrdering = []core.DBOrdering{{Field: "last_name", Ascending: true}, {Field: "first_name", Ascending: true}}

type Ouvrier struct {
	ID            string    `json:"id"`
	LastName      string    `json:"last_name"`
	FirstName     string    `json:"first_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Qualification string    `json:"qualification"`
	HourlyRate    float64   `json:"hourly_rate"`
	Status        string    `json:"status"`
	HireDate      time.Time `json:"hire_date"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

func (o Ouvrier) FullName() string {
	return o.FirstName + " " + o.LastName
}

func (o Ouvrier) IsActive() bool {
	return o.Status == StatusActif
}

// Less orders workers by last name, then first name, ignoring case.
func Less(a, b Ouvrier) bool {
	al, bl := strings.ToLower(a.LastName), strings.ToLower(b.LastName)
	if al != bl {
		return al < bl
	}
	return strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName)
}

// NewOuvrier contains the information needed to create or replace an Ouvrier.
type NewOuvrier struct {
	LastName      string    `json:"last_name" validate:"required,notblank"`
	FirstName     string    `json:"first_name" validate:"required,notblank"`
	Email         string    `json:"email" validate:"omitempty,email"`
	Phone         string    `json:"phone" validate:"omitempty,max=20"`
	Qualification string    `json:"qualification"`
	HourlyRate    float64   `json:"hourly_rate" validate:"gte=0"`
	Status        string    `json:"status" validate:"omitempty,oneof=actif conge arret inactif"`
	HireDate      time.Time `json:"hire_date" validate:"required"`
}

func (no *NewOuvrier) Validate(validate *validator.Validate) error {
	no.LastName = core.CleanString(no.LastName)
	no.FirstName = core.CleanString(no.FirstName)
	no.Email = core.CleanString(no.Email, true /* lower */)
	no.Phone = core.CleanString(no.Phone)
	no.Qualification = core.CleanString(no.Qualification)
	no.Status = core.CleanString(no.Status, true /* lower */)
	if no.Status == "" {
		no.Status = StatusActif
	}
	return validate.Struct(no)
}

type QueryFilter struct {
	Search        string   `query:"search"`
	Statuses      []string `query:"status"`
	Qualification string   `query:"qualification"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Qualification = core.CleanString(qf.Qualification)
}
