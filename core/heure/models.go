package heure

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

// Collection is the name of the saisies_heures table and realtime collection.
const Collection = "saisies_heures"

const maxDailyHours = 24

// Saisie is the time a worker spent on a site on a given day.
type Saisie struct {
	ID          string    `json:"id"`
	OuvrierID   string    `json:"ouvrier_id"`
	ChantierID  string    `json:"chantier_id"`
	Date        time.Time `json:"date"`
	Hours       float64   `json:"hours"`
	Description string    `json:"description"`
	Validated   bool      `json:"validated"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewSaisie contains the information needed to create or replace a Saisie.
type NewSaisie struct {
	OuvrierID   string    `json:"ouvrier_id" validate:"required,uuid"`
	ChantierID  string    `json:"chantier_id" validate:"required,uuid"`
	Date        time.Time `json:"date" validate:"required"`
	Hours       float64   `json:"hours" validate:"gt=0,lte=24"`
	Description string    `json:"description"`
}

func (ns *NewSaisie) Validate(validate *validator.Validate) error {
	ns.OuvrierID = core.CleanString(ns.OuvrierID)
	ns.ChantierID = core.CleanString(ns.ChantierID)
	ns.Description = core.CleanString(ns.Description)
	ns.Date = Day(ns.Date)
	return validate.Struct(ns)
}

type QueryFilter struct {
	OuvrierID  string    `query:"ouvrier_id"`
	ChantierID string    `query:"chantier_id"`
	From       time.Time `query:"from"`
	To         time.Time `query:"to"` // exclusive
	Validated  *bool     `query:"validated"`
}

func (qf *QueryFilter) Clean() {
	qf.OuvrierID = core.CleanString(qf.OuvrierID)
	qf.ChantierID = core.CleanString(qf.ChantierID)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the monday of the ISO week of t, at midnight UTC.
func WeekStart(t time.Time) time.Time {
	day := Day(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
