package materiel

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

// Collection names of the materiel & maintenances tables.
const (
	Collection            = "materiel"
	MaintenanceCollection = "maintenances"
)

// Equipment statuses
const (
	StatusDisponible  = "disponible"
	StatusEnService   = "en_service"
	StatusMaintenance = "maintenance"
	StatusHorsService = "hors_service"
)

// Maintenance kinds & statuses
const (
	KindPreventive = "preventive"
	KindCorrective = "corrective"

	MaintenancePlanifiee = "planifiee"
	MaintenanceEnCours   = "en_cours"
	MaintenanceTerminee  = "terminee"
)

type Materiel struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Brand           string     `json:"brand"`
	SerialNumber    string     `json:"serial_number"`
	Status          string     `json:"status"`
	ChantierID      *string    `json:"chantier_id"`
	PurchaseDate    *time.Time `json:"purchase_date"`
	NextMaintenance *time.Time `json:"next_maintenance"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
	UpdatedAt       time.Time  `json:"updated_at"` // UTC
}

// MaintenanceDue reports whether the next maintenance date of m is past.
func (m Materiel) MaintenanceDue(now time.Time) bool {
	return m.Status != StatusHorsService && m.NextMaintenance != nil && m.NextMaintenance.Before(now)
}

type Maintenance struct {
	ID            string     `json:"id"`
	MaterielID    string     `json:"materiel_id"`
	Kind          string     `json:"kind"`
	Description   string     `json:"description"`
	ScheduledDate time.Time  `json:"scheduled_date"`
	CompletedDate *time.Time `json:"completed_date"`
	Cost          float64    `json:"cost"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"` // UTC
	UpdatedAt     time.Time  `json:"updated_at"` // UTC
}

// NewMateriel contains the information needed to create or replace a Materiel.
type NewMateriel struct {
	Name            string     `json:"name" validate:"required,notblank"`
	Type            string     `json:"type"`
	Brand           string     `json:"brand"`
	SerialNumber    string     `json:"serial_number"`
	Status          string     `json:"status" validate:"omitempty,oneof=disponible en_service maintenance hors_service"`
	ChantierID      *string    `json:"chantier_id" validate:"omitempty,uuid"`
	PurchaseDate    *time.Time `json:"purchase_date"`
	NextMaintenance *time.Time `json:"next_maintenance"`
}

func (nm *NewMateriel) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.Type = core.CleanString(nm.Type)
	nm.Brand = core.CleanString(nm.Brand)
	nm.SerialNumber = core.CleanString(nm.SerialNumber)
	nm.Status = core.CleanString(nm.Status, true /* lower */)
	if nm.ChantierID != nil && core.CleanString(*nm.ChantierID) == "" {
		nm.ChantierID = nil
	}
	if nm.Status == "" {
		nm.Status = StatusDisponible
		if nm.ChantierID != nil {
			nm.Status = StatusEnService
		}
	}
	return validate.Struct(nm)
}

// NewMaintenance contains the information needed to schedule or replace a Maintenance.
type NewMaintenance struct {
	MaterielID    string    `json:"materiel_id" validate:"required,uuid"`
	Kind          string    `json:"kind" validate:"required,oneof=preventive corrective"`
	Description   string    `json:"description"`
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
	Cost          float64   `json:"cost" validate:"gte=0"`
}

func (nm *NewMaintenance) Validate(validate *validator.Validate) error {
	nm.MaterielID = core.CleanString(nm.MaterielID)
	nm.Kind = core.CleanString(nm.Kind, true /* lower */)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

// Assignment moves a Materiel to a site, or back to the depot when ChantierID is empty.
type Assignment struct {
	ChantierID string `json:"chantier_id" validate:"omitempty,uuid"`
}

// Completion closes a Maintenance. Cost replaces the estimated cost when set.
type Completion struct {
	Cost            *float64   `json:"cost" validate:"omitempty,gte=0"`
	NextMaintenance *time.Time `json:"next_maintenance"`
}

type QueryFilter struct {
	Search     string    `query:"search"`
	Statuses   []string  `query:"status"`
	ChantierID string    `query:"chantier_id"`
	DueBefore  time.Time `query:"due_before"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ChantierID = core.CleanString(qf.ChantierID)
}

type MaintenanceFilter struct {
	MaterielID string   `query:"materiel_id"`
	Kinds      []string `query:"kind"`
	Statuses   []string `query:"status"`
}

func (mf *MaintenanceFilter) Clean() {
	mf.MaterielID = core.CleanString(mf.MaterielID)
}
