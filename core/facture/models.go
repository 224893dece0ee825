package facture

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

// Collection is the name of the factures table and realtime collection.
const Collection = "factures"

// DefaultVATRate is the standard french VAT rate.
const DefaultVATRate = 0.20

// Statuses
const (
	StatusBrouillon = "brouillon"
	StatusEnvoyee   = "envoyee"
	StatusPayee     = "payee"
	StatusEnRetard  = "en_retard"
	StatusAnnulee   = "annulee"
)

type Facture struct {
	ID         string     `json:"id"`
	Number     string     `json:"number"`
	ClientID   string     `json:"client_id"`
	ChantierID string     `json:"chantier_id"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    time.Time  `json:"due_date"`
	AmountHT   float64    `json:"amount_ht"`
	VATRate    float64    `json:"vat_rate"`
	Status     string     `json:"status"`
	SentAt     *time.Time `json:"sent_at"`
	PaidAt     *time.Time `json:"paid_at"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
	UpdatedAt  time.Time  `json:"updated_at"` // UTC
}

// TotalTTC is AmountHT with VAT, rounded to cents.
func (f Facture) TotalTTC() float64 {
	return core.RoundCents(f.AmountHT * (1 + f.VATRate))
}

func (f Facture) VATAmount() float64 {
	return core.RoundCents(f.TotalTTC() - f.AmountHT)
}

// Unpaid reports whether f was issued and is still awaiting payment.
func (f Facture) Unpaid() bool {
	return f.Status == StatusEnvoyee || f.Status == StatusEnRetard
}

// IsOverdue reports whether f is unpaid and its due date is before `now`.
func (f Facture) IsOverdue(now time.Time) bool {
	return f.Unpaid() && f.DueDate.Before(now)
}

// FormatNumber renders an invoice number, eg. FAC-2024-0007.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("FAC-%d-%04d", year, seq)
}

// NewFacture contains the information needed to create or replace a draft Facture.
type NewFacture struct {
	ClientID   string    `json:"client_id" validate:"required,uuid"`
	ChantierID string    `json:"chantier_id" validate:"required,uuid"`
	IssueDate  time.Time `json:"issue_date"`
	DueDate    time.Time `json:"due_date" validate:"required"`
	AmountHT   float64   `json:"amount_ht" validate:"gte=0"`
	VATRate    *float64  `json:"vat_rate" validate:"omitempty,gte=0,lte=1"`
}

func (nf *NewFacture) Validate(validate *validator.Validate) error {
	nf.ClientID = core.CleanString(nf.ClientID)
	nf.ChantierID = core.CleanString(nf.ChantierID)
	if nf.IssueDate.IsZero() {
		nf.IssueDate = time.Now().UTC()
	}
	if nf.VATRate == nil {
		rate := DefaultVATRate
		nf.VATRate = &rate
	}

	if err := validate.Struct(nf); err != nil {
		return err
	}
	if nf.DueDate.Before(nf.IssueDate.Truncate(24 * time.Hour)) {
		return core.NewFieldValidationError("due_date", "due date cannot be before issue date")
	}
	return nil
}

type QueryFilter struct {
	Search     string    `query:"search"`
	Statuses   []string  `query:"status"`
	ClientID   string    `query:"client_id"`
	ChantierID string    `query:"chantier_id"`
	DueBefore  time.Time `query:"due_before"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClientID = core.CleanString(qf.ClientID)
	qf.ChantierID = core.CleanString(qf.ChantierID)
}
