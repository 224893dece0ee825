// Package rapport computes the site reports and the live dashboard.
package rapport

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
)

type (
	ChantierRepository interface {
		GetChantier(ctx context.Context, id string) (chantier.Chantier, error)
	}

	OuvrierRepository interface {
		GetOuvrier(ctx context.Context, id string) (ouvrier.Ouvrier, error)
	}

	SaisieRepository interface {
		QuerySaisies(ctx context.Context, filter *heure.QueryFilter, ordering []core.DBOrdering) ([]heure.Saisie, error)
	}

	FactureRepository interface {
		QueryFactures(ctx context.Context, filter *facture.QueryFilter, ordering []core.DBOrdering) ([]facture.Facture, error)
	}

	Service struct {
		chantiers ChantierRepository
		ouvriers  OuvrierRepository
		saisies   SaisieRepository
		factures  FactureRepository
		policy    heure.OvertimePolicy
	}
)

func NewService(
	chantiers ChantierRepository,
	ouvriers OuvrierRepository,
	saisies SaisieRepository,
	factures FactureRepository,
	policy heure.OvertimePolicy,
) *Service {
	return &Service{
		chantiers: chantiers,
		ouvriers:  ouvriers,
		saisies:   saisies,
		factures:  factures,
		policy:    policy,
	}
}

// WorkerCost is the time a worker spent on a site and what it cost.
type WorkerCost struct {
	OuvrierID     string  `json:"ouvrier_id"`
	Name          string  `json:"name"`
	Hours         float64 `json:"hours"`
	OvertimeHours float64 `json:"overtime_hours"`
	Cost          float64 `json:"cost"`
}

type SiteReport struct {
	ChantierID        string       `json:"chantier_id"`
	Name              string       `json:"name"`
	Status            string       `json:"status"`
	Budget            float64      `json:"budget"`
	Hours             float64      `json:"hours"`
	OvertimeHours     float64      `json:"overtime_hours"`
	LabourCost        float64      `json:"labour_cost"`
	InvoicedHT        float64      `json:"invoiced_ht"`
	InvoicedTTC       float64      `json:"invoiced_ttc"`
	PaidTTC           float64      `json:"paid_ttc"`
	BudgetConsumption float64      `json:"budget_consumption"` // LabourCost / Budget, 0 without budget
	Workers           []WorkerCost `json:"workers"`
	GeneratedAt       time.Time    `json:"generated_at"`
}

// SiteReport sums the hours, labour cost & invoicing of a site.
// Overtime premiums are computed on the full week of each worker, then shared among the sites of the week
// pro rata of the hours spent on each.
func (svc *Service) SiteReport(ctx context.Context, chantierID string) (SiteReport, error) {
	site, err := svc.chantiers.GetChantier(ctx, chantierID)
	if err != nil {
		return SiteReport{}, err
	}
	report := SiteReport{
		ChantierID:  site.ID,
		Name:        site.Name,
		Status:      site.Status,
		Budget:      site.Budget,
		GeneratedAt: time.Now().UTC(),
	}

	siteEntries, err := svc.saisies.QuerySaisies(ctx, &heure.QueryFilter{ChantierID: site.ID}, nil)
	if err != nil {
		return SiteReport{}, errors.Wrap(err, "querying time entries")
	}

	type span struct{ from, to time.Time }
	spans := make(map[string]*span)
	for _, e := range siteEntries {
		from := heure.WeekStart(e.Date)
		to := from.AddDate(0, 0, 7)
		if s, ok := spans[e.OuvrierID]; !ok {
			spans[e.OuvrierID] = &span{from, to}
		} else {
			if from.Before(s.from) {
				s.from = from
			}
			if to.After(s.to) {
				s.to = to
			}
		}
	}

	for ouvrierID, s := range spans {
		worker, err := svc.ouvriers.GetOuvrier(ctx, ouvrierID)
		if err != nil {
			return SiteReport{}, errors.Wrapf(err, "getting ouvrier %s", ouvrierID)
		}
		// all sites: the overtime thresholds apply to the whole week
		entries, err := svc.saisies.QuerySaisies(ctx, &heure.QueryFilter{OuvrierID: ouvrierID, From: s.from, To: s.to}, nil)
		if err != nil {
			return SiteReport{}, errors.Wrap(err, "querying worker time entries")
		}
		share := heure.SiteShare(entries, svc.policy)[site.ID]
		wc := WorkerCost{
			OuvrierID:     worker.ID,
			Name:          worker.FullName(),
			Hours:         core.RoundCents(share.Total()),
			OvertimeHours: core.RoundCents(share.Overtime()),
			Cost:          share.Cost(worker.HourlyRate, svc.policy),
		}
		report.Workers = append(report.Workers, wc)
		report.Hours += wc.Hours
		report.OvertimeHours += wc.OvertimeHours
		report.LabourCost += wc.Cost
	}
	sort.Slice(report.Workers, func(i, j int) bool { return report.Workers[i].Name < report.Workers[j].Name })

	invoices, err := svc.factures.QueryFactures(ctx, &facture.QueryFilter{ChantierID: site.ID}, nil)
	if err != nil {
		return SiteReport{}, errors.Wrap(err, "querying invoices")
	}
	for _, f := range invoices {
		if f.Status == facture.StatusBrouillon || f.Status == facture.StatusAnnulee {
			continue
		}
		report.InvoicedHT += f.AmountHT
		report.InvoicedTTC += f.TotalTTC()
		if f.Status == facture.StatusPayee {
			report.PaidTTC += f.TotalTTC()
		}
	}

	report.Hours = core.RoundCents(report.Hours)
	report.OvertimeHours = core.RoundCents(report.OvertimeHours)
	report.LabourCost = core.RoundCents(report.LabourCost)
	report.InvoicedHT = core.RoundCents(report.InvoicedHT)
	report.InvoicedTTC = core.RoundCents(report.InvoicedTTC)
	report.PaidTTC = core.RoundCents(report.PaidTTC)
	if report.Budget > 0 {
		report.BudgetConsumption = report.LabourCost / report.Budget
	}
	return report, nil
}
