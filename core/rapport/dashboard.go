package rapport

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
)

// Fetchers load the collections watched by a Dashboard.
type Fetchers struct {
	Chantiers realtime.FetchFunc[chantier.Chantier]
	Ouvriers  realtime.FetchFunc[ouvrier.Ouvrier]
	Saisies   realtime.FetchFunc[heure.Saisie]
	Factures  realtime.FetchFunc[facture.Facture]
	Materiel  realtime.FetchFunc[materiel.Materiel]
}

type DashboardOptions struct {
	Policy   heure.OvertimePolicy
	Debounce time.Duration
	Logger   core.Logger
}

// Dashboard keeps live snapshots of the collections behind the dashboard stats.
type Dashboard struct {
	chantiers *realtime.Binding[chantier.Chantier]
	ouvriers  *realtime.Binding[ouvrier.Ouvrier]
	saisies   *realtime.Binding[heure.Saisie]
	factures  *realtime.Binding[facture.Facture]
	materiel  *realtime.Binding[materiel.Materiel]
	policy    heure.OvertimePolicy
}

func NewDashboard(sub realtime.Subscriber, fetchers Fetchers, opts DashboardOptions) *Dashboard {
	policy := opts.Policy
	if policy.Threshold <= 0 {
		policy = heure.DefaultPolicy
	}
	return &Dashboard{
		chantiers: realtime.NewBinding(sub, chantier.Collection, fetchers.Chantiers, &realtime.Options[chantier.Chantier]{
			Debounce: opts.Debounce,
			Logger:   opts.Logger,
		}),
		ouvriers: realtime.NewBinding(sub, ouvrier.Collection, fetchers.Ouvriers, &realtime.Options[ouvrier.Ouvrier]{
			Debounce: opts.Debounce,
			Key:      func(o ouvrier.Ouvrier) string { return o.ID },
			Less:     ouvrier.Less,
			Logger:   opts.Logger,
		}),
		saisies: realtime.NewBinding(sub, heure.Collection, fetchers.Saisies, &realtime.Options[heure.Saisie]{
			Debounce: opts.Debounce,
			Logger:   opts.Logger,
		}),
		factures: realtime.NewBinding(sub, facture.Collection, fetchers.Factures, &realtime.Options[facture.Facture]{
			Debounce: opts.Debounce,
			Logger:   opts.Logger,
		}),
		materiel: realtime.NewBinding(sub, materiel.Collection, fetchers.Materiel, &realtime.Options[materiel.Materiel]{
			Debounce: opts.Debounce,
			Logger:   opts.Logger,
		}),
		policy: policy,
	}
}

type binding interface {
	Activate(ctx context.Context) error
	Deactivate() error
	Wait()
}

func (d *Dashboard) bindings() []binding {
	return []binding{d.chantiers, d.ouvriers, d.saisies, d.factures, d.materiel}
}

// Activate starts every binding. Already started bindings are deactivated if one of them fails.
func (d *Dashboard) Activate(ctx context.Context) error {
	for _, b := range d.bindings() {
		if err := b.Activate(ctx); err != nil {
			_ = d.Deactivate()
			return errors.Wrap(err, "activating dashboard")
		}
	}
	return nil
}

func (d *Dashboard) Deactivate() error {
	var firstErr error
	for _, b := range d.bindings() {
		if err := b.Deactivate(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Wait blocks until pending refetches have settled.
func (d *Dashboard) Wait() {
	for _, b := range d.bindings() {
		b.Wait()
	}
}

type Stats struct {
	ActiveSites            int       `json:"active_sites"`
	ActiveWorkers          int       `json:"active_workers"`
	HoursThisWeek          float64   `json:"hours_this_week"`
	OvertimeHoursThisWeek  float64   `json:"overtime_hours_this_week"`
	UnpaidTTC              float64   `json:"unpaid_ttc"`
	OverdueInvoices        int       `json:"overdue_invoices"`
	EquipmentInMaintenance int       `json:"equipment_in_maintenance"`
	MaintenanceDue         int       `json:"maintenance_due"`
	Loading                bool      `json:"loading"`
	Errors                 []string  `json:"errors,omitempty"`
	ComputedAt             time.Time `json:"computed_at"`
}

// Stats computes the dashboard figures from the current snapshots.
func (d *Dashboard) Stats(now time.Time) Stats {
	stats := Stats{ComputedAt: now.UTC()}
	track := func(loading bool, err error) {
		stats.Loading = stats.Loading || loading
		if err != nil {
			stats.Errors = append(stats.Errors, err.Error())
		}
	}

	sites := d.chantiers.State()
	track(sites.Loading, sites.Err)
	for _, c := range sites.Data {
		if c.IsActive() {
			stats.ActiveSites++
		}
	}

	workers := d.ouvriers.State()
	track(workers.Loading, workers.Err)
	for _, o := range workers.Data {
		if o.IsActive() {
			stats.ActiveWorkers++
		}
	}

	entries := d.saisies.State()
	track(entries.Loading, entries.Err)
	weekStart := heure.WeekStart(now)
	weekEnd := weekStart.AddDate(0, 0, 7)
	thisWeek := make([]heure.Saisie, 0, len(entries.Data))
	for _, e := range entries.Data {
		if !e.Date.Before(weekStart) && e.Date.Before(weekEnd) {
			thisWeek = append(thisWeek, e)
		}
	}
	for _, summary := range heure.WeeklySummaries(thisWeek, d.policy) {
		stats.HoursThisWeek += summary.Hours
		stats.OvertimeHoursThisWeek += summary.Breakdown.Overtime()
	}

	invoices := d.factures.State()
	track(invoices.Loading, invoices.Err)
	for _, f := range invoices.Data {
		if f.Unpaid() {
			stats.UnpaidTTC += f.TotalTTC()
		}
		if f.IsOverdue(now) {
			stats.OverdueInvoices++
		}
	}

	equipment := d.materiel.State()
	track(equipment.Loading, equipment.Err)
	for _, m := range equipment.Data {
		if m.Status == materiel.StatusMaintenance {
			stats.EquipmentInMaintenance++
		}
		if m.MaintenanceDue(now) {
			stats.MaintenanceDue++
		}
	}

	stats.HoursThisWeek = core.RoundCents(stats.HoursThisWeek)
	stats.OvertimeHoursThisWeek = core.RoundCents(stats.OvertimeHoursThisWeek)
	stats.UnpaidTTC = core.RoundCents(stats.UnpaidTTC)
	return stats
}
