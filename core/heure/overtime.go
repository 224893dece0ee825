package heure

import (
	"math"
	"sort"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

// OvertimePolicy splits the weekly hours of a worker in 3 bands:
// regular hours up to Threshold, tier 1 up to TierLimit and tier 2 beyond.
type OvertimePolicy struct {
	Threshold float64
	TierLimit float64
	Tier1Rate float64 // premium, eg. 0.25 for +25 %
	Tier2Rate float64
}

// DefaultPolicy is the french legal week: 35h, +25 % up to 43h, +50 % beyond.
var DefaultPolicy = OvertimePolicy{Threshold: 35, TierLimit: 43, Tier1Rate: .25, Tier2Rate: .50}

func PolicyFromConfig(conf core.OvertimeConfig) OvertimePolicy {
	p := OvertimePolicy{
		Threshold: conf.WeeklyThreshold,
		TierLimit: conf.TierLimit,
		Tier1Rate: conf.Tier1Rate,
		Tier2Rate: conf.Tier2Rate,
	}
	if p.Threshold <= 0 {
		return DefaultPolicy
	}
	if p.TierLimit < p.Threshold {
		p.TierLimit = p.Threshold
	}
	return p
}

type OvertimeBreakdown struct {
	Regular float64 `json:"regular"`
	Tier1   float64 `json:"tier1"`
	Tier2   float64 `json:"tier2"`
}

func (b OvertimeBreakdown) Total() float64    { return b.Regular + b.Tier1 + b.Tier2 }
func (b OvertimeBreakdown) Overtime() float64 { return b.Tier1 + b.Tier2 }

// Cost is the labour cost of the breakdown, premiums included.
func (b OvertimeBreakdown) Cost(hourlyRate float64, p OvertimePolicy) float64 {
	return core.RoundCents(hourlyRate * (b.Regular + b.Tier1*(1+p.Tier1Rate) + b.Tier2*(1+p.Tier2Rate)))
}

func (b OvertimeBreakdown) add(o OvertimeBreakdown) OvertimeBreakdown {
	return OvertimeBreakdown{Regular: b.Regular + o.Regular, Tier1: b.Tier1 + o.Tier1, Tier2: b.Tier2 + o.Tier2}
}

// Overtime splits `hours` worked in a week according to p. Negative hours count as 0.
func Overtime(hours float64, p OvertimePolicy) OvertimeBreakdown {
	h := math.Max(hours, 0)
	return OvertimeBreakdown{
		Regular: math.Min(h, p.Threshold),
		Tier1:   math.Min(math.Max(h-p.Threshold, 0), p.TierLimit-p.Threshold),
		Tier2:   math.Max(h-p.TierLimit, 0),
	}
}

// WeeklySummary is the time worked by a worker during an ISO week.
type WeeklySummary struct {
	OuvrierID string            `json:"ouvrier_id"`
	Year      int               `json:"year"`
	Week      int               `json:"week"`
	Hours     float64           `json:"hours"`
	Breakdown OvertimeBreakdown `json:"breakdown"`
}

type weekKey struct {
	ouvrierID  string
	year, week int
}

// WeeklySummaries groups entries by worker and ISO week, sorted by worker then week.
func WeeklySummaries(entries []Saisie, p OvertimePolicy) []WeeklySummary {
	totals := make(map[weekKey]float64)
	for _, e := range entries {
		year, week := e.Date.ISOWeek()
		totals[weekKey{e.OuvrierID, year, week}] += e.Hours
	}

	summaries := make([]WeeklySummary, 0, len(totals))
	for k, hours := range totals {
		summaries = append(summaries, WeeklySummary{
			OuvrierID: k.ouvrierID,
			Year:      k.year,
			Week:      k.week,
			Hours:     hours,
			Breakdown: Overtime(hours, p),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.OuvrierID != b.OuvrierID {
			return a.OuvrierID < b.OuvrierID
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Week < b.Week
	})
	return summaries
}

// SiteShare splits the weekly breakdown of a worker across the sites of the week, pro rata of the hours
// spent on each. The result is keyed by chantier ID.
func SiteShare(entries []Saisie, p OvertimePolicy) map[string]OvertimeBreakdown {
	type siteKey struct {
		week       weekKey
		chantierID string
	}
	weekly := make(map[weekKey]float64)
	perSite := make(map[siteKey]float64)
	for _, e := range entries {
		year, week := e.Date.ISOWeek()
		wk := weekKey{e.OuvrierID, year, week}
		weekly[wk] += e.Hours
		perSite[siteKey{wk, e.ChantierID}] += e.Hours
	}

	shares := make(map[string]OvertimeBreakdown)
	for sk, hours := range perSite {
		total := weekly[sk.week]
		if total <= 0 {
			continue
		}
		bd := Overtime(total, p)
		ratio := hours / total
		shares[sk.chantierID] = shares[sk.chantierID].add(OvertimeBreakdown{
			Regular: bd.Regular * ratio,
			Tier1:   bd.Tier1 * ratio,
			Tier2:   bd.Tier2 * ratio,
		})
	}
	return shares
}
