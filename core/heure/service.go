package heure

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

var (
	ErrNotFound = core.NewNotFoundError("saisie")

	errValidatedReadOnly = errors.New("a validated time entry cannot be modified")
)

type (
	Repository interface {
		CreateSaisie(ctx context.Context, s Saisie) (Saisie, error)
		QuerySaisies(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Saisie, error)
		GetSaisie(ctx context.Context, id string) (Saisie, error)
		UpdateSaisie(ctx context.Context, s Saisie) (Saisie, error)
		DeleteSaisiesByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		policy   OvertimePolicy
	}
)

func NewService(repo Repository, validate *validator.Validate, policy OvertimePolicy) *Service {
	return &Service{repo: repo, validate: validate, policy: policy}
}

func (svc *Service) Policy() OvertimePolicy { return svc.policy }

func (svc *Service) Create(ctx context.Context, ns NewSaisie) (Saisie, error) {
	if err := svc.validateNew(ctx, &ns, ""); err != nil {
		return Saisie{}, err
	}
	now := time.Now().UTC()
	s := Saisie{CreatedAt: now}
	ns.apply(&s, now)
	return svc.repo.CreateSaisie(ctx, s)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Saisie, error) {
	return svc.repo.QuerySaisies(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Saisie, error) {
	return svc.repo.GetSaisie(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ns NewSaisie) (Saisie, error) {
	s, err := svc.repo.GetSaisie(ctx, id)
	if err != nil {
		return Saisie{}, err
	}
	if s.Validated {
		return Saisie{}, core.NewValidationError(errValidatedReadOnly)
	}
	if err = svc.validateNew(ctx, &ns, id); err != nil {
		return Saisie{}, err
	}
	ns.apply(&s, time.Now().UTC())
	return svc.repo.UpdateSaisie(ctx, s)
}

// Delete removes time entries. Nothing is deleted when one of them is validated.
func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	for _, id := range ids {
		s, err := svc.repo.GetSaisie(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return 0, err
		}
		if s.Validated {
			return 0, core.NewValidationError(errValidatedReadOnly)
		}
	}
	return svc.repo.DeleteSaisiesByID(ctx, ids...)
}

// Approve locks time entries once checked by a site manager.
func (svc *Service) Approve(ctx context.Context, ids ...string) ([]Saisie, error) {
	validated := make([]Saisie, 0, len(ids))
	for _, id := range ids {
		s, err := svc.repo.GetSaisie(ctx, id)
		if err != nil {
			return validated, err
		}
		if !s.Validated {
			s.Validated = true
			s.UpdatedAt = time.Now().UTC()
			if s, err = svc.repo.UpdateSaisie(ctx, s); err != nil {
				return validated, err
			}
		}
		validated = append(validated, s)
	}
	return validated, nil
}

// Summary returns the weekly overtime summaries of the entries matching filter.
func (svc *Service) Summary(ctx context.Context, filter *QueryFilter) ([]WeeklySummary, error) {
	entries, err := svc.repo.QuerySaisies(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	return WeeklySummaries(entries, svc.policy), nil
}

// validateNew also checks that the worker does not exceed 24 hours on the day, `excludedID` aside.
func (svc *Service) validateNew(ctx context.Context, ns *NewSaisie, excludedID string) error {
	if err := ns.Validate(svc.validate); err != nil {
		return err
	}

	sameDay, err := svc.repo.QuerySaisies(ctx, &QueryFilter{
		OuvrierID: ns.OuvrierID,
		From:      ns.Date,
		To:        ns.Date.AddDate(0, 0, 1),
	}, nil)
	if err != nil {
		return errors.Wrap(err, "querying daily entries")
	}
	total := ns.Hours
	for _, s := range sameDay {
		if s.ID != excludedID {
			total += s.Hours
		}
	}
	if total > maxDailyHours {
		return core.NewFieldValidationError(
			"hours",
			fmt.Sprintf("a worker cannot log more than %d hours a day (%.2f)", maxDailyHours, total),
		)
	}
	return nil
}

func (ns NewSaisie) apply(s *Saisie, now time.Time) {
	s.OuvrierID = ns.OuvrierID
	s.ChantierID = ns.ChantierID
	s.Date = ns.Date
	s.Hours = core.RoundCents(ns.Hours)
	s.Description = ns.Description
	s.UpdatedAt = now
}
