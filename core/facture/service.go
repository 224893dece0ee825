package facture

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/client"
)

var (
	ErrNotFound = core.NewNotFoundError("facture")

	errNotDraft       = errors.New("only draft invoices can be modified")
	errCancelled      = errors.New("invoice is cancelled")
	errAlreadyPaid    = errors.New("invoice is already paid")
	errNoClientEmail  = errors.New("client has no email address")
	errChantierClient = errors.New("chantier does not belong to this client")
)

type (
	Repository interface {
		CreateFacture(ctx context.Context, f Facture) (Facture, error)
		QueryFactures(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Facture, error)
		GetFacture(ctx context.Context, id string) (Facture, error)
		UpdateFacture(ctx context.Context, f Facture) (Facture, error)
		DeleteFacturesByID(ctx context.Context, ids ...string) (int, error)

		// NextNumber increments and returns the invoice sequence of `year`.
		NextNumber(ctx context.Context, year int) (int, error)
	}

	ClientGetter interface {
		GetClient(ctx context.Context, id string) (client.Client, error)
	}

	ChantierGetter interface {
		GetChantier(ctx context.Context, id string) (chantier.Chantier, error)
	}

	Service struct {
		repo      Repository
		clients   ClientGetter
		chantiers ChantierGetter
		mailSvc   core.EmailService
		validate  *validator.Validate
	}
)

func NewService(
	repo Repository,
	clients ClientGetter,
	chantiers ChantierGetter,
	mailSvc core.EmailService,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:      repo,
		clients:   clients,
		chantiers: chantiers,
		mailSvc:   mailSvc,
		validate:  validate,
	}
}

// Create saves a draft invoice numbered after the yearly sequence of its issue date.
func (svc *Service) Create(ctx context.Context, nf NewFacture) (Facture, error) {
	if err := svc.validateNew(ctx, &nf); err != nil {
		return Facture{}, err
	}

	seq, err := svc.repo.NextNumber(ctx, nf.IssueDate.UTC().Year())
	if err != nil {
		return Facture{}, errors.Wrap(err, "getting next invoice number")
	}

	now := time.Now().UTC()
	f := Facture{
		Number:    FormatNumber(nf.IssueDate.UTC().Year(), seq),
		Status:    StatusBrouillon,
		CreatedAt: now,
	}
	nf.apply(&f, now)
	return svc.repo.CreateFacture(ctx, f)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Facture, error) {
	return svc.repo.QueryFactures(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Facture, error) {
	return svc.repo.GetFacture(ctx, id)
}

// Update replaces a draft invoice. Its number never changes.
func (svc *Service) Update(ctx context.Context, id string, nf NewFacture) (Facture, error) {
	if err := svc.validateNew(ctx, &nf); err != nil {
		return Facture{}, err
	}
	f, err := svc.repo.GetFacture(ctx, id)
	if err != nil {
		return Facture{}, err
	}
	if f.Status != StatusBrouillon {
		return Facture{}, core.NewValidationError(errNotDraft)
	}
	nf.apply(&f, time.Now().UTC())
	return svc.repo.UpdateFacture(ctx, f)
}

// Delete removes draft invoices. Nothing is deleted when one of them was already issued.
func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	for _, id := range ids {
		f, err := svc.repo.GetFacture(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return 0, err
		}
		if f.Status != StatusBrouillon {
			return 0, core.NewValidationError(errNotDraft)
		}
	}
	return svc.repo.DeleteFacturesByID(ctx, ids...)
}

// Send marks the invoice as sent, then emails it to its client.
func (svc *Service) Send(ctx context.Context, id string) (Facture, error) {
	f, err := svc.repo.GetFacture(ctx, id)
	if err != nil {
		return Facture{}, err
	}
	switch f.Status {
	case StatusAnnulee:
		return Facture{}, core.NewValidationError(errCancelled)
	case StatusPayee:
		return Facture{}, core.NewValidationError(errAlreadyPaid)
	}

	clt, err := svc.clients.GetClient(ctx, f.ClientID)
	if err != nil {
		return Facture{}, errors.Wrap(err, "getting client")
	}
	if clt.Email == "" {
		return Facture{}, core.NewValidationError(errNoClientEmail)
	}
	site, err := svc.chantiers.GetChantier(ctx, f.ChantierID)
	if err != nil {
		return Facture{}, errors.Wrap(err, "getting chantier")
	}

	now := time.Now().UTC()
	f.SentAt = &now
	if f.Status == StatusBrouillon {
		f.Status = StatusEnvoyee
	}
	f.UpdatedAt = now
	if f, err = svc.repo.UpdateFacture(ctx, f); err != nil {
		return Facture{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: clt.Name, Address: clt.Email}},
		Subject:      fmt.Sprintf("Facture %s", f.Number),
		TemplateName: "facture",
		TemplateData: map[string]interface{}{
			"ClientName":   clt.Name,
			"Number":       f.Number,
			"ChantierName": site.Name,
			"AmountHT":     f.AmountHT,
			"VATPercent":   f.VATRate * 100,
			"VATAmount":    f.VATAmount(),
			"TotalTTC":     f.TotalTTC(),
			"DueDate":      f.DueDate.Format("02/01/2006"),
		},
	})
	return f, nil
}

func (svc *Service) MarkPaid(ctx context.Context, id string) (Facture, error) {
	f, err := svc.repo.GetFacture(ctx, id)
	if err != nil {
		return Facture{}, err
	}
	switch f.Status {
	case StatusAnnulee:
		return Facture{}, core.NewValidationError(errCancelled)
	case StatusPayee:
		return f, nil
	}

	now := time.Now().UTC()
	f.Status = StatusPayee
	f.PaidAt = &now
	f.UpdatedAt = now
	return svc.repo.UpdateFacture(ctx, f)
}

func (svc *Service) Cancel(ctx context.Context, id string) (Facture, error) {
	f, err := svc.repo.GetFacture(ctx, id)
	if err != nil {
		return Facture{}, err
	}
	if f.Status == StatusPayee {
		return Facture{}, core.NewValidationError(errAlreadyPaid)
	}
	f.Status = StatusAnnulee
	f.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateFacture(ctx, f)
}

// Overdue returns the unpaid invoices due before `now`.
func (svc *Service) Overdue(ctx context.Context, now time.Time) ([]Facture, error) {
	list, err := svc.repo.QueryFactures(
		ctx,
		&QueryFilter{Statuses: []string{StatusEnvoyee, StatusEnRetard}, DueBefore: now},
		[]core.DBOrdering{{Field: "due_date", Ascending: true}},
	)
	if err != nil {
		return nil, err
	}
	overdue := make([]Facture, 0, len(list))
	for _, f := range list {
		if f.IsOverdue(now) {
			overdue = append(overdue, f)
		}
	}
	return overdue, nil
}

// RefreshOverdue flags sent invoices past their due date as late and returns how many changed.
func (svc *Service) RefreshOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := svc.Overdue(ctx, now)
	if err != nil {
		return 0, err
	}
	var count int
	for _, f := range overdue {
		if f.Status != StatusEnvoyee {
			continue
		}
		f.Status = StatusEnRetard
		f.UpdatedAt = time.Now().UTC()
		if _, err = svc.repo.UpdateFacture(ctx, f); err != nil {
			return count, errors.Wrapf(err, "flagging %s as late", f.Number)
		}
		count++
	}
	return count, nil
}

func (svc *Service) validateNew(ctx context.Context, nf *NewFacture) error {
	if err := nf.Validate(svc.validate); err != nil {
		return err
	}
	if _, err := svc.clients.GetClient(ctx, nf.ClientID); err != nil {
		if core.IsNotFound(err) {
			return core.NewFieldValidationError("client_id", err.Error())
		}
		return err
	}
	site, err := svc.chantiers.GetChantier(ctx, nf.ChantierID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewFieldValidationError("chantier_id", err.Error())
		}
		return err
	}
	if site.ClientID != nf.ClientID {
		return core.NewFieldValidationError("chantier_id", errChantierClient.Error())
	}
	return nil
}

func (nf NewFacture) apply(f *Facture, now time.Time) {
	f.ClientID = nf.ClientID
	f.ChantierID = nf.ChantierID
	f.IssueDate = nf.IssueDate.UTC()
	f.DueDate = nf.DueDate.UTC()
	f.AmountHT = core.RoundCents(nf.AmountHT)
	f.VATRate = *nf.VATRate
	f.UpdatedAt = now
}
