// Package testutil builds in-memory environments and fixtures for tests.
package testutil

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/deepweb1970/gestionchantier-sub001/assets"
	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/client"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
	emailsvc "github.com/deepweb1970/gestionchantier-sub001/services/email"
	logsvc "github.com/deepweb1970/gestionchantier-sub001/services/logger"
	inmemdb "github.com/deepweb1970/gestionchantier-sub001/storage/database/inmem"
)

// Env holds an in-memory database publishing into Hub, with its repositories and services.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Hub        *realtime.Hub
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleService

	UserRepo     user.Repository
	ClientRepo   client.Repository
	ChantierRepo chantier.Repository
	OuvrierRepo  ouvrier.Repository
	MaterielRepo materiel.Repository
	FactureRepo  facture.Repository
	SaisieRepo   heure.Repository

	UserSvc     *user.Service
	ClientSvc   *client.Service
	ChantierSvc *chantier.Service
	OuvrierSvc  *ouvrier.Service
	MaterielSvc *materiel.Service
	FactureSvc  *facture.Service
	SaisieSvc   *heure.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := NewLogger(conf)
	if err := core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, true /* strict */); err != nil {
		t.Fatalf("parsing email templates: %v", err)
	}
	validate, translator := NewValidator()

	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Hub:        realtime.NewHub(),
		Validate:   validate,
		Translator: translator,
		Mail:       emailsvc.NewConsoleServiceMock(conf, logger),
	}
	env.DB = inmemdb.Open(env.Hub, logger)

	env.UserRepo = inmemdb.NewUserRepository(env.DB)
	env.ClientRepo = inmemdb.NewClientRepository(env.DB)
	env.ChantierRepo = inmemdb.NewChantierRepository(env.DB)
	env.OuvrierRepo = inmemdb.NewOuvrierRepository(env.DB)
	env.MaterielRepo = inmemdb.NewMaterielRepository(env.DB)
	env.FactureRepo = inmemdb.NewFactureRepository(env.DB)
	env.SaisieRepo = inmemdb.NewSaisieRepository(env.DB)

	env.UserSvc = user.NewService(env.UserRepo, env.Mail, conf)
	env.ClientSvc = client.NewService(env.ClientRepo, validate)
	env.ChantierSvc = chantier.NewService(env.ChantierRepo, validate)
	env.OuvrierSvc = ouvrier.NewService(env.OuvrierRepo, validate)
	env.MaterielSvc = materiel.NewService(env.MaterielRepo, validate)
	env.FactureSvc = facture.NewService(env.FactureRepo, env.ClientRepo, env.ChantierRepo, env.Mail, validate)
	env.SaisieSvc = heure.NewService(env.SaisieRepo, validate, heure.PolicyFromConfig(conf.Overtime))
	return env
}

// NewValidator returns a validator with every custom validator & translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger that discards everything.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateClient(t *testing.T, repo client.Repository, name, email string) client.Client {
	t.Helper()
	now := time.Now().UTC()
	c, err := repo.CreateClient(context.Background(), client.Client{
		Name:      name,
		Kind:      client.KindParticulier,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateClient(): %v", err)
	}
	return c
}

func CreateChantier(t *testing.T, repo chantier.Repository, clientID, name, status string, budget float64) chantier.Chantier {
	t.Helper()
	now := time.Now().UTC()
	c, err := repo.CreateChantier(context.Background(), chantier.Chantier{
		Name:      name,
		ClientID:  clientID,
		Status:    status,
		StartDate: now.AddDate(0, -1, 0),
		Budget:    budget,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateChantier(): %v", err)
	}
	return c
}

func CreateOuvrier(t *testing.T, repo ouvrier.Repository, lastName, firstName string, rate float64, status string) ouvrier.Ouvrier {
	t.Helper()
	now := time.Now().UTC()
	o, err := repo.CreateOuvrier(context.Background(), ouvrier.Ouvrier{
		LastName:   lastName,
		FirstName:  firstName,
		HourlyRate: rate,
		Status:     status,
		HireDate:   now.AddDate(-1, 0, 0),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateOuvrier(): %v", err)
	}
	return o
}

func CreateMateriel(t *testing.T, repo materiel.Repository, name, status string, nextMaintenance *time.Time) materiel.Materiel {
	t.Helper()
	now := time.Now().UTC()
	m, err := repo.CreateMateriel(context.Background(), materiel.Materiel{
		Name:            name,
		Status:          status,
		NextMaintenance: nextMaintenance,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateMateriel(): %v", err)
	}
	return m
}

func CreateSaisie(t *testing.T, repo heure.Repository, ouvrierID, chantierID string, date time.Time, hours float64) heure.Saisie {
	t.Helper()
	now := time.Now().UTC()
	s, err := repo.CreateSaisie(context.Background(), heure.Saisie{
		OuvrierID:  ouvrierID,
		ChantierID: chantierID,
		Date:       heure.Day(date),
		Hours:      hours,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateSaisie(): %v", err)
	}
	return s
}

func CreateFacture(
	t *testing.T,
	repo facture.Repository,
	clientID, chantierID, status string,
	amountHT float64,
	dueDate time.Time,
) facture.Facture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	seq, err := repo.NextNumber(ctx, now.Year())
	if err != nil {
		t.Fatalf("CreateFacture(): %v", err)
	}
	f, err := repo.CreateFacture(ctx, facture.Facture{
		Number:     facture.FormatNumber(now.Year(), seq),
		ClientID:   clientID,
		ChantierID: chantierID,
		IssueDate:  now,
		DueDate:    dueDate.UTC(),
		AmountHT:   amountHT,
		VATRate:    facture.DefaultVATRate,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateFacture(): %v", err)
	}
	return f
}

// ErrorFields lists the fields in error of a validation error, in order.
func ErrorFields(err error) []string {
	var fields []string
	var vErrs validator.ValidationErrors
	var vErr *core.ValidationError
	switch {
	case errors.As(err, &vErrs):
		for _, fe := range vErrs {
			fields = append(fields, fe.Field())
		}
	case errors.As(err, &vErr):
		for _, fe := range vErr.Fields {
			fields = append(fields, fe.Field)
		}
	}
	return fields
}
