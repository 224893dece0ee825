package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // /debug/pprof
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/deepweb1970/gestionchantier-sub001/apps/api/echo"
	"github.com/deepweb1970/gestionchantier-sub001/assets"
	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/client"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
	"github.com/deepweb1970/gestionchantier-sub001/core/rapport"
	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
	emailsvc "github.com/deepweb1970/gestionchantier-sub001/services/email"
	logsvc "github.com/deepweb1970/gestionchantier-sub001/services/logger"
	"github.com/deepweb1970/gestionchantier-sub001/storage/database"
	sqlxrepos "github.com/deepweb1970/gestionchantier-sub001/storage/database/sqlx"
)

const overdueCheckPeriod = time.Hour

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up DB
	db, err := setUpDB(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up realtime: the listener relays the database triggers into the hub
	hub := realtime.NewHub()
	hub.SetPanicHandler(func(evt realtime.Event, v interface{}) {
		logger.Error(fmt.Sprintf("realtime: subscriber panicked on %s %q: %v", evt.Kind, evt.Collection, v))
	})
	listener, err := database.NewListener(conf, hub, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database listener: %v", err), err)
	}
	go func() {
		if err := listener.Run(ctx); err != nil {
			dbLogger.Error(fmt.Sprintf("database listener stopped: %v", err), err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, os.Stdout, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	usrRepo := sqlxrepos.NewUserRepository(db)
	clientRepo := sqlxrepos.NewClientRepository(db)
	chantierRepo := sqlxrepos.NewChantierRepository(db)
	ouvrierRepo := sqlxrepos.NewOuvrierRepository(db)
	materielRepo := sqlxrepos.NewMaterielRepository(db)
	factureRepo := sqlxrepos.NewFactureRepository(db)
	saisieRepo := sqlxrepos.NewSaisieRepository(db)

	policy := heure.PolicyFromConfig(conf.Overtime)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	clientSvc := client.NewService(clientRepo, validate)
	chantierSvc := chantier.NewService(chantierRepo, validate)
	ouvrierSvc := ouvrier.NewService(ouvrierRepo, validate)
	materielSvc := materiel.NewService(materielRepo, validate)
	factureSvc := facture.NewService(factureRepo, clientRepo, chantierRepo, mailSvc, validate)
	saisieSvc := heure.NewService(saisieRepo, validate, policy)
	reportSvc := rapport.NewService(chantierRepo, ouvrierRepo, saisieRepo, factureRepo, policy)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if err = core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, false /* strict */); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	user.LoadCommonPasswords(assets.FS, assets.CommonPasswordsFile, logger)

	dashboard := rapport.NewDashboard(listener, rapport.Fetchers{
		Chantiers: func(ctx context.Context) ([]chantier.Chantier, error) { return chantierSvc.Query(ctx, nil, nil) },
		Ouvriers:  func(ctx context.Context) ([]ouvrier.Ouvrier, error) { return ouvrierSvc.Query(ctx, nil, nil) },
		Saisies:   func(ctx context.Context) ([]heure.Saisie, error) { return saisieSvc.Query(ctx, nil, nil) },
		Factures:  func(ctx context.Context) ([]facture.Facture, error) { return factureSvc.Query(ctx, nil, nil) },
		Materiel:  func(ctx context.Context) ([]materiel.Materiel, error) { return materielSvc.Query(ctx, nil, nil) },
	}, rapport.DashboardOptions{Policy: policy, Debounce: conf.Realtime.Debounce, Logger: logger})
	if err = dashboard.Activate(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("activating dashboard: %v", err), err)
	}
	defer func() { _ = dashboard.Deactivate() }()

	go flagOverdueInvoices(ctx, factureSvc, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("realtime_collections", expvar.Func(func() interface{} { return hub.Collections() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Broker:      hub,
		Dashboard:   dashboard,
		ReportSvc:   reportSvc,
		UserSvc:     usrSvc,
		ClientSvc:   clientSvc,
		ChantierSvc: chantierSvc,
		OuvrierSvc:  ouvrierSvc,
		MaterielSvc: materielSvc,
		FactureSvc:  factureSvc,
		SaisieSvc:   saisieSvc,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancelShutdown()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(shutdownCtx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// flagOverdueInvoices marks sent invoices past due as late, then again every overdueCheckPeriod.
func flagOverdueInvoices(ctx context.Context, svc *facture.Service, logger core.Logger) {
	ticker := time.NewTicker(overdueCheckPeriod)
	defer ticker.Stop()

	for {
		n, err := svc.RefreshOverdue(ctx, time.Now())
		if err != nil {
			logger.Error(fmt.Sprintf("flagging overdue invoices: %v", err), err)
		} else if n > 0 {
			logger.Info(fmt.Sprintf("%d invoice(s) flagged as overdue", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
