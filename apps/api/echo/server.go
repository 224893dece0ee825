package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

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
)

type (
	// Broker is the realtime backend the websocket endpoint streams from.
	Broker interface {
		realtime.Subscriber
		Broadcast(ctx context.Context, kind realtime.EventKind) error
		Publish(ctx context.Context, evt realtime.Event) error
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Broker     Broker
		Dashboard  *rapport.Dashboard
		ReportSvc  *rapport.Service

		UserSvc     user.ServiceInterface
		ClientSvc   *client.Service
		ChantierSvc *chantier.Service
		OuvrierSvc  *ouvrier.Service
		MaterielSvc *materiel.Service
		FactureSvc  *facture.Service
		SaisieSvc   *heure.Service
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerUserAPI(v1, jwt, s.auth, s.deps.UserSvc, s.deps.Validate)
	s.registerDomainAPI(v1, jwt)
	registerReportAPI(v1, jwt, s.deps.ReportSvc, s.deps.Dashboard)
	registerRealtimeAPI(v1, jwt, s.deps.Broker, s.deps.Logger, conf.Realtime)
}

func (s *server) registerDomainAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	registerCollection[client.Client, client.NewClient, client.QueryFilter](
		g, jwt, client.Collection, s.deps.ClientSvc, bindClientFilter,
	)
	registerCollection[chantier.Chantier, chantier.NewChantier, chantier.QueryFilter](
		g, jwt, chantier.Collection, s.deps.ChantierSvc, bindChantierFilter,
	)
	registerCollection[ouvrier.Ouvrier, ouvrier.NewOuvrier, ouvrier.QueryFilter](
		g, jwt, ouvrier.Collection, s.deps.OuvrierSvc, bindOuvrierFilter,
	)

	mg := registerCollection[materiel.Materiel, materiel.NewMateriel, materiel.QueryFilter](
		g, jwt, materiel.Collection, s.deps.MaterielSvc, bindMaterielFilter,
	)
	mtg := registerCollection[materiel.Maintenance, materiel.NewMaintenance, materiel.MaintenanceFilter](
		g, jwt, materiel.MaintenanceCollection, maintenanceService{s.deps.MaterielSvc}, bindMaintenanceFilter,
	)
	registerMaterielActions(mg, mtg, s.deps.MaterielSvc)

	fg := registerCollection[facture.Facture, facture.NewFacture, facture.QueryFilter](
		g, jwt, facture.Collection, s.deps.FactureSvc, bindFactureFilter,
	)
	registerFactureActions(fg, s.deps.FactureSvc)

	sg := registerCollection[heure.Saisie, heure.NewSaisie, heure.QueryFilter](
		g, jwt, heure.Collection, s.deps.SaisieSvc, bindSaisieFilter,
	)
	registerSaisieActions(sg, s.deps.SaisieSvc)
}

func (s *server) Start() {
	s.deps.Logger.Info("API listening on " + s.deps.Conf.Server.Address)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
