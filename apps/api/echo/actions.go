package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

var nowFunc = time.Now // mockable

// Factures

type factureApi struct {
	svc *facture.Service
}

func registerFactureActions(fg *echo.Group, svc *facture.Service) {
	api := factureApi{svc: svc}
	read := requirePermission(user.ReadPermission(facture.Collection))
	write := requirePermission(user.WritePermission(facture.Collection))

	fg.GET("/overdue", api.overdue, read)
	fg.POST("/refresh-overdue", api.refreshOverdue, write)
	fg.POST("/:id/send", api.send, write)
	fg.POST("/:id/paid", api.markPaid, write)
	fg.POST("/:id/cancel", api.cancel, write)
}

func (api factureApi) send(ctx echo.Context) error {
	f, err := api.svc.Send(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "sending facture")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api factureApi) markPaid(ctx echo.Context) error {
	f, err := api.svc.MarkPaid(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking facture paid")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api factureApi) cancel(ctx echo.Context) error {
	f, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling facture")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api factureApi) overdue(ctx echo.Context) error {
	invoices, err := api.svc.Overdue(ctx.Request().Context(), nowFunc())
	if err != nil {
		return errors.Wrap(err, "querying overdue factures")
	}
	if invoices == nil {
		invoices = []facture.Facture{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api factureApi) refreshOverdue(ctx echo.Context) error {
	n, err := api.svc.RefreshOverdue(ctx.Request().Context(), nowFunc())
	if err != nil {
		return errors.Wrap(err, "refreshing overdue factures")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

// Materiel & maintenances

type materielApi struct {
	svc *materiel.Service
}

func registerMaterielActions(mg, mtg *echo.Group, svc *materiel.Service) {
	api := materielApi{svc: svc}

	mg.GET("/due", api.due, requirePermission(user.ReadPermission(materiel.Collection)))
	mg.POST("/:id/assign", api.assign, requirePermission(user.WritePermission(materiel.Collection)))

	write := requirePermission(user.WritePermission(materiel.MaintenanceCollection))
	mtg.POST("/:id/start", api.startMaintenance, write)
	mtg.POST("/:id/complete", api.completeMaintenance, write)
}

func (api materielApi) due(ctx echo.Context) error {
	equipment, err := api.svc.Due(ctx.Request().Context(), nowFunc())
	if err != nil {
		return errors.Wrap(err, "querying due materiel")
	}
	if equipment == nil {
		equipment = []materiel.Materiel{}
	}
	return ctx.JSON(http.StatusOK, equipment)
}

func (api materielApi) assign(ctx echo.Context) error {
	var data materiel.Assignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Assignment")
	}
	m, err := api.svc.Assign(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning materiel")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api materielApi) startMaintenance(ctx echo.Context) error {
	m, err := api.svc.StartMaintenance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "starting maintenance")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api materielApi) completeMaintenance(ctx echo.Context) error {
	var data materiel.Completion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Completion")
	}
	m, err := api.svc.CompleteMaintenance(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "completing maintenance")
	}
	return ctx.JSON(http.StatusOK, m)
}

// Saisies d'heures

type saisieApi struct {
	svc *heure.Service
}

func registerSaisieActions(sg *echo.Group, svc *heure.Service) {
	api := saisieApi{svc: svc}

	sg.GET("/summary", api.summary, requirePermission(user.ReadPermission(heure.Collection)))
	sg.POST("/approve", api.approve, requirePermission(user.PermApproveHours))
}

func (api saisieApi) summary(ctx echo.Context) error {
	filter, err := bindSaisieFilter(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	filter.Clean()
	summaries, err := api.svc.Summary(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "summarizing saisies")
	}
	if summaries == nil {
		summaries = []heure.WeeklySummary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api saisieApi) approve(ctx echo.Context) error {
	var data ApproveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveRequest")
	}
	if len(data.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids are required")
	}
	entries, err := api.svc.Approve(ctx.Request().Context(), data.IDs...)
	if err != nil {
		return errors.Wrap(err, "approving saisies")
	}
	return ctx.JSON(http.StatusOK, entries)
}

type (
	CountResponse struct {
		Count int `json:"count"`
	}

	ApproveRequest struct {
		IDs []string `json:"ids"`
	}
)
