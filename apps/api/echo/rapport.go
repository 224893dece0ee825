package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core/rapport"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

type reportApi struct {
	svc       *rapport.Service
	dashboard *rapport.Dashboard
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *rapport.Service, dashboard *rapport.Dashboard) {
	api := reportApi{svc: svc, dashboard: dashboard}

	rg := g.Group("/rapports", jwt, requirePermission(user.PermReports))
	rg.GET("/chantiers/:id", api.siteReport)
	rg.GET("/dashboard", api.dashboardStats)
}

func (api reportApi) siteReport(ctx echo.Context) error {
	report, err := api.svc.SiteReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building site report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api reportApi) dashboardStats(ctx echo.Context) error {
	if api.dashboard == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "dashboard not available")
	}
	return ctx.JSON(http.StatusOK, api.dashboard.Stats(nowFunc()))
}
