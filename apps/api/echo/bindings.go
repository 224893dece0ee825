package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/client"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Query filters. Dates are RFC 3339.

func bindTime(b *echo.ValueBinder, param string, dest *time.Time) *echo.ValueBinder {
	return b.Time(param, dest, time.RFC3339)
}

// bindBoolPtr leaves dest nil when the param is absent.
func bindBoolPtr(ctx echo.Context, param string, dest **bool) error {
	raw := ctx.QueryParam(param)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid value for "+param)
	}
	*dest = &b
	return nil
}

func bindUserFilter(ctx echo.Context) (*user.QueryFilter, error) {
	f := new(user.QueryFilter)
	b := echo.QueryParamsBinder(ctx).
		String("search", &f.Search).
		Strings("role", &f.Roles)
	bindTime(b, "created_from", &f.CreatedFrom)
	bindTime(b, "created_to", &f.CreatedTo)
	if err := b.BindError(); err != nil {
		return nil, err
	}
	if err := bindBoolPtr(ctx, "is_active", &f.IsActive); err != nil {
		return nil, err
	}
	return f, nil
}

func bindClientFilter(ctx echo.Context) (*client.QueryFilter, error) {
	f := new(client.QueryFilter)
	err := echo.QueryParamsBinder(ctx).
		String("search", &f.Search).
		Strings("kind", &f.Kinds).
		BindError()
	return f, err
}

func bindChantierFilter(ctx echo.Context) (*chantier.QueryFilter, error) {
	f := new(chantier.QueryFilter)
	err := echo.QueryParamsBinder(ctx).
		String("search", &f.Search).
		Strings("status", &f.Statuses).
		String("client_id", &f.ClientID).
		BindError()
	return f, err
}

func bindOuvrierFilter(ctx echo.Context) (*ouvrier.QueryFilter, error) {
	f := new(ouvrier.QueryFilter)
	err := echo.QueryParamsBinder(ctx).
		String("search", &f.Search).
		Strings("status", &f.Statuses).
		String("qualification", &f.Qualification).
		BindError()
	return f, err
}

func bindMaterielFilter(ctx echo.Context) (*materiel.QueryFilter, error) {
	f := new(materiel.QueryFilter)
	b := echo.QueryParamsBinder(ctx).
		String("search", &f.Search).
		Strings("status", &f.Statuses).
		String("chantier_id", &f.ChantierID)
	return f, bindTime(b, "due_before", &f.DueBefore).BindError()
}

func bindMaintenanceFilter(ctx echo.Context) (*materiel.MaintenanceFilter, error) {
	f := new(materiel.MaintenanceFilter)
	err := echo.QueryParamsBinder(ctx).
		String("materiel_id", &f.MaterielID).
		Strings("kind", &f.Kinds).
		Strings("status", &f.Statuses).
		BindError()
	return f, err
}

func bindFactureFilter(ctx echo.Context) (*facture.QueryFilter, error) {
	f := new(facture.QueryFilter)
	b := echo.QueryParamsBinder(ctx).
		String("search", &f.Search).
		Strings("status", &f.Statuses).
		String("client_id", &f.ClientID).
		String("chantier_id", &f.ChantierID)
	return f, bindTime(b, "due_before", &f.DueBefore).BindError()
}

func bindSaisieFilter(ctx echo.Context) (*heure.QueryFilter, error) {
	f := new(heure.QueryFilter)
	b := echo.QueryParamsBinder(ctx).
		String("ouvrier_id", &f.OuvrierID).
		String("chantier_id", &f.ChantierID)
	bindTime(b, "from", &f.From)
	bindTime(b, "to", &f.To)
	if err := b.BindError(); err != nil {
		return nil, err
	}
	if err := bindBoolPtr(ctx, "validated", &f.Validated); err != nil {
		return nil, err
	}
	return f, nil
}
