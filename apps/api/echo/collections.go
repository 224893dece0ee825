package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

// collectionService is the CRUD surface shared by the domain services.
// T is the model, N its input struct and F its query filter.
type collectionService[T, N, F any] interface {
	Create(ctx context.Context, n N) (T, error)
	Query(ctx context.Context, filter *F, ordering []core.DBOrdering) ([]T, error)
	GetByID(ctx context.Context, id string) (T, error)
	Update(ctx context.Context, id string, n N) (T, error)
	Delete(ctx context.Context, ids ...string) (int, error)
}

type collectionApi[T, N, F any, PF interface {
	*F
	Clean()
}] struct {
	svc        collectionService[T, N, F]
	bindFilter func(echo.Context) (*F, error)
}

// registerCollection mounts the CRUD endpoints of `collection` & returns its group for extra actions.
// Reads require `<collection>:read`, writes `<collection>:write`.
func registerCollection[T, N, F any, PF interface {
	*F
	Clean()
}](
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	collection string,
	svc collectionService[T, N, F],
	bindFilter func(echo.Context) (*F, error),
) *echo.Group {
	api := collectionApi[T, N, F, PF]{svc: svc, bindFilter: bindFilter}
	read := requirePermission(user.ReadPermission(collection))
	write := requirePermission(user.WritePermission(collection))

	cg := g.Group("/"+collection, jwt)
	cg.GET("", api.query, read)
	cg.POST("", api.create, write)
	cg.DELETE("", api.destroyMultiple, write)
	cg.GET("/:id", api.retrieve, read)
	cg.PUT("/:id", api.update, write)
	cg.DELETE("/:id", api.destroy, write)
	return cg
}

func (api collectionApi[T, N, F, PF]) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	PF(filter).Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	objs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying")
	}
	if objs == nil {
		objs = []T{}
	}
	return ctx.JSON(http.StatusOK, objs)
}

func (api collectionApi[T, N, F, PF]) create(ctx echo.Context) error {
	var data N
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding request body")
	}
	obj, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating")
	}
	return ctx.JSON(http.StatusCreated, obj)
}

func (api collectionApi[T, N, F, PF]) retrieve(ctx echo.Context) error {
	obj, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving")
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (api collectionApi[T, N, F, PF]) update(ctx echo.Context) error {
	var data N
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding request body")
	}
	obj, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating")
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (api collectionApi[T, N, F, PF]) destroy(ctx echo.Context) error {
	c := ctx.Request().Context()
	id := ctx.Param("id")
	if _, err := api.svc.GetByID(c, id); err != nil {
		return errors.Wrap(err, "retrieving")
	}
	if _, err := api.svc.Delete(c, id); err != nil {
		return errors.Wrap(err, "deleting")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api collectionApi[T, N, F, PF]) destroyMultiple(ctx echo.Context) error {
	var ids []string
	if err := echo.QueryParamsBinder(ctx).Strings("id", &ids).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	if len(ids) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if _, err := api.svc.Delete(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// maintenanceService exposes the maintenance operations of materiel.Service as a collectionService.
type maintenanceService struct {
	svc *materiel.Service
}

func (m maintenanceService) Create(ctx context.Context, nm materiel.NewMaintenance) (materiel.Maintenance, error) {
	return m.svc.CreateMaintenance(ctx, nm)
}

func (m maintenanceService) Query(
	ctx context.Context,
	filter *materiel.MaintenanceFilter,
	ordering []core.DBOrdering,
) ([]materiel.Maintenance, error) {
	return m.svc.QueryMaintenances(ctx, filter, ordering)
}

func (m maintenanceService) GetByID(ctx context.Context, id string) (materiel.Maintenance, error) {
	return m.svc.GetMaintenance(ctx, id)
}

func (m maintenanceService) Update(ctx context.Context, id string, nm materiel.NewMaintenance) (materiel.Maintenance, error) {
	return m.svc.UpdateMaintenance(ctx, id, nm)
}

func (m maintenanceService) Delete(ctx context.Context, ids ...string) (int, error) {
	return m.svc.DeleteMaintenances(ctx, ids...)
}
