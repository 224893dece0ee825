package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

// requirePermission lets the request through when the role of the token grants one of `perms`.
func requirePermission(perms ...user.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := contextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, perm := range perms {
				if user.HasPermission(claims.Role, perm) {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
