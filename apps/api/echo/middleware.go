package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			m, err := getContextMachine(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context machine")
			}
			if m.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
