package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	searchParam      = "search"
	contextObjectKey = "object"
)

var errObjNotFoundInCtx = errors.New("object not found in echo.Context")

// bindSearch returns the raw search query. Whitespace is part of the query.
func bindSearch(ctx echo.Context) string {
	return ctx.QueryParam(searchParam)
}

// objectMiddleware loads the object identified by the `:id` param into the context.
func objectMiddleware[T any](get func(ctx context.Context, id string) (T, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			obj, err := get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}

func getContextObject[T any](ctx echo.Context) (T, error) {
	obj, ok := ctx.Get(contextObjectKey).(T)
	if !ok {
		return obj, errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return obj, nil
}
