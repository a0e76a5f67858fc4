package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core/dashboard"
)

func registerDashboardAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *dashboard.Service) {
	g.GET("/dashboard", func(ctx echo.Context) error {
		stats, err := svc.Stats(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "loading dashboard")
		}
		return ctx.JSON(http.StatusOK, stats)
	}, authed...)
}
