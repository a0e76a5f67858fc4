package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core/payment"
	"github.com/trezcool/coachdesk/core/student"
)

type studentApi struct {
	svc        *student.Service
	paymentSvc *payment.Service
	validate   *validator.Validate
}

func registerStudentAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	svc *student.Service,
	paymentSvc *payment.Service,
	validate *validator.Validate,
) {
	api := studentApi{
		svc:        svc,
		paymentSvc: paymentSvc,
		validate:   validate,
	}

	sg := g.Group("/students", authed...)
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:id", objectMiddleware(svc.GetByID))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/payments", api.queryPayments)
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.Query(ctx.Request().Context(), bindSearch(ctx))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	rows, err := student.NewRows(students)
	if err != nil {
		return errors.Wrap(err, "decorating students")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := getContextObject[student.Student](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	s, err := getContextObject[student.Student](ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err = api.svc.Update(ctx.Request().Context(), s.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	s, err := getContextObject[student.Student](ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) queryPayments(ctx echo.Context) error {
	s, err := getContextObject[student.Student](ctx)
	if err != nil {
		return err
	}
	payments, err := api.paymentSvc.QueryByStudentID(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "querying student payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}
