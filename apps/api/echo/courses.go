package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core/course"
	"github.com/trezcool/coachdesk/core/student"
)

type courseApi struct {
	svc        *course.Service
	studentSvc *student.Service
	validate   *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	svc *course.Service,
	studentSvc *student.Service,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:        svc,
		studentSvc: studentSvc,
		validate:   validate,
	}

	cg := g.Group("/courses", authed...)
	cg.GET("", api.query)
	cg.GET("/popular", api.queryWithStudentCount)
	cg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := cg.Group("/:id", objectMiddleware(svc.GetByID))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/students", api.queryStudents)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.Query(ctx.Request().Context(), bindSearch(ctx))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) queryWithStudentCount(ctx echo.Context) error {
	courses, err := api.svc.QueryWithStudentCount(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses with student count")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := getContextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	c, err := getContextObject[course.Course](ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err = api.svc.Update(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	c, err := getContextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryStudents(ctx echo.Context) error {
	c, err := getContextObject[course.Course](ctx)
	if err != nil {
		return err
	}
	students, err := api.studentSvc.QueryByCourseID(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying course students")
	}
	rows, err := student.NewRows(students)
	if err != nil {
		return errors.Wrap(err, "decorating students")
	}
	return ctx.JSON(http.StatusOK, rows)
}
