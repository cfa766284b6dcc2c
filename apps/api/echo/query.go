package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/skilltrack/core"
	"github.com/trezcool/skilltrack/core/query"
	"github.com/trezcool/skilltrack/core/record"
)

type queryApi struct {
	svc   *query.Service
	store record.Store
}

func registerQueryAPI(g *echo.Group, api queryApi) {
	g.GET("/users/me", api.me)
	g.GET("/students", api.students)
	g.GET("/courses/:id", api.course)
}

// me returns the caller's own record, bootstrapping a default Student record
// on first access (201 when bootstrapped).
func (api *queryApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	usr, created, err := api.svc.FetchSelf(ctx.Request().Context(), claims.Email)
	if err != nil {
		return errors.Wrap(err, "fetching self")
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, usr)
}

func (api *queryApi) students(ctx echo.Context) error {
	emails := ctx.QueryParams()["email"]
	if len(emails) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "email", Error: "at least one email parameter is required"})
	}

	caller, err := resolveCaller(ctx, api.store)
	if err != nil {
		return err
	}
	users, err := api.svc.FetchStudents(ctx.Request().Context(), caller, emails)
	if err != nil {
		return errors.Wrap(err, "fetching students")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *queryApi) course(ctx echo.Context) error {
	var allStudents bool
	if raw := ctx.QueryParam("all_students"); raw != "" {
		var err error
		if allStudents, err = strconv.ParseBool(raw); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "all_students", Error: "must be a boolean"})
		}
	}
	studentEmails := ctx.QueryParams()["student"]

	caller, err := resolveCaller(ctx, api.store)
	if err != nil {
		return err
	}
	view, err := api.svc.FetchCourse(ctx.Request().Context(), caller, ctx.Param("id"), studentEmails, allStudents)
	if err != nil {
		return errors.Wrap(err, "fetching course")
	}
	return ctx.JSON(http.StatusOK, view)
}
