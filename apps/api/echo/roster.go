package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/skilltrack/core/record"
	"github.com/trezcool/skilltrack/core/roster"
)

type rosterApi struct {
	svc      *roster.Service
	store    record.Store
	validate *validator.Validate
}

func registerRosterAPI(g *echo.Group, api rosterApi) {
	g.POST("/courses/:id/students", api.enroll)
	g.POST("/courses/:id/checkoffs", api.checkOff)
}

func (api *rosterApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	caller, err := resolveCaller(ctx, api.store)
	if err != nil {
		return err
	}
	if err = api.svc.Enroll(ctx.Request().Context(), caller, ctx.Param("id"), data.Student); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "student enrolled"})
}

func (api *rosterApi) checkOff(ctx echo.Context) error {
	var data CheckOffRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckOffRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	caller, err := resolveCaller(ctx, api.store)
	if err != nil {
		return err
	}
	res, err := api.svc.CheckOff(ctx.Request().Context(), caller, ctx.Param("id"), data.Skill, data.Students)
	if err != nil {
		return errors.Wrap(err, "checking students off")
	}
	return ctx.JSON(http.StatusOK, res)
}
