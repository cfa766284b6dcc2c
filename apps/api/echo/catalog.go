package echoapi

import (
	stderrors "errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/skilltrack/core/catalog"
	"github.com/trezcool/skilltrack/core/record"
)

type catalogApi struct {
	svc      *catalog.Service
	store    record.Store
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, api catalogApi) {
	g.POST("/courses", api.createCourse)
	g.GET("/templates", api.listTemplates)
}

func (api *catalogApi) createCourse(ctx echo.Context) error {
	var data CreateCourseRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateCourseRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	caller, err := resolveCaller(ctx, api.store)
	if err != nil {
		return err
	}

	courseID, err := api.svc.CreateFromTemplate(ctx.Request().Context(), caller, data.TemplateID)
	if err != nil {
		// the course exists even when the teacher link write failed; the caller
		// must learn its id either way
		var linkErr *catalog.TeacherLinkError
		if stderrors.As(err, &linkErr) {
			return ctx.JSON(http.StatusInternalServerError, CreateCourseResponse{
				CourseID: linkErr.CourseID,
				Error:    "course created, teacher link failed",
			})
		}
		return errors.Wrap(err, "creating course from template")
	}
	return ctx.JSON(http.StatusCreated, CreateCourseResponse{CourseID: courseID})
}

func (api *catalogApi) listTemplates(ctx echo.Context) error {
	caller, err := resolveCaller(ctx, api.store)
	if err != nil {
		return err
	}
	tmpls, err := api.svc.ListTemplates(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "listing templates")
	}
	return ctx.JSON(http.StatusOK, tmpls)
}
