package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/unireg/core/course"
)

type studentApi struct {
	courseSvc course.Service
}

// registerStudentAPI exposes the authenticated student's own resources.
func registerStudentAPI(g *echo.Group, auth echo.MiddlewareFunc, courseSvc course.Service) {
	api := studentApi{courseSvc: courseSvc}

	mg := g.Group("/me", auth)
	mg.GET("", api.profile)
	mg.GET("/schedule", api.schedule)
	mg.POST("/schedule/reset", api.resetSchedule)
}

// Handlers

func (api *studentApi) profile(ctx echo.Context) error {
	std, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) schedule(ctx echo.Context) error {
	std, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	sch, err := api.courseSvc.Schedule(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "getting schedule")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *studentApi) resetSchedule(ctx echo.Context) error {
	std, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	if err = api.courseSvc.ResetSchedule(ctx.Request().Context(), std.ID); err != nil {
		return errors.Wrap(err, "resetting schedule")
	}
	sch, err := api.courseSvc.Schedule(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "getting schedule")
	}
	return ctx.JSON(http.StatusOK, sch)
}
