package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/student"
)

type authApi struct {
	sessions *sessionManager
	svc      student.Service
	validate *validator.Validate
}

func registerAuthAPI(
	g *echo.Group,
	auth echo.MiddlewareFunc,
	sessions *sessionManager,
	svc student.Service,
	validate *validator.Validate,
) {
	api := authApi{
		sessions: sessions,
		svc:      svc,
		validate: validate,
	}

	ag := g.Group("/auth")
	ag.POST("/signup", api.signup)
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	ag.POST("/token-refresh", api.refreshToken, auth)
}

// Handlers

func (api *authApi) signup(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	std, err := api.svc.CreateAccount(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}

	token, err := api.sessions.startSession(ctx, std)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token, Student: &std})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}

	token, err := api.sessions.startSession(ctx, std)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Student: &std})
}

func (api *authApi) logout(ctx echo.Context) error {
	if err := api.sessions.endSession(ctx); err != nil {
		return errors.Wrap(err, "ending session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := api.sessions.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Email    string `json:"email" form:"email" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string           `json:"token"`
		Student *student.Student `json:"student,omitempty"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
