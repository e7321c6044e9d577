package router

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"contentflow/internal/auth"
	"contentflow/internal/config"
	"contentflow/internal/errors"
	"contentflow/internal/handler"
	"contentflow/internal/policy"
	"contentflow/internal/service"
)

// Handlers groups the HTTP handlers served by the API. Auth may be nil when
// an external identity provider issues tokens.
type Handlers struct {
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
	Content *handler.ContentHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authn auth.Authenticator,
	profiles service.ProfileService,
	engine *policy.Engine,
	h Handlers,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: cfg.RequestTimeout,
		ErrorHandler: func(err error, c echo.Context) error {
			if !stderrors.Is(err, context.DeadlineExceeded) {
				return err
			}
			httpErr := errors.MapErrorToHTTP(err)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		},
	}))

	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Bundled identity provider
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/refresh", h.Auth.Refresh)
		api.POST("/auth/logout", h.Auth.Logout)
	}

	secured := api.Group("", handler.Authenticate(authn), handler.ResolveSubject(profiles, engine))

	secured.GET("/me", h.Profile.Me)
	secured.GET("/profiles", h.Profile.ListProfiles)
	secured.GET("/profiles/:id", h.Profile.GetProfile)

	secured.GET("/content", h.Content.ListContent)
	secured.POST("/content", h.Content.CreateContent)
	secured.GET("/content/:id", h.Content.GetContent)
	secured.PATCH("/content/:id", h.Content.UpdateContent)
	secured.GET("/content/:id/history", h.Content.ContentHistory)
	secured.POST("/content/:id/approve", h.Content.ApproveContent)
	secured.POST("/content/:id/reject", h.Content.RejectContent)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the request validator used by Register.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
