package handler

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"contentflow/internal/auth"
	"contentflow/internal/errors"
	"contentflow/internal/policy"
	"contentflow/internal/service"
)

const (
	principalKey = "principal"
	subjectKey   = "subject"
)

// Authenticate returns the bearer-token middleware. Tokens are validated by
// authn and the resulting *auth.Principal is stored on the echo context.
func Authenticate(authn auth.Authenticator) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  principalKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return authn.Authenticate(c.Request().Context(), token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "invalid or missing token",
				Code:  "UNAUTHENTICATED",
			})
		},
	})
}

// ResolveSubject makes sure the principal has a profile (the user-created
// hook for subjects first seen here) and resolves its admin flag once for
// the rest of the request.
func ResolveSubject(profiles service.ProfileService, engine *policy.Engine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := c.Get(principalKey).(*auth.Principal)
			if !ok || principal == nil {
				return respondError(errors.ErrUnauthenticated)
			}
			ctx := c.Request().Context()
			if _, err := profiles.Provision(ctx, *principal); err != nil {
				return respondError(err)
			}
			subject, err := engine.Resolve(ctx, *principal)
			if err != nil {
				return respondError(err)
			}
			c.Set(subjectKey, subject)
			return next(c)
		}
	}
}

func subjectFrom(c echo.Context) (policy.Subject, error) {
	subject, ok := c.Get(subjectKey).(policy.Subject)
	if !ok {
		return policy.Subject{}, respondError(errors.ErrUnauthenticated)
	}
	return subject, nil
}

// respondError maps a domain error onto an echo HTTP error.
func respondError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
