package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campusconnect/internal/auth"
	"github.com/shinyyama/campusconnect/internal/handler"
)

// InternalTokenHeader carries the shared secret for service-to-service calls.
const InternalTokenHeader = "X-Internal-Token"

type AuthMiddleware struct {
	verifier auth.Verifier
}

func NewAuthMiddleware(verifier auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth verifies the bearer credential and stores the caller under
// "uid" and in the request context.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := auth.BearerToken(c.Request())
		if token == "" {
			return c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized", "missing bearer token"))
		}
		who, err := m.verifier.Verify(c.Request().Context(), token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized", "invalid or expired credential"))
		}
		c.Set("uid", who.UserID)
		c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), who)))
		return next(c)
	}
}

// RequireInternal guards internal routes with a shared token. An empty
// token disables the routes.
func RequireInternal(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return c.JSON(http.StatusNotFound, handler.NewErrorResponse("not_found", "not found"))
			}
			got := c.Request().Header.Get(InternalTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized", "invalid internal token"))
			}
			return next(c)
		}
	}
}
