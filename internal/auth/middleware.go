package auth

import (
	"errors"
	"net/http"
	"strings"

	"autoescola-portal/internal/domain"
	"github.com/labstack/echo/v4"
)

const contextIdentityKey = "identity"

// SignInPrompt is returned to unauthenticated callers of protected routes.
const SignInPrompt = "sign in to continue"

// Middleware rejects requests without a valid bearer token before any handler runs.
// The token may also come from the "token" query parameter, which browsers need for WebSockets.
func Middleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := svc.Authenticate(c.Request().Context(), TokenFrom(c.Request()))
			if err != nil {
				if errors.Is(err, domain.ErrNotAuthenticated) {
					return echo.NewHTTPError(http.StatusUnauthorized, SignInPrompt)
				}
				return err
			}
			c.Set(contextIdentityKey, id)
			return next(c)
		}
	}
}

// TokenFrom extracts the bearer token of a request.
func TokenFrom(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// IdentityFrom returns the identity stored by Middleware.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(contextIdentityKey).(Identity)
	return id, ok
}
