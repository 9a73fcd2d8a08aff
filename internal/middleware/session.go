package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"gocms/internal/auth"
	apperrors "gocms/internal/errors"
	"gocms/internal/model"
)

const identityKey = "identity"

// AccessTokenCookie is the cookie browsers use to carry the access token;
// API clients use the Authorization header instead.
const AccessTokenCookie = "access_token"

// Session resolves the request's credential into an identity context. No
// credential yields an anonymous context, not an error; a credential that
// fails validation short-circuits with 401 before any handler runs. The
// identity lives on the echo context for this request only.
func Session(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return next(c)
			}

			claims, err := jwtService.Validate(token, auth.TokenTypeAccess)
			if err != nil {
				httpErr := apperrors.MapErrorToHTTP(err)
				return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
			}

			c.Set(identityKey, auth.IdentityFromClaims(claims))
			return next(c)
		}
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IdentityFrom(c) == nil {
				httpErr := apperrors.MapErrorToHTTP(apperrors.ErrUnauthorized)
				return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			return next(c)
		}
	}
}

// RequirePermission rejects authenticated requests lacking a capability with
// 403, and anonymous requests with 401. Authorization stays an explicit
// check, separate from authentication.
func RequirePermission(cap model.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident := IdentityFrom(c)
			if ident == nil {
				httpErr := apperrors.MapErrorToHTTP(apperrors.ErrUnauthorized)
				return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			if !ident.Can(cap) {
				httpErr := apperrors.MapErrorToHTTP(apperrors.ErrForbidden)
				return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			return next(c)
		}
	}
}

// IdentityFrom returns the request identity, or nil for anonymous requests.
func IdentityFrom(c echo.Context) *auth.Identity {
	ident, _ := c.Get(identityKey).(*auth.Identity)
	return ident
}

// extractToken pulls the bearer credential from the Authorization header,
// falling back to the access-token cookie for browser-rendered pages.
func extractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
