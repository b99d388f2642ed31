// Package middleware contains the authentication middleware for API routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/propdesk/leadadmin/pkg/auth"
	"github.com/propdesk/leadadmin/pkg/models"
)

// JWTMiddleware validates the Bearer token and stores the session
// identity in the request context as user_email and user_role.
func JWTMiddleware(jwtManager *auth.JWTManager) echo.MiddlewareFunc {
	return JWTMiddlewareWithBlacklist(jwtManager, nil)
}

// JWTMiddlewareWithBlacklist additionally rejects revoked tokens.
func JWTMiddlewareWithBlacklist(jwtManager *auth.JWTManager, blacklist *auth.Blacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Authorization header required",
				})
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Authorization header must be a Bearer token",
				})
			}

			claims, err := jwtManager.ValidateWithBlacklist(c.Request().Context(), blacklist, tokenString)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired token",
				})
			}

			c.Set("user_email", claims.Email)
			c.Set("user_role", claims.Role)
			c.Set("token", tokenString)

			return next(c)
		}
	}
}
