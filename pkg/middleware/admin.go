// Package middleware holds route-level guards and limits.
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/propdesk/leadadmin/pkg/models"
)

// RequireAdmin ensures the authenticated user has the admin role. Must
// run after the JWT middleware has populated the context.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("user_role").(string)
			if !ok {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Authentication required",
				})
			}
			if role != models.RoleAdmin {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "forbidden",
					Message: "Admin access required",
				})
			}
			return next(c)
		}
	}
}
