// Package handlers contains the HTTP handlers for the admin panel API.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/propdesk/leadadmin/pkg/api/errors"
	"github.com/propdesk/leadadmin/pkg/auth"
	"github.com/propdesk/leadadmin/pkg/metrics"
	"github.com/propdesk/leadadmin/pkg/models"
	"github.com/propdesk/leadadmin/pkg/policy"
	"github.com/propdesk/leadadmin/pkg/users"
)

// viewerFromContext rebuilds the viewer identity set by the JWT middleware.
func viewerFromContext(c echo.Context) (policy.Viewer, bool) {
	email, ok := c.Get("user_email").(string)
	if !ok || email == "" {
		return policy.Viewer{}, false
	}
	role, _ := c.Get("user_role").(string)
	return policy.Viewer{Email: email, Role: role}, true
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	users      *users.Service
	jwtManager *auth.JWTManager
	blacklist  *auth.Blacklist
	metrics    *metrics.Metrics
	validator  *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *users.Service, jwtManager *auth.JWTManager, blacklist *auth.Blacklist, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		users:      userService,
		jwtManager: jwtManager,
		blacklist:  blacklist,
		metrics:    m,
		validator:  validator.New(),
	}
}

// Login authenticates a user and issues a session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	user, err := h.users.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid email or password",
		})
	}

	token, err := h.jwtManager.Generate(user.Email, user.Role)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	h.metrics.LoginAttempts.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, models.LoginResponse{
		Token: token,
		User:  user.Info(),
	})
}

// Me returns the authenticated user's identity.
func (h *AuthHandler) Me(c echo.Context) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return apierrors.UnauthorizedError(c)
	}
	// The role in the token was resolved at login; re-resolve so a
	// demotion takes effect without waiting for token expiry.
	role := h.users.RoleByEmail(c.Request().Context(), viewer.Email)
	return c.JSON(http.StatusOK, models.UserInfo{Email: viewer.Email, Role: role})
}

// Logout revokes the current token for the rest of its lifetime.
func (h *AuthHandler) Logout(c echo.Context) error {
	token, ok := c.Get("token").(string)
	if !ok || token == "" {
		return apierrors.UnauthorizedError(c)
	}

	ttl := h.jwtManager.TTL()
	if claims, err := h.jwtManager.Validate(token); err == nil && claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := h.blacklist.Revoke(c.Request().Context(), token, ttl); err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}
