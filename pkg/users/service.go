// Package users resolves panel users and their roles.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/propdesk/leadadmin/pkg/auth"
	"github.com/propdesk/leadadmin/pkg/cache"
	"github.com/propdesk/leadadmin/pkg/logger"
	"github.com/propdesk/leadadmin/pkg/models"
	"github.com/propdesk/leadadmin/pkg/store"
)

// ErrInvalidCredentials is returned on a failed login.
var ErrInvalidCredentials = errors.New("invalid email or password")

const (
	salesUsersCacheKey = "users:sales"
	salesUsersCacheTTL = 5 * time.Minute
)

// Service looks up users, authenticates logins and serves the sales-user
// directory used by the assignment dropdowns.
type Service struct {
	store store.UserStore
	cache *cache.Client
	log   logger.Logger
}

// NewService creates the user service. cacheClient may be nil.
func NewService(st store.UserStore, cacheClient *cache.Client, log logger.Logger) *Service {
	return &Service{store: st, cache: cacheClient, log: log}
}

// RoleByEmail resolves a user's role. Lookup failures degrade to the
// sales role so a directory outage can never widen anyone's access.
func (s *Service) RoleByEmail(ctx context.Context, email string) string {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("role lookup failed, defaulting to sales", "email", email, "error", err)
		}
		return models.RoleSales
	}
	if u.Role != models.RoleAdmin && u.Role != models.RoleSales {
		return models.RoleSales
	}
	return u.Role
}

// Authenticate verifies a login and returns the user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// SalesUsers enumerates all sales users for the reassignment dropdowns,
// cached briefly in Redis so rendering the panel does not rescan the
// directory.
func (s *Service) SalesUsers(ctx context.Context) ([]models.UserInfo, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, salesUsersCacheKey); err == nil && cached != "" {
			var infos []models.UserInfo
			if err := json.Unmarshal([]byte(cached), &infos); err == nil {
				return infos, nil
			}
		}
	}

	users, err := s.store.ListByRole(ctx, models.RoleSales)
	if err != nil {
		return nil, err
	}
	infos := make([]models.UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, u.Info())
	}

	if s.cache != nil {
		if raw, err := json.Marshal(infos); err == nil {
			if err := s.cache.Set(ctx, salesUsersCacheKey, raw, salesUsersCacheTTL); err != nil {
				s.log.Warn("failed caching sales users", "error", err)
			}
		}
	}
	return infos, nil
}
