package users

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/leadadmin/pkg/auth"
	"github.com/propdesk/leadadmin/pkg/cache"
	"github.com/propdesk/leadadmin/pkg/logger"
	"github.com/propdesk/leadadmin/pkg/models"
	"github.com/propdesk/leadadmin/pkg/store"
)

func seedUsers(t *testing.T, mem *store.Memory) {
	t.Helper()
	ctx := context.Background()
	hash, err := auth.HashPassword("hunter2!")
	require.NoError(t, err)

	require.NoError(t, mem.PutUser(ctx, &models.User{
		Email: "boss@propdesk.io", Name: "Boss", Role: models.RoleAdmin, PasswordHash: hash,
	}))
	require.NoError(t, mem.PutUser(ctx, &models.User{
		Email: "rep@propdesk.io", Name: "Rep", Role: models.RoleSales, PasswordHash: hash,
	}))
}

func TestRoleByEmail(t *testing.T) {
	mem := store.NewMemory()
	seedUsers(t, mem)
	svc := NewService(mem, nil, logger.Default())
	ctx := context.Background()

	assert.Equal(t, models.RoleAdmin, svc.RoleByEmail(ctx, "boss@propdesk.io"))
	assert.Equal(t, models.RoleSales, svc.RoleByEmail(ctx, "rep@propdesk.io"))
	assert.Equal(t, models.RoleSales, svc.RoleByEmail(ctx, "unknown@propdesk.io"),
		"lookup failure must default to the narrowest role")
}

func TestRoleByEmail_UnknownRoleNarrows(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.PutUser(context.Background(), &models.User{
		Email: "odd@propdesk.io", Role: "superuser",
	}))
	svc := NewService(mem, nil, logger.Default())

	assert.Equal(t, models.RoleSales, svc.RoleByEmail(context.Background(), "odd@propdesk.io"))
}

func TestAuthenticate(t *testing.T) {
	mem := store.NewMemory()
	seedUsers(t, mem)
	svc := NewService(mem, nil, logger.Default())
	ctx := context.Background()

	u, err := svc.Authenticate(ctx, "boss@propdesk.io", "hunter2!")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = svc.Authenticate(ctx, "boss@propdesk.io", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ghost@propdesk.io", "hunter2!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSalesUsers_CachesDirectory(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	c := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	mem := store.NewMemory()
	seedUsers(t, mem)
	svc := NewService(mem, c, logger.Default())
	ctx := context.Background()

	infos, err := svc.SalesUsers(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "rep@propdesk.io", infos[0].Email)

	// A new sales user is invisible until the cache expires.
	require.NoError(t, mem.PutUser(ctx, &models.User{
		Email: "new@propdesk.io", Role: models.RoleSales,
	}))
	infos, err = svc.SalesUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	mr.FastForward(6 * time.Minute)
	infos, err = svc.SalesUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestSalesUsers_EmptyDirectory(t *testing.T) {
	mem := store.NewMemory()
	svc := NewService(mem, nil, logger.Default())

	infos, err := svc.SalesUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}
