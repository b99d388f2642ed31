package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/leadadmin/pkg/cache"
)

func TestJWT_GenerateAndValidate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("rep@propdesk.io", "sales")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "rep@propdesk.io", claims.Email)
	assert.Equal(t, "sales", claims.Role)
}

func TestJWT_RejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).Generate("x@y.com", "admin")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_RejectsExpired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)
	token, err := m.Generate("x@y.com", "admin")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_RejectsGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	_, err := m.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBlacklist(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	bl := NewBlacklist(c)
	m := NewJWTManager("test-secret", time.Hour)
	ctx := context.Background()

	token, err := m.Generate("x@y.com", "admin")
	require.NoError(t, err)

	_, err = m.ValidateWithBlacklist(ctx, bl, token)
	require.NoError(t, err)

	require.NoError(t, bl.Revoke(ctx, token, time.Hour))
	_, err = m.ValidateWithBlacklist(ctx, bl, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2!")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2!", hash)

	assert.True(t, CheckPassword("hunter2!", hash))
	assert.False(t, CheckPassword("wrong", hash))
}
