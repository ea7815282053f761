package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/redisx"
)

func signToken(t *testing.T, tenant int64, sub string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		TenantID: tenant,
		Role:     "OWNER",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)
	return tok
}

func TestResolve_NoToken(t *testing.T) {
	s, err := Resolve("", 21, time.Now())
	require.NoError(t, err)
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, Guest{Tenant: 21}, s.Caller)
	id, ok := s.TenantID()
	assert.True(t, ok)
	assert.Equal(t, int64(21), id)
	assert.False(t, s.CanEdit())
}

func TestResolve_NotReady(t *testing.T) {
	s, err := Resolve("", 0, time.Now())
	require.NoError(t, err)
	_, ok := s.TenantID()
	assert.False(t, ok)
}

func TestResolve_Owner(t *testing.T) {
	now := time.Now()
	tok := signToken(t, 7, "owner@shop.pl", now.Add(30*time.Minute))

	s, err := Resolve(tok, 0, now)
	require.NoError(t, err)
	require.True(t, s.IsAuthenticated())
	o, _ := s.Owner()
	assert.Equal(t, int64(7), o.Tenant)
	assert.Equal(t, "owner@shop.pl", o.UserID)
	assert.Equal(t, "OWNER", o.Role)
	assert.Equal(t, tok, s.Token)
	assert.True(t, s.CanEdit())
}

func TestResolve_OwnerViewingOtherStore(t *testing.T) {
	now := time.Now()
	tok := signToken(t, 7, "1", now.Add(time.Hour))

	s, err := Resolve(tok, 21, now)
	require.NoError(t, err)
	assert.True(t, s.IsAuthenticated())
	id, _ := s.TenantID()
	assert.Equal(t, int64(21), id)
	assert.False(t, s.CanEdit())
}

func TestResolve_BadTokens(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"expired", signToken(t, 7, "1", now.Add(-time.Minute)), ErrExpiredToken},
		{"no tenant", signToken(t, 0, "1", now.Add(time.Hour)), ErrNoTenantClaim},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Resolve(tt.token, 21, now)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, s.IsAuthenticated())
			assert.Equal(t, Guest{Tenant: 21}, s.Caller)
		})
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s := &FileStore{Path: filepath.Join(t.TempDir(), "nested", "token")}

	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Save(ctx, "abc.def.ghi"))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestRedisStore(t *testing.T) {
	rdb := redisx.New("localhost:6379")
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer rdb.Close()

	s := &RedisStore{RDB: rdb, Profile: "test-" + uuid.NewString()}
	defer s.Clear(ctx)

	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Save(ctx, "tok"))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	require.NoError(t, s.Clear(ctx))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}
