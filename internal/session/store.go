package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-storefront/internal/redisx"
)

// TokenStore persists the bearer token between runs: written on login, read by every
// owner-scoped request, removed on logout. Load returns "" when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type FileStore struct {
	Path string
}

func (s *FileStore) Load(context.Context) (string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *FileStore) Save(_ context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("token dir: %w", err)
	}
	return os.WriteFile(s.Path, []byte(token), 0o600)
}

func (s *FileStore) Clear(context.Context) error {
	err := os.Remove(s.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// RedisStore keeps the token under session:token:{profile}.
type RedisStore struct {
	RDB     *redis.Client
	Profile string
}

func (s *RedisStore) key() string { return fmt.Sprintf(redisx.KeySessionToken, s.Profile) }

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	tok, err := s.RDB.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return tok, err
}

func (s *RedisStore) Save(ctx context.Context, token string) error {
	return s.RDB.Set(ctx, s.key(), token, redisx.TTLSessionToken).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.RDB.Del(ctx, s.key()).Err()
}
