package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const (
	UserTokenPrefix   = "login:user:token"
	UserRefreshPrefix = "login:user:refresh"
)

// TokenStore keeps the current access and refresh token per user; a newer
// login or refresh replaces both.
type TokenStore struct {
	rdb        *redis.Client
	ttl        time.Duration
	refreshTTL time.Duration
}

func NewTokenStore(rdb *redis.Client, ttl, refreshTTL time.Duration) *TokenStore {
	return &TokenStore{rdb: rdb, ttl: ttl, refreshTTL: refreshTTL}
}

func tokenKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", UserTokenPrefix, userID)
}

func refreshKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", UserRefreshPrefix, userID)
}

func (s *TokenStore) Save(ctx context.Context, userID uint64, token string) error {
	if err := s.rdb.Set(ctx, tokenKey(userID), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, userID uint64) (string, error) {
	return s.get(ctx, tokenKey(userID))
}

func (s *TokenStore) SaveRefresh(ctx context.Context, userID uint64, token string) error {
	if err := s.rdb.Set(ctx, refreshKey(userID), token, s.refreshTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *TokenStore) GetRefresh(ctx context.Context, userID uint64) (string, error) {
	return s.get(ctx, refreshKey(userID))
}

func (s *TokenStore) get(ctx context.Context, key string) (string, error) {
	token, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return token, nil
}

// Delete ends the session: both the access and the refresh token stop working.
func (s *TokenStore) Delete(ctx context.Context, userID uint64) error {
	if err := s.rdb.Del(ctx, tokenKey(userID), refreshKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
