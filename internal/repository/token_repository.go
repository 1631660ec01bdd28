package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenRepository 维护已注销 token 的黑名单。
type TokenRepository interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type redisTokenRepository struct {
	redisClient *redis.Client
}

// NewTokenRepository 创建一个基于 Redis 的 TokenRepository。
// redisClient 为 nil 时返回不做任何记录的实现。
func NewTokenRepository(redisClient *redis.Client) TokenRepository {
	if redisClient == nil {
		return noopTokenRepository{}
	}
	return &redisTokenRepository{redisClient: redisClient}
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

// Revoke 将 token 加入黑名单，过期时间与 token 剩余有效期一致。
func (r *redisTokenRepository) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.redisClient.Set(ctx, blacklistKey(token), "true", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked 判断 token 是否已在黑名单中。
func (r *redisTokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := r.redisClient.Get(ctx, blacklistKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return true, nil
}

type noopTokenRepository struct{}

func (noopTokenRepository) Revoke(context.Context, string, time.Duration) error { return nil }

func (noopTokenRepository) IsRevoked(context.Context, string) (bool, error) { return false, nil }
