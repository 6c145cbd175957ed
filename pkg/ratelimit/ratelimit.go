package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter интерфейс для ограничения частоты запросов
type RateLimiter interface {
	// CheckRateLimit проверяет лимит для заданного ключа
	// Возвращает true, если лимит превышен
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisRateLimiter реализация RateLimiter с использованием Redis
// Использует fixed window алгоритм: счетчик на ключ с TTL равным окну
type RedisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter создает новый экземпляр RedisRateLimiter
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

// CheckRateLimit проверяет, не превышен ли лимит запросов для заданного ключа
// Алгоритм:
// 1. INCR счетчика по ключу
// 2. Если счетчик равен 1, ключ новый, устанавливаем TTL окна
// 3. Если счетчик > лимита, лимит превышен
func (r *RedisRateLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	// Формируем ключ для Redis
	redisKey := fmt.Sprintf("rate_limit:%s", key)

	// INCR и EXPIRE выполняются в одном pipeline
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return incr.Val() > int64(limit), nil
}
