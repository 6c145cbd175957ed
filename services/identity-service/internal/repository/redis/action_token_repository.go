package redis

import (
	"context"
	"fmt"
	"time"

	"MedMinderPlatform/services/identity-service/internal/domain"
	"MedMinderPlatform/services/identity-service/internal/repository"
	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound возвращается, когда токен не найден, просрочен
// или уже погашен; эти случаи неразличимы для вызывающего
var ErrTokenNotFound = fmt.Errorf("token not found")

// ActionTokenRepository реализация хранилища одноразовых токенов для Redis
// Ключи имеют вид {purpose}:{userId}:{secret} и живут не дольше TTL
type ActionTokenRepository struct {
	client *redis.Client
}

// NewActionTokenRepository создает новый экземпляр ActionTokenRepository
func NewActionTokenRepository(client *redis.Client) repository.ActionTokenRepository {
	return &ActionTokenRepository{client: client}
}

// Save сохраняет секрет с заданным TTL
func (r *ActionTokenRepository) Save(ctx context.Context, purpose, userID, secret string, ttl time.Duration) error {
	key := actionTokenKey(purpose, userID, secret)
	if err := r.client.Set(ctx, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save action token: %w", err)
	}
	return nil
}

// Redeem находит токен по секрету и атомарно гасит его
// Вызывающему известен только секрет, поэтому ключ ищется перебором
// по шаблону {purpose}:*:{secret}
// Точкой фиксации служит GETDEL: из двух конкурентных погашений одного
// секрета значение получит максимум одно
func (r *ActionTokenRepository) Redeem(ctx context.Context, purpose, secret string) (string, error) {
	var key string

	iter := r.client.Scan(ctx, 0, actionTokenPattern(purpose, secret), 100).Iterator()
	if iter.Next(ctx) {
		key = iter.Val()
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("failed to scan action tokens: %w", err)
	}
	if key == "" {
		return "", ErrTokenNotFound
	}

	userID, err := r.client.GetDel(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			// Токен погашен конкурентным запросом между SCAN и GETDEL
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to redeem action token: %w", err)
	}

	return userID, nil
}

// DeleteByUser удаляет все невыданные токены пользователя
func (r *ActionTokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	for _, purpose := range []string{domain.PurposeReset, domain.PurposeActivate} {
		iter := r.client.Scan(ctx, 0, actionTokenUserPattern(purpose, userID), 100).Iterator()
		for iter.Next(ctx) {
			if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("failed to delete action token: %w", err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan action tokens: %w", err)
		}
	}
	return nil
}
