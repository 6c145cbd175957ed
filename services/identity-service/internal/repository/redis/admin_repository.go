package redis

import (
	"context"
	"fmt"

	"MedMinderPlatform/services/identity-service/internal/repository"
	"github.com/redis/go-redis/v9"
)

// AdminRepository реализация набора администраторов для Redis
// Набор хранится под ключом admins; членство проверяется на каждом
// привилегированном действии и не кэшируется
type AdminRepository struct {
	client *redis.Client
}

// NewAdminRepository создает новый экземпляр AdminRepository
func NewAdminRepository(client *redis.Client) repository.AdminRepository {
	return &AdminRepository{client: client}
}

// Add добавляет пользователя в набор администраторов
func (r *AdminRepository) Add(ctx context.Context, userID string) error {
	if err := r.client.SAdd(ctx, adminSetKey, userID).Err(); err != nil {
		return fmt.Errorf("failed to add admin: %w", err)
	}
	return nil
}

// Remove удаляет пользователя из набора администраторов
func (r *AdminRepository) Remove(ctx context.Context, userID string) error {
	if err := r.client.SRem(ctx, adminSetKey, userID).Err(); err != nil {
		return fmt.Errorf("failed to remove admin: %w", err)
	}
	return nil
}

// IsAdmin проверяет членство пользователя в наборе администраторов
func (r *AdminRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	isMember, err := r.client.SIsMember(ctx, adminSetKey, userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check admin membership: %w", err)
	}
	return isMember, nil
}
