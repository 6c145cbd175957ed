package repository

import (
	"context"
	"time"

	"MedMinderPlatform/services/identity-service/internal/domain"
)

// UserRepository интерфейс для работы с пользователями
// Create и UpdateEmail поддерживают инварианты индексов:
// email уникален, username отображается на множество ID
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByUsername возвращает всех кандидатов с данным именем,
	// отсортированных по времени создания
	FindByUsername(ctx context.Context, username string) ([]*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update перезаписывает запись пользователя
	// Смена email выполняется только через UpdateEmail
	Update(ctx context.Context, user *domain.User) error
	UpdateEmail(ctx context.Context, id, newEmail string) error
	List(ctx context.Context) ([]*domain.User, error)
	// Delete каскадно удаляет запись и все индексные данные пользователя
	Delete(ctx context.Context, id string) error
}

// AdminRepository интерфейс для работы с набором администраторов
// Членство в наборе служит единственным источником истины для привилегий
type AdminRepository interface {
	Add(ctx context.Context, userID string) error
	Remove(ctx context.Context, userID string) error
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// ActionTokenRepository интерфейс для работы с одноразовыми токенами
// Токены ограничены по времени жизни и удаляются при погашении
type ActionTokenRepository interface {
	// Save сохраняет секрет с заданным TTL
	Save(ctx context.Context, purpose, userID, secret string, ttl time.Duration) error
	// Redeem находит токен по секрету, атомарно удаляет его
	// и возвращает ID пользователя; повторное погашение невозможно
	Redeem(ctx context.Context, purpose, secret string) (string, error)
	// DeleteByUser удаляет все невыданные токены пользователя
	DeleteByUser(ctx context.Context, userID string) error
}
