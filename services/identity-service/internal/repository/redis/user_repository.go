package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"MedMinderPlatform/services/identity-service/internal/domain"
	"MedMinderPlatform/services/identity-service/internal/repository"
	"github.com/redis/go-redis/v9"
)

// Количество повторов оптимистичной транзакции при конкурентной записи
const txRetries = 3

// ErrEmailTaken возвращается, когда email уже привязан к другому пользователю
var ErrEmailTaken = fmt.Errorf("email already registered")

// ErrUserNotFound возвращается, когда пользователь не найден
var ErrUserNotFound = fmt.Errorf("user not found")

// UserRepository реализация репозитория пользователей для Redis
type UserRepository struct {
	client *redis.Client
	tokens *ActionTokenRepository
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(client *redis.Client) repository.UserRepository {
	return &UserRepository{
		client: client,
		tokens: &ActionTokenRepository{client: client},
	}
}

// Create создает пользователя и все его индексы в одной транзакции
// Уникальность email проверяется под WATCH: конкурентная регистрация
// с тем же email приводит к повтору и затем к ErrEmailTaken
// Запись, индекс имени и индекс email становятся видимыми атомарно
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	userData, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	emKey := emailKey(user.Email)

	txf := func(tx *redis.Tx) error {
		// Проверяем занятость email под WATCH
		exists, err := tx.Exists(ctx, emKey).Result()
		if err != nil {
			return fmt.Errorf("failed to check email index: %w", err)
		}
		if exists > 0 {
			return ErrEmailTaken
		}

		// Все три записи выполняются атомарно
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(user.ID), userData, 0)
			pipe.SAdd(ctx, usernameKey(user.Username), user.ID)
			pipe.Set(ctx, emKey, user.ID, 0)
			return nil
		})
		return err
	}

	for i := 0; i < txRetries; i++ {
		err := r.client.Watch(ctx, txf, emKey)
		if err == nil {
			return nil
		}
		if err == redis.TxFailedErr {
			// Ключ изменился между WATCH и EXEC, пробуем снова
			continue
		}
		return err
	}

	return fmt.Errorf("failed to create user after %d retries: %w", txRetries, redis.TxFailedErr)
}

// FindByID возвращает пользователя по его ID
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	data, err := r.client.Get(ctx, userKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &user, nil
}

// FindByUsername возвращает всех пользователей с данным именем
// Порядок детерминирован: по времени создания, затем по ID
// Порядок элементов множества в Redis не определен и не используется
func (r *UserRepository) FindByUsername(ctx context.Context, username string) ([]*domain.User, error) {
	ids, err := r.client.SMembers(ctx, usernameKey(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get username index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		user, err := r.FindByID(ctx, id)
		if err != nil {
			if err == ErrUserNotFound {
				// Висячий элемент индекса, запись уже удалена
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

// FindByEmail возвращает пользователя по email
// Одно обращение к индексу, без полного перебора
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, err := r.client.Get(ctx, emailKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get email index: %w", err)
	}

	return r.FindByID(ctx, id)
}

// Update перезаписывает запись пользователя и обновляет UpdatedAt
// Email и username в записи должны совпадать с текущими значениями индексов
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	userData, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	key := userKey(user.ID)

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to check user record: %w", err)
		}
		if exists == 0 {
			return ErrUserNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, userData, 0)
			return nil
		})
		return err
	}

	for i := 0; i < txRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}

	return fmt.Errorf("failed to update user after %d retries: %w", txRetries, redis.TxFailedErr)
}

// UpdateEmail меняет email пользователя с проверкой уникальности
// Старый и новый ключи индекса переносятся в одной транзакции
func (r *UserRepository) UpdateEmail(ctx context.Context, id, newEmail string) error {
	newKey := emailKey(newEmail)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, userKey(id)).Result()
		if err != nil {
			if err == redis.Nil {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		var user domain.User
		if err := json.Unmarshal([]byte(data), &user); err != nil {
			return fmt.Errorf("failed to unmarshal user: %w", err)
		}

		oldKey := emailKey(user.Email)
		if oldKey == newKey {
			return nil
		}

		// Новый email не должен принадлежать другому пользователю
		owner, err := tx.Get(ctx, newKey).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to check email index: %w", err)
		}
		if err == nil && owner != id {
			return ErrEmailTaken
		}

		user.Email = NormalizeEmail(newEmail)
		user.UpdatedAt = time.Now().UTC()
		userData, err := json.Marshal(&user)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, oldKey)
			pipe.Set(ctx, newKey, id, 0)
			pipe.Set(ctx, userKey(id), userData, 0)
			return nil
		})
		return err
	}

	for i := 0; i < txRetries; i++ {
		err := r.client.Watch(ctx, txf, newKey, userKey(id))
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}

	return fmt.Errorf("failed to update email after %d retries: %w", txRetries, redis.TxFailedErr)
}

// List возвращает всех пользователей
// Перебор выполняется курсором SCAN по семейству user:id:*
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User

	iter := r.client.Scan(ctx, 0, userKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to get user: %w", err)
		}

		var user domain.User
		if err := json.Unmarshal([]byte(data), &user); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user: %w", err)
		}
		users = append(users, &user)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

// Delete каскадно удаляет пользователя: запись, индекс имени, индекс email,
// членство в наборе администраторов и невыданные одноразовые токены
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, userKey(id))
		pipe.SRem(ctx, usernameKey(user.Username), id)
		pipe.Del(ctx, emailKey(user.Email))
		pipe.SRem(ctx, adminSetKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	// Одноразовые токены удаляются вне транзакции: их ключи находятся по шаблону
	return r.tokens.DeleteByUser(ctx, id)
}
