package password

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Минимальная длина пароля
const MinLength = 6

// Hasher интерфейс для работы с паролями
// Hash принимает контекст: операция ждет свободного воркера
// и отменяется вместе с запросом
type Hasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Check(password, hash string) bool
	Validate(password string) bool
}

// BcryptHasher реализация Hasher с использованием bcrypt
// Количество одновременных хешей ограничено пулом воркеров,
// чтобы CPU-емкая работа не занимала все обработчики запросов
type BcryptHasher struct {
	cost    int
	workers chan struct{}
}

// NewBcryptHasher создает новый BcryptHasher с заданной стоимостью
// и размером пула воркеров
func NewBcryptHasher(cost, workers int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = 4
	}
	return &BcryptHasher{
		cost:    cost,
		workers: make(chan struct{}, workers),
	}
}

// Hash хеширует пароль с использованием bcrypt
// При отмене контекста во время ожидания воркера возвращает ошибку
func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	select {
	case h.workers <- struct{}{}:
		defer func() { <-h.workers }()
	case <-ctx.Done():
		return "", fmt.Errorf("hashing cancelled: %w", ctx.Err())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Check проверяет, соответствует ли пароль хешу
func (h *BcryptHasher) Check(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Validate проверяет минимальную длину пароля
func (h *BcryptHasher) Validate(password string) bool {
	return len(password) >= MinLength
}
