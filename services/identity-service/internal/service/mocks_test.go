package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"MedMinderPlatform/services/identity-service/internal/domain"
	"MedMinderPlatform/services/identity-service/internal/pkg/jwt"
)

// Моки зависимостей сервисного слоя

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) ([]*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateEmail(ctx context.Context, id, newEmail string) error {
	args := m.Called(ctx, id, newEmail)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) Add(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAdminRepository) Remove(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAdminRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockActionTokenRepository struct {
	mock.Mock
}

func (m *MockActionTokenRepository) Save(ctx context.Context, purpose, userID, secret string, ttl time.Duration) error {
	args := m.Called(ctx, purpose, userID, secret, ttl)
	return args.Error(0)
}

func (m *MockActionTokenRepository) Redeem(ctx context.Context, purpose, secret string) (string, error) {
	args := m.Called(ctx, purpose, secret)
	return args.String(0), args.Error(1)
}

func (m *MockActionTokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockJWTManager struct {
	mock.Mock
}

func (m *MockJWTManager) GenerateTokenPair(userID, username string, isAdmin bool) (string, string, error) {
	args := m.Called(userID, username, isAdmin)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockJWTManager) GenerateAccessToken(userID, username string, isAdmin bool) (string, error) {
	args := m.Called(userID, username, isAdmin)
	return args.String(0), args.Error(1)
}

func (m *MockJWTManager) GenerateRefreshToken(userID, username string, isAdmin bool) (string, error) {
	args := m.Called(userID, username, isAdmin)
	return args.String(0), args.Error(1)
}

func (m *MockJWTManager) ValidateAccessToken(token string) (*jwt.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jwt.TokenClaims), args.Error(1)
}

func (m *MockJWTManager) ValidateRefreshToken(token string) (*jwt.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jwt.TokenClaims), args.Error(1)
}

type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) Hash(ctx context.Context, password string) (string, error) {
	args := m.Called(ctx, password)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) Check(password, hash string) bool {
	args := m.Called(password, hash)
	return args.Bool(0)
}

func (m *MockHasher) Validate(password string) bool {
	args := m.Called(password)
	return args.Bool(0)
}

type MockMailPublisher struct {
	mock.Mock
}

func (m *MockMailPublisher) PublishMail(ctx context.Context, event domain.MailEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
