package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"MedMinderPlatform/pkg/logger"
	"MedMinderPlatform/pkg/metrics"
	"MedMinderPlatform/services/identity-service/internal/domain"
	"MedMinderPlatform/services/identity-service/internal/pkg/jwt"
	redisrepo "MedMinderPlatform/services/identity-service/internal/repository/redis"
)

func newTestLogger(t *testing.T) logger.Logger {
	log, err := logger.NewLogger("dev", "error", "identity-service-test")
	require.NoError(t, err)
	return log
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics("identity_service_test")
}

type authServiceMocks struct {
	users  *MockUserRepository
	admins *MockAdminRepository
	tokens *MockActionTokenRepository
	jwt    *MockJWTManager
	hasher *MockHasher
	mail   *MockMailPublisher
}

func newAuthService(t *testing.T) (*AuthService, *authServiceMocks) {
	m := &authServiceMocks{
		users:  new(MockUserRepository),
		admins: new(MockAdminRepository),
		tokens: new(MockActionTokenRepository),
		jwt:    new(MockJWTManager),
		hasher: new(MockHasher),
		mail:   new(MockMailPublisher),
	}
	svc := NewAuthService(m.users, m.admins, m.tokens, m.jwt, m.hasher, m.mail, newTestMetrics(), newTestLogger(t))
	return svc, m
}

func TestAuthService_Register(t *testing.T) {
	svc, m := newAuthService(t)

	m.hasher.On("Validate", "secret123").Return(true)
	m.hasher.On("Hash", mock.Anything, "secret123").Return("hashed", nil)
	m.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Username == "alice" && u.Email == "alice@example.com" &&
			u.PasswordHash == "hashed" && !u.IsActive && u.ID != ""
	})).Return(nil)
	m.tokens.On("Save", mock.Anything, domain.PurposeActivate, mock.Anything, mock.Anything, domain.ActivateTokenTTL).Return(nil)
	m.mail.On("PublishMail", mock.Anything, mock.Anything).Return(nil).Maybe()

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	// Email нормализуется к нижнему регистру
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.IsActive)

	m.users.AssertExpectations(t)
	m.tokens.AssertExpectations(t)
}

// Время создания проставляется при регистрации: от него зависит
// детерминированный порядок кандидатов с общим именем
func TestAuthService_Register_SetsCreatedAt(t *testing.T) {
	svc, m := newAuthService(t)

	var created *domain.User
	m.hasher.On("Validate", "secret123").Return(true)
	m.hasher.On("Hash", mock.Anything, "secret123").Return("hashed", nil)
	m.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		created = u
		return true
	})).Return(nil)
	m.tokens.On("Save", mock.Anything, domain.PurposeActivate, mock.Anything, mock.Anything, domain.ActivateTokenTTL).Return(nil)
	m.mail.On("PublishMail", mock.Anything, mock.Anything).Return(nil).Maybe()

	before := time.Now().UTC()
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.CreatedAt.Before(before))
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
}

// Конфликт email не должен отличаться от любой другой ошибки валидации
func TestAuthService_Register_EmailTakenIsMasked(t *testing.T) {
	svc, m := newAuthService(t)

	m.hasher.On("Validate", "secret123").Return(true)
	m.hasher.On("Hash", mock.Anything, "secret123").Return("hashed", nil)
	m.users.On("Create", mock.Anything, mock.Anything).Return(redisrepo.ErrEmailTaken)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "bob",
		Email:    "taken@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistrationRejected)
	assert.NotContains(t, err.Error(), "email")

	// Токен активации не выдается для отклоненной регистрации
	m.tokens.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, m := newAuthService(t)
	m.hasher.On("Validate", "short").Return(false)

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"empty username", RegisterInput{Username: "", Email: "a@b.com", Password: "secret123"}},
		{"invalid email", RegisterInput{Username: "alice", Email: "not-an-email", Password: "secret123"}},
		{"short password", RegisterInput{Username: "alice", Email: "a@b.com", Password: "short"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.input.Password != "short" {
				m.hasher.On("Validate", tc.input.Password).Return(true).Maybe()
			}
			_, err := svc.Register(context.Background(), tc.input)
			assert.Error(t, err)
		})
	}

	m.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// Два пользователя с одним именем: пароль определяет, кто входит
func TestAuthService_Login_MultipleCandidates(t *testing.T) {
	svc, m := newAuthService(t)

	first := &domain.User{ID: "user-1", Username: "alice", PasswordHash: "hash-1", IsActive: true, CreatedAt: time.Now().Add(-time.Hour)}
	second := &domain.User{ID: "user-2", Username: "alice", PasswordHash: "hash-2", IsActive: true, CreatedAt: time.Now()}

	m.users.On("FindByUsername", mock.Anything, "alice").Return([]*domain.User{first, second}, nil)
	m.hasher.On("Check", "second-password", "hash-1").Return(false)
	m.hasher.On("Check", "second-password", "hash-2").Return(true)
	m.admins.On("IsAdmin", mock.Anything, "user-2").Return(false, nil)
	m.jwt.On("GenerateTokenPair", "user-2", "alice", false).Return("access", "refresh", nil)

	tokens, user, err := svc.Login(context.Background(), "alice", "second-password")
	require.NoError(t, err)
	assert.Equal(t, "user-2", user.ID)
	assert.Equal(t, "access", tokens.AccessToken)
	assert.Equal(t, "refresh", tokens.RefreshToken)
}

func TestAuthService_Login_UnknownUsername(t *testing.T) {
	svc, m := newAuthService(t)

	m.users.On("FindByUsername", mock.Anything, "ghost").Return([]*domain.User{}, nil)

	_, _, err := svc.Login(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, m := newAuthService(t)

	user := &domain.User{ID: "user-1", Username: "alice", PasswordHash: "hash-1", IsActive: true}
	m.users.On("FindByUsername", mock.Anything, "alice").Return([]*domain.User{user}, nil)
	m.hasher.On("Check", "wrong", "hash-1").Return(false)

	_, _, err := svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// Неактивная учетная запись получает тот же отказ, что и неверный пароль
func TestAuthService_Login_InactiveAccount(t *testing.T) {
	svc, m := newAuthService(t)

	user := &domain.User{ID: "user-1", Username: "alice", PasswordHash: "hash-1", IsActive: false}
	m.users.On("FindByUsername", mock.Anything, "alice").Return([]*domain.User{user}, nil)
	m.hasher.On("Check", "secret123", "hash-1").Return(true)

	_, _, err := svc.Login(context.Background(), "alice", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	m.jwt.AssertNotCalled(t, "GenerateTokenPair", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Login_AdminClaim(t *testing.T) {
	svc, m := newAuthService(t)

	user := &domain.User{ID: "admin-1", Username: "root", PasswordHash: "hash-1", IsActive: true}
	m.users.On("FindByUsername", mock.Anything, "root").Return([]*domain.User{user}, nil)
	m.hasher.On("Check", "secret123", "hash-1").Return(true)
	m.admins.On("IsAdmin", mock.Anything, "admin-1").Return(true, nil)
	m.jwt.On("GenerateTokenPair", "admin-1", "root", true).Return("access", "refresh", nil)

	_, _, err := svc.Login(context.Background(), "root", "secret123")
	require.NoError(t, err)
	m.jwt.AssertExpectations(t)
}

// Привилегии при обновлении перечитываются из хранилища,
// а не берутся из claims старого токена
func TestAuthService_Refresh_AdminRevoked(t *testing.T) {
	svc, m := newAuthService(t)

	claims := &jwt.TokenClaims{UserID: "user-1", Username: "alice", IsAdmin: true, TokenType: jwt.TokenTypeRefresh}
	user := &domain.User{ID: "user-1", Username: "alice", IsActive: true}

	m.jwt.On("ValidateRefreshToken", "refresh-token").Return(claims, nil)
	m.users.On("FindByID", mock.Anything, "user-1").Return(user, nil)
	m.admins.On("IsAdmin", mock.Anything, "user-1").Return(false, nil)
	m.jwt.On("GenerateAccessToken", "user-1", "alice", false).Return("new-access", nil)

	accessToken, err := svc.Refresh(context.Background(), "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, "new-access", accessToken)
	m.jwt.AssertExpectations(t)
}

func TestAuthService_Refresh_InvalidToken(t *testing.T) {
	svc, m := newAuthService(t)

	m.jwt.On("ValidateRefreshToken", "bad-token").Return(nil, assert.AnError)

	_, err := svc.Refresh(context.Background(), "bad-token")
	assert.Error(t, err)
	m.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestAuthService_Refresh_DeletedUser(t *testing.T) {
	svc, m := newAuthService(t)

	claims := &jwt.TokenClaims{UserID: "gone", Username: "alice", TokenType: jwt.TokenTypeRefresh}
	m.jwt.On("ValidateRefreshToken", "refresh-token").Return(claims, nil)
	m.users.On("FindByID", mock.Anything, "gone").Return(nil, redisrepo.ErrUserNotFound)

	_, err := svc.Refresh(context.Background(), "refresh-token")
	assert.Error(t, err)
}

func TestAuthService_Refresh_InactiveUser(t *testing.T) {
	svc, m := newAuthService(t)

	claims := &jwt.TokenClaims{UserID: "user-1", Username: "alice", TokenType: jwt.TokenTypeRefresh}
	user := &domain.User{ID: "user-1", Username: "alice", IsActive: false}
	m.jwt.On("ValidateRefreshToken", "refresh-token").Return(claims, nil)
	m.users.On("FindByID", mock.Anything, "user-1").Return(user, nil)

	_, err := svc.Refresh(context.Background(), "refresh-token")
	assert.Error(t, err)
	m.jwt.AssertNotCalled(t, "GenerateAccessToken", mock.Anything, mock.Anything, mock.Anything)
}
