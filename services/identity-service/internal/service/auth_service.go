package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"MedMinderPlatform/pkg/errors"
	"MedMinderPlatform/pkg/logger"
	"MedMinderPlatform/pkg/metrics"
	"MedMinderPlatform/services/identity-service/internal/domain"
	"MedMinderPlatform/services/identity-service/internal/pkg/jwt"
	"MedMinderPlatform/services/identity-service/internal/pkg/password"
	"MedMinderPlatform/services/identity-service/internal/pkg/secret"
	"MedMinderPlatform/services/identity-service/internal/repository"
	redisrepo "MedMinderPlatform/services/identity-service/internal/repository/redis"
)

// TokenPair пара токенов, выдаваемая при входе и активации
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService отвечает за регистрацию, вход и обновление токенов
type AuthService struct {
	users      repository.UserRepository
	admins     repository.AdminRepository
	tokens     repository.ActionTokenRepository
	jwtManager jwt.JWTManager
	hasher     password.Hasher
	mail       MailPublisher
	metrics    *metrics.Metrics
	log        logger.Logger
}

// NewAuthService создает новый AuthService
func NewAuthService(
	users repository.UserRepository,
	admins repository.AdminRepository,
	tokens repository.ActionTokenRepository,
	jwtManager jwt.JWTManager,
	hasher password.Hasher,
	mail MailPublisher,
	m *metrics.Metrics,
	log logger.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		admins:     admins,
		tokens:     tokens,
		jwtManager: jwtManager,
		hasher:     hasher,
		mail:       mail,
		metrics:    m,
		log:        log,
	}
}

// RegisterInput данные регистрации нового пользователя
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register регистрирует нового пользователя и отправляет письмо активации
// Учетная запись создается неактивной; конфликт email наружу не раскрывается
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.UserView, error) {
	username := strings.TrimSpace(input.Username)
	email := redisrepo.NormalizeEmail(input.Email)

	if username == "" {
		return nil, errors.New(errors.ErrValidation, "username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New(errors.ErrValidation, "a valid email is required")
	}
	if !s.hasher.Validate(input.Password) {
		return nil, errors.New(errors.ErrValidation, "password must be at least 6 characters")
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		s.metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to process password")
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		IsActive:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, redisrepo.ErrEmailTaken) {
			// Наружу уходит общий отказ, чтобы не подтверждать
			// существование email в системе
			s.log.Info("registration rejected: email already registered",
				logger.String("email", email))
			s.metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
			return nil, ErrRegistrationRejected
		}
		s.metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to create user")
	}

	s.issueActivationMail(ctx, user)

	s.metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.log.Info("user registered",
		logger.String("user_id", user.ID),
		logger.String("username", user.Username))

	view := user.Public()
	return &view, nil
}

// issueActivationMail выдает токен активации и публикует событие письма
// Сбой выдачи не отменяет регистрацию: пользователь может запросить
// повторное письмо позже
func (s *AuthService) issueActivationMail(ctx context.Context, user *domain.User) {
	token, err := secret.New(secret.DefaultLength)
	if err != nil {
		s.log.Error("failed to generate activation token",
			logger.String("user_id", user.ID), logger.Error(err))
		return
	}
	if err := s.tokens.Save(ctx, domain.PurposeActivate, user.ID, token, domain.ActivateTokenTTL); err != nil {
		s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeActivate, "issue", "error").Inc()
		s.log.Error("failed to save activation token",
			logger.String("user_id", user.ID), logger.Error(err))
		return
	}
	s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeActivate, "issue", "success").Inc()

	publishMailAsync(s.mail, s.log, domain.MailEvent{
		Type:     domain.MailTypeActivate,
		To:       user.Email,
		Username: user.Username,
		Token:    token,
	})
}

// Login выполняет вход по имени пользователя и паролю
// Имена не уникальны: пароль проверяется по каждому кандидату
// в детерминированном порядке, побеждает первое совпадение
func (s *AuthService) Login(ctx context.Context, username, plainPassword string) (*TokenPair, *domain.UserView, error) {
	candidates, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		s.metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, nil, errors.Wrap(err, errors.ErrInternal, "failed to look up user")
	}

	var matched *domain.User
	for _, candidate := range candidates {
		if s.hasher.Check(plainPassword, candidate.PasswordHash) {
			matched = candidate
			break
		}
	}

	if matched == nil {
		s.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, nil, ErrInvalidCredentials
	}

	if !matched.IsActive {
		// Тот же общий отказ, что и при неверном пароле:
		// статус учетной записи не раскрывается
		s.log.Info("login denied for inactive account",
			logger.String("user_id", matched.ID))
		s.metrics.LoginsTotal.WithLabelValues("inactive").Inc()
		return nil, nil, ErrInvalidCredentials
	}

	isAdmin, err := s.admins.IsAdmin(ctx, matched.ID)
	if err != nil {
		s.metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, nil, errors.Wrap(err, errors.ErrInternal, "failed to check privileges")
	}

	accessToken, refreshToken, err := s.jwtManager.GenerateTokenPair(matched.ID, matched.Username, isAdmin)
	if err != nil {
		s.metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, nil, errors.Wrap(err, errors.ErrInternal, "failed to issue tokens")
	}

	s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.metrics.TokensIssuedTotal.WithLabelValues(jwt.TokenTypeAccess).Inc()
	s.metrics.TokensIssuedTotal.WithLabelValues(jwt.TokenTypeRefresh).Inc()
	s.log.Info("user logged in",
		logger.String("user_id", matched.ID),
		logger.Bool("is_admin", isAdmin))

	view := matched.Public()
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, &view, nil
}

// Refresh выдает новый access-токен по действительному refresh-токену
// Пользователь и его привилегии перечитываются из хранилища:
// заявленный в токене is_admin не используется
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", errors.New(errors.ErrUnauthorized, "invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrUserNotFound) {
			return "", errors.New(errors.ErrUnauthorized, "invalid refresh token")
		}
		return "", errors.Wrap(err, errors.ErrInternal, "failed to look up user")
	}

	if !user.IsActive {
		return "", errors.New(errors.ErrUnauthorized, "invalid refresh token")
	}

	isAdmin, err := s.admins.IsAdmin(ctx, user.ID)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to check privileges")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, isAdmin)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to issue token")
	}

	s.metrics.TokensIssuedTotal.WithLabelValues(jwt.TokenTypeAccess).Inc()
	return accessToken, nil
}
