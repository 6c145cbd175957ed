package service

import (
	"context"
	"strings"

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

// AccountService отвечает за сброс пароля, активацию учетной записи
// и самостоятельное редактирование профиля
type AccountService struct {
	users      repository.UserRepository
	admins     repository.AdminRepository
	tokens     repository.ActionTokenRepository
	jwtManager jwt.JWTManager
	hasher     password.Hasher
	mail       MailPublisher
	metrics    *metrics.Metrics
	log        logger.Logger
}

// NewAccountService создает новый AccountService
func NewAccountService(
	users repository.UserRepository,
	admins repository.AdminRepository,
	tokens repository.ActionTokenRepository,
	jwtManager jwt.JWTManager,
	hasher password.Hasher,
	mail MailPublisher,
	m *metrics.Metrics,
	log logger.Logger,
) *AccountService {
	return &AccountService{
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

// RequestPasswordReset запускает процедуру сброса пароля
// Ответ всегда успешный: существование email в системе не раскрывается
// Токен выдается и письмо публикуется только для известного адреса
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	normalized := redisrepo.NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, redisrepo.ErrUserNotFound) {
			s.log.Info("password reset requested for unknown email",
				logger.String("email", normalized))
			return nil
		}
		// Сбой хранилища тоже не раскрывается наружу
		s.log.Error("password reset lookup failed", logger.Error(err))
		return nil
	}

	token, err := secret.New(secret.DefaultLength)
	if err != nil {
		s.log.Error("failed to generate reset token",
			logger.String("user_id", user.ID), logger.Error(err))
		return nil
	}

	if err := s.tokens.Save(ctx, domain.PurposeReset, user.ID, token, domain.ResetTokenTTL); err != nil {
		s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeReset, "issue", "error").Inc()
		s.log.Error("failed to save reset token",
			logger.String("user_id", user.ID), logger.Error(err))
		return nil
	}
	s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeReset, "issue", "success").Inc()

	publishMailAsync(s.mail, s.log, domain.MailEvent{
		Type:     domain.MailTypeReset,
		To:       user.Email,
		Username: user.Username,
		Token:    token,
	})

	s.log.Info("password reset token issued", logger.String("user_id", user.ID))
	return nil
}

// VerifyResetToken погашает токен сброса и возвращает имя пользователя
// Токен одноразовый: после успешной проверки повторное погашение невозможно
func (s *AccountService) VerifyResetToken(ctx context.Context, token string) (string, error) {
	userID, err := s.tokens.Redeem(ctx, domain.PurposeReset, token)
	if err != nil {
		if errors.Is(err, redisrepo.ErrTokenNotFound) {
			s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeReset, "redeem", "not_found").Inc()
			return "", ErrTokenNotFound
		}
		s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeReset, "redeem", "error").Inc()
		return "", errors.Wrap(err, errors.ErrInternal, "failed to redeem token")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrUserNotFound) {
			// Пользователь удален после выдачи токена
			s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeReset, "redeem", "not_found").Inc()
			return "", ErrTokenNotFound
		}
		return "", errors.Wrap(err, errors.ErrInternal, "failed to look up user")
	}

	s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeReset, "redeem", "success").Inc()
	s.log.Info("reset token verified", logger.String("user_id", user.ID))
	return user.Username, nil
}

// UpdatePassword устанавливает новый пароль по имени пользователя
// При нескольких кандидатах с одним именем обновляется самый ранний
func (s *AccountService) UpdatePassword(ctx context.Context, username, newPassword string) error {
	if !s.hasher.Validate(newPassword) {
		return errors.New(errors.ErrValidation, "password must be at least 6 characters")
	}

	candidates, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to look up user")
	}
	if len(candidates) == 0 {
		return errors.New(errors.ErrValidation, "unable to update password")
	}
	user := candidates[0]

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to process password")
	}

	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to update password")
	}

	s.log.Info("password updated", logger.String("user_id", user.ID))
	return nil
}

// ActivateAccount погашает токен активации, включает учетную запись
// и сразу выдает пару токенов для входа
func (s *AccountService) ActivateAccount(ctx context.Context, token string) (*TokenPair, *domain.UserView, error) {
	userID, err := s.tokens.Redeem(ctx, domain.PurposeActivate, token)
	if err != nil {
		if errors.Is(err, redisrepo.ErrTokenNotFound) {
			s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeActivate, "redeem", "not_found").Inc()
			return nil, nil, ErrTokenNotFound
		}
		s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeActivate, "redeem", "error").Inc()
		return nil, nil, errors.Wrap(err, errors.ErrInternal, "failed to redeem token")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrUserNotFound) {
			s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeActivate, "redeem", "not_found").Inc()
			return nil, nil, ErrTokenNotFound
		}
		return nil, nil, errors.Wrap(err, errors.ErrInternal, "failed to look up user")
	}

	if !user.IsActive {
		user.IsActive = true
		if err := s.users.Update(ctx, user); err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrInternal, "failed to activate account")
		}
	}

	isAdmin, err := s.admins.IsAdmin(ctx, user.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrInternal, "failed to check privileges")
	}

	accessToken, refreshToken, err := s.jwtManager.GenerateTokenPair(user.ID, user.Username, isAdmin)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrInternal, "failed to issue tokens")
	}

	s.metrics.ActionTokensTotal.WithLabelValues(domain.PurposeActivate, "redeem", "success").Inc()
	s.metrics.TokensIssuedTotal.WithLabelValues(jwt.TokenTypeAccess).Inc()
	s.metrics.TokensIssuedTotal.WithLabelValues(jwt.TokenTypeRefresh).Inc()
	s.log.Info("account activated", logger.String("user_id", user.ID))

	view := user.Public()
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, &view, nil
}

// UpdateProfileInput изменяемые поля профиля
// Nil-поле означает "оставить без изменений"
type UpdateProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

// UpdateProfile обновляет профиль аутентифицированного пользователя
// Смена email заново проверяет уникальность и атомарно переносит индекс
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.UserView, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrUserNotFound) {
			return nil, errors.New(errors.ErrNotFound, "user not found")
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to look up user")
	}

	if input.Email != nil {
		newEmail := redisrepo.NormalizeEmail(*input.Email)
		if newEmail == "" || !strings.Contains(newEmail, "@") {
			return nil, errors.New(errors.ErrValidation, "a valid email is required")
		}
		if newEmail != user.Email {
			if err := s.users.UpdateEmail(ctx, user.ID, newEmail); err != nil {
				if errors.Is(err, redisrepo.ErrEmailTaken) {
					return nil, errors.New(errors.ErrConflict, "email is already in use")
				}
				return nil, errors.Wrap(err, errors.ErrInternal, "failed to update email")
			}
			user.Email = newEmail
		}
	}

	changed := false
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
		changed = true
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
		changed = true
	}
	if changed {
		if err := s.users.Update(ctx, user); err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to update profile")
		}
	}

	s.log.Info("profile updated", logger.String("user_id", user.ID))
	view := user.Public()
	return &view, nil
}

// GetProfile возвращает профиль аутентифицированного пользователя
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*domain.UserView, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrUserNotFound) {
			return nil, errors.New(errors.ErrNotFound, "user not found")
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to look up user")
	}
	view := user.Public()
	return &view, nil
}
