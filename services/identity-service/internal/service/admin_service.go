package service

import (
	"context"

	"MedMinderPlatform/pkg/errors"
	"MedMinderPlatform/pkg/logger"
	"MedMinderPlatform/services/identity-service/internal/domain"
	"MedMinderPlatform/services/identity-service/internal/repository"
	redisrepo "MedMinderPlatform/services/identity-service/internal/repository/redis"
)

// AdminService отвечает за административные операции над пользователями
// Привилегии проверяются middleware по набору администраторов в хранилище;
// здесь дополнительно действует запрет действий над собственной записью
type AdminService struct {
	users  repository.UserRepository
	admins repository.AdminRepository
	log    logger.Logger
}

// NewAdminService создает новый AdminService
func NewAdminService(users repository.UserRepository, admins repository.AdminRepository, log logger.Logger) *AdminService {
	return &AdminService{users: users, admins: admins, log: log}
}

// ListUsers возвращает всех пользователей
func (s *AdminService) ListUsers(ctx context.Context) ([]domain.UserView, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list users")
	}

	views := make([]domain.UserView, 0, len(users))
	for _, user := range users {
		views = append(views, user.Public())
	}
	return views, nil
}

// ActivateUser включает учетную запись пользователя
func (s *AdminService) ActivateUser(ctx context.Context, adminID, targetID string) error {
	user, err := s.findTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if user.IsActive {
		return nil
	}
	user.IsActive = true
	if err := s.users.Update(ctx, user); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to activate user")
	}

	s.log.Info("user activated by admin",
		logger.String("admin_id", adminID),
		logger.String("user_id", targetID))
	return nil
}

// DeactivateUser выключает учетную запись пользователя
// Собственная запись администратора защищена от деактивации
func (s *AdminService) DeactivateUser(ctx context.Context, adminID, targetID string) error {
	if adminID == targetID {
		return ErrSelfAction
	}

	user, err := s.findTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if !user.IsActive {
		return nil
	}
	user.IsActive = false
	if err := s.users.Update(ctx, user); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to deactivate user")
	}

	s.log.Info("user deactivated by admin",
		logger.String("admin_id", adminID),
		logger.String("user_id", targetID))
	return nil
}

// DeleteUser каскадно удаляет пользователя вместе с индексами,
// членством в наборе администраторов и невыданными токенами
// Собственная запись администратора защищена от удаления
func (s *AdminService) DeleteUser(ctx context.Context, adminID, targetID string) error {
	if adminID == targetID {
		return ErrSelfAction
	}

	if _, err := s.findTarget(ctx, targetID); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to delete user")
	}

	s.log.Info("user deleted by admin",
		logger.String("admin_id", adminID),
		logger.String("user_id", targetID))
	return nil
}

// PromoteToAdmin добавляет пользователя в набор администраторов
func (s *AdminService) PromoteToAdmin(ctx context.Context, adminID, targetID string) error {
	if _, err := s.findTarget(ctx, targetID); err != nil {
		return err
	}

	if err := s.admins.Add(ctx, targetID); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to grant privileges")
	}

	s.log.Info("user promoted to admin",
		logger.String("admin_id", adminID),
		logger.String("user_id", targetID))
	return nil
}

func (s *AdminService) findTarget(ctx context.Context, targetID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrUserNotFound) {
			return nil, errors.New(errors.ErrNotFound, "user not found")
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to look up user")
	}
	return user, nil
}
