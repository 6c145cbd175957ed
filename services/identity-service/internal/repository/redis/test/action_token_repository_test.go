package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MedMinderPlatform/services/identity-service/internal/domain"
	identityRedis "MedMinderPlatform/services/identity-service/internal/repository/redis"
)

func TestActionTokenRepository_SaveAndRedeem(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(t, client)

	repo := identityRedis.NewActionTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.PurposeReset, "user-1", "the-secret", time.Hour))

	userID, err := repo.Redeem(ctx, domain.PurposeReset, "the-secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

// Токен одноразовый: второе погашение завершается ошибкой
func TestActionTokenRepository_SingleUse(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(t, client)

	repo := identityRedis.NewActionTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.PurposeActivate, "user-1", "the-secret", time.Hour))

	_, err := repo.Redeem(ctx, domain.PurposeActivate, "the-secret")
	require.NoError(t, err)

	_, err = repo.Redeem(ctx, domain.PurposeActivate, "the-secret")
	assert.ErrorIs(t, err, identityRedis.ErrTokenNotFound)
}

// Токен сброса нельзя погасить как токен активации
func TestActionTokenRepository_PurposeIsolation(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(t, client)

	repo := identityRedis.NewActionTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.PurposeReset, "user-1", "the-secret", time.Hour))

	_, err := repo.Redeem(ctx, domain.PurposeActivate, "the-secret")
	assert.ErrorIs(t, err, identityRedis.ErrTokenNotFound)

	// Токен с правильным назначением все еще действителен
	userID, err := repo.Redeem(ctx, domain.PurposeReset, "the-secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestActionTokenRepository_Expiry(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(t, client)

	repo := identityRedis.NewActionTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.PurposeReset, "user-1", "short-lived", 50*time.Millisecond))

	time.Sleep(100 * time.Millisecond)

	_, err := repo.Redeem(ctx, domain.PurposeReset, "short-lived")
	assert.ErrorIs(t, err, identityRedis.ErrTokenNotFound)
}

func TestActionTokenRepository_UnknownSecret(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(t, client)

	repo := identityRedis.NewActionTokenRepository(client)

	_, err := repo.Redeem(context.Background(), domain.PurposeReset, "never-issued")
	assert.ErrorIs(t, err, identityRedis.ErrTokenNotFound)
}

func TestActionTokenRepository_DeleteByUser(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(t, client)

	repo := identityRedis.NewActionTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.PurposeReset, "user-1", "reset-secret", time.Hour))
	require.NoError(t, repo.Save(ctx, domain.PurposeActivate, "user-1", "activate-secret", time.Hour))
	require.NoError(t, repo.Save(ctx, domain.PurposeReset, "user-2", "other-secret", time.Hour))

	require.NoError(t, repo.DeleteByUser(ctx, "user-1"))

	_, err := repo.Redeem(ctx, domain.PurposeReset, "reset-secret")
	assert.ErrorIs(t, err, identityRedis.ErrTokenNotFound)
	_, err = repo.Redeem(ctx, domain.PurposeActivate, "activate-secret")
	assert.ErrorIs(t, err, identityRedis.ErrTokenNotFound)

	// Токены других пользователей не затронуты
	userID, err := repo.Redeem(ctx, domain.PurposeReset, "other-secret")
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)
}
