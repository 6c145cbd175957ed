package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Типы токенов
// Дискриминатор предотвращает подмену: refresh токен никогда
// не проходит валидацию как access и наоборот
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims структура для хранения пользовательских данных в JWT токене
// IsAdmin служит подсказкой для интерфейса; привилегированные действия
// всегда перепроверяют членство в наборе администраторов
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager интерфейс для работы с JWT токенами
type JWTManager interface {
	GenerateTokenPair(userID, username string, isAdmin bool) (string, string, error)
	GenerateAccessToken(userID, username string, isAdmin bool) (string, error)
	GenerateRefreshToken(userID, username string, isAdmin bool) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	ValidateRefreshToken(token string) (*TokenClaims, error)
}

// Manager реализация JWTManager
type Manager struct {
	accessSecretKey  string
	refreshSecretKey string
	accessTokenTTL   time.Duration
	refreshTokenTTL  time.Duration
	issuer           string
	audience         string
}

// NewManager создает новый экземпляр JWT менеджера
func NewManager(accessSecretKey, refreshSecretKey string, accessTokenTTL, refreshTokenTTL time.Duration, issuer, audience string) *Manager {
	return &Manager{
		accessSecretKey:  accessSecretKey,
		refreshSecretKey: refreshSecretKey,
		accessTokenTTL:   accessTokenTTL,
		refreshTokenTTL:  refreshTokenTTL,
		issuer:           issuer,
		audience:         audience,
	}
}

// GenerateTokenPair генерирует пару access и refresh токенов
func (m *Manager) GenerateTokenPair(userID, username string, isAdmin bool) (string, string, error) {
	accessToken, err := m.GenerateAccessToken(userID, username, isAdmin)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := m.GenerateRefreshToken(userID, username, isAdmin)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// GenerateAccessToken генерирует access токен
func (m *Manager) GenerateAccessToken(userID, username string, isAdmin bool) (string, error) {
	return m.sign(userID, username, isAdmin, TokenTypeAccess, m.accessTokenTTL, m.accessSecretKey)
}

// GenerateRefreshToken генерирует refresh токен
func (m *Manager) GenerateRefreshToken(userID, username string, isAdmin bool) (string, error) {
	return m.sign(userID, username, isAdmin, TokenTypeRefresh, m.refreshTokenTTL, m.refreshSecretKey)
}

// sign подписывает токен с заданным типом, TTL и секретом
func (m *Manager) sign(userID, username string, isAdmin bool, tokenType string, ttl time.Duration, secretKey string) (string, error) {
	now := time.Now().UTC()
	claims := &TokenClaims{
		UserID:    userID,
		Username:  username,
		IsAdmin:   isAdmin,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

// ValidateAccessToken валидирует access токен
func (m *Manager) ValidateAccessToken(token string) (*TokenClaims, error) {
	claims, err := m.validateTokenWithSecret(token, m.accessSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to validate access token: %w", err)
	}

	// Проверяем тип токена
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("invalid token type: expected %q, got %q", TokenTypeAccess, claims.TokenType)
	}

	return claims, nil
}

// ValidateRefreshToken валидирует refresh токен
func (m *Manager) ValidateRefreshToken(token string) (*TokenClaims, error) {
	claims, err := m.validateTokenWithSecret(token, m.refreshSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to validate refresh token: %w", err)
	}

	// Проверяем тип токена
	if claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("invalid token type: expected %q, got %q", TokenTypeRefresh, claims.TokenType)
	}

	return claims, nil
}

// validateTokenWithSecret валидирует токен с указанным секретным ключом
// Проверяются подпись, срок действия, издатель и аудитория
func (m *Manager) validateTokenWithSecret(token, secretKey string) (*TokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
	)

	parsedToken, err := parser.ParseWithClaims(token, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := parsedToken.Claims.(*TokenClaims); ok && parsedToken.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
