package middleware

import (
	"context"
	"net/http"
	"strings"

	"MedMinderPlatform/pkg/errors"
	"MedMinderPlatform/services/identity-service/internal/pkg/jwt"
	"MedMinderPlatform/services/identity-service/internal/service"
)

// AuthMiddleware проверяет Bearer токен и кладет данные пользователя в контекст
// Принимаются только access-токены: refresh-токен здесь будет отклонен
func AuthMiddleware(jwtManager jwt.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				errors.WriteHTTPError(w, errors.New(errors.ErrUnauthorized, "authorization header missing"))
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				errors.WriteHTTPError(w, errors.New(errors.ErrUnauthorized, "unsupported authorization type"))
				return
			}

			claims, err := jwtManager.ValidateAccessToken(token)
			if err != nil {
				errors.WriteHTTPError(w, errors.New(errors.ErrUnauthorized, "invalid token"))
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, service.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, service.UsernameKey, claims.Username)
			ctx = context.WithValue(ctx, service.IsAdminKey, claims.IsAdmin)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext извлекает ID пользователя из контекста запроса
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(service.UserIDKey).(string)
	return userID, ok && userID != ""
}
