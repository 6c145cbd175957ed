package middleware

import (
	"net/http"

	"MedMinderPlatform/pkg/errors"
	"MedMinderPlatform/pkg/logger"
	"MedMinderPlatform/services/identity-service/internal/repository"
)

// AdminMiddleware пропускает только администраторов
// Привилегии перечитываются из хранилища при каждом запросе:
// флаг is_admin из токена не является источником истины
func AdminMiddleware(admins repository.AdminRepository, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				errors.WriteHTTPError(w, errors.New(errors.ErrUnauthorized, "authentication required"))
				return
			}

			isAdmin, err := admins.IsAdmin(r.Context(), userID)
			if err != nil {
				// При недоступности хранилища доступ закрывается
				log.Error("admin check failed",
					logger.String("user_id", userID), logger.Error(err))
				errors.WriteHTTPError(w, errors.New(errors.ErrInternal, "failed to check privileges"))
				return
			}

			if !isAdmin {
				log.Warn("admin access denied",
					logger.String("user_id", userID),
					logger.String("path", r.URL.Path))
				errors.WriteHTTPError(w, errors.New(errors.ErrForbidden, "admin privileges required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
