package middleware

import (
	"net/http"
	"time"

	"MedMinderPlatform/pkg/logger"
	"MedMinderPlatform/pkg/ratelimit"
)

// RateLimitMiddleware ограничивает частоту запросов по IP клиента
func RateLimitMiddleware(rateLimiter ratelimit.RateLimiter, limit int, window time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + getIP(r)

			limitExceeded, err := rateLimiter.CheckRateLimit(r.Context(), key, limit, window)
			if err != nil {
				// При сбое ограничителя запрос пропускается
				log.Error("rate limiter error, allowing request",
					logger.Error(err), logger.String("key", key))
				next.ServeHTTP(w, r)
				return
			}

			if limitExceeded {
				log.Warn("rate limit exceeded",
					logger.String("key", key),
					logger.String("method", r.Method),
					logger.String("path", r.URL.Path))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":{"code":"TOO_MANY_REQUESTS","message":"too many requests"}}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getIP извлекает IP адрес клиента из запроса
func getIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
