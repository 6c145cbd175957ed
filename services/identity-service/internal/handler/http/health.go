package http

import (
	"encoding/json"
	"net/http"
	"time"

	"MedMinderPlatform/pkg/logger"
	redisclient "MedMinderPlatform/pkg/redis"
)

// HealthHandler сообщает о состоянии сервиса и его зависимостей
type HealthHandler struct {
	redis *redisclient.Client
	log   logger.Logger
}

// NewHealthHandler создает новый экземпляр HealthHandler
func NewHealthHandler(redis *redisclient.Client, log logger.Logger) *HealthHandler {
	return &HealthHandler{redis: redis, log: log}
}

// HealthCheck обрабатывает health check запросы
// Недоступность Redis переводит сервис в состояние degraded с кодом 503
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	redisStatus := "ok"
	httpStatus := http.StatusOK

	if err := h.redis.HealthCheck(r.Context()); err != nil {
		h.log.Error("health check: redis unavailable", logger.Error(err))
		status = "degraded"
		redisStatus = "unavailable"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"redis":     redisStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		h.log.Error("failed to encode health check response", logger.Error(err))
	}
}
