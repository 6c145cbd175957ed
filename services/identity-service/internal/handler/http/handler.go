package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	pkgErrors "MedMinderPlatform/pkg/errors"
	"MedMinderPlatform/pkg/logger"
	"MedMinderPlatform/services/identity-service/internal/domain"
	"MedMinderPlatform/services/identity-service/internal/middleware"
	"MedMinderPlatform/services/identity-service/internal/service"
)

// AuthService интерфейс сервиса регистрации и входа
type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (*domain.UserView, error)
	Login(ctx context.Context, username, password string) (*service.TokenPair, *domain.UserView, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// AccountService интерфейс сервиса управления учетной записью
type AccountService interface {
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyResetToken(ctx context.Context, token string) (string, error)
	UpdatePassword(ctx context.Context, username, newPassword string) error
	ActivateAccount(ctx context.Context, token string) (*service.TokenPair, *domain.UserView, error)
	UpdateProfile(ctx context.Context, userID string, input service.UpdateProfileInput) (*domain.UserView, error)
	GetProfile(ctx context.Context, userID string) (*domain.UserView, error)
}

// AdminService интерфейс административных операций
type AdminService interface {
	ListUsers(ctx context.Context) ([]domain.UserView, error)
	ActivateUser(ctx context.Context, adminID, targetID string) error
	DeactivateUser(ctx context.Context, adminID, targetID string) error
	DeleteUser(ctx context.Context, adminID, targetID string) error
	PromoteToAdmin(ctx context.Context, adminID, targetID string) error
}

// Middleware обертка над http.Handler
type Middleware func(http.Handler) http.Handler

// Handler структура для управления HTTP обработчиками
type Handler struct {
	mux            *http.ServeMux
	authService    AuthService
	accountService AccountService
	adminService   AdminService
	healthHandler  *HealthHandler
	authMW         Middleware
	adminMW        Middleware
	rateLimitMW    Middleware
	refreshTTL     time.Duration
	secureCookies  bool
	log            logger.Logger
}

// NewHandler создает новый экземпляр Handler
func NewHandler(
	authService AuthService,
	accountService AccountService,
	adminService AdminService,
	healthHandler *HealthHandler,
	authMW, adminMW, rateLimitMW Middleware,
	refreshTTL time.Duration,
	secureCookies bool,
	log logger.Logger,
) *Handler {
	h := &Handler{
		mux:            http.NewServeMux(),
		authService:    authService,
		accountService: accountService,
		adminService:   adminService,
		healthHandler:  healthHandler,
		authMW:         authMW,
		adminMW:        adminMW,
		rateLimitMW:    rateLimitMW,
		refreshTTL:     refreshTTL,
		secureCookies:  secureCookies,
		log:            log,
	}

	h.setupRoutes()

	return h
}

// ServeHTTP реализует интерфейс http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// setupRoutes настраивает маршруты приложения
func (h *Handler) setupRoutes() {
	// Публичные роуты; регистрация и вход ограничены по частоте
	h.mux.Handle("POST /api/v1/user/register", h.rateLimitMW(http.HandlerFunc(h.handleRegister)))
	h.mux.Handle("POST /api/v1/user/login", h.rateLimitMW(http.HandlerFunc(h.handleLogin)))
	h.mux.HandleFunc("POST /api/v1/auth/refresh", h.handleRefresh)
	h.mux.HandleFunc("POST /api/v1/auth/logout", h.handleLogout)
	h.mux.HandleFunc("POST /api/v1/auth/resetPassword", h.handleResetPassword)
	h.mux.HandleFunc("POST /api/v1/auth/verifyResetToken", h.handleVerifyResetToken)
	h.mux.HandleFunc("PUT /api/v1/auth/updatePassword", h.handleUpdatePassword)
	h.mux.HandleFunc("POST /api/v1/auth/activateAccount", h.handleActivateAccount)

	// Роуты, требующие аутентификации
	h.mux.Handle("GET /api/v1/user/profile", h.authMW(http.HandlerFunc(h.handleGetProfile)))
	h.mux.Handle("PUT /api/v1/user/profile", h.authMW(http.HandlerFunc(h.handleUpdateProfile)))

	// Административные роуты: привилегии перечитываются из хранилища
	h.mux.Handle("GET /api/v1/admin/users", h.protectedAdmin(h.handleListUsers))
	h.mux.Handle("PUT /api/v1/admin/users/{id}/activate", h.protectedAdmin(h.handleAdminActivate))
	h.mux.Handle("PUT /api/v1/admin/users/{id}/deactivate", h.protectedAdmin(h.handleAdminDeactivate))
	h.mux.Handle("PUT /api/v1/admin/users/{id}/promote", h.protectedAdmin(h.handleAdminPromote))
	h.mux.Handle("DELETE /api/v1/admin/users/{id}", h.protectedAdmin(h.handleAdminDelete))

	// Health check роут
	h.mux.HandleFunc("GET /health", h.healthHandler.HealthCheck)
}

// protectedAdmin оборачивает обработчик цепочкой аутентификация + проверка привилегий
func (h *Handler) protectedAdmin(next http.HandlerFunc) http.Handler {
	return h.authMW(h.adminMW(next))
}

// handleRegister обрабатывает регистрацию нового пользователя
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "invalid request body"))
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"username": user.Username,
		"email":    user.Email,
	})
}

// handleLogin обрабатывает вход пользователя
// Refresh-токен уходит только в HttpOnly cookie и не попадает в тело ответа
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "username and password are required"))
		return
	}

	tokens, user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":         user,
		"access_token": tokens.AccessToken,
	})
}

// handleRefresh выдает новый access-токен по refresh-токену из cookie
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrUnauthorized, "refresh token missing"))
		return
	}

	accessToken, err := h.authService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": accessToken,
	})
}

// handleLogout сбрасывает refresh cookie
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearRefreshCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "logged out",
	})
}

// handleResetPassword обрабатывает запрос на сброс пароля
// Ответ одинаков для известного и неизвестного email
func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "invalid request body"))
		return
	}

	if err := h.accountService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "if the email is registered, a reset link has been sent",
	})
}

// handleVerifyResetToken погашает токен сброса и возвращает имя пользователя
func (h *Handler) handleVerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "invalid request body"))
		return
	}
	if req.Token == "" {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "token is required"))
		return
	}

	username, err := h.accountService.VerifyResetToken(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
	})
}

// handleUpdatePassword устанавливает новый пароль
func (h *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "invalid request body"))
		return
	}
	if req.Username == "" {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "username is required"))
		return
	}

	if err := h.accountService.UpdatePassword(r.Context(), req.Username, req.NewPassword); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "password updated",
	})
}

// handleActivateAccount погашает токен активации и выдает токены входа
func (h *Handler) handleActivateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "invalid request body"))
		return
	}
	if req.Token == "" {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "token is required"))
		return
	}

	tokens, user, err := h.accountService.ActivateAccount(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":         user,
		"access_token": tokens.AccessToken,
	})
}

// handleGetProfile возвращает профиль аутентифицированного пользователя
func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrUnauthorized, "authentication required"))
		return
	}

	user, err := h.accountService.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

// handleUpdateProfile обновляет профиль аутентифицированного пользователя
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrUnauthorized, "authentication required"))
		return
	}

	var req service.UpdateProfileInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "invalid request body"))
		return
	}

	user, err := h.accountService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

// handleListUsers возвращает список всех пользователей
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, users)
}

// handleAdminActivate включает учетную запись пользователя
func (h *Handler) handleAdminActivate(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, h.adminService.ActivateUser, "user activated")
}

// handleAdminDeactivate выключает учетную запись пользователя
func (h *Handler) handleAdminDeactivate(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, h.adminService.DeactivateUser, "user deactivated")
}

// handleAdminPromote добавляет пользователя в набор администраторов
func (h *Handler) handleAdminPromote(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, h.adminService.PromoteToAdmin, "user promoted")
}

// handleAdminDelete каскадно удаляет пользователя
func (h *Handler) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, h.adminService.DeleteUser, "user deleted")
}

// adminAction выполняет административную операцию над пользователем из пути
func (h *Handler) adminAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, adminID, targetID string) error, message string) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrUnauthorized, "authentication required"))
		return
	}

	targetID := r.PathValue("id")
	if targetID == "" {
		h.writeError(w, pkgErrors.New(pkgErrors.ErrValidation, "user id is required"))
		return
	}

	if err := action(r.Context(), adminID, targetID); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
	})
}

// writeJSON записывает успешный JSON ответ
func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("failed to encode response", logger.Error(err))
	}
}

// writeError записывает ошибку в HTTP ответ
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	pkgErrors.WriteHTTPError(w, err)
}
