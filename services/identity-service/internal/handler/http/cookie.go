package http

import (
	"net/http"
)

// refreshCookieName имя cookie с refresh-токеном
const refreshCookieName = "refresh_token"

// refreshCookiePath cookie отправляется только на маршруты обновления и выхода
const refreshCookiePath = "/api/v1/auth"

// setRefreshCookie устанавливает refresh-токен в HttpOnly cookie
// SameSite=Strict: браузер не отправит cookie с чужих сайтов
func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie сбрасывает refresh cookie
func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
