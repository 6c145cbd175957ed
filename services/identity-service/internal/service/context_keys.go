package service

// Ключи для использования в контексте
// Используются для передачи данных между middleware и обработчиками

type contextKey string

// UserIDKey ключ для хранения ID пользователя в контексте
const UserIDKey contextKey = "user_id"

// UsernameKey ключ для хранения имени пользователя в контексте
const UsernameKey contextKey = "username"

// IsAdminKey ключ для хранения флага администратора в контексте
const IsAdminKey contextKey = "is_admin"
