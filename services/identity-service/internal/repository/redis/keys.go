package redis

import (
	"fmt"
	"strings"
)

// Семейства ключей подсистемы идентификации:
//   user:id:{id}              : запись пользователя (JSON)
//   user:username:{username}  : множество ID пользователей с этим именем
//   user:email:{email}        : ID пользователя с этим email
//   admins                    : множество ID администраторов
//   {purpose}:{userId}:{secret} : одноразовый токен с TTL
//
// Все ключи строятся только здесь. Префикс одноразового токена при выдаче
// и при поиске обязан совпадать буквально, поэтому шаблон поиска выводится
// из того же конструктора ключа.

const adminSetKey = "admins"

// userKey возвращает ключ записи пользователя
func userKey(id string) string {
	return "user:id:" + id
}

// usernameKey возвращает ключ индекса имен пользователей
func usernameKey(username string) string {
	return "user:username:" + username
}

// emailKey возвращает ключ индекса email
func emailKey(email string) string {
	return "user:email:" + NormalizeEmail(email)
}

// actionTokenKey возвращает ключ одноразового токена
func actionTokenKey(purpose, userID, secret string) string {
	return fmt.Sprintf("%s:%s:%s", purpose, userID, secret)
}

// actionTokenPattern возвращает шаблон поиска токена по секрету
func actionTokenPattern(purpose, secret string) string {
	return actionTokenKey(purpose, "*", secret)
}

// actionTokenUserPattern возвращает шаблон поиска всех токенов пользователя
func actionTokenUserPattern(purpose, userID string) string {
	return actionTokenKey(purpose, userID, "*")
}

// NormalizeEmail приводит email к каноническому виду для сравнения и индексации
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
