package domain

import (
	"time"
)

// User представляет учетную запись пользователя
// ID уникален и неизменяем; username НЕ уникален, несколько учетных
// записей могут использовать одно отображаемое имя
// Email уникален среди всех пользователей (сравнение без учета регистра)
// Пароли хранятся с использованием bcrypt
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserView представляет публичное представление пользователя без хеша пароля
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Public возвращает представление пользователя для HTTP ответов
func (u *User) Public() UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// Назначение одноразовых токенов
// Значения входят в ключи Redis вида {purpose}:{userId}:{secret}
const (
	PurposeReset    = "reset"
	PurposeActivate = "activate"
)

// Время жизни одноразовых токенов
const (
	ResetTokenTTL    = 1 * time.Hour
	ActivateTokenTTL = 24 * time.Hour
)

// MailEvent представляет событие отправки письма
// Публикуется в RabbitMQ; доставкой занимается внешний почтовый сервис
type MailEvent struct {
	Type     string `json:"type"`
	To       string `json:"to"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Типы почтовых событий
const (
	MailTypeReset    = "password_reset"
	MailTypeActivate = "account_activation"
)
