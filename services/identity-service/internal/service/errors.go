package service

import (
	"MedMinderPlatform/pkg/errors"
)

// Ошибки сервисного слоя
// Сообщения намеренно общие: вход, регистрация и погашение токенов
// не раскрывают, какое именно условие не выполнилось
// Детали различий пишутся только в серверный лог
var (
	// ErrInvalidCredentials возвращается при любой неудаче входа:
	// неизвестное имя, неверный пароль или неактивная учетная запись
	ErrInvalidCredentials = errors.New(errors.ErrUnauthorized, "invalid username or password")

	// ErrRegistrationRejected возвращается при любом конфликте регистрации,
	// не называя поле, вызвавшее конфликт
	ErrRegistrationRejected = errors.New(errors.ErrValidation, "unable to register with the provided details")

	// ErrTokenNotFound возвращается для просроченного, погашенного
	// или никогда не существовавшего токена
	ErrTokenNotFound = errors.New(errors.ErrNotFound, "token not found")

	// ErrAdminRequired возвращается при отсутствии административных привилегий
	ErrAdminRequired = errors.New(errors.ErrForbidden, "admin privileges required")

	// ErrSelfAction возвращается при попытке администратора
	// деактивировать или удалить собственную учетную запись
	ErrSelfAction = errors.New(errors.ErrValidation, "cannot perform this action on your own account")
)
