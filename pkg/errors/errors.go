package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error представляет кастомную ошибку с дополнительной информацией
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// ErrorCode представляет код ошибки
type ErrorCode string

// Определение кодов ошибок
const (
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrValidation      ErrorCode = "VALIDATION_ERROR"
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrForbidden       ErrorCode = "FORBIDDEN"
	ErrConflict        ErrorCode = "CONFLICT"
	ErrTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
)

// Error возвращает сообщение об ошибке
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap возвращает причину ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is проверяет, является ли ошибка указанного типа
func (e *Error) Is(target error) bool {
	if targetError, ok := target.(*Error); ok {
		return e.Code == targetError.Code
	}
	return false
}

// Is проверяет цепочку ошибок, как стандартный errors.Is
// Позволяет не импортировать оба пакета ошибок одновременно
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// New создает новую кастомную ошибку
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает существующую ошибку в кастомную
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithDetails добавляет детали к ошибке
func (e *Error) WithDetails(details string) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// HTTPStatus возвращает соответствующий HTTP статус для ошибки
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}

	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	case ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// FromError преобразует произвольную ошибку в кастомную
// Незнакомые ошибки считаются внутренними
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	if customErr, ok := err.(*Error); ok {
		return customErr
	}
	return Wrap(err, ErrInternal, "internal error")
}

// WriteHTTPError записывает ошибку в HTTP ответ в формате JSON
func WriteHTTPError(w http.ResponseWriter, err error) {
	customErr := FromError(err)
	if customErr == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(customErr.HTTPStatus())

	// Формируем ответ
	response := map[string]interface{}{
		"error": map[string]interface{}{
			"code":    customErr.Code,
			"message": customErr.Message,
		},
	}
	if customErr.Details != "" {
		response["error"].(map[string]interface{})["details"] = customErr.Details
	}

	jsonData, jsonErr := json.Marshal(response)
	if jsonErr != nil {
		// Если не удалось сериализовать ответ, отправляем базовую ошибку
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"internal error"}}`))
		return
	}

	w.Write(jsonData)
}
