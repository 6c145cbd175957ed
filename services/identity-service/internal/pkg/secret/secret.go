package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Длина секрета одноразового токена в байтах
const DefaultLength = 32

// New генерирует криптографически стойкий секрет
// Результат кодируется в base64 URL-алфавитом и безопасен для ссылок
func New(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
