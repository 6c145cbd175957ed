package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client представляет подключение к Redis
type Client struct {
	Client *redis.Client
}

// Config представляет конфигурацию Redis
type Config struct {
	Addr     string
	Password string
	DB       int
	// Connection pool settings
	PoolSize    int
	MinIdleConn int
	// Retry settings
	MaxRetries    int
	RetryInterval time.Duration
}

// NewConfig создает конфигурацию по умолчанию
func NewConfig() *Config {
	return &Config{
		Addr:          "localhost:6379",
		Password:      "",
		DB:            0,
		PoolSize:      10,
		MinIdleConn:   2,
		MaxRetries:    3,
		RetryInterval: 1 * time.Second,
	}
}

// Connect устанавливает подключение к Redis с retry логикой
func Connect(ctx context.Context, config *Config) (*Client, error) {
	var lastErr error

	// Пытаемся подключиться с retry
	for i := 0; i <= config.MaxRetries; i++ {
		// Создаем клиент Redis
		client := redis.NewClient(&redis.Options{
			Addr:         config.Addr,
			Password:     config.Password,
			DB:           config.DB,
			PoolSize:     config.PoolSize,
			MinIdleConns: config.MinIdleConn,
			// Таймауты
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			// Таймаут для получения соединения из пула
			PoolTimeout:     4 * time.Second,
			ConnMaxIdleTime: 5 * time.Minute,
		})

		// Проверяем подключение
		if err := client.Ping(ctx).Err(); err != nil {
			lastErr = fmt.Errorf("failed to ping redis: %w", err)
			client.Close()
			if i < config.MaxRetries {
				time.Sleep(config.RetryInterval)
			}
			continue
		}

		return &Client{Client: client}, nil
	}

	return nil, fmt.Errorf("failed to connect to redis after %d retries: %w", config.MaxRetries, lastErr)
}

// HealthCheck проверяет доступность Redis
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close закрывает подключение к Redis
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
