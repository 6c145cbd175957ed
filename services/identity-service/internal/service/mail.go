package service

import (
	"context"
	"encoding/json"
	"time"

	"MedMinderPlatform/pkg/logger"
	"MedMinderPlatform/pkg/rabbitmq"
	"MedMinderPlatform/services/identity-service/internal/domain"
)

// Таймаут публикации почтового события
const mailPublishTimeout = 5 * time.Second

// MailPublisher интерфейс для публикации почтовых событий
// Доставкой писем занимается внешний почтовый сервис,
// подписанный на очередь событий
type MailPublisher interface {
	PublishMail(ctx context.Context, event domain.MailEvent) error
}

// RabbitMailPublisher публикует почтовые события в RabbitMQ
type RabbitMailPublisher struct {
	producer *rabbitmq.Producer
}

// NewRabbitMailPublisher создает новый экземпляр RabbitMailPublisher
func NewRabbitMailPublisher(producer *rabbitmq.Producer) *RabbitMailPublisher {
	return &RabbitMailPublisher{producer: producer}
}

// PublishMail сериализует событие и публикует его в exchange
func (p *RabbitMailPublisher) PublishMail(ctx context.Context, event domain.MailEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, body)
}

// NoopMailPublisher заглушка на случай недоступности брокера
// Сервис продолжает работать, события только логируются
type NoopMailPublisher struct {
	log logger.Logger
}

// NewNoopMailPublisher создает новый экземпляр NoopMailPublisher
func NewNoopMailPublisher(log logger.Logger) *NoopMailPublisher {
	return &NoopMailPublisher{log: log}
}

// PublishMail логирует событие без публикации
func (p *NoopMailPublisher) PublishMail(ctx context.Context, event domain.MailEvent) error {
	p.log.Warn("mail publishing disabled, event dropped",
		logger.String("type", event.Type),
		logger.String("to", event.To))
	return nil
}

// publishMailAsync публикует событие вне пути запроса
// Ошибки публикации логируются и никогда не попадают в ответ клиенту
func publishMailAsync(publisher MailPublisher, log logger.Logger, event domain.MailEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailPublishTimeout)
		defer cancel()

		if err := publisher.PublishMail(ctx, event); err != nil {
			log.Error("failed to publish mail event",
				logger.Error(err),
				logger.String("type", event.Type),
				logger.String("to", event.To))
		}
	}()
}
