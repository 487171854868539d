package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/pubslog/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeLogsBatch MessageType = "logs.batch"
)

// Message — конверт сообщения для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// BatchMessage — одна запись внутри батча в проводном формате.
type BatchMessage struct {
	// Data — base64url(JSON записи).
	Data string `json:"data"`
}

// BatchPayload — payload сообщения logs.batch.
//
// Форма {"messages":[{"data":...}]} — стандартный pub/sub формат
// публикации: сторонние consumer'ы могут разбирать батчи
// без знания внутренних типов.
type BatchPayload struct {
	// Source — источник батча.
	Source string `json:"source,omitempty"`

	// Messages — закодированные записи.
	Messages []BatchMessage `json:"messages"`
}

// NewBatchPayload кодирует записи в проводной формат батча.
func NewBatchPayload(source string, records []*domain.Record) (*BatchPayload, error) {
	payload := &BatchPayload{
		Source:   source,
		Messages: make([]BatchMessage, 0, len(records)),
	}

	for _, r := range records {
		data, err := r.EncodeData()
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		payload.Messages = append(payload.Messages, BatchMessage{Data: data})
	}

	return payload, nil
}

// DecodeRecords декодирует записи батча.
// Некорректные записи пропускаются и возвращаются отдельным счётчиком bad.
func (p *BatchPayload) DecodeRecords() (records []*domain.Record, bad int) {
	records = make([]*domain.Record, 0, len(p.Messages))
	for _, m := range p.Messages {
		r, err := domain.DecodeData(m.Data)
		if err != nil {
			bad++
			continue
		}
		records = append(records, r)
	}
	return records, bad
}

// Publisher публикует сообщения в брокер.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // батч переживёт рестарт брокера
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishLogBatch публикует батч записей в logs.ingest.
// Потребитель: Sink.
func (p *Publisher) PublishLogBatch(ctx context.Context, payload *BatchPayload) error {
	if len(payload.Messages) == 0 {
		return nil
	}

	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeLogsBatch,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeLogs, RoutingKeyIngest, msg)
}

// PublishSpooled перепубликует батч из spool.
// Payload записи spool — уже сериализованный BatchPayload.
func (p *Publisher) PublishSpooled(ctx context.Context, entry *domain.SpoolEntry) error {
	var payload BatchPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal spooled payload %s: %w", entry.ID, err)
	}

	return p.PublishLogBatch(ctx, &payload)
}
