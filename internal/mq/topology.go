package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeLogs Exchange = "pubslog.logs"
	ExchangeDLQ  Exchange = "pubslog.dlq"
)

// Queues — имена очередей.
const (
	QueueLogsIngest Queue = "logs.ingest"
	QueueDLQLogs    Queue = "dlq.logs"
)

// Routing keys.
const (
	RoutingKeyIngest  RoutingKey = "ingest"
	RoutingKeyDLQLogs RoutingKey = "logs"
)

// SetupTopology объявляет обменники, очереди и привязки pipeline.
// Идемпотентна — любой сервис может вызывать её при старте.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}

		if err := declareQueues(ch); err != nil {
			return err
		}

		if err := bindQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeLogs, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Некорректные батчи из logs.ingest уходят в DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQLogs),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueLogsIngest, dlqArgs},

		// dlq.logs — сама DLQ очередь, разбирается вручную
		{QueueDLQLogs, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueLogsIngest, RoutingKeyIngest, ExchangeLogs},
		{QueueDLQLogs, RoutingKeyDLQLogs, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  pubslog RabbitMQ Topology:

    pubslog.logs (direct)
    └── logs.ingest [routing: ingest]
            Consumer: Sink
            DLQ: dlq.logs

    pubslog.dlq (direct)
    └── dlq.logs [routing: logs]
            Manual processing
  `
}
