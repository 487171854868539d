// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с брокером (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация батчей записей, проводной формат батча
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - logs.batch — батч закодированных записей лога
//
// Exchanges:
//   - pubslog.logs — поток батчей
//   - pubslog.dlq  — dead letter queue
package mq
