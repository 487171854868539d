// Package sink реализует сохранение батчей логов из брокера в Postgres.
//
// Структура:
//   - sink.go     — жизненный цикл Sink (Start/Stop, consumer)
//   - handlers.go — обработка сообщений logs.batch
//
// Гарантии доставки:
//   - ack только после успешной записи в БД (at-least-once)
//   - дубликаты после redelivery гасятся ON CONFLICT по ID записи
//   - нечитаемые батчи считаются в метриках и подтверждаются —
//     возврат в очередь им не поможет
package sink
