// Package telemetry обеспечивает наблюдаемость сервисов pubslog.
//
// Включает:
//   - logging.go — structured logging через slog (собственные логи сервисов)
//   - metrics.go — Prometheus метрики pipeline доставки
//
// Все сервисы используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
package telemetry
