// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go        — Handler с DI (репозитории, sweeper, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - dto.go            — Data Transfer Objects (request/response)
//   - record_handler.go — обработчики для /records и /sources
//   - spool_handler.go  — обработчики для /spool
//
// API предоставляет REST endpoints для поиска сохранённых записей,
// обслуживания retention и управления spool'ом.
package api
