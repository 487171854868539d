// Package shipper реализует агент доставки логов из файлов.
//
// Shipper отслеживает файлы (follow + reopen, ротация не прерывает
// чтение), разбирает строки (plain или json) в записи и отправляет
// их через pubslog.AsyncHandler — с батчингом, retry и spool.
//
// Структура:
//   - config.go  — YAML-конфигурация источников
//   - parser.go  — разбор строк в записи
//   - shipper.go — жизненный цикл tailer'ов
package shipper
