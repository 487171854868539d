// Package cli реализует инструмент командной строки pubslog.
//
// # Обзор
//
// CLI — клиентская утилита для работы с pubslog API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для просмотра сохранённых логов, управления
// retention и повторной отправки отложенных пачек.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для pubslog API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	records, err := client.ListRecords(cli.ListRecordsOpts{Level: "ERROR"})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: pubslog logs list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - logs: list, show, sources, purge
//   - spool: list, redrive
//
// Каждая группа создаётся через фабричную функцию (NewLogsCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
