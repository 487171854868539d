// Package pubslog реализует доставку логов через брокер сообщений.
//
// Пакет предоставляет два slog.Handler'а:
//
//   - AsyncHandler — кладёт записи во внутреннюю ограниченную очередь;
//     фоновые worker'ы собирают их в батчи (до 1000 записей) и публикуют
//     в брокер с retry. Приложение не блокируется на публикации.
//   - SyncHandler — публикует каждую запись синхронно с retry;
//     при окончательной неудаче пишет запись в fallback writer.
//
// Батч, который не удалось опубликовать после всех попыток,
// передаётся в Spooler (если настроен) и позже перепубликуется
// Sweeper'ом. Без Spooler'а батч теряется, потеря считается в метриках.
//
// Producer'ы не гарантируют отсутствие дубликатов: после reconnect
// брокера батч может быть опубликован повторно (at-least-once).
package pubslog
