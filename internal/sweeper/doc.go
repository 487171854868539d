// Package sweeper реализует периодическое обслуживание pipeline.
//
// Sweeper каждый тик перепубликует отложенные батчи из spool
// и по cron-расписанию удаляет записи старше периода хранения.
//
// Структура:
//   - sweeper.go — основная логика (Tick, Redrive, purge)
//   - cron.go    — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sw, err := sweeper.New(sweeper.Config{
//	    RecordRepo: recordRepo,
//	    SpoolRepo:  spoolRepo,
//	    Publisher:  publisher, // опционально
//	    Retention:  30 * 24 * time.Hour,
//	    PurgeCron:  "0 3 * * *",
//	    Logger:     logger,
//	})
//
//	// Вызывается каждый тик (обычно раз в 30 секунд)
//	if err := sw.Tick(ctx); err != nil {
//	    logger.Error("sweeper tick failed", "error", err)
//	}
//
// Sweeper рассчитан на один экземпляр: параллельные redrive
// безвредны (дубликаты гасятся в sink), но бессмысленны.
package sweeper
