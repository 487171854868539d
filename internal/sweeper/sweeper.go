package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/pubslog/internal/domain"
	"github.com/shaiso/pubslog/internal/repo"
	"github.com/shaiso/pubslog/internal/telemetry"
)

// Параметры Sweeper по умолчанию.
const (
	defaultRetention    = 30 * 24 * time.Hour
	defaultRedriveBatch = 100
)

// Publisher — часть mq.Publisher, нужная для redrive.
type Publisher interface {
	PublishSpooled(ctx context.Context, entry *domain.SpoolEntry) error
}

// Sweeper выполняет периодическое обслуживание pipeline:
//   - redrive: перепубликация отложенных батчей из spool
//   - purge: удаление записей старше периода хранения
//
// Redrive выполняется каждый тик, purge — по cron-расписанию.
// Ошибки одной записи spool не блокируют обработку остальных.
type Sweeper struct {
	recordRepo *repo.RecordRepo
	spoolRepo  *repo.SpoolRepo
	publisher  Publisher
	logger     *slog.Logger

	retention    time.Duration
	purgeCron    string
	redriveBatch int

	nextPurge time.Time
}

// Config — конфигурация Sweeper.
type Config struct {
	RecordRepo *repo.RecordRepo
	SpoolRepo  *repo.SpoolRepo

	// Publisher — для перепубликации spool. Может быть nil:
	// тогда redrive пропускается, работает только purge.
	Publisher Publisher

	// Retention — срок хранения записей (default: 720h).
	Retention time.Duration

	// PurgeCron — cron-расписание purge (default: "0 3 * * *").
	PurgeCron string

	// RedriveBatch — количество записей spool за один тик (default: 100).
	RedriveBatch int

	Logger *slog.Logger
}

// New создаёт новый Sweeper.
func New(cfg Config) (*Sweeper, error) {
	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	purgeCron := cfg.PurgeCron
	if purgeCron == "" {
		purgeCron = "0 3 * * *"
	}
	if err := ValidateCronExpr(purgeCron); err != nil {
		return nil, fmt.Errorf("purge cron: %w", err)
	}

	redriveBatch := cfg.RedriveBatch
	if redriveBatch <= 0 {
		redriveBatch = defaultRedriveBatch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	firstPurge, err := NextRun(purgeCron, time.Now())
	if err != nil {
		return nil, err
	}

	return &Sweeper{
		recordRepo:   cfg.RecordRepo,
		spoolRepo:    cfg.SpoolRepo,
		publisher:    cfg.Publisher,
		logger:       logger,
		retention:    retention,
		purgeCron:    purgeCron,
		redriveBatch: redriveBatch,
		nextPurge:    firstPurge,
	}, nil
}

// Tick выполняет один тик обслуживания.
func (s *Sweeper) Tick(ctx context.Context) error {
	now := time.Now()

	if err := s.redriveSpool(ctx); err != nil {
		s.logger.Error("spool redrive failed", "error", err)
		// purge всё равно выполняем
	}

	if !now.Before(s.nextPurge) {
		if err := s.purge(ctx, now); err != nil {
			return err
		}

		next, err := NextRun(s.purgeCron, now)
		if err != nil {
			return err
		}
		s.nextPurge = next
	}

	return nil
}

// RedriveAll перепубликует записи spool до опустошения.
// Возвращает количество успешно перепубликованных и неудач.
func (s *Sweeper) RedriveAll(ctx context.Context) (redriven, failed int, err error) {
	for {
		r, f, err := s.redriveBatchOnce(ctx)
		redriven += r
		failed += f
		if err != nil {
			return redriven, failed, err
		}
		// Батч меньше лимита — spool исчерпан; неудачные записи
		// остаются и не должны гонять цикл бесконечно
		if r+f < s.redriveBatch || f > 0 {
			return redriven, failed, nil
		}
	}
}

// redriveSpool перепубликует один батч записей spool.
func (s *Sweeper) redriveSpool(ctx context.Context) error {
	if s.publisher == nil {
		return nil
	}
	_, _, err := s.redriveBatchOnce(ctx)
	return err
}

// redriveBatchOnce обрабатывает до redriveBatch записей spool.
func (s *Sweeper) redriveBatchOnce(ctx context.Context) (redriven, failed int, err error) {
	entries, err := s.spoolRepo.ListDue(ctx, s.redriveBatch)
	if err != nil {
		return 0, 0, fmt.Errorf("list spool: %w", err)
	}

	if len(entries) == 0 {
		return 0, 0, nil
	}

	s.logger.Debug("redriving spool", "count", len(entries))

	for i := range entries {
		entry := &entries[i]

		if err := s.Redrive(ctx, entry); err != nil {
			s.logger.Warn("failed to redrive spool entry",
				"spool_id", entry.ID,
				"source", entry.Source,
				"attempts", entry.Attempts,
				"error", err,
			)
			failed++
			continue
		}
		redriven++
	}

	if redriven > 0 || failed > 0 {
		s.logger.Info("spool redrive completed",
			"redriven", redriven,
			"failed", failed,
		)
	}

	return redriven, failed, nil
}

// Redrive перепубликует одну запись spool.
// При успехе запись удаляется, при неудаче — фиксируется попытка.
func (s *Sweeper) Redrive(ctx context.Context, entry *domain.SpoolEntry) error {
	if s.publisher == nil {
		return fmt.Errorf("publisher not available")
	}

	if err := s.publisher.PublishSpooled(ctx, entry); err != nil {
		entry.MarkRedriveFailed(err.Error())
		if uerr := s.spoolRepo.Update(ctx, entry); uerr != nil {
			s.logger.Error("failed to update spool entry", "spool_id", entry.ID, "error", uerr)
		}
		return err
	}

	if err := s.spoolRepo.Delete(ctx, entry.ID); err != nil {
		// Батч опубликован, но запись осталась: следующий redrive
		// опубликует его повторно, дубликаты гасятся в sink
		return fmt.Errorf("delete spool entry: %w", err)
	}

	telemetry.SpoolRedriven.Inc()

	s.logger.Info("spool entry redriven",
		"spool_id", entry.ID,
		"source", entry.Source,
		"records", entry.RecordCount,
	)

	return nil
}

// purge удаляет записи старше периода хранения.
func (s *Sweeper) purge(ctx context.Context, now time.Time) error {
	before := now.Add(-s.retention).UTC()

	deleted, err := s.recordRepo.DeleteBefore(ctx, before, "")
	if err != nil {
		return fmt.Errorf("purge records: %w", err)
	}

	telemetry.RecordsPurged.Add(float64(deleted))

	s.logger.Info("retention purge completed",
		"before", before,
		"deleted", deleted,
	)

	return nil
}
