// Package spool реализует отложенное хранение батчей в Postgres.
//
// Writer подключается к producer'ам как pubslog.Spooler: батч,
// который не удалось опубликовать после всех retry, сохраняется
// в таблицу spool вместо потери. Sweeper позже перепубликует его.
package spool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/pubslog/internal/domain"
	"github.com/shaiso/pubslog/internal/mq"
	"github.com/shaiso/pubslog/internal/repo"
)

// Writer сохраняет неопубликованные батчи в spool.
type Writer struct {
	repo   *repo.SpoolRepo
	logger *slog.Logger
}

// NewWriter создаёт Writer.
func NewWriter(spoolRepo *repo.SpoolRepo, logger *slog.Logger) *Writer {
	return &Writer{
		repo:   spoolRepo,
		logger: logger,
	}
}

// Spool сохраняет батч в проводном формате вместе с текстом
// последней ошибки публикации.
func (w *Writer) Spool(ctx context.Context, payload *mq.BatchPayload, lastErr error) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal batch payload: %w", err)
	}

	errText := ""
	if lastErr != nil {
		errText = lastErr.Error()
	}

	entry := &domain.SpoolEntry{
		ID:          uuid.New(),
		Source:      payload.Source,
		Payload:     body,
		RecordCount: len(payload.Messages),
		LastError:   errText,
		CreatedAt:   time.Now().UTC(),
	}

	if err := w.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("create spool entry: %w", err)
	}

	w.logger.Info("batch spooled",
		"spool_id", entry.ID,
		"source", entry.Source,
		"records", entry.RecordCount,
	)

	return nil
}
