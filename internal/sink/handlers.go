package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/pubslog/internal/mq"
	"github.com/shaiso/pubslog/internal/telemetry"
)

// handleLogsBatch обрабатывает сообщение logs.batch.
//
// Возврат ошибки означает nack(requeue) — батч вернётся в очередь
// и будет сохранён позже (например, когда БД снова доступна).
func (s *Sink) handleLogsBatch(ctx context.Context, delivery *mq.Delivery) error {
	logger := telemetry.WithBatchID(s.logger, delivery.Message.ID)

	if delivery.Message.Type != mq.MessageTypeLogsBatch {
		// Чужой тип сообщения — чинить нечем, ack и счётчик
		telemetry.RecordsUndecodable.Inc()
		logger.Error("unexpected message type",
			"type", delivery.Message.Type,
		)
		return nil
	}

	payload, err := mq.ParsePayload[mq.BatchPayload](&delivery.Message)
	if err != nil {
		// Конверт распарсился, payload — нет; requeue не поможет
		telemetry.RecordsUndecodable.Inc()
		logger.Error("failed to parse logs.batch payload",
			"error", err,
		)
		return nil
	}

	records, bad := payload.DecodeRecords()
	if bad > 0 {
		// Некорректные записи невосстановимы — считаем и продолжаем
		telemetry.RecordsUndecodable.Add(float64(bad))
		logger.Warn("batch contains undecodable records",
			"source", payload.Source,
			"bad", bad,
		)
	}

	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.IngestedAt = now
	}

	stored, err := s.recordRepo.CreateBatch(ctx, records)
	if err != nil {
		return fmt.Errorf("store batch: %w", err)
	}

	telemetry.RecordsStored.Add(float64(stored))

	logger.Debug("batch stored",
		"source", payload.Source,
		"records", len(records),
		"stored", stored,
	)

	return nil
}
