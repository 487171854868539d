package pubslog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/pubslog/internal/mq"
	"github.com/shaiso/pubslog/internal/telemetry"
)

// Параметры retry по умолчанию.
const (
	// DefaultRetryCount — количество попыток публикации батча.
	DefaultRetryCount = 10

	// defaultBaseDelay — задержка перед второй попыткой.
	defaultBaseDelay = 100 * time.Millisecond

	// defaultMaxDelay — потолок экспоненциальной задержки.
	defaultMaxDelay = 30 * time.Second
)

// RetryPolicy — политика повторных попыток публикации.
type RetryPolicy struct {
	// MaxAttempts — общее число попыток (включая первую).
	MaxAttempts int

	// BaseDelay — задержка перед второй попыткой.
	BaseDelay time.Duration

	// MaxDelay — потолок задержки.
	MaxDelay time.Duration
}

// DefaultRetryPolicy возвращает политику по умолчанию.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultRetryCount,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
	}
}

// normalize заполняет нулевые поля значениями по умолчанию.
func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	return p
}

// backoff считает задержку перед попыткой attempt+1.
// Экспонента: BaseDelay * 2^(attempt-1), не выше MaxDelay.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(delay, p.MaxDelay)
}

// publishWithRetry публикует батч с retry по политике.
//
// Возвращает nil при успехе, ctx.Err() при отмене контекста,
// ErrPublishExhausted после последней неудачной попытки.
func publishWithRetry(ctx context.Context, pub Publisher, payload *mq.BatchPayload, policy RetryPolicy, logger *slog.Logger) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = pub.PublishLogBatch(ctx, payload)
		if lastErr == nil {
			return nil
		}

		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.backoff(attempt)
		telemetry.PublishRetries.WithLabelValues(payload.Source).Inc()

		logger.Debug("retrying batch publish",
			"source", payload.Source,
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)

		// Ждём с учётом context
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrPublishExhausted, policy.MaxAttempts, lastErr)
}
