package pubslog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/pubslog/internal/domain"
	"github.com/shaiso/pubslog/internal/mq"
	"github.com/shaiso/pubslog/internal/telemetry"
)

// Publisher публикует батч записей в брокер.
// Реализация: mq.Publisher.
type Publisher interface {
	PublishLogBatch(ctx context.Context, payload *mq.BatchPayload) error
}

// Spooler откладывает батч, который не удалось опубликовать.
// Реализация: spool.Writer (хранение в Postgres).
type Spooler interface {
	Spool(ctx context.Context, payload *mq.BatchPayload, lastErr error) error
}

// DefaultSource — имя источника, если не задано в конфигурации.
const DefaultSource = "pubslog"

// origin — общие поля записей одного producer'а.
type origin struct {
	source string
	host   string
	pid    int
}

func newOrigin(source string) origin {
	if source == "" {
		source = DefaultSource
	}
	host, _ := os.Hostname()
	return origin{
		source: source,
		host:   host,
		pid:    os.Getpid(),
	}
}

// newRecord конвертирует slog.Record в domain.Record.
// preattrs — атрибуты, накопленные через WithAttrs (уже с групповыми префиксами),
// groups — открытые через WithGroup группы для атрибутов самой записи.
func (o origin) newRecord(r slog.Record, preattrs []slog.Attr, groups []string) *domain.Record {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var attrs map[string]any
	total := len(preattrs) + r.NumAttrs()
	if total > 0 {
		attrs = make(map[string]any, total)
		for _, a := range preattrs {
			putAttr(attrs, nil, a)
		}
		r.Attrs(func(a slog.Attr) bool {
			putAttr(attrs, groups, a)
			return true
		})
	}

	return &domain.Record{
		ID:        uuid.New(),
		Timestamp: ts.UTC(),
		Level:     levelFromSlog(r.Level),
		Source:    o.source,
		Host:      o.host,
		PID:       o.pid,
		Message:   r.Message,
		Attrs:     attrs,
	}
}

// putAttr кладёт атрибут в map. Группы схлопываются
// в плоские ключи с точкой: group.subgroup.key.
func putAttr(m map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		if len(members) == 0 {
			return
		}
		inner := groups
		if a.Key != "" {
			inner = append(append([]string{}, groups...), a.Key)
		}
		for _, member := range members {
			putAttr(m, inner, member)
		}
		return
	}

	if a.Key == "" {
		return
	}

	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	m[key] = a.Value.Any()
}

// qualifyAttrs добавляет групповые префиксы к ключам атрибутов WithAttrs.
func qualifyAttrs(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(groups) == 0 {
		return attrs
	}
	prefix := strings.Join(groups, ".") + "."
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: prefix + a.Key, Value: a.Value}
	}
	return out
}

// levelFromSlog переводит slog.Level в domain.Level.
func levelFromSlog(l slog.Level) domain.Level {
	switch {
	case l < slog.LevelInfo:
		return domain.LevelDebug
	case l < slog.LevelWarn:
		return domain.LevelInfo
	case l < slog.LevelError:
		return domain.LevelWarn
	default:
		return domain.LevelError
	}
}

// SyncConfig — конфигурация SyncHandler.
type SyncConfig struct {
	// Source — логическое имя источника.
	Source string

	// Publisher — публикация в брокер. Обязателен.
	Publisher Publisher

	// Spooler — приёмник батчей после исчерпания retry. Опционален.
	Spooler Spooler

	// Retry — политика повторных попыток (нулевые поля — значения по умолчанию).
	Retry RetryPolicy

	// MinLevel — минимальный уровень записей (default: slog.LevelInfo).
	MinLevel slog.Leveler

	// Fallback — куда писать запись при окончательной неудаче публикации
	// и отсутствии Spooler'а (default: os.Stderr).
	Fallback io.Writer

	// Logger — диагностический логгер самого handler'а.
	Logger *slog.Logger
}

// SyncHandler — slog.Handler, публикующий каждую запись синхронно.
//
// Вызов Handle блокируется на всё время retry, поэтому SyncHandler
// годится для редких важных записей (audit), а не для потока логов
// приложения — для потока есть AsyncHandler.
type SyncHandler struct {
	origin   origin
	pub      Publisher
	spooler  Spooler
	retry    RetryPolicy
	minLevel slog.Leveler
	fallback io.Writer
	logger   *slog.Logger

	attrs  []slog.Attr
	groups []string
}

// NewSyncHandler создаёт SyncHandler.
func NewSyncHandler(cfg SyncConfig) (*SyncHandler, error) {
	if cfg.Publisher == nil {
		return nil, ErrNoPublisher
	}

	minLevel := cfg.MinLevel
	if minLevel == nil {
		minLevel = slog.LevelInfo
	}

	fallback := cfg.Fallback
	if fallback == nil {
		fallback = os.Stderr
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncHandler{
		origin:   newOrigin(cfg.Source),
		pub:      cfg.Publisher,
		spooler:  cfg.Spooler,
		retry:    cfg.Retry.normalize(),
		minLevel: minLevel,
		fallback: fallback,
		logger:   logger,
	}, nil
}

// Enabled реализует slog.Handler.
func (h *SyncHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel.Level()
}

// Handle публикует запись с retry.
func (h *SyncHandler) Handle(ctx context.Context, r slog.Record) error {
	rec := h.origin.newRecord(r, h.attrs, h.groups)

	payload, err := mq.NewBatchPayload(h.origin.source, []*domain.Record{rec})
	if err != nil {
		return err
	}

	err = publishWithRetry(ctx, h.pub, payload, h.retry, h.logger)
	if err == nil {
		telemetry.BatchesPublished.WithLabelValues(h.origin.source).Inc()
		return nil
	}

	if h.spooler != nil {
		if serr := h.spooler.Spool(ctx, payload, err); serr == nil {
			telemetry.BatchesSpooled.WithLabelValues(h.origin.source).Inc()
			return nil
		}
	}

	// Последний рубеж — запись уходит в fallback, а не теряется молча
	telemetry.RecordsDropped.WithLabelValues(h.origin.source, "exhausted").Inc()
	h.writeFallback(rec)
	return err
}

// writeFallback пишет запись одной JSON-строкой в fallback writer.
func (h *SyncHandler) writeFallback(rec *domain.Record) {
	line, err := json.Marshal(rec)
	if err != nil {
		return
	}
	fmt.Fprintln(h.fallback, string(line))
}

// WithAttrs реализует slog.Handler.
func (h *SyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), qualifyAttrs(h.groups, attrs)...)
	return &clone
}

// WithGroup реализует slog.Handler.
func (h *SyncHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}
