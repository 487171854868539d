package pubslog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/pubslog/internal/domain"
	"github.com/shaiso/pubslog/internal/mq"
	"github.com/shaiso/pubslog/internal/telemetry"
)

// Параметры AsyncHandler по умолчанию.
const (
	// DefaultWorkerCount — количество фоновых worker'ов.
	DefaultWorkerCount = 1

	// MaxBatchSize — максимум записей в одном батче.
	MaxBatchSize = 1000

	// DefaultQueueSize — ёмкость внутренней очереди.
	DefaultQueueSize = 65536

	// pollTimeout — пауза между записями, завершающая сборку батча.
	pollTimeout = 100 * time.Millisecond
)

// OverflowPolicy — поведение при переполнении очереди.
type OverflowPolicy string

const (
	// OverflowDropOldest — вытеснить самую старую запись из очереди.
	// Логирование не должно останавливать приложение, поэтому default.
	OverflowDropOldest OverflowPolicy = "drop_oldest"

	// OverflowBlock — блокировать Handle до освобождения места.
	OverflowBlock OverflowPolicy = "block"
)

// AsyncConfig — конфигурация AsyncHandler.
type AsyncConfig struct {
	// Source — логическое имя источника.
	Source string

	// Publisher — публикация в брокер. Обязателен.
	Publisher Publisher

	// Spooler — приёмник батчей после исчерпания retry. Опционален:
	// без него неопубликованный батч теряется (поведение оригинала).
	Spooler Spooler

	// Workers — количество фоновых worker'ов (default: 1).
	Workers int

	// QueueSize — ёмкость очереди (default: 65536).
	QueueSize int

	// BatchSize — максимум записей в батче (default и потолок: 1000).
	BatchSize int

	// Overflow — политика переполнения очереди (default: drop_oldest).
	Overflow OverflowPolicy

	// Retry — политика повторных попыток публикации.
	Retry RetryPolicy

	// MinLevel — минимальный уровень записей (default: slog.LevelInfo).
	MinLevel slog.Leveler

	// Logger — диагностический логгер самого handler'а.
	Logger *slog.Logger
}

// AsyncHandler — slog.Handler с фоновой публикацией.
//
// Handle кладёт запись в ограниченную очередь и сразу возвращается.
// Worker'ы забирают записи батчами (до BatchSize, пауза pollTimeout
// завершает батч) и публикуют через Publisher с retry.
//
// Несколько handler'ов, полученных через WithAttrs/WithGroup,
// делят одну очередь и worker'ов.
type AsyncHandler struct {
	core *asyncCore

	attrs  []slog.Attr
	groups []string
}

// asyncCore — общая часть клонов AsyncHandler: очередь, worker'ы, учёт.
type asyncCore struct {
	origin   origin
	pub      Publisher
	spooler  Spooler
	retry    RetryPolicy
	overflow OverflowPolicy
	batchMax int
	minLevel slog.Leveler
	logger   *slog.Logger

	queue chan *domain.Record

	// pending — записи, принятые но ещё не опубликованные/отложенные/потерянные.
	// Flush ждёт pending == 0.
	pendingMu sync.Mutex
	pending   int
	pendingC  *sync.Cond

	// enqueueMu сериализует вытеснение при drop_oldest
	enqueueMu sync.Mutex

	closeOnce sync.Once
	closedMu  sync.RWMutex
	closed    bool
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewAsyncHandler создаёт AsyncHandler и запускает worker'ов.
func NewAsyncHandler(cfg AsyncConfig) (*AsyncHandler, error) {
	if cfg.Publisher == nil {
		return nil, ErrNoPublisher
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkerCount
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	batchMax := cfg.BatchSize
	if batchMax <= 0 || batchMax > MaxBatchSize {
		batchMax = MaxBatchSize
	}

	overflow := cfg.Overflow
	if overflow == "" {
		overflow = OverflowDropOldest
	}

	minLevel := cfg.MinLevel
	if minLevel == nil {
		minLevel = slog.LevelInfo
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	core := &asyncCore{
		origin:   newOrigin(cfg.Source),
		pub:      cfg.Publisher,
		spooler:  cfg.Spooler,
		retry:    cfg.Retry.normalize(),
		overflow: overflow,
		batchMax: batchMax,
		minLevel: minLevel,
		logger:   logger,
		queue:    make(chan *domain.Record, queueSize),
		done:     make(chan struct{}),
	}
	core.pendingC = sync.NewCond(&core.pendingMu)

	for i := 0; i < workers; i++ {
		core.wg.Add(1)
		go func() {
			defer core.wg.Done()
			core.sendLoop()
		}()
	}

	return &AsyncHandler{core: core}, nil
}

// Enabled реализует slog.Handler.
func (h *AsyncHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.core.minLevel.Level()
}

// Handle реализует slog.Handler: конвертирует запись и кладёт в очередь.
func (h *AsyncHandler) Handle(_ context.Context, r slog.Record) error {
	return h.core.enqueue(h.core.origin.newRecord(r, h.attrs, h.groups))
}

// Enqueue кладёт готовую запись в очередь, минуя slog.
// Используется shipper'ом, где записи строятся из строк файлов.
func (h *AsyncHandler) Enqueue(rec *domain.Record) error {
	return h.core.enqueue(rec)
}

// WithAttrs реализует slog.Handler. Клон делит очередь и worker'ов.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), qualifyAttrs(h.groups, attrs)...)
	return &clone
}

// WithGroup реализует slog.Handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// Flush блокируется, пока все принятые записи не будут
// опубликованы, отложены в spool или потеряны.
func (h *AsyncHandler) Flush() {
	h.core.waitPending()
}

// Close останавливает handler: дожидается публикации принятых
// записей и завершает worker'ов. Идемпотентен.
// Записи после Close отклоняются с ErrHandlerClosed.
func (h *AsyncHandler) Close() error {
	h.core.closeOnce.Do(func() {
		h.core.closedMu.Lock()
		h.core.closed = true
		h.core.closedMu.Unlock()

		h.core.waitPending()
		close(h.core.done)
		h.core.wg.Wait()
	})
	return nil
}

// enqueue кладёт запись в очередь согласно политике переполнения.
func (c *asyncCore) enqueue(rec *domain.Record) error {
	c.closedMu.RLock()
	if c.closed {
		c.closedMu.RUnlock()
		return ErrHandlerClosed
	}
	c.pendingAdd(1)
	c.closedMu.RUnlock()

	telemetry.RecordsEnqueued.WithLabelValues(c.origin.source).Inc()

	if c.overflow == OverflowBlock {
		select {
		case c.queue <- rec:
			c.updateDepth()
			return nil
		case <-c.done:
			c.pendingDone(1)
			return ErrHandlerClosed
		}
	}

	// drop_oldest: вытеснение сериализовано, иначе два producer'а
	// могли бы вытеснить записи друг друга без необходимости
	c.enqueueMu.Lock()
	defer c.enqueueMu.Unlock()

	for {
		select {
		case c.queue <- rec:
			c.updateDepth()
			return nil
		default:
		}

		select {
		case old := <-c.queue:
			c.pendingDone(1)
			telemetry.RecordsDropped.WithLabelValues(c.origin.source, "overflow").Inc()
			c.logger.Warn("queue full, dropping oldest record",
				"source", c.origin.source,
				"dropped_id", old.ID,
			)
		default:
			// Очередь уже разгружена worker'ом — просто повторяем отправку
		}
	}
}

// sendLoop — цикл worker'а: собрать батч, опубликовать, повторить.
// Завершается после Close, когда очередь пуста.
func (c *asyncCore) sendLoop() {
	for {
		batch := c.drainBatch()

		if len(batch) > 0 {
			c.publishBatch(batch)
			c.pendingDone(len(batch))
			continue
		}

		select {
		case <-c.done:
			return
		default:
		}
	}
}

// drainBatch забирает из очереди до batchMax записей.
// Пауза pollTimeout без новых записей завершает батч.
func (c *asyncCore) drainBatch() []*domain.Record {
	batch := make([]*domain.Record, 0, c.batchMax)

	timer := time.NewTimer(pollTimeout)
	defer timer.Stop()

	for len(batch) < c.batchMax {
		select {
		case rec := <-c.queue:
			batch = append(batch, rec)

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(pollTimeout)

		case <-timer.C:
			c.updateDepth()
			return batch
		}
	}

	c.updateDepth()
	return batch
}

// publishBatch публикует батч с retry; при исчерпании — spool или потеря.
func (c *asyncCore) publishBatch(batch []*domain.Record) {
	ctx := context.Background()

	payload, err := mq.NewBatchPayload(c.origin.source, batch)
	if err != nil {
		// Не кодируется — не опубликуется никогда
		telemetry.RecordsDropped.WithLabelValues(c.origin.source, "encode").Add(float64(len(batch)))
		c.logger.Error("failed to encode batch", "source", c.origin.source, "error", err)
		return
	}

	err = publishWithRetry(ctx, c.pub, payload, c.retry, c.logger)
	if err == nil {
		telemetry.BatchesPublished.WithLabelValues(c.origin.source).Inc()
		return
	}

	c.logger.Warn("batch publish exhausted",
		"source", c.origin.source,
		"records", len(batch),
		"error", err,
	)

	if c.spooler != nil {
		serr := c.spooler.Spool(ctx, payload, err)
		if serr == nil {
			telemetry.BatchesSpooled.WithLabelValues(c.origin.source).Inc()
			return
		}
		c.logger.Error("failed to spool batch", "source", c.origin.source, "error", serr)
	}

	telemetry.RecordsDropped.WithLabelValues(c.origin.source, "exhausted").Add(float64(len(batch)))
}

// pendingAdd увеличивает счётчик незавершённых записей.
func (c *asyncCore) pendingAdd(n int) {
	c.pendingMu.Lock()
	c.pending += n
	c.pendingMu.Unlock()
}

// pendingDone уменьшает счётчик и будит Flush при нуле.
func (c *asyncCore) pendingDone(n int) {
	c.pendingMu.Lock()
	c.pending -= n
	if c.pending <= 0 {
		c.pendingC.Broadcast()
	}
	c.pendingMu.Unlock()
}

// waitPending блокируется до pending == 0.
func (c *asyncCore) waitPending() {
	c.pendingMu.Lock()
	for c.pending > 0 {
		c.pendingC.Wait()
	}
	c.pendingMu.Unlock()
}

// updateDepth обновляет gauge глубины очереди.
func (c *asyncCore) updateDepth() {
	telemetry.QueueDepth.WithLabelValues(c.origin.source).Set(float64(len(c.queue)))
}
