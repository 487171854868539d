package sink

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/pubslog/internal/mq"
	"github.com/shaiso/pubslog/internal/repo"
)

// defaultPrefetch — количество батчей, загружаемых consumer'ом наперёд.
const defaultPrefetch = 5

// Sink сохраняет батчи записей из брокера в Postgres.
//
// Sink — stateless компонент системы, который:
//   - Потребляет сообщения logs.batch из очереди logs.ingest
//   - Декодирует записи батча (base64url → JSON)
//   - Сохраняет их в таблицу records одним pgx.Batch
//   - Подтверждает (ack) сообщение только после успешной записи в БД
//
// Sink'и масштабируются горизонтально — несколько экземпляров
// могут потреблять из одной очереди.
type Sink struct {
	recordRepo *repo.RecordRepo

	conn     *mq.Connection
	consumer *mq.Consumer
	prefetch int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Sink.
type Config struct {
	// RecordRepo — хранилище записей.
	RecordRepo *repo.RecordRepo

	// Conn — соединение с брокером.
	Conn *mq.Connection

	// Prefetch — размер предзагрузки consumer'а (default: 5).
	Prefetch int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Sink.
func New(cfg Config) *Sink {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sink{
		recordRepo: cfg.RecordRepo,
		conn:       cfg.Conn,
		prefetch:   prefetch,
		logger:     logger,
	}
}

// Start запускает Sink: consumer очереди logs.ingest.
func (s *Sink) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.logger.Info("starting sink", "prefetch", s.prefetch)

	s.consumer = mq.NewConsumer(s.conn, s.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueLogsIngest),
		Handler:  s.handleLogsBatch,
		Prefetch: s.prefetch,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("ingest consumer error", "error", err)
		}
	}()

	s.logger.Info("sink started")
	return nil
}

// Stop останавливает Sink.
func (s *Sink) Stop() {
	s.stoppedMu.Lock()
	s.stopped = true
	s.stoppedMu.Unlock()

	s.logger.Info("stopping sink...")

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	if s.consumer != nil {
		s.consumer.Stop()
	}

	s.wg.Wait()

	s.logger.Info("sink stopped")
}

// IsStopped проверяет, остановлен ли Sink.
func (s *Sink) IsStopped() bool {
	s.stoppedMu.RLock()
	defer s.stoppedMu.RUnlock()
	return s.stopped
}
