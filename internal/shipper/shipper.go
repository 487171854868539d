package shipper

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/nxadm/tail"

	"github.com/shaiso/pubslog"
	"github.com/shaiso/pubslog/internal/domain"
	"github.com/shaiso/pubslog/internal/telemetry"
)

// Shipper отслеживает файлы логов и отправляет строки в pipeline.
//
// На каждый источник запускается tailer (nxadm/tail): follow + reopen,
// поэтому ротация и пересоздание файла не прерывают отслеживание.
// Строки конвертируются в записи и уходят в AsyncHandler источника —
// дальше батчинг, retry и spool работают как для любого producer'а.
type Shipper struct {
	cfg     *Config
	pub     pubslog.Publisher
	spooler pubslog.Spooler
	logger  *slog.Logger

	handlers map[string]*pubslog.AsyncHandler
	tailers  []*tail.Tail

	host string
	pid  int

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// New создаёт Shipper.
func New(cfg *Config, pub pubslog.Publisher, spooler pubslog.Spooler, logger *slog.Logger) *Shipper {
	host, _ := os.Hostname()

	if logger == nil {
		logger = slog.Default()
	}

	return &Shipper{
		cfg:      cfg,
		pub:      pub,
		spooler:  spooler,
		logger:   logger,
		handlers: make(map[string]*pubslog.AsyncHandler, len(cfg.Sources)),
		host:     host,
		pid:      os.Getpid(),
	}
}

// Start запускает tailer'ы всех источников.
func (s *Shipper) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	for i := range s.cfg.Sources {
		src := &s.cfg.Sources[i]

		handler, err := pubslog.NewAsyncHandler(pubslog.AsyncConfig{
			Source:    src.Name,
			Publisher: s.pub,
			Spooler:   s.spooler,
			Workers:   s.cfg.Workers,
			QueueSize: s.cfg.QueueSize,
			BatchSize: s.cfg.BatchSize,
			Retry:     pubslog.RetryPolicy{MaxAttempts: s.cfg.Retry},
			Logger:    telemetry.WithSource(s.logger, src.Name),
		})
		if err != nil {
			s.Stop()
			return err
		}
		s.handlers[src.Name] = handler

		if err := s.startTailer(ctx, src, handler); err != nil {
			s.Stop()
			return err
		}
	}

	s.logger.Info("shipper started", "sources", len(s.cfg.Sources))
	return nil
}

// startTailer запускает tailer одного источника.
func (s *Shipper) startTailer(ctx context.Context, src *SourceConfig, handler *pubslog.AsyncHandler) error {
	tailCfg := tail.Config{
		Follow:    true,                  // следить за файлом
		ReOpen:    true,                  // переоткрывать при ротации
		MustExist: false,                 // файл может появиться позже
		Logger:    tail.DiscardingLogger, // свои логи tailer'а не нужны
	}
	if !src.FromStart {
		// Начинаем с конца файла — история не переотправляется
		tailCfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(src.Path, tailCfg)
	if err != nil {
		return err
	}
	s.tailers = append(s.tailers, t)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tailLoop(ctx, src, t, handler)
	}()

	s.logger.Info("tailing source",
		"source", src.Name,
		"path", src.Path,
		"format", src.Format,
	)

	return nil
}

// tailLoop читает строки tailer'а и кладёт записи в handler.
func (s *Shipper) tailLoop(ctx context.Context, src *SourceConfig, t *tail.Tail, handler *pubslog.AsyncHandler) {
	for {
		select {
		case <-ctx.Done():
			return

		case line, ok := <-t.Lines:
			if !ok {
				s.logger.Warn("tailer stopped", "source", src.Name)
				return
			}

			if line.Err != nil {
				s.logger.Warn("tail error", "source", src.Name, "error", line.Err)
				continue
			}

			rec := parseLine(src, line.Text, s.host, s.pid)
			if rec == nil {
				continue
			}

			if err := s.enqueue(handler, rec); err != nil {
				return
			}
		}
	}
}

// enqueue кладёт запись в handler источника.
func (s *Shipper) enqueue(handler *pubslog.AsyncHandler, rec *domain.Record) error {
	if err := handler.Enqueue(rec); err != nil {
		// Единственная ошибка Enqueue — handler закрыт
		s.logger.Warn("handler closed, stopping source", "source", rec.Source)
		return err
	}
	return nil
}

// Flush дожидается публикации всех принятых записей.
func (s *Shipper) Flush() {
	for _, handler := range s.handlers {
		handler.Flush()
	}
}

// Stop останавливает tailer'ы и дожидается публикации остатка.
func (s *Shipper) Stop() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	for _, t := range s.tailers {
		t.Stop()
		t.Cleanup()
	}

	s.wg.Wait()

	// Остаток очередей публикуется до закрытия
	for name, handler := range s.handlers {
		if err := handler.Close(); err != nil {
			s.logger.Warn("failed to close handler", "source", name, "error", err)
		}
	}

	s.logger.Info("shipper stopped")
}
