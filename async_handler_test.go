package pubslog

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/pubslog/internal/domain"
	"github.com/shaiso/pubslog/internal/mq"
)

// fakePublisher собирает опубликованные payload'ы.
// failures — столько первых вызовов завершаются ошибкой.
type fakePublisher struct {
	mu       sync.Mutex
	payloads []*mq.BatchPayload
	calls    int
	failures int

	// block: публикация ждёт сигнала из release
	release chan struct{}
	started chan struct{}
}

func (p *fakePublisher) PublishLogBatch(_ context.Context, payload *mq.BatchPayload) error {
	p.mu.Lock()
	p.calls++
	call := p.calls
	started := p.started
	release := p.release
	p.mu.Unlock()

	if started != nil && call == 1 {
		close(started)
	}
	if release != nil {
		<-release
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if call <= p.failures {
		return errors.New("broker unavailable")
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *fakePublisher) records(t *testing.T) []*domain.Record {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	var all []*domain.Record
	for _, payload := range p.payloads {
		records, bad := payload.DecodeRecords()
		if bad != 0 {
			t.Fatalf("payload contains %d undecodable messages", bad)
		}
		all = append(all, records...)
	}
	return all
}

type fakeSpooler struct {
	mu      sync.Mutex
	spooled []*mq.BatchPayload
	err     error
}

func (s *fakeSpooler) Spool(_ context.Context, payload *mq.BatchPayload, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.spooled = append(s.spooled, payload)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestNewAsyncHandler_NoPublisher(t *testing.T) {
	_, err := NewAsyncHandler(AsyncConfig{})
	if !errors.Is(err, ErrNoPublisher) {
		t.Fatalf("expected ErrNoPublisher, got %v", err)
	}
}

func TestAsyncHandler_PublishesAllRecords(t *testing.T) {
	pub := &fakePublisher{}
	h, err := NewAsyncHandler(AsyncConfig{
		Source:    "test",
		Publisher: pub,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	logger := slog.New(h)
	logger.Info("first")
	logger.Warn("second")
	logger.Error("third")

	h.Flush()

	records := pub.records(t)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Source != "test" {
		t.Errorf("expected source test, got %q", records[0].Source)
	}
	if records[1].Level != domain.LevelWarn {
		t.Errorf("expected WARN, got %s", records[1].Level)
	}
}

func TestAsyncHandler_BatchSizeLimit(t *testing.T) {
	pub := &fakePublisher{}
	h, err := NewAsyncHandler(AsyncConfig{
		Source:    "test",
		Publisher: pub,
		BatchSize: 2,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	logger := slog.New(h)
	for i := 0; i < 5; i++ {
		logger.Info("record")
	}

	h.Flush()

	pub.mu.Lock()
	defer pub.mu.Unlock()

	total := 0
	for _, payload := range pub.payloads {
		if len(payload.Messages) > 2 {
			t.Errorf("batch exceeds limit: %d messages", len(payload.Messages))
		}
		total += len(payload.Messages)
	}
	if total != 5 {
		t.Errorf("expected 5 records across batches, got %d", total)
	}
}

func TestAsyncHandler_CloseFlushesAndRejects(t *testing.T) {
	pub := &fakePublisher{}
	h, err := NewAsyncHandler(AsyncConfig{
		Source:    "test",
		Publisher: pub,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	slog.New(h).Info("before close")

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Повторный Close — no-op
	if err := h.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if got := len(pub.records(t)); got != 1 {
		t.Errorf("expected 1 record published before close, got %d", got)
	}

	err = h.Handle(context.Background(), slog.Record{Message: "after close"})
	if !errors.Is(err, ErrHandlerClosed) {
		t.Errorf("expected ErrHandlerClosed, got %v", err)
	}
}

func TestAsyncHandler_SpoolsExhaustedBatch(t *testing.T) {
	pub := &fakePublisher{failures: 1000}
	spooler := &fakeSpooler{}
	h, err := NewAsyncHandler(AsyncConfig{
		Source:    "test",
		Publisher: pub,
		Spooler:   spooler,
		Retry:     fastRetry(),
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	slog.New(h).Info("doomed")
	h.Flush()

	spooler.mu.Lock()
	defer spooler.mu.Unlock()
	if len(spooler.spooled) != 1 {
		t.Fatalf("expected 1 spooled batch, got %d", len(spooler.spooled))
	}
	if spooler.spooled[0].Source != "test" {
		t.Errorf("expected source test, got %q", spooler.spooled[0].Source)
	}
}

func TestAsyncHandler_DropOldestOnOverflow(t *testing.T) {
	pub := &fakePublisher{
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	h, err := NewAsyncHandler(AsyncConfig{
		Source:    "test",
		Publisher: pub,
		BatchSize: 1,
		QueueSize: 1,
		Overflow:  OverflowDropOldest,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	rec := func(msg string) *domain.Record {
		return &domain.Record{Message: msg}
	}

	// Worker забирает first и блокируется в публикации
	if err := h.Enqueue(rec("first")); err != nil {
		t.Fatal(err)
	}
	<-pub.started

	// second заполняет очередь, third вытесняет second
	if err := h.Enqueue(rec("second")); err != nil {
		t.Fatal(err)
	}
	if err := h.Enqueue(rec("third")); err != nil {
		t.Fatal(err)
	}

	close(pub.release)
	h.Flush()

	records := pub.records(t)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Message != "first" || records[1].Message != "third" {
		t.Errorf("expected first and third, got %q and %q", records[0].Message, records[1].Message)
	}
}

func TestAsyncHandler_BlockOverflowDeliversAll(t *testing.T) {
	pub := &fakePublisher{
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	h, err := NewAsyncHandler(AsyncConfig{
		Source:    "test",
		Publisher: pub,
		BatchSize: 1,
		QueueSize: 1,
		Overflow:  OverflowBlock,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	const total = 5
	var enqueued atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := h.Enqueue(&domain.Record{Message: strconv.Itoa(n)}); err != nil {
				t.Errorf("enqueue %d: %v", n, err)
				return
			}
			enqueued.Add(1)
		}(i)
	}

	// Worker забирает одну запись и блокируется в публикации
	<-pub.started

	// Очередь ёмкостью 1: пройти могут ровно два producer'а (запись
	// у worker'а + запись в очереди), остальные блокируются
	deadline := time.Now().Add(2 * time.Second)
	for enqueued.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("producers made no progress")
		}
		time.Sleep(time.Millisecond)
	}

	time.Sleep(50 * time.Millisecond)
	if got := enqueued.Load(); got != 2 {
		t.Fatalf("expected 2 completed enqueues while publisher is stuck, got %d", got)
	}

	close(pub.release)
	wg.Wait()
	h.Flush()

	// Block ничего не вытесняет — доставляются все записи
	if got := len(pub.records(t)); got != total {
		t.Fatalf("expected %d records, got %d", total, got)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	err = h.Enqueue(&domain.Record{Message: "late"})
	if !errors.Is(err, ErrHandlerClosed) {
		t.Errorf("expected ErrHandlerClosed after close, got %v", err)
	}
}

func TestAsyncHandler_WithAttrsAndGroup(t *testing.T) {
	pub := &fakePublisher{}
	h, err := NewAsyncHandler(AsyncConfig{
		Source:    "test",
		Publisher: pub,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	logger := slog.New(h).With("app", "demo").WithGroup("req")
	logger.Info("hit", "path", "/x")

	h.Flush()

	records := pub.records(t)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	attrs := records[0].Attrs
	if attrs["app"] != "demo" {
		t.Errorf("expected app=demo, got %v", attrs["app"])
	}
	if attrs["req.path"] != "/x" {
		t.Errorf("expected req.path=/x, got %v", attrs["req.path"])
	}
}

func TestAsyncHandler_Enabled(t *testing.T) {
	pub := &fakePublisher{}
	h, err := NewAsyncHandler(AsyncConfig{
		Source:    "test",
		Publisher: pub,
		MinLevel:  slog.LevelWarn,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("INFO should be disabled with MinLevel WARN")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("ERROR should be enabled with MinLevel WARN")
	}
}
