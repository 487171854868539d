package pubslog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/pubslog/internal/domain"
	"github.com/shaiso/pubslog/internal/mq"
)

func TestNewSyncHandler_NoPublisher(t *testing.T) {
	_, err := NewSyncHandler(SyncConfig{})
	if !errors.Is(err, ErrNoPublisher) {
		t.Fatalf("expected ErrNoPublisher, got %v", err)
	}
}

func TestSyncHandler_PublishesRecord(t *testing.T) {
	pub := &fakePublisher{}
	h, err := NewSyncHandler(SyncConfig{
		Source:    "audit",
		Publisher: pub,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	slog.New(h).Error("payment failed", "order", "42")

	records := pub.records(t)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Source != "audit" {
		t.Errorf("expected source audit, got %q", rec.Source)
	}
	if rec.Level != domain.LevelError {
		t.Errorf("expected ERROR, got %s", rec.Level)
	}
	if rec.Message != "payment failed" {
		t.Errorf("unexpected message %q", rec.Message)
	}
	if rec.Attrs["order"] != "42" {
		t.Errorf("expected order=42, got %v", rec.Attrs["order"])
	}
	if rec.ID == uuid.Nil {
		t.Error("record ID should be assigned")
	}
}

func TestSyncHandler_SpoolsOnExhausted(t *testing.T) {
	pub := &fakePublisher{failures: 1000}
	spooler := &fakeSpooler{}
	h, err := NewSyncHandler(SyncConfig{
		Source:    "audit",
		Publisher: pub,
		Spooler:   spooler,
		Retry:     fastRetry(),
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Spool перехватывает батч — Handle не возвращает ошибку
	if err := h.Handle(context.Background(), slog.Record{Message: "x", Level: slog.LevelInfo}); err != nil {
		t.Fatalf("expected nil after spool, got %v", err)
	}

	if len(spooler.spooled) != 1 {
		t.Fatalf("expected 1 spooled batch, got %d", len(spooler.spooled))
	}
}

func TestSyncHandler_FallbackOnExhausted(t *testing.T) {
	pub := &fakePublisher{failures: 1000}
	var fallback bytes.Buffer
	h, err := NewSyncHandler(SyncConfig{
		Source:    "audit",
		Publisher: pub,
		Retry:     fastRetry(),
		Fallback:  &fallback,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	err = h.Handle(context.Background(), slog.Record{Message: "lost", Level: slog.LevelInfo})
	if !errors.Is(err, ErrPublishExhausted) {
		t.Fatalf("expected ErrPublishExhausted, got %v", err)
	}

	line := strings.TrimSpace(fallback.String())
	if line == "" {
		t.Fatal("fallback should contain the record")
	}

	var rec domain.Record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("fallback line is not valid JSON: %v", err)
	}
	if rec.Message != "lost" {
		t.Errorf("expected message lost, got %q", rec.Message)
	}
}

func TestLevelFromSlog(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want domain.Level
	}{
		{slog.LevelDebug, domain.LevelDebug},
		{slog.LevelInfo, domain.LevelInfo},
		{slog.LevelInfo + 2, domain.LevelInfo},
		{slog.LevelWarn, domain.LevelWarn},
		{slog.LevelError, domain.LevelError},
		{slog.LevelError + 4, domain.LevelError},
	}

	for _, tt := range tests {
		if got := levelFromSlog(tt.in); got != tt.want {
			t.Errorf("levelFromSlog(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewRecord_FlattensGroups(t *testing.T) {
	o := newOrigin("test")

	var r slog.Record
	r.Message = "msg"
	r.AddAttrs(slog.Group("db", slog.String("query", "select 1"), slog.Int("rows", 3)))
	r.AddAttrs(slog.String("plain", "v"))

	rec := o.newRecord(r, nil, []string{"outer"})

	if rec.Attrs["outer.db.query"] != "select 1" {
		t.Errorf("expected outer.db.query, got %v", rec.Attrs)
	}
	if rec.Attrs["outer.plain"] != "v" {
		t.Errorf("expected outer.plain=v, got %v", rec.Attrs)
	}
	if rec.Timestamp.IsZero() {
		t.Error("zero slog time should be replaced with now")
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()

	if got := p.backoff(1); got != p.BaseDelay {
		t.Errorf("backoff(1) = %v, want %v", got, p.BaseDelay)
	}
	if got := p.backoff(2); got != 2*p.BaseDelay {
		t.Errorf("backoff(2) = %v, want %v", got, 2*p.BaseDelay)
	}
	// Экспонента упирается в потолок
	if got := p.backoff(20); got != p.MaxDelay {
		t.Errorf("backoff(20) = %v, want %v", got, p.MaxDelay)
	}
}

func TestPublishWithRetry_ContextCancelled(t *testing.T) {
	pub := &fakePublisher{failures: 1000}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Minute, MaxDelay: time.Minute}
	err := publishWithRetry(ctx, pub, &mq.BatchPayload{Source: "test"}, policy, quietLogger())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
