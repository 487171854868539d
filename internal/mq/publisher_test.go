package mq

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/pubslog/internal/domain"
)

func TestBatchPayload_Roundtrip(t *testing.T) {
	records := []*domain.Record{
		{
			ID:        uuid.New(),
			Timestamp: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			Level:     domain.LevelInfo,
			Source:    "app",
			Message:   "started",
		},
		{
			ID:        uuid.New(),
			Timestamp: time.Date(2026, 8, 1, 10, 0, 1, 0, time.UTC),
			Level:     domain.LevelError,
			Source:    "app",
			Message:   "crashed",
			Attrs:     map[string]any{"code": 2.0},
		},
	}

	payload, err := NewBatchPayload("app", records)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if payload.Source != "app" {
		t.Errorf("expected source app, got %q", payload.Source)
	}
	if len(payload.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(payload.Messages))
	}

	decoded, bad := payload.DecodeRecords()
	if bad != 0 {
		t.Fatalf("expected no bad messages, got %d", bad)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(decoded))
	}

	if decoded[0].ID != records[0].ID || decoded[0].Message != "started" {
		t.Errorf("first record mismatch: %+v", decoded[0])
	}
	if decoded[1].Level != domain.LevelError || decoded[1].Attrs["code"] != 2.0 {
		t.Errorf("second record mismatch: %+v", decoded[1])
	}
}

func TestBatchPayload_DecodeSkipsBad(t *testing.T) {
	rec := &domain.Record{ID: uuid.New(), Message: "ok"}
	payload, err := NewBatchPayload("app", []*domain.Record{rec})
	if err != nil {
		t.Fatal(err)
	}

	// Подмешиваем нечитаемое сообщение
	payload.Messages = append(payload.Messages, BatchMessage{Data: "%%%"})

	decoded, bad := payload.DecodeRecords()
	if bad != 1 {
		t.Errorf("expected 1 bad message, got %d", bad)
	}
	if len(decoded) != 1 || decoded[0].Message != "ok" {
		t.Errorf("good record should survive: %+v", decoded)
	}
}

func TestNewBatchPayload_Empty(t *testing.T) {
	payload, err := NewBatchPayload("app", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(payload.Messages) != 0 {
		t.Errorf("expected empty messages, got %d", len(payload.Messages))
	}
}
