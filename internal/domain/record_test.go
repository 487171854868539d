package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecord_EncodeDecodeData(t *testing.T) {
	rec := &Record{
		ID:        uuid.New(),
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Level:     LevelWarn,
		Source:    "api",
		Host:      "node-1",
		PID:       4321,
		Message:   "slow query",
		Attrs:     map[string]any{"duration_ms": 150.0},
	}

	data, err := rec.EncodeData()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeData(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.ID != rec.ID {
		t.Errorf("ID mismatch: %s != %s", got.ID, rec.ID)
	}
	if !got.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("Timestamp mismatch: %s != %s", got.Timestamp, rec.Timestamp)
	}
	if got.Level != LevelWarn || got.Source != "api" || got.Message != "slow query" {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Attrs["duration_ms"] != 150.0 {
		t.Errorf("Attrs mismatch: %v", got.Attrs)
	}
}

func TestDecodeData_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not base64", "%%%"},
		{"not json", "bm90IGpzb24="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeData(tt.data); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
