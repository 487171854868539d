package shipper

import (
	"testing"
	"time"

	"github.com/shaiso/pubslog/internal/domain"
)

func plainSource() *SourceConfig {
	return &SourceConfig{Name: "app", Path: "/var/log/app.log", Format: FormatPlain, Level: "INFO"}
}

func jsonSource() *SourceConfig {
	return &SourceConfig{Name: "app", Path: "/var/log/app.log", Format: FormatJSON, Level: "INFO"}
}

func TestParseLine_Plain(t *testing.T) {
	rec := parseLine(plainSource(), "something happened\n", "node-1", 77)
	if rec == nil {
		t.Fatal("expected record, got nil")
	}

	if rec.Message != "something happened" {
		t.Errorf("unexpected message %q", rec.Message)
	}
	if rec.Level != domain.LevelInfo {
		t.Errorf("expected INFO, got %s", rec.Level)
	}
	if rec.Source != "app" || rec.Host != "node-1" || rec.PID != 77 {
		t.Errorf("origin fields not set: %+v", rec)
	}
	if rec.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestParseLine_Empty(t *testing.T) {
	for _, line := range []string{"", "   ", "\r\n", "\t\n"} {
		if rec := parseLine(plainSource(), line, "h", 1); rec != nil {
			t.Errorf("expected nil for %q, got %+v", line, rec)
		}
	}
}

func TestParseLine_JSON(t *testing.T) {
	line := `{"level":"error","msg":"db down","ts":"2026-08-01T12:30:00Z","attempt":3}`

	rec := parseLine(jsonSource(), line, "h", 1)
	if rec == nil {
		t.Fatal("expected record, got nil")
	}

	if rec.Message != "db down" {
		t.Errorf("unexpected message %q", rec.Message)
	}
	if rec.Level != domain.LevelError {
		t.Errorf("expected ERROR, got %s", rec.Level)
	}

	want := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	if !rec.Timestamp.Equal(want) {
		t.Errorf("expected %s, got %s", want, rec.Timestamp)
	}

	// Извлечённые поля не дублируются в Attrs
	if _, ok := rec.Attrs["msg"]; ok {
		t.Error("msg should be removed from attrs")
	}
	if rec.Attrs["attempt"] != 3.0 {
		t.Errorf("expected attempt=3, got %v", rec.Attrs["attempt"])
	}
}

func TestParseLine_JSONInvalid(t *testing.T) {
	// Не-JSON строка в json-источнике остаётся plain-записью
	rec := parseLine(jsonSource(), "not a json line", "h", 1)
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.Message != "not a json line" {
		t.Errorf("unexpected message %q", rec.Message)
	}
	if rec.Level != domain.LevelInfo {
		t.Errorf("expected INFO fallback, got %s", rec.Level)
	}
}

func TestParseLine_JSONWithoutKnownFields(t *testing.T) {
	rec := parseLine(jsonSource(), `{"foo":"bar"}`, "h", 1)
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	// Message остаётся исходной строкой
	if rec.Message != `{"foo":"bar"}` {
		t.Errorf("unexpected message %q", rec.Message)
	}
	if rec.Attrs["foo"] != "bar" {
		t.Errorf("expected foo=bar in attrs, got %v", rec.Attrs)
	}
}
