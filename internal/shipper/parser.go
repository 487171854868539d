package shipper

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/pubslog/internal/domain"
)

// parseLine строит Record из строки файла.
// Пустые строки (после trim) дают nil.
func parseLine(src *SourceConfig, line string, host string, pid int) *domain.Record {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil
	}

	rec := &domain.Record{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Level:     domain.ParseLevel(src.Level),
		Source:    src.Name,
		Host:      host,
		PID:       pid,
		Message:   line,
	}

	if src.Format == FormatJSON {
		parseJSONLine(rec, line)
	}

	return rec
}

// parseJSONLine извлекает известные поля JSON-строки в Record.
// Строка, не являющаяся JSON-объектом, остаётся plain-записью.
func parseJSONLine(rec *domain.Record, line string) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return
	}

	if msg := extractString(fields, "message", "msg"); msg != "" {
		rec.Message = msg
		delete(fields, "message")
		delete(fields, "msg")
	}

	if lvl := extractString(fields, "level", "severity"); lvl != "" {
		rec.Level = domain.ParseLevel(lvl)
		delete(fields, "level")
		delete(fields, "severity")
	}

	if ts := extractString(fields, "time", "timestamp", "ts"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = parsed.UTC()
			delete(fields, "time")
			delete(fields, "timestamp")
			delete(fields, "ts")
		}
	}

	if len(fields) > 0 {
		rec.Attrs = fields
	}
}

// extractString возвращает первое непустое строковое поле из перечисленных.
func extractString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
