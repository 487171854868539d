package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record — одна запись лога, проходящая через pipeline.
//
// Record создаётся producer'ом (slog handler или shipper),
// публикуется в брокер в составе батча и сохраняется Sink'ом в БД.
type Record struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// Timestamp — время возникновения записи (UTC, выставляет producer).
	Timestamp time.Time `json:"timestamp"`

	// Level — уровень логирования: DEBUG, INFO, WARN, ERROR.
	Level Level `json:"level"`

	// Source — логическое имя источника (имя handler'а или источника shipper'а).
	Source string `json:"source"`

	// Host — hostname машины-producer'а.
	Host string `json:"host,omitempty"`

	// PID — PID процесса-producer'а.
	PID int `json:"pid,omitempty"`

	// Message — текст записи.
	Message string `json:"message"`

	// Attrs — структурированные атрибуты записи.
	Attrs map[string]any `json:"attrs,omitempty"`

	// IngestedAt — время сохранения в БД (выставляет Sink).
	IngestedAt time.Time `json:"ingested_at,omitempty"`
}

// EncodeData кодирует запись для передачи по проводу:
// JSON → base64url (формат поля data в батче).
func (r *Record) EncodeData() (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return base64.URLEncoding.EncodeToString(body), nil
}

// DecodeData декодирует запись из формата поля data.
func DecodeData(data string) (*Record, error) {
	body, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	var r Record
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &r, nil
}

// RecordFilter — фильтры для выборки записей из БД.
type RecordFilter struct {
	// Level — точное совпадение уровня (пусто — все уровни).
	Level Level

	// Source — точное совпадение источника.
	Source string

	// Since — нижняя граница Timestamp (включительно).
	Since *time.Time

	// Until — верхняя граница Timestamp (исключительно).
	Until *time.Time

	// Query — подстрока в Message (case-insensitive).
	Query string

	// Limit — максимум записей (0 — значение по умолчанию).
	Limit int
}

// SourceInfo — агрегат по источнику для списка источников.
type SourceInfo struct {
	// Source — имя источника.
	Source string `json:"source"`

	// Count — количество записей источника в БД.
	Count int64 `json:"count"`

	// LastSeen — Timestamp самой свежей записи источника.
	LastSeen time.Time `json:"last_seen"`
}
