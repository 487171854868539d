package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/pubslog/internal/domain"
)

// Record DTOs

// RecordResponse — ответ с записью лога.
type RecordResponse struct {
	ID         uuid.UUID      `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      domain.Level   `json:"level"`
	Source     string         `json:"source"`
	Host       string         `json:"host,omitempty"`
	PID        int            `json:"pid,omitempty"`
	Message    string         `json:"message"`
	Attrs      map[string]any `json:"attrs,omitempty"`
	IngestedAt time.Time      `json:"ingested_at"`
}

// RecordFromDomain конвертирует domain.Record в RecordResponse.
func RecordFromDomain(r domain.Record) RecordResponse {
	return RecordResponse{
		ID:         r.ID,
		Timestamp:  r.Timestamp,
		Level:      r.Level,
		Source:     r.Source,
		Host:       r.Host,
		PID:        r.PID,
		Message:    r.Message,
		Attrs:      r.Attrs,
		IngestedAt: r.IngestedAt,
	}
}

// PurgeResponse — результат purge.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// Spool DTOs

// SpoolEntryResponse — ответ с записью spool (без payload).
type SpoolEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Source      string     `json:"source"`
	RecordCount int        `json:"record_count"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RedrivenAt  *time.Time `json:"redriven_at,omitempty"`
}

// SpoolEntryFromDomain конвертирует domain.SpoolEntry в SpoolEntryResponse.
func SpoolEntryFromDomain(e domain.SpoolEntry) SpoolEntryResponse {
	return SpoolEntryResponse{
		ID:          e.ID,
		Source:      e.Source,
		RecordCount: e.RecordCount,
		Attempts:    e.Attempts,
		LastError:   e.LastError,
		CreatedAt:   e.CreatedAt,
		RedrivenAt:  e.RedrivenAt,
	}
}

// RedriveResponse — результат redrive.
type RedriveResponse struct {
	Redriven int `json:"redriven"`
	Failed   int `json:"failed"`
}
