package domain

import (
	"time"

	"github.com/google/uuid"
)

// SpoolEntry — батч записей, отложенный после исчерпания retry публикации.
//
// Producer, которому не удалось опубликовать батч, сохраняет его
// в spool вместо потери. Sweeper периодически перепубликует
// (redrive) отложенные батчи и удаляет их при успехе.
type SpoolEntry struct {
	// ID — уникальный идентификатор записи spool.
	ID uuid.UUID `json:"id"`

	// Source — источник батча (для диагностики и фильтрации).
	Source string `json:"source"`

	// Payload — сырой JSON батча в проводном формате.
	Payload []byte `json:"-"`

	// RecordCount — количество записей в батче.
	RecordCount int `json:"record_count"`

	// Attempts — количество неудачных попыток redrive.
	// Попытки первичной публикации сюда не входят.
	Attempts int `json:"attempts"`

	// LastError — текст последней ошибки публикации.
	LastError string `json:"last_error,omitempty"`

	// CreatedAt — время попадания батча в spool.
	CreatedAt time.Time `json:"created_at"`

	// RedrivenAt — время последней попытки redrive.
	RedrivenAt *time.Time `json:"redriven_at,omitempty"`
}

// MarkRedriveFailed фиксирует неудачную попытку redrive.
func (e *SpoolEntry) MarkRedriveFailed(err string) {
	now := time.Now().UTC()
	e.Attempts++
	e.LastError = err
	e.RedrivenAt = &now
}
