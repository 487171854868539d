package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/pubslog/internal/domain"
)

// Лимиты выборки записей.
const (
	// DefaultListLimit — лимит списка по умолчанию.
	DefaultListLimit = 100

	// MaxListLimit — максимальный лимит списка.
	MaxListLimit = 1000
)

// RecordRepo — репозиторий для работы с записями логов.
type RecordRepo struct {
	pool *pgxpool.Pool
}

// NewRecordRepo создаёт новый RecordRepo.
func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

// CreateBatch сохраняет батч записей одним round-trip (pgx.Batch).
//
// ON CONFLICT DO NOTHING: при повторной доставке батча после
// reconnect брокера дубликаты по ID молча пропускаются.
func (r *RecordRepo) CreateBatch(ctx context.Context, records []*domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO records (id, ts, level, source, host, pid, message, attrs, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, rec := range records {
		attrsJSON, err := json.Marshal(rec.Attrs)
		if err != nil {
			return 0, fmt.Errorf("marshal attrs for %s: %w", rec.ID, err)
		}

		batch.Queue(query,
			rec.ID,
			rec.Timestamp,
			rec.Level,
			rec.Source,
			nullString(rec.Host),
			rec.PID,
			rec.Message,
			attrsJSON,
			rec.IngestedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	stored := 0
	for range records {
		tag, err := results.Exec()
		if err != nil {
			return stored, fmt.Errorf("insert record: %w", err)
		}
		stored += int(tag.RowsAffected())
	}

	return stored, nil
}

// GetByID возвращает запись по ID.
func (r *RecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	query := `
		SELECT id, ts, level, source, host, pid, message, attrs, ingested_at
		FROM records
		WHERE id = $1
	`
	return r.scanRecord(r.pool.QueryRow(ctx, query, id))
}

// List возвращает записи по фильтру, новые первыми.
func (r *RecordRepo) List(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, ts, level, source, host, pid, message, attrs, ingested_at
		FROM records
		WHERE ($1::text IS NULL OR level = $1)
		  AND ($2::text IS NULL OR source = $2)
		  AND ($3::timestamptz IS NULL OR ts >= $3)
		  AND ($4::timestamptz IS NULL OR ts < $4)
		  AND ($5::text IS NULL OR message ILIKE '%' || $5 || '%' ESCAPE '\')
		ORDER BY ts DESC
		LIMIT $6
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Level)),
		nullString(filter.Source),
		filter.Since,
		filter.Until,
		nullString(escapeLike(filter.Query)),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := r.scanRecordFromRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ListSources возвращает агрегаты по источникам.
func (r *RecordRepo) ListSources(ctx context.Context) ([]domain.SourceInfo, error) {
	query := `
		SELECT source, COUNT(*), MAX(ts)
		FROM records
		GROUP BY source
		ORDER BY source
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.SourceInfo
	for rows.Next() {
		var s domain.SourceInfo
		if err := rows.Scan(&s.Source, &s.Count, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteBefore удаляет записи с ts раньше before.
// source непустой — только записи источника. Возвращает количество удалённых.
func (r *RecordRepo) DeleteBefore(ctx context.Context, before time.Time, source string) (int64, error) {
	query := `
		DELETE FROM records
		WHERE ts < $1
		  AND ($2::text IS NULL OR source = $2)
	`
	tag, err := r.pool.Exec(ctx, query, before, nullString(source))
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanRecord сканирует одну строку в Record.
func (r *RecordRepo) scanRecord(row pgx.Row) (*domain.Record, error) {
	var rec domain.Record
	var host *string
	var attrsJSON []byte

	err := row.Scan(
		&rec.ID,
		&rec.Timestamp,
		&rec.Level,
		&rec.Source,
		&host,
		&rec.PID,
		&rec.Message,
		&attrsJSON,
		&rec.IngestedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}

	if host != nil {
		rec.Host = *host
	}
	if len(attrsJSON) > 0 {
		if err := json.Unmarshal(attrsJSON, &rec.Attrs); err != nil {
			return nil, fmt.Errorf("unmarshal attrs: %w", err)
		}
	}

	return &rec, nil
}

// scanRecordFromRows сканирует строку из rows в Record.
func (r *RecordRepo) scanRecordFromRows(rows pgx.Rows) (*domain.Record, error) {
	return r.scanRecord(rows)
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// escapeLike экранирует метасимволы LIKE (%, _, \), чтобы
// пользовательская подстрока искалась буквально, а не как шаблон.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
