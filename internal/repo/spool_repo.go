package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/pubslog/internal/domain"
)

// SpoolRepo — репозиторий отложенных батчей.
type SpoolRepo struct {
	pool *pgxpool.Pool
}

// NewSpoolRepo создаёт новый SpoolRepo.
func NewSpoolRepo(pool *pgxpool.Pool) *SpoolRepo {
	return &SpoolRepo{pool: pool}
}

// Create сохраняет отложенный батч.
func (r *SpoolRepo) Create(ctx context.Context, entry *domain.SpoolEntry) error {
	query := `
		INSERT INTO spool (id, source, payload, record_count, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Source,
		entry.Payload,
		entry.RecordCount,
		entry.Attempts,
		nullString(entry.LastError),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert spool entry: %w", err)
	}
	return nil
}

// GetByID возвращает запись spool с payload.
func (r *SpoolRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SpoolEntry, error) {
	query := `
		SELECT id, source, payload, record_count, attempts, last_error, created_at, redriven_at
		FROM spool
		WHERE id = $1
	`
	return r.scanEntry(r.pool.QueryRow(ctx, query, id))
}

// List возвращает записи spool без payload (payload бывает большим),
// старые первыми — redrive идёт в порядке поступления.
func (r *SpoolRepo) List(ctx context.Context, limit int) ([]domain.SpoolEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, source, record_count, attempts, last_error, created_at, redriven_at
		FROM spool
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list spool: %w", err)
	}
	defer rows.Close()

	var entries []domain.SpoolEntry
	for rows.Next() {
		var e domain.SpoolEntry
		var lastError *string
		err := rows.Scan(
			&e.ID,
			&e.Source,
			&e.RecordCount,
			&e.Attempts,
			&lastError,
			&e.CreatedAt,
			&e.RedrivenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan spool entry: %w", err)
		}
		if lastError != nil {
			e.LastError = *lastError
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListDue возвращает записи spool с payload для redrive, старые первыми.
func (r *SpoolRepo) ListDue(ctx context.Context, limit int) ([]domain.SpoolEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, source, payload, record_count, attempts, last_error, created_at, redriven_at
		FROM spool
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list due spool: %w", err)
	}
	defer rows.Close()

	var entries []domain.SpoolEntry
	for rows.Next() {
		e, err := r.scanEntryFromRows(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Delete удаляет запись spool (после успешного redrive).
func (r *SpoolRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM spool WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete spool entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Update фиксирует результат неудачного redrive.
func (r *SpoolRepo) Update(ctx context.Context, entry *domain.SpoolEntry) error {
	query := `
		UPDATE spool
		SET attempts = $2, last_error = $3, redriven_at = $4
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Attempts,
		nullString(entry.LastError),
		entry.RedrivenAt,
	)
	if err != nil {
		return fmt.Errorf("update spool entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count возвращает количество записей spool.
func (r *SpoolRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM spool`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count spool: %w", err)
	}
	return count, nil
}

// scanEntry сканирует одну строку (с payload) в SpoolEntry.
func (r *SpoolRepo) scanEntry(row pgx.Row) (*domain.SpoolEntry, error) {
	var e domain.SpoolEntry
	var lastError *string

	err := row.Scan(
		&e.ID,
		&e.Source,
		&e.Payload,
		&e.RecordCount,
		&e.Attempts,
		&lastError,
		&e.CreatedAt,
		&e.RedrivenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan spool entry: %w", err)
	}

	if lastError != nil {
		e.LastError = *lastError
	}
	return &e, nil
}

// scanEntryFromRows сканирует строку из rows в SpoolEntry.
func (r *SpoolRepo) scanEntryFromRows(rows pgx.Rows) (*domain.SpoolEntry, error) {
	return r.scanEntry(rows)
}
