package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/pubslog/internal/domain"
	"github.com/shaiso/pubslog/internal/telemetry"
)

// ListRecords возвращает записи по фильтрам.
// GET /api/v1/records?level=&source=&since=&until=&q=&limit=
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseRecordFilter(w, r)
	if !ok {
		return
	}

	records, err := h.recordRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RecordResponse, len(records))
	for i, rec := range records {
		result[i] = RecordFromDomain(rec)
	}

	List(w, result, len(result))
}

// GetRecord возвращает запись по ID.
// GET /api/v1/records/{id}
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid record id")
		return
	}

	rec, err := h.recordRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "record not found") {
		return
	}

	Success(w, RecordFromDomain(*rec))
}

// PurgeRecords удаляет записи раньше before.
// DELETE /api/v1/records?before=RFC3339&source=
func (h *Handler) PurgeRecords(w http.ResponseWriter, r *http.Request) {
	beforeStr := r.URL.Query().Get("before")
	if beforeStr == "" {
		BadRequest(w, "before is required")
		return
	}

	before, err := time.Parse(time.RFC3339, beforeStr)
	if err != nil {
		BadRequest(w, "invalid before timestamp, expected RFC3339")
		return
	}

	source := r.URL.Query().Get("source")

	deleted, err := h.recordRepo.DeleteBefore(r.Context(), before, source)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	telemetry.RecordsPurged.Add(float64(deleted))

	h.logger.Info("records purged",
		"before", before,
		"source", source,
		"deleted", deleted,
	)

	Success(w, PurgeResponse{Deleted: deleted})
}

// ListSources возвращает агрегаты по источникам.
// GET /api/v1/sources
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.recordRepo.ListSources(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	List(w, sources, len(sources))
}

// parseRecordFilter разбирает query-параметры в RecordFilter.
func parseRecordFilter(w http.ResponseWriter, r *http.Request) (domain.RecordFilter, bool) {
	var filter domain.RecordFilter
	q := r.URL.Query()

	if level := q.Get("level"); level != "" {
		parsed := domain.Level(level)
		if !parsed.IsValid() {
			BadRequest(w, "invalid level, expected DEBUG, INFO, WARN or ERROR")
			return filter, false
		}
		filter.Level = parsed
	}

	filter.Source = q.Get("source")
	filter.Query = q.Get("q")

	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			BadRequest(w, "invalid since timestamp, expected RFC3339")
			return filter, false
		}
		filter.Since = &t
	}

	if until := q.Get("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			BadRequest(w, "invalid until timestamp, expected RFC3339")
			return filter, false
		}
		filter.Until = &t
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			BadRequest(w, "invalid limit")
			return filter, false
		}
		filter.Limit = limit
	}

	return filter, true
}
