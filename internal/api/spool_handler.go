package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// ListSpool возвращает записи spool без payload.
// GET /api/v1/spool?limit=
func (h *Handler) ListSpool(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.spoolRepo.List(r.Context(), limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]SpoolEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = SpoolEntryFromDomain(e)
	}

	List(w, result, len(result))
}

// RedriveSpool перепубликует все записи spool.
// POST /api/v1/spool/redrive
func (h *Handler) RedriveSpool(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		Unavailable(w, "redrive is not available: publisher not connected")
		return
	}

	redriven, failed, err := h.sweeper.RedriveAll(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, RedriveResponse{Redriven: redriven, Failed: failed})
}

// RedriveSpoolEntry перепубликует одну запись spool.
// POST /api/v1/spool/{id}/redrive
func (h *Handler) RedriveSpoolEntry(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		Unavailable(w, "redrive is not available: publisher not connected")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid spool entry id")
		return
	}

	entry, err := h.spoolRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "spool entry not found") {
		return
	}

	if err := h.sweeper.Redrive(r.Context(), entry); err != nil {
		Success(w, RedriveResponse{Redriven: 0, Failed: 1})
		return
	}

	Success(w, RedriveResponse{Redriven: 1, Failed: 0})
}
