package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Records
	mux.Handle("GET /api/v1/records", chain(http.HandlerFunc(h.ListRecords)))
	mux.Handle("GET /api/v1/records/{id}", chain(http.HandlerFunc(h.GetRecord)))
	mux.Handle("DELETE /api/v1/records", chain(http.HandlerFunc(h.PurgeRecords)))

	// Sources
	mux.Handle("GET /api/v1/sources", chain(http.HandlerFunc(h.ListSources)))

	// Spool
	mux.Handle("GET /api/v1/spool", chain(http.HandlerFunc(h.ListSpool)))
	mux.Handle("POST /api/v1/spool/redrive", chain(http.HandlerFunc(h.RedriveSpool)))
	mux.Handle("POST /api/v1/spool/{id}/redrive", chain(http.HandlerFunc(h.RedriveSpoolEntry)))
}
