package api

import (
	"log/slog"

	"github.com/shaiso/pubslog/internal/repo"
	"github.com/shaiso/pubslog/internal/sweeper"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	recordRepo *repo.RecordRepo
	spoolRepo  *repo.SpoolRepo
	sweeper    *sweeper.Sweeper
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	RecordRepo *repo.RecordRepo
	SpoolRepo  *repo.SpoolRepo

	// Sweeper — для redrive по запросу. Может быть nil,
	// тогда redrive endpoints отвечают 422.
	Sweeper *sweeper.Sweeper

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		recordRepo: cfg.RecordRepo,
		spoolRepo:  cfg.SpoolRepo,
		sweeper:    cfg.Sweeper,
		logger:     cfg.Logger,
	}
}
