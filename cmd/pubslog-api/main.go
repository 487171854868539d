// Pubslog API — HTTP-сервер для чтения сохранённых логов
// и управления spool.
//
// API:
//   - Поиск и чтение записей логов (фильтры, retention purge)
//   - Сводка по источникам
//   - Просмотр и redrive отложенных пачек
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/pubslog/internal/api"
	"github.com/shaiso/pubslog/internal/mq"
	"github.com/shaiso/pubslog/internal/repo"
	"github.com/shaiso/pubslog/internal/sweeper"
	"github.com/shaiso/pubslog/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubslog_api_http_requests_total",
		Help: "Total HTTP requests handled by pubslog_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting pubslog-api")

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	recordRepo := repo.NewRecordRepo(pool)
	spoolRepo := repo.NewSpoolRepo(pool)

	// RabbitMQ нужен только для redrive по запросу. Без брокера
	// API работает в режиме read-only, redrive отвечает 422.
	var sw *sweeper.Sweeper
	mqConn, err := mq.NewConnection(mq.DefaultURL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, spool redrive disabled", "error", err)
	} else {
		defer mqConn.Close()
		publisher := mq.NewPublisher(mqConn, logger)

		sw, err = sweeper.New(sweeper.Config{
			RecordRepo: recordRepo,
			SpoolRepo:  spoolRepo,
			Publisher:  publisher,
			Logger:     logger,
		})
		if err != nil {
			logger.Error("failed to create sweeper", "error", err)
			os.Exit(1)
		}
	}

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		RecordRepo: recordRepo,
		SpoolRepo:  spoolRepo,
		Sweeper:    sw,
		Logger:     logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
