// Pubslog Sink — принимает пачки логов из RabbitMQ
// и сохраняет их в Postgres.
//
// Sink:
//   - Потребляет пачки из очереди logs.ingest
//   - Декодирует записи, присваивает ID
//   - Пишет в БД идемпотентно (ON CONFLICT DO NOTHING)
//   - Ack только после успешной записи (at-least-once)
//
// Sinks масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/pubslog/internal/mq"
	"github.com/shaiso/pubslog/internal/repo"
	"github.com/shaiso/pubslog/internal/sink"
	"github.com/shaiso/pubslog/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting pubslog-sink")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	recordRepo := repo.NewRecordRepo(pool)

	// RabbitMQ: без брокера sink бесполезен
	mqConn, err := mq.NewConnection(mq.DefaultURL(), logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	// Создаём топологию
	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	// Создаём sink
	s := sink.New(sink.Config{
		RecordRepo: recordRepo,
		Conn:       mqConn,
		Logger:     logger,
	})

	// Запускаем sink
	if err := s.Start(ctx); err != nil {
		logger.Error("failed to start sink", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("SINK_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем sink
	s.Stop()
	logger.Info("pubslog-sink stopped")
}
