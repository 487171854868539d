// Pubslog Shipper — агент доставки логов с хоста.
//
// Shipper:
//   - Следит за лог-файлами из YAML-конфигурации (tail -F)
//   - Парсит строки (plain или JSON) в записи
//   - Публикует пачки в RabbitMQ через AsyncHandler
//   - При недоступности брокера откладывает пачки в spool
//
// Конфигурация задаётся через SHIPPER_CONFIG (default: shipper.yaml).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/pubslog"
	"github.com/shaiso/pubslog/internal/mq"
	"github.com/shaiso/pubslog/internal/repo"
	"github.com/shaiso/pubslog/internal/shipper"
	"github.com/shaiso/pubslog/internal/spool"
	"github.com/shaiso/pubslog/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting pubslog-shipper")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Конфигурация источников
	cfgPath := os.Getenv("SHIPPER_CONFIG")
	if cfgPath == "" {
		cfgPath = "shipper.yaml"
	}

	cfg, err := shipper.LoadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "path", cfgPath, "sources", len(cfg.Sources))

	// RabbitMQ: без брокера shipper бесполезен
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

	publisher := mq.NewPublisher(mqConn, logger)

	// Spool в Postgres — опционально. Без БД исчерпавшие retry
	// пачки отбрасываются (метрика pubslog_records_dropped_total).
	var spooler pubslog.Spooler
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Warn("database not available, spooling disabled", "error", err)
	} else {
		defer pool.Close()
		spooler = spool.NewWriter(repo.NewSpoolRepo(pool), logger)
		logger.Info("database connected, spooling enabled")
	}

	// Создаём shipper
	sh := shipper.New(cfg, publisher, spooler, logger)

	// Запускаем tailer'ы
	if err := sh.Start(ctx); err != nil {
		logger.Error("failed to start shipper", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("SHIPPER_PORT"); v != "" {
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

	// Останавливаем tailer'ы и дожидаемся публикации остатка
	sh.Stop()
	logger.Info("pubslog-shipper stopped")
}
