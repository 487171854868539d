// Pubslog Sweeper — фоновое обслуживание хранилища логов.
//
// Sweeper:
//   - Перепубликует отложенные пачки из spool в RabbitMQ
//   - Удаляет записи старше срока хранения по cron-расписанию
//
// Одновременно работает только один экземпляр: лидерство
// захватывается через pg_advisory_lock.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/pubslog/internal/mq"
	"github.com/shaiso/pubslog/internal/repo"
	"github.com/shaiso/pubslog/internal/sweeper"
	"github.com/shaiso/pubslog/internal/telemetry"
)

const sweepLockKey int64 = 137542

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting pubslog-sweeper")

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
	spoolRepo := repo.NewSpoolRepo(pool)

	// RabbitMQ нужен для redrive. Без брокера работает только purge.
	var publisher sweeper.Publisher
	mqConn, err := mq.NewConnection(mq.DefaultURL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, redrive disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Параметры обслуживания
	retention := 30 * 24 * time.Hour
	if v := os.Getenv("RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid RETENTION", "value", v, "error", err)
			os.Exit(1)
		}
		retention = d
	}

	sw, err := sweeper.New(sweeper.Config{
		RecordRepo: recordRepo,
		SpoolRepo:  spoolRepo,
		Publisher:  publisher,
		Retention:  retention,
		PurgeCron:  os.Getenv("PURGE_CRON"),
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create sweeper", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// sweeper loop
	go func() {
		tk := time.NewTicker(30 * time.Second)
		defer tk.Stop()

		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", sweepLockKey)
			}
		}()

		for {
			select {
			case <-tk.C:
				// пытаемся стать лидером (или подтвердить лидерство)
				if !hasLock {
					var ok bool
					if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", sweepLockKey).Scan(&ok); err != nil {
						logger.Error("advisory lock failed", "error", err)
						continue
					}
					hasLock = ok
				}

				if !hasLock {
					// не лидер — пропускаем тик
					continue
				}

				if err := sw.Tick(ctx); err != nil {
					logger.Error("sweep tick failed", "error", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	port := ":8084"
	if v := os.Getenv("SWEEPER_PORT"); v != "" {
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
	logger.Info("pubslog-sweeper stopped")
}
