package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики pipeline. Регистрируются в глобальном registry,
// каждый сервис отдаёт их через promhttp на /metrics.
var (
	// RecordsEnqueued — записи, принятые async handler'ом в очередь.
	RecordsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubslog_records_enqueued_total",
		Help: "Log records accepted into the publish queue.",
	}, []string{"source"})

	// RecordsDropped — записи, потерянные producer'ом.
	// reason: overflow (вытеснены из очереди) или exhausted (retry исчерпаны без spool).
	RecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubslog_records_dropped_total",
		Help: "Log records dropped by the producer.",
	}, []string{"source", "reason"})

	// BatchesPublished — успешно опубликованные батчи.
	BatchesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubslog_batches_published_total",
		Help: "Batches successfully published to the broker.",
	}, []string{"source"})

	// PublishRetries — повторные попытки публикации батча.
	PublishRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubslog_publish_retries_total",
		Help: "Publish attempts beyond the first, per batch.",
	}, []string{"source"})

	// BatchesSpooled — батчи, отложенные в spool после исчерпания retry.
	BatchesSpooled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubslog_batches_spooled_total",
		Help: "Batches parked in the spool after retry exhaustion.",
	}, []string{"source"})

	// SpoolRedriven — батчи, успешно перепубликованные из spool.
	SpoolRedriven = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubslog_spool_redriven_total",
		Help: "Spooled batches successfully republished.",
	})

	// QueueDepth — текущая глубина очереди producer'а.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pubslog_queue_depth",
		Help: "Records currently waiting in the publish queue.",
	}, []string{"source"})

	// RecordsStored — записи, сохранённые Sink'ом в БД.
	RecordsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubslog_records_stored_total",
		Help: "Log records persisted by the sink.",
	})

	// RecordsUndecodable — записи, которые Sink не смог декодировать.
	RecordsUndecodable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubslog_records_undecodable_total",
		Help: "Batch entries the sink failed to decode.",
	})

	// RecordsPurged — записи, удалённые retention sweep'ом или purge API.
	RecordsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubslog_records_purged_total",
		Help: "Log records deleted by retention or purge.",
	})
)
