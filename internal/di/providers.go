package di

import (
	"fmt"
	"time"

	domrepo "Veritas/internal/domain/repository"
	domsvc "Veritas/internal/domain/service"
	"Veritas/internal/handler/api"
	"Veritas/internal/handler/realtime"
	internalrepo "Veritas/internal/repository"
	svcmetrics "Veritas/internal/service/metrics"
	"Veritas/internal/service/ratelimit"
	"Veritas/internal/services/predictor"
	"Veritas/internal/usecase"
	"Veritas/pkg/cache"
	"Veritas/pkg/config"
	pkgkafka "Veritas/pkg/kafka"
	applogger "Veritas/pkg/logger"
	"Veritas/pkg/metrics"
	"Veritas/pkg/queue"
	"Veritas/pkg/server"
)

// ProvideLogger creates the application logger from the logger section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideCache backs predictor locks and snapshot dedup markers.
// Redis is used when predictor.serialize is "redis", memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	if cfg.Predictor.Serialize == "redis" {
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Redis.Host),
			cache.WithRedisPort(cfg.Redis.Port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, func() { _ = rc.Close() }, nil
	}
	mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(100_000), cache.WithMemoryCleanup(time.Minute))
	return mc, func() { _ = mc.Close() }, nil
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithProducerLogger(l),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close failed", applogger.Error(err))
		}
	}, nil
}

// ProvideKafkaConsumer returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.RequestIDHook{}, pkgkafka.LoggingHook{Log: l}))
	return consumer, nil
}

// ProvideLogPublisher picks where aggregated error logs are shipped: Kafka when
// enabled, otherwise a capped Redis list when Redis is in use, otherwise nowhere.
func ProvideLogPublisher(cfg *config.Config, c cache.Service, producer *pkgkafka.Producer) applogger.Publisher {
	if producer != nil {
		return producer
	}
	if rc, ok := c.(*cache.RedisCache); ok {
		return queue.NewRedisPublisher(rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	}
	return nil
}

func ProvidePredictorBackend(cfg *config.Config, l *applogger.Logger) (predictor.Backend, error) {
	return predictor.NewBackend(cfg, l)
}

// ProvideMarketPredictor applies the configured serialisation to the backend.
func ProvideMarketPredictor(b predictor.Backend, cfg *config.Config, locks cache.Service, l *applogger.Logger) domsvc.MarketPredictor {
	return predictor.Serialize(b, cfg, locks, l)
}

func ProvideHealthChecker(b predictor.Backend) domsvc.HealthChecker {
	return b
}

// ProvideHub returns nil when the live feed is disabled.
func ProvideHub(cfg *config.Config, l *applogger.Logger) *realtime.Hub {
	if !cfg.Realtime.Enabled {
		return nil
	}
	return realtime.NewHub(l, cfg.Realtime.MaxClients)
}

// ProvideVerdictPublisher fans verdicts out to the live feed and Kafka, whichever are enabled.
func ProvideVerdictPublisher(cfg *config.Config, hub *realtime.Hub, producer *pkgkafka.Producer) domsvc.VerdictPublisher {
	var sinks []domsvc.VerdictPublisher
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaVerdictPublisher(producer, cfg.Kafka.VerdictsTopic))
	}
	if len(sinks) == 0 {
		return nil
	}
	return internalrepo.NewFanoutPublisher(sinks...)
}

func ProvideRiskService(
	cfg *config.Config,
	mp domsvc.MarketPredictor,
	hc domsvc.HealthChecker,
	pub domsvc.VerdictPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.RiskService {
	return usecase.NewRiskService(cfg, mp, hc, pub, m, l)
}

func ProvideRiskHandler(l *applogger.Logger, svc *usecase.RiskService) *api.RiskEchoHandler {
	return api.NewRiskEchoHandler(l, svc)
}

func ProvideSnapshotHandler(cfg *config.Config, svc *usecase.RiskService, seen cache.Service, l *applogger.Logger) *usecase.SnapshotHandler {
	return usecase.NewSnapshotHandler(cfg.Kafka.SnapshotsTopic, svc, seen, l)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst, 10*time.Minute)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	rh *api.RiskEchoHandler,
	hub *realtime.Hub,
	consumer *pkgkafka.Consumer,
	sh *usecase.SnapshotHandler,
	logs applogger.Publisher,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(server.Deps{
		Config:          cfg,
		Logger:          l,
		RiskHandler:     rh,
		Hub:             hub,
		Consumer:        consumer,
		SnapshotHandler: sh,
		LogPublisher:    logs,
		Limiter:         limiter,
	})
}
