package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"CravePulse/internal/domain/repository"
	"CravePulse/internal/handler/api"
	mid "CravePulse/internal/middleware"
	"CravePulse/internal/realtime"
	internalrepo "CravePulse/internal/repository"
	"CravePulse/internal/services/features"
	"CravePulse/internal/services/model"
	"CravePulse/internal/usecase"
	"CravePulse/pkg/cache"
	pkgch "CravePulse/pkg/clickhouse"
	"CravePulse/pkg/config"
	pkgkafka "CravePulse/pkg/kafka"
	applogger "CravePulse/pkg/logger"
	"CravePulse/pkg/metrics"
	"CravePulse/pkg/queue"
	"CravePulse/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append(
		[]string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database)},
		internalrepo.SchemaStatements...,
	)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideRedisClient creates the shared Redis client used by the queue and
// the subject registry.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCacheService creates the prefixed cache used for notification
// dedup locks.
func ProvideCacheService(cfg *config.Config) (cache.Service, error) {
	host, port := splitHostPort(cfg.Redis.Addr)
	return cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideKafkaProducer creates a Kafka producer. Hashing by key keeps all
// messages for one subject on the same partition.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the readings-topic consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideReadingStore creates the ClickHouse reading repository.
func ProvideReadingStore(chClient *pkgch.Client) repository.ReadingStore {
	return internalrepo.NewClickHouseReadingStore(chClient.DB())
}

// ProvideAnalysisSink creates the ClickHouse analysis repository.
func ProvideAnalysisSink(chClient *pkgch.Client) repository.AnalysisSink {
	return internalrepo.NewClickHouseAnalysisSink(chClient.DB())
}

// ProvideNotifier creates the Kafka notification publisher.
func ProvideNotifier(producer *pkgkafka.Producer, cfg *config.Config) repository.Notifier {
	return internalrepo.NewKafkaNotifier(producer, cfg.Kafka.NotificationsTopic)
}

// ProvideSubjectRegistry creates the Redis-backed active-subject registry.
func ProvideSubjectRegistry(client *redis.Client) repository.SubjectRegistry {
	return internalrepo.NewRedisSubjectRegistry(client)
}

// ProvideNotificationGuard creates the Redis-backed once-per-window guard.
func ProvideNotificationGuard(c cache.Service) repository.NotificationGuard {
	return internalrepo.NewRedisNotificationGuard(c, 24*time.Hour)
}

// ProvideWindowSource creates the fixed-grid window source.
func ProvideWindowSource(cfg *config.Config) repository.WindowSource {
	return internalrepo.NewFixedWindowSource(cfg.Pipeline.Window)
}

// ProvideExtractor creates the feature extractor.
func ProvideExtractor(cfg *config.Config) *features.Extractor {
	return features.NewExtractor(cfg.Pipeline.MinReadings, cfg.Pipeline.DefaultHeartRate)
}

// ProvideClassifier creates the forest classifier. The artifact loads
// lazily on first prediction so a broken file surfaces as a cycle error,
// not a startup crash.
func ProvideClassifier(lgr *applogger.Logger, cfg *config.Config) *model.Classifier {
	return model.NewClassifier(lgr, cfg.Model.Path)
}

// ProvideHub creates the WebSocket hub for realtime results.
func ProvideHub(lgr *applogger.Logger) *realtime.Hub {
	return realtime.NewHub(lgr)
}

// ProvideOrchestrator creates the prediction cycle orchestrator.
func ProvideOrchestrator(
	lgr *applogger.Logger,
	extractor *features.Extractor,
	classifier *model.Classifier,
	windows repository.WindowSource,
	readings repository.ReadingStore,
	analyses repository.AnalysisSink,
	notifier repository.Notifier,
	hub *realtime.Hub,
	guard repository.NotificationGuard,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.PredictionOrchestrator {
	return usecase.NewPredictionOrchestrator(
		lgr, extractor, classifier,
		windows, readings, analyses,
		notifier, hub, guard, m,
		cfg.Pipeline,
	)
}

// ProvideCycleQueue creates the Redis queue that runs prediction cycles
// with bounded exponential retries.
func ProvideCycleQueue(
	lgr *applogger.Logger,
	client *redis.Client,
	orchestrator *usecase.PredictionOrchestrator,
	cfg *config.Config,
) *queue.RedisQueue {
	qcfg := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	jobs := []queue.Job{usecase.NewCycleJob(lgr, orchestrator)}
	return queue.NewRedisConsumer(lgr, qcfg, client, jobs)
}

// ProvideScheduler creates the periodic cycle dispatcher.
func ProvideScheduler(
	lgr *applogger.Logger,
	registry repository.SubjectRegistry,
	q *queue.RedisQueue,
	cfg *config.Config,
) *usecase.Scheduler {
	return usecase.NewScheduler(lgr, registry, q, cfg.Pipeline.SchedulerInterval)
}

// ProvideIngestPipeline creates the validation/throttle stage in front of
// the reading store.
func ProvideIngestPipeline(store repository.ReadingStore, m repository.Metrics) *mid.IngestPipeline {
	return mid.NewIngestPipeline(store, m)
}

// ProvideReadingsHandler creates the Kafka handler for the readings topic.
func ProvideReadingsHandler(store repository.ReadingStore, m repository.Metrics, cfg *config.Config) *usecase.ReadingsHandler {
	return usecase.NewReadingsHandler(cfg.Kafka.ReadingsTopic, store, m)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	lgr *applogger.Logger,
	q *queue.RedisQueue,
	ingest *mid.IngestPipeline,
	readings repository.ReadingStore,
	analyses repository.AnalysisSink,
	registry repository.SubjectRegistry,
	classifier *model.Classifier,
	hub *realtime.Hub,
) *api.PredictionsEchoHandler {
	return api.NewPredictionsEchoHandler(lgr, q, ingest, readings, analyses, registry, classifier, hub)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh *usecase.ReadingsHandler,
	q *queue.RedisQueue,
	scheduler *usecase.Scheduler,
	ingest *mid.IngestPipeline,
	hub *realtime.Hub,
	handler *api.PredictionsEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	// Operator alerts: error-level logs aggregate and flush to the ops topic.
	lgr.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.AlertsTopic,
		Publisher:      internalrepo.NewKafkaAlertPublisher(producer),
	})
	return server.New(cfg, lgr, chClient, producer, consumer, kh, q, scheduler, ingest, hub, handler)
}
