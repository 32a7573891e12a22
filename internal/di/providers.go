package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/handler/api"
	mid "FinCast/internal/middleware"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/services/feature"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/indicator"
	"FinCast/internal/stream"
	"FinCast/internal/usecase"
	pkgcache "FinCast/pkg/cache"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/queue"
	"FinCast/pkg/server"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates the ClickHouse connection pool. Table
// schemas belong to the stores; App.Run drives their Init.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates the Kafka producer shared by the event
// publisher and the log shipper.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.Producer.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the consumer that feeds the ingest
// pipeline from the bars topic.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
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
	consumer.WithConsumerHook(mid.NewConsumeLogHook(log))
	return consumer, nil
}

// ProvideRedisCache connects to Redis; the client is shared with the
// job queue.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	host, port := splitAddr(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

func splitAddr(addr string) (string, int) {
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

// ProvideCache layers an in-process LRU in front of Redis.
func ProvideCache(rc *pkgcache.RedisCache, cfg *config.Config) pkgcache.Service {
	return pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(cfg.Cache.MemorySize))
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideBarStore creates the ClickHouse bar history store.
func ProvideBarStore(ch *pkgch.Client, log *applogger.Logger) drepo.BarStore {
	return internalrepo.NewCHBarStore(ch, log)
}

// ProvideRunStore creates the ClickHouse analysis run store.
func ProvideRunStore(ch *pkgch.Client, log *applogger.Logger) drepo.RunStore {
	return internalrepo.NewCHRunStore(ch, log)
}

// ProvideHub creates the WebSocket event hub.
func ProvideHub(log *applogger.Logger, m drepo.Metrics) *stream.Hub {
	return stream.NewHub(log, m)
}

// ProvideEventPublisher fans every engine event out to Kafka and to
// connected WebSocket clients.
func ProvideEventPublisher(producer *pkgkafka.Producer, hub *stream.Hub, cfg *config.Config) drepo.EventPublisher {
	kafkaPub := internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
	return internalrepo.NewFanoutPublisher(kafkaPub, hub)
}

// ProvideIndicatorEngine creates the indicator computation engine.
func ProvideIndicatorEngine(log *applogger.Logger) domsvc.IndicatorEngine {
	return indicator.NewEngine(log)
}

// ProvideFeatureBuilder creates the feature matrix builder.
func ProvideFeatureBuilder(log *applogger.Logger) *feature.Builder {
	return feature.NewBuilder(log)
}

// ProvideTrendPredictor creates the bagged-tree forecaster.
func ProvideTrendPredictor(builder *feature.Builder, log *applogger.Logger) domsvc.TrendPredictor {
	return forecast.NewPredictor(builder, log)
}

// ProvideIndicatorConfig maps the engine section of the config onto the
// domain indicator settings.
func ProvideIndicatorConfig(cfg *config.Config) models.IndicatorConfig {
	return models.IndicatorConfig{
		MAShort:         cfg.Engine.MAShort,
		MALong:          cfg.Engine.MALong,
		RSIWindow:       cfg.Engine.RSIWindow,
		MACDFast:        cfg.Engine.MACDFast,
		MACDSlow:        cfg.Engine.MACDSlow,
		MACDSignal:      cfg.Engine.MACDSignal,
		BollingerWindow: cfg.Engine.BollingerWindow,
		BollingerK:      cfg.Engine.BollingerK,
		ATRWindow:       cfg.Engine.ATRWindow,
	}
}

// ProvideForecastConfig maps the forecast section of the config onto
// the domain forecast defaults.
func ProvideForecastConfig(cfg *config.Config) models.ForecastConfig {
	return models.ForecastConfig{
		Horizon:      cfg.Forecast.Horizon,
		LagDepth:     cfg.Forecast.LagDepth,
		Strategy:     models.Strategy(cfg.Forecast.Strategy),
		ConfidenceZ:  cfg.Forecast.ConfidenceZ,
		TestFraction: cfg.Forecast.TestFraction,
		MinTrainRows: cfg.Forecast.MinTrainRows,
		Model: models.ModelConfig{
			Trees:       cfg.Forecast.Trees,
			Seed:        cfg.Forecast.Seed,
			MaxDepth:    cfg.Forecast.MaxDepth,
			MinLeaf:     cfg.Forecast.MinLeaf,
			SampleRatio: 1.0,
		},
	}
}

// ProvideHistory creates the cached bar history reader.
func ProvideHistory(store drepo.BarStore, c pkgcache.Service, m drepo.Metrics, log *applogger.Logger) *usecase.History {
	return usecase.NewHistory(store, c, m, log)
}

// ProvideAnalyzer creates the end-to-end analysis use case.
func ProvideAnalyzer(
	history *usecase.History,
	engine domsvc.IndicatorEngine,
	predictor domsvc.TrendPredictor,
	runs drepo.RunStore,
	events drepo.EventPublisher,
	c pkgcache.Service,
	m drepo.Metrics,
	log *applogger.Logger,
	indicators models.IndicatorConfig,
	defaults models.ForecastConfig,
) *usecase.Analyzer {
	return usecase.NewAnalyzer(history, engine, predictor, runs, events, c, m, log, indicators, defaults)
}

// ProvideBarProcessor creates the bar batch store path.
func ProvideBarProcessor(
	store drepo.BarStore,
	events drepo.EventPublisher,
	history *usecase.History,
	m drepo.Metrics,
	log *applogger.Logger,
) *usecase.BarProcessor {
	return usecase.NewBarProcessor(store, events, history, m, log)
}

// ProvideIngestPipeline places the coalescing buffer between the Kafka
// consumer and the bar processor.
func ProvideIngestPipeline(proc *usecase.BarProcessor, m drepo.Metrics, cfg *config.Config) *mid.IngestPipeline {
	return mid.NewIngestPipeline(proc, m,
		mid.WithFlushInterval(cfg.Ingest.FlushInterval),
		mid.WithMaxBatch(cfg.Ingest.BatchSize),
		mid.WithRetryBuffer(cfg.Ingest.RetryBuffer),
	)
}

// ProvideBarIngestHandler binds the bars topic to the pipeline.
func ProvideBarIngestHandler(cfg *config.Config, pipeline *mid.IngestPipeline, m drepo.Metrics) pkgkafka.MessageHandler {
	return usecase.NewBarIngestHandler(cfg.Kafka.BarsTopic, pipeline, m)
}

// ProvideQueue creates the Redis job queue with the analysis job
// registered. The API publishes and the same process consumes.
func ProvideQueue(
	log *applogger.Logger,
	cfg *config.Config,
	rc *pkgcache.RedisCache,
	analyzer *usecase.Analyzer,
) *queue.RedisQueue {
	q := queue.NewRedisQueue(log,
		&queue.QueueConfig{
			Workers:    cfg.Queue.Workers,
			RetryLimit: cfg.Queue.RetryLimit,
			RetryDelay: cfg.Queue.RetryDelay,
		},
		rc.Client(),
		queue.WithKeyPrefix(cfg.Queue.KeyPrefix),
	)
	q.Register(usecase.NewAnalysisJob(analyzer, log))
	return q
}

// ProvideHandler assembles the HTTP handler with its health checks.
func ProvideHandler(
	log *applogger.Logger,
	history *usecase.History,
	analyzer *usecase.Analyzer,
	processor *usecase.BarProcessor,
	engine domsvc.IndicatorEngine,
	runs drepo.RunStore,
	jobs *queue.RedisQueue,
	hub *stream.Hub,
	ch *pkgch.Client,
	rc *pkgcache.RedisCache,
	cfg *config.Config,
) *api.Handler {
	checks := []api.ComponentCheck{
		{Name: "clickhouse", Check: ch.Health},
		{Name: "redis", Check: func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		}},
	}
	return api.New(api.Deps{
		Log:               log,
		History:           history,
		Analyzer:          analyzer,
		Processor:         processor,
		Engine:            engine,
		Runs:              runs,
		Jobs:              jobs,
		Hub:               hub,
		Checks:            checks,
		ForecastBurst:     cfg.RateLimit.Capacity,
		ForecastPerSecond: cfg.RateLimit.RefillPerSec,
	})
}

// ProvideApp assembles the application and hooks the log shipper onto
// the Kafka producer.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	ch *pkgch.Client,
	barStore drepo.BarStore,
	runStore drepo.RunStore,
	pipeline *mid.IngestPipeline,
	consumer *pkgkafka.Consumer,
	ingest pkgkafka.MessageHandler,
	jobs *queue.RedisQueue,
	events drepo.EventPublisher,
	handler *api.Handler,
	producer *pkgkafka.Producer,
) *server.App {
	log.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.LogsTopic,
		Publisher:      internalrepo.NewLogPublisher(producer),
	})
	return server.New(cfg, log, ch, barStore, runStore, pipeline, consumer, ingest, jobs, events, handler)
}
