package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	drepo "FinCast/internal/domain/repository"
	"FinCast/internal/handler/api"
	mid "FinCast/internal/middleware"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/queue"
)

const initTimeout = 10 * time.Second

// App owns the component lifecycle: schema init, ingest pipeline, Kafka
// consumer, job queue, HTTP server. Startup is storage first and
// transport last; shutdown runs the same chain in reverse.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	chClient *pkgch.Client
	barStore drepo.BarStore
	runStore drepo.RunStore
	pipeline *mid.IngestPipeline
	consumer *pkgkafka.Consumer
	ingest   pkgkafka.MessageHandler
	jobs     *queue.RedisQueue
	events   drepo.EventPublisher
	handler  *api.Handler

	httpServer *xhttp.Server
}

func New(
	cfg *config.Config,
	log *applogger.Logger,
	chClient *pkgch.Client,
	barStore drepo.BarStore,
	runStore drepo.RunStore,
	pipeline *mid.IngestPipeline,
	consumer *pkgkafka.Consumer,
	ingest pkgkafka.MessageHandler,
	jobs *queue.RedisQueue,
	events drepo.EventPublisher,
	handler *api.Handler,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		chClient: chClient,
		barStore: barStore,
		runStore: runStore,
		pipeline: pipeline,
		consumer: consumer,
		ingest:   ingest,
		jobs:     jobs,
		events:   events,
		handler:  handler,
	}
}

// Run starts every component and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, initTimeout)
	defer initCancel()
	if err := a.barStore.Init(initCtx); err != nil {
		return err
	}
	if err := a.runStore.Init(initCtx); err != nil {
		return err
	}
	a.log.Info("clickhouse schema ready",
		applogger.String("database", a.cfg.ClickHouse.Database))

	a.pipeline.Start(ctx)

	if a.consumer != nil && a.ingest != nil {
		a.consumer.RegisterHandler(a.ingest)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started",
			applogger.String("topic", a.ingest.Topic()),
			applogger.Strings("brokers", a.cfg.Kafka.Brokers))
	}

	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			return err
		}
	}

	opts := []xhttp.ServerOption{
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts,
			xhttp.WithMetrics(a.log, time.Second),
			xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	a.httpServer = xhttp.NewServer(a.handler, opts...)
	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.log.Info("engine up",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop intake first so the pipeline can drain into storage.
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Warn("http shutdown error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	a.pipeline.Stop(shutdownCtx)

	if a.jobs != nil {
		if err := a.jobs.Stop(shutdownCtx); err != nil {
			a.log.Warn("queue stop error", applogger.Error(err))
		}
	}

	// The collector's final flush ships through the Kafka producer, so
	// detach it before the producer goes away with the event publisher.
	a.log.RemoveCollector()

	// Closes the Kafka producer and disconnects WebSocket clients.
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("event publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
