package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CravePulse/internal/middleware"
	"CravePulse/internal/realtime"
	"CravePulse/internal/usecase"
	pkgch "CravePulse/pkg/clickhouse"
	"CravePulse/pkg/config"
	xhttp "CravePulse/pkg/http"
	pkgkafka "CravePulse/pkg/kafka"
	applogger "CravePulse/pkg/logger"
	"CravePulse/pkg/queue"
)

// App encapsulates the entire application lifecycle: ingestion (HTTP and
// Kafka), the prediction cycle queue, the periodic scheduler, and the
// realtime hub.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	queue      *queue.RedisQueue
	scheduler  *usecase.Scheduler
	ingest     *middleware.IngestPipeline
	hub        *realtime.Hub
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	q *queue.RedisQueue,
	scheduler *usecase.Scheduler,
	ingest *middleware.IngestPipeline,
	hub *realtime.Hub,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		logger:    lgr,
		chClient:  chClient,
		producer:  producer,
		consumer:  consumer,
		kh:        kh,
		queue:     q,
		scheduler: scheduler,
		ingest:    ingest,
		hub:       hub,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
	)

	// Ingest pipeline flushes buffered readings in the background
	a.ingest.Start(ctx)
	l.Info("ingest pipeline started")

	// Cycle queue workers and retry processor
	if err := a.queue.Start(); err != nil {
		l.Error("queue start error", applogger.Error(err))
		return err
	}

	// Kafka readings consumer
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Periodic scheduler enqueues one cycle per active subject
	a.scheduler.Start()
	l.Info("scheduler started",
		applogger.Duration("interval", a.cfg.Pipeline.SchedulerInterval))

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops services in dependency order: stop producing new work
// first, then drain, then close clients.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	a.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.queue.Stop(shutdownCtx); err != nil {
		l.Warn("queue stop error", applogger.Error(err))
	}

	// Flush anything still buffered before closing ClickHouse
	a.ingest.Stop()

	a.hub.Close()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
