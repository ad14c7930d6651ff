package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/infra/config"
	kafkainfra "github.com/arklim/residency-registry/internal/infra/kafka"
	"github.com/arklim/residency-registry/internal/infra/logger"
	"github.com/arklim/residency-registry/internal/infra/telemetry"
	"github.com/arklim/residency-registry/internal/transport/http/middleware"
	"github.com/arklim/residency-registry/internal/transport/http/routes"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	stores   *Stores
	producer io.Closer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	stores, err := OpenStores(ctx, cfg, log)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}

	app := &Application{cfg: cfg, logger: log, stores: stores, tracer: tracer}
	publisher, producer := newPublisher(cfg, log)
	app.producer = producer

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		app.release()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	services, err := NewServices(cfg, stores, publisher, metrics, log)
	if err != nil {
		app.release()
		return nil, err
	}

	var throttle *middleware.Throttle
	if stores.Attempts != nil {
		throttle = middleware.NewThrottle(stores.Attempts, log)
	}

	app.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Throttle:    throttle,
		HTTPMetrics: httpMetrics,
		Metrics:     metrics,
		Gatherer:    prometheus.DefaultGatherer,
		Services:    services,
		Store:       stores.Checker,
	})

	return app, nil
}

// newPublisher falls back to the stub publisher when no brokers are configured or the dial fails.
// The returned closer is nil for the stub.
var newPublisher = func(cfg *config.AppConfig, log *zap.Logger) (port.EventPublisher, io.Closer) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(log), nil
	}

	producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log), nil
	}
	log.Info("kafka activity publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	return kafkainfra.NewActivityPublisher(producer, cfg.App, log), producer
}

func (a *Application) Run(ctx context.Context) error {
	defer a.release()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting registry API",
		zap.String("env", a.cfg.App.Env),
		zap.String("store", a.cfg.Store.Driver),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// release closes everything New opened, publisher first.
func (a *Application) release() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("producer close failed", zap.Error(err))
		}
	}
	a.stores.Close()
	if err := a.tracer.Shutdown(context.Background()); err != nil {
		a.logger.Warn("tracer shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
