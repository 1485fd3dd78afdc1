package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Veritas/internal/handler/api"
	"Veritas/internal/handler/realtime"
	"Veritas/internal/service/ratelimit"
	"Veritas/internal/usecase"
	"Veritas/pkg/config"
	xhttp "Veritas/pkg/http"
	pkgkafka "Veritas/pkg/kafka"
	applogger "Veritas/pkg/logger"
)

// Deps are the assembled components. Hub, Consumer, LogPublisher and Limiter may be nil.
type Deps struct {
	Config          *config.Config
	Logger          *applogger.Logger
	RiskHandler     *api.RiskEchoHandler
	Hub             *realtime.Hub
	Consumer        *pkgkafka.Consumer
	SnapshotHandler *usecase.SnapshotHandler
	LogPublisher    applogger.Publisher
	Limiter         *ratelimit.Limiter
}

// App encapsulates the entire application lifecycle.
type App struct {
	Deps
	httpServer *xhttp.Server
}

func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = applogger.Nop()
	}
	a := &App{Deps: d}
	a.httpServer = a.buildHTTPServer()
	return a
}

func (a *App) buildHTTPServer() *xhttp.Server {
	cfg := a.Config
	handlers := []xhttp.Handler{a.RiskHandler}
	if a.Hub != nil {
		handlers = append(handlers, a.Hub)
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithLogger(a.Logger),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, cfg.Server.SlowRequest))
	}
	if a.Limiter != nil {
		opts = append(opts, xhttp.WithRateLimiter(a.Limiter))
	}
	return xhttp.NewServer(handlers, opts...)
}

// HTTPServer exposes the configured server, mainly for tests.
func (a *App) HTTPServer() *xhttp.Server { return a.httpServer }

// Run starts every component and blocks until ctx ends, a signal arrives or
// the HTTP listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.LogPublisher != nil && a.Config.Kafka.LogsTopic != "" {
		a.Logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.Config.Kafka.LogsTopic,
			Publisher:      a.LogPublisher,
			PublishTimeout: 5 * time.Second,
		})
	}

	if a.Hub != nil {
		go a.Hub.Run(ctx)
	}

	if a.Consumer != nil && a.SnapshotHandler != nil {
		a.Consumer.RegisterHandler(a.SnapshotHandler)
		if err := a.Consumer.Start(); err != nil {
			a.Logger.Error("kafka consumer start failed", applogger.Error(err))
			return err
		}
	}

	if a.Limiter != nil {
		go a.sweepLimiter(ctx)
	}

	errCh := a.httpServer.Start()
	a.Logger.Info("veritas started",
		applogger.Int("port", a.Config.Server.Port),
		applogger.String("predictor", a.Config.Predictor.Mode),
		applogger.Bool("kafka", a.Config.Kafka.Enabled),
		applogger.Bool("realtime", a.Hub != nil),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			runErr = err
		}
	}
	stop()

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.Limiter.Sweep(); n > 0 {
				a.Logger.Debug("rate limiter swept", applogger.Int("keys", n))
			}
		}
	}
}

// shutdown stops intake first so in-flight work can still publish.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.Logger.Error("http shutdown failed", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.Consumer != nil {
		if err := a.Consumer.Stop(ctx); err != nil {
			a.Logger.Warn("kafka consumer stop failed", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	// Flushes pending aggregated logs while the publisher is still open.
	a.Logger.RemoveCollector()

	a.Logger.Info("shutdown complete")
	return errors.Join(errs...)
}
