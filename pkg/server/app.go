package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HypeRadar/internal/domain/models"
	"HypeRadar/internal/handler/ws"
	"HypeRadar/internal/usecase"
	"HypeRadar/pkg/config"
	xhttp "HypeRadar/pkg/http"
	pkgkafka "HypeRadar/pkg/kafka"
	applogger "HypeRadar/pkg/logger"
	"HypeRadar/pkg/queue"
)

// App encapsulates the application lifecycle. Consumer and queue are nil
// when their backends are not configured.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	scheduler  *usecase.Scheduler
	hub        *ws.Hub
	cycle      *usecase.RefreshCycle
	consumer   *pkgkafka.Consumer
	queue      *queue.RedisQueue
}

func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	hub *ws.Hub,
	cycle *usecase.RefreshCycle,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		scheduler:  scheduler,
		hub:        hub,
		cycle:      cycle,
		consumer:   consumer,
		queue:      q,
	}
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.queue != nil {
		if err := a.queue.Start(runCtx); err != nil {
			return err
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Start(runCtx); err != nil {
			a.stopQueue(context.Background())
			return err
		}
	}
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	if err := a.scheduler.Start(runCtx); err != nil {
		a.shutdown()
		return err
	}
	a.l.Info("hyperadar started",
		applogger.Int("tickers", len(a.cfg.Watchlist)),
		applogger.String("store", a.cfg.Store.Type),
		applogger.String("backend", a.cfg.Backend.Type),
	)

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// RunOnce runs a single refresh cycle without starting the servers.
func (a *App) RunOnce(ctx context.Context) (*models.CycleReport, error) {
	return a.cycle.Run(ctx)
}

// shutdown stops producers of work first: the scheduler, then inbound
// HTTP and websocket traffic, then background consumers.
func (a *App) shutdown() error {
	timeout := a.httpServer.ShutdownTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.scheduler.Stop(ctx); err != nil {
		a.l.Warn("scheduler stop error", applogger.Error(err))
		errs = append(errs, err)
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if err := a.hub.Close(); err != nil {
		a.l.Warn("websocket hub close error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.stopQueue(ctx)

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) stopQueue(ctx context.Context) {
	if a.queue == nil {
		return
	}
	if err := a.queue.Stop(ctx); err != nil {
		a.l.Warn("notify queue stop error", applogger.Error(err))
	}
}
