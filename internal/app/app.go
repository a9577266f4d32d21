// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Corphon/CampaignDesk/internal/api"
	"github.com/Corphon/CampaignDesk/internal/backend"
	"github.com/Corphon/CampaignDesk/internal/config"
	"github.com/Corphon/CampaignDesk/internal/di"
	"github.com/Corphon/CampaignDesk/internal/platform"
	"github.com/Corphon/CampaignDesk/internal/render"
	"github.com/Corphon/CampaignDesk/internal/utils"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"github.com/gin-gonic/gin"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// App wires the console server together.
type App struct {
	config    *config.Config
	logger    *utils.Logger
	container *di.Container
	router    *gin.Engine
	server    *http.Server
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// BuildServices registers the services shared by the server and the CLI:
// config, logger, metrics, backend client and platform table.
func BuildServices(cfg *config.Config, logger *utils.Logger) (*di.Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = utils.GetLogger()
	}

	metrics := utils.NewMetrics()

	platforms, err := platform.Load(cfg.PlatformsFile)
	if err != nil {
		return nil, fmt.Errorf("load platforms: %w", err)
	}

	client, err := backend.NewClient(backend.Options{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		Logger:  logger.Logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	c := di.NewContainer()
	c.Register(di.ServiceConfig, cfg)
	c.Register(di.ServiceLogger, logger)
	c.Register(di.ServiceMetrics, metrics)
	c.Register(di.ServiceBackend, backend.API(client))
	c.Register(di.ServicePlatforms, platforms)
	return c, nil
}

// SessionFactory builds workflow sessions from the registered services.
func SessionFactory(c *di.Container) (workflow.Factory, error) {
	cfg, err := di.Resolve[*config.Config](c, di.ServiceConfig)
	if err != nil {
		return nil, err
	}
	logger, err := di.Resolve[*utils.Logger](c, di.ServiceLogger)
	if err != nil {
		return nil, err
	}
	metrics, err := di.Resolve[*utils.Metrics](c, di.ServiceMetrics)
	if err != nil {
		return nil, err
	}
	client, err := di.Resolve[backend.API](c, di.ServiceBackend)
	if err != nil {
		return nil, err
	}
	platforms, err := di.Resolve[*platform.Registry](c, di.ServicePlatforms)
	if err != nil {
		return nil, err
	}

	return func(id string) *workflow.Session {
		return workflow.NewSession(workflow.Options{
			ID:                    id,
			Backend:               client,
			Platforms:             platforms,
			DiscardStaleResponses: cfg.DiscardStaleResponses,
			Logger:                logger.Logger,
			Metrics:               metrics,
		})
	}, nil
}

// RenderOptions derives render settings from the config.
func RenderOptions(cfg *config.Config) (render.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return render.Options{}, err
	}
	return render.Options{Location: loc, TimestampLayout: cfg.TimestampLayout}, nil
}

// New builds the server. Services may be pre-registered in c (tests swap
// the backend this way); nil builds them from cfg.
func New(cfg *config.Config, logger *utils.Logger, c *di.Container) (*App, error) {
	if logger == nil {
		logger = utils.GetLogger()
	}
	if c == nil {
		var err error
		if c, err = BuildServices(cfg, logger); err != nil {
			return nil, err
		}
	}
	if err := c.Require(di.ServiceConfig, di.ServiceLogger, di.ServiceMetrics, di.ServiceBackend, di.ServicePlatforms); err != nil {
		return nil, err
	}

	factory, err := SessionFactory(c)
	if err != nil {
		return nil, err
	}
	metrics, _ := di.Resolve[*utils.Metrics](c, di.ServiceMetrics)
	platforms, _ := di.Resolve[*platform.Registry](c, di.ServicePlatforms)

	sessions := workflow.NewManager(factory, func(active int) {
		metrics.ActiveSessions.Set(float64(active))
	})
	hub := api.NewWebSocketManager(logger.Logger, metrics)
	c.Register(di.ServiceSessions, sessions)
	c.Register(di.ServiceHub, hub)

	renderOpts, err := RenderOptions(cfg)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(api.HandlerOptions{
		Sessions:    sessions,
		Platforms:   platforms,
		Render:      renderOpts,
		Concurrency: cfg.SpecializeConcurrency,
		Hub:         hub,
		Logger:      logger.Logger,
	})
	router, err := api.SetupRouter(api.RouterOptions{
		Handler:   handler,
		Sessions:  sessions,
		Metrics:   metrics,
		Logger:    logger.Logger,
		DebugMode: cfg.DebugMode,
	})
	if err != nil {
		return nil, fmt.Errorf("setup router: %w", err)
	}

	return &App{
		config:    cfg,
		logger:    logger,
		container: c,
		router:    router,
		stopChan:  make(chan struct{}),
	}, nil
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler { return a.router }

// Container returns the service container.
func (a *App) Container() *di.Container { return a.container }

// Run serves on cfg.Port until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.config.Port)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", a.config.Port, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	sessions, err := di.Resolve[*workflow.Manager](a.container, di.ServiceSessions)
	if err != nil {
		return err
	}
	hub, err := di.Resolve[*api.WebSocketManager](a.container, di.ServiceHub)
	if err != nil {
		return err
	}

	go hub.Run()
	sessions.StartCleanup(cleanupInterval(a.config.SessionTTL), a.config.SessionTTL, a.stopChan)

	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	a.logger.Info("console server started", utils.Fields{
		"addr":    ln.Addr().String(),
		"backend": a.config.BackendURL,
	})

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			a.stop(hub)
			return fmt.Errorf("server failed: %w", err)
		}
	}

	a.logger.Info("shutting down console server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	// websockets are hijacked connections, close them before waiting on requests
	a.stop(hub)
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	a.logger.Info("console server stopped", nil)
	return nil
}

func (a *App) stop(hub *api.WebSocketManager) {
	a.stopOnce.Do(func() {
		close(a.stopChan)
		hub.Shutdown()
	})
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}
