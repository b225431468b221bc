package app

import (
	"context"
	"fmt"

	"github.com/auto-proxy/docker-nginx-sync/internal/config"
	"github.com/auto-proxy/docker-nginx-sync/internal/core"
	"github.com/auto-proxy/docker-nginx-sync/internal/reconcile"
	"github.com/auto-proxy/docker-nginx-sync/internal/sigmux"
	"github.com/auto-proxy/docker-nginx-sync/internal/status"
	"github.com/auto-proxy/docker-nginx-sync/internal/supervisor"
	"github.com/auto-proxy/docker-nginx-sync/internal/topology"
	dockerCli "github.com/docker/docker/client"
	"github.com/rs/zerolog"
)

type App struct {
	dockerClient *dockerCli.Client
	engine       *core.Engine
	mux          *sigmux.Multiplexer
	status       *status.Server
	logger       zerolog.Logger
}

// New creates a new App by wiring up all dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	// Docker CLI
	dockerClient, err := dockerCli.NewClientWithOpts(dockerCli.FromEnv, dockerCli.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	builder := topology.NewBuilder(dockerClient, logger)
	reconciler := reconcile.New(reconcile.NewTemplateRenderer(), cfg.Templates.Dir, cfg.Templates.Suffix, logger)
	proxy := supervisor.New(&cfg.Proxy, logger)
	mux := sigmux.New(logger)

	var statusServer *status.Server
	var engine *core.Engine
	if cfg.Status.Enabled {
		statusServer = status.New(&cfg.Status, logger)
		engine = core.NewEngine(logger, &cfg.App, builder, reconciler, proxy, mux, statusServer)
	} else {
		engine = core.NewEngine(logger, &cfg.App, builder, reconciler, proxy, mux, nil)
	}

	return &App{
		dockerClient: dockerClient,
		engine:       engine,
		mux:          mux,
		status:       statusServer,
		logger:       logger,
	}, nil
}

// Run starts the application by running the reconciliation engine.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().Msg("Application starting")
	if a.status != nil {
		go func() {
			if err := a.status.Listen(); err != nil {
				a.logger.Error().Err(err).Msg("Status endpoint stopped")
			}
		}()
		defer func() {
			if err := a.status.Shutdown(); err != nil {
				a.logger.Error().Err(err).Msg("Status endpoint shutdown")
			}
		}()
	}
	defer a.mux.Stop()
	return a.engine.Run(ctx)
}

func (a *App) Close() error {
	if a.dockerClient != nil {
		if err := a.dockerClient.Close(); err != nil {
			return fmt.Errorf("close docker client: %w", err)
		}
	}
	return nil
}
