package core

import (
	"context"
	"time"

	"github.com/auto-proxy/docker-nginx-sync/internal/config"
	"github.com/auto-proxy/docker-nginx-sync/internal/sigmux"
	"github.com/rs/zerolog"
)

// Engine runs the reconciliation loop: snapshot the runtime, bring the
// rendered configuration in line, supervise the proxy, then wait for the
// next timer tick or signal.
type Engine struct {
	logger       zerolog.Logger
	pollInterval time.Duration
	childPause   time.Duration
	builder      topologyBuilder
	reconciler   configReconciler
	supervisor   proxySupervisor
	signals      signalSource
	sink         topologySink
}

func NewEngine(logger zerolog.Logger, cfg *config.AppConfig, builder topologyBuilder, reconciler configReconciler, supervisor proxySupervisor, signals signalSource, sink topologySink) *Engine {
	return &Engine{
		logger:       logger,
		pollInterval: time.Duration(cfg.PollInterval) * time.Second,
		childPause:   time.Second,
		builder:      builder,
		reconciler:   reconciler,
		supervisor:   supervisor,
		signals:      signals,
		sink:         sink,
	}
}

// Run loops until an interrupt, quit or terminate signal arrives, then stops
// the proxy and returns. Every error inside an iteration is logged and the
// loop keeps going; availability beats crash-on-error here.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info().Dur("poll_interval", e.pollInterval).Msg("Starting reconciliation loop")

	for {
		e.reconcile(ctx, false)
		e.ensureStarted(ctx)

		kind, ok := e.signals.Watch(ctx, e.pollInterval)
		if !ok {
			continue
		}
		switch kind {
		case sigmux.KindInterrupt, sigmux.KindQuit, sigmux.KindTerminate:
			e.logger.Info().Stringer("signal", kind).Msg("Shutting down")
			if err := e.supervisor.Stop(); err != nil {
				e.logger.Error().Err(err).Msg("Stopping proxy process")
			}
			return nil
		case sigmux.KindHangup:
			e.logger.Info().Msg("Forced update requested")
			e.reconcile(ctx, true)
			e.ensureStarted(ctx)
		case sigmux.KindChild:
			e.supervisor.Reap()
			// An exit-looping child would otherwise wake us continuously.
			time.Sleep(e.childPause)
		}
	}
}

// reconcile performs one build-render-write-reload pass. When forced, the
// proxy is reloaded exactly once regardless of whether any content changed;
// a render failure still suppresses the reload.
func (e *Engine) reconcile(ctx context.Context, forced bool) {
	topo, err := e.builder.Build(ctx)
	if err != nil {
		// Skip the write rather than render an empty topology over a
		// perfectly good configuration.
		e.logger.Error().Err(err).Msg("Building topology")
		return
	}
	if e.sink != nil {
		e.sink.Publish(topo)
	}

	changed, err := e.reconciler.Reconcile(topo)
	switch {
	case err != nil:
		e.logger.Error().Err(err).Msg("Configuration reconciliation aborted")
	case forced:
		if err := e.supervisor.Reload(); err != nil {
			e.logger.Error().Err(err).Msg("Reloading proxy process")
		}
	case changed:
		if err := e.supervisor.Upgrade(ctx); err != nil {
			e.logger.Error().Err(err).Msg("Upgrading proxy process")
		}
	}
}

// ensureStarted restarts a proxy that died since the last iteration; a no-op
// while it is running.
func (e *Engine) ensureStarted(ctx context.Context) {
	if err := e.supervisor.Start(ctx); err != nil {
		e.logger.Error().Err(err).Msg("Starting proxy process")
	}
}
