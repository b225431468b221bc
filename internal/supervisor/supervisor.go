package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/auto-proxy/docker-nginx-sync/internal/config"
	"github.com/rs/zerolog"
)

// Supervisor controls the external proxy process lifecycle: start, graceful
// reload, stop and opportunistic child reaping.
type Supervisor struct {
	logger zerolog.Logger
	cfg    *config.ProxyConfig
	handle *ProcessHandle
}

func New(cfg *config.ProxyConfig, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		logger: logger,
		cfg:    cfg,
		handle: NewProcessHandle(cfg.PidFile),
	}
}

// Running reports whether a live proxy process is tracked.
func (s *Supervisor) Running() bool {
	return s.handle.Refresh() > 0
}

// Start spawns the proxy executable and polls for liveness at short
// intervals up to a bounded number of attempts. It is a no-op when the
// process is already running.
func (s *Supervisor) Start(ctx context.Context) error {
	if pid := s.handle.Refresh(); pid > 0 {
		return nil
	}

	s.logger.Info().Str("command", s.cfg.Command).Msg("Starting proxy process")
	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.cfg.Command, err)
	}

	interval := time.Duration(s.cfg.StartIntervalMs) * time.Millisecond
	for attempt := 1; attempt <= s.cfg.StartAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if pid := s.handle.Refresh(); pid > 0 {
			s.logger.Info().Int("pid", pid).Msg("Proxy process running")
			return nil
		}
		s.logger.Debug().Int("attempt", attempt).Msg("Proxy process not up yet")
	}
	return fmt.Errorf("%s did not come up after %d attempts", s.cfg.Command, s.cfg.StartAttempts)
}

// Reload asks the running proxy to re-read its configuration. Fire and
// forget: liveness is not re-checked afterwards.
func (s *Supervisor) Reload() error {
	pid := s.handle.Refresh()
	if pid == 0 {
		s.logger.Debug().Msg("Reload requested but proxy is not running")
		return nil
	}
	s.logger.Info().Int("pid", pid).Msg("Reloading proxy process")
	if err := signalPid(pid, syscall.SIGHUP); err != nil && !processGone(err) {
		return fmt.Errorf("sending reload signal to pid %d: %w", pid, err)
	}
	return nil
}

// Stop terminates the proxy. A process that is already gone counts as
// stopped.
func (s *Supervisor) Stop() error {
	pid := s.handle.Refresh()
	if pid == 0 {
		return nil
	}
	s.logger.Info().Int("pid", pid).Msg("Stopping proxy process")
	if err := signalPid(pid, syscall.SIGTERM); err != nil && !processGone(err) {
		return fmt.Errorf("sending termination signal to pid %d: %w", pid, err)
	}
	s.handle.Forget()
	return nil
}

// Upgrade reloads a running proxy or starts a stopped one.
func (s *Supervisor) Upgrade(ctx context.Context) error {
	if s.Running() {
		return s.Reload()
	}
	return s.Start(ctx)
}

// Reap collects any exited children without blocking. No child to reap is a
// normal, silent outcome.
func (s *Supervisor) Reap() {
	for {
		var status syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &status, syscall.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return
		}
		s.logger.Debug().Int("pid", pid).Msg("Reaped child process")
	}
}

func signalPid(pid int, sig syscall.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}
