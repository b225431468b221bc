package sigmux

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Kind identifies a decoded signal event.
type Kind int

const (
	KindNone Kind = iota
	KindInterrupt
	KindQuit
	KindTerminate
	KindHangup
	KindChild
)

func (k Kind) String() string {
	switch k {
	case KindInterrupt:
		return "interrupt"
	case KindQuit:
		return "quit"
	case KindTerminate:
		return "terminate"
	case KindHangup:
		return "hangup"
	case KindChild:
		return "child"
	default:
		return "none"
	}
}

// Multiplexer converts async OS signal delivery into a synchronously
// pollable event source. Delivery is one non-blocking channel send per
// signal; all handling logic runs in whoever calls Watch.
type Multiplexer struct {
	logger zerolog.Logger
	ch     chan os.Signal
}

func New(logger zerolog.Logger) *Multiplexer {
	// SIGCHLD can burst when children exit in quick succession; the buffer
	// absorbs the burst and the runtime drops the rest, which is harmless
	// since one event already triggers a full reap.
	ch := make(chan os.Signal, 64)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGCHLD)
	return &Multiplexer{
		logger: logger,
		ch:     ch,
	}
}

// Watch blocks until a signal arrives or the timeout elapses. It returns the
// decoded kind and true, or KindNone and false on timeout. Context
// cancellation is reported as a terminate event so both shutdown paths
// converge.
func (m *Multiplexer) Watch(ctx context.Context, timeout time.Duration) (Kind, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return KindTerminate, true
	case sig := <-m.ch:
		kind := kindOf(sig)
		m.logger.Debug().Stringer("signal", kind).Msg("Signal received")
		return kind, true
	case <-timer.C:
		return KindNone, false
	}
}

// Stop unregisters the signal handlers.
func (m *Multiplexer) Stop() {
	signal.Stop(m.ch)
}

func kindOf(sig os.Signal) Kind {
	switch sig {
	case syscall.SIGINT:
		return KindInterrupt
	case syscall.SIGQUIT:
		return KindQuit
	case syscall.SIGTERM:
		return KindTerminate
	case syscall.SIGHUP:
		return KindHangup
	case syscall.SIGCHLD:
		return KindChild
	default:
		return KindNone
	}
}
