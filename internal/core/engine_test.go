package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/auto-proxy/docker-nginx-sync/internal/config"
	"github.com/auto-proxy/docker-nginx-sync/internal/sigmux"
	"github.com/auto-proxy/docker-nginx-sync/internal/topology"
	"github.com/rs/zerolog"
)

type fakeBuilder struct {
	topo   topology.Topology
	err    error
	builds int
}

func (f *fakeBuilder) Build(_ context.Context) (topology.Topology, error) {
	f.builds++
	return f.topo, f.err
}

type fakeReconciler struct {
	changed []bool
	err     error
	calls   int
}

func (f *fakeReconciler) Reconcile(_ topology.Topology) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if f.calls <= len(f.changed) {
		return f.changed[f.calls-1], nil
	}
	return false, nil
}

type fakeSupervisor struct {
	starts   int
	reloads  int
	stops    int
	upgrades int
	reaps    int
}

func (f *fakeSupervisor) Start(_ context.Context) error   { f.starts++; return nil }
func (f *fakeSupervisor) Reload() error                   { f.reloads++; return nil }
func (f *fakeSupervisor) Stop() error                     { f.stops++; return nil }
func (f *fakeSupervisor) Upgrade(_ context.Context) error { f.upgrades++; return nil }
func (f *fakeSupervisor) Reap()                           { f.reaps++ }

// fakeSignals replays a scripted event sequence; KindNone entries are
// reported as timeouts. The script always ends in terminate so Run returns.
type fakeSignals struct {
	events []sigmux.Kind
	i      int
}

func (f *fakeSignals) Watch(_ context.Context, _ time.Duration) (sigmux.Kind, bool) {
	if f.i >= len(f.events) {
		return sigmux.KindTerminate, true
	}
	kind := f.events[f.i]
	f.i++
	if kind == sigmux.KindNone {
		return kind, false
	}
	return kind, true
}

func newTestEngine(b *fakeBuilder, r *fakeReconciler, s *fakeSupervisor, sig *fakeSignals) *Engine {
	e := NewEngine(zerolog.Nop(), &config.AppConfig{PollInterval: 1}, b, r, s, sig, nil)
	e.childPause = 0
	return e
}

func TestRunTerminateStopsProxy(t *testing.T) {
	b := &fakeBuilder{topo: topology.Topology{}}
	r := &fakeReconciler{}
	s := &fakeSupervisor{}
	sig := &fakeSignals{events: []sigmux.Kind{sigmux.KindTerminate}}

	if err := newTestEngine(b, r, s, sig).Run(context.Background()); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
	if s.stops != 1 {
		t.Errorf("got %d stops, want 1", s.stops)
	}
	if r.calls != 1 {
		t.Errorf("got %d reconciles before shutdown, want 1", r.calls)
	}
	if s.starts != 1 {
		t.Errorf("got %d start attempts, want 1", s.starts)
	}
}

func TestRunTimeoutLoopsAgain(t *testing.T) {
	b := &fakeBuilder{topo: topology.Topology{}}
	r := &fakeReconciler{}
	s := &fakeSupervisor{}
	sig := &fakeSignals{events: []sigmux.Kind{sigmux.KindNone, sigmux.KindNone, sigmux.KindTerminate}}

	if err := newTestEngine(b, r, s, sig).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if b.builds != 3 {
		t.Errorf("got %d builds, want 3 (one per timer tick)", b.builds)
	}
}

func TestRunHangupForcesSingleReload(t *testing.T) {
	b := &fakeBuilder{topo: topology.Topology{}}
	// Content changes during the forced pass; the reload must still happen
	// exactly once, not once per upgrade plus once unconditionally.
	r := &fakeReconciler{changed: []bool{false, true}}
	s := &fakeSupervisor{}
	sig := &fakeSignals{events: []sigmux.Kind{sigmux.KindHangup, sigmux.KindTerminate}}

	if err := newTestEngine(b, r, s, sig).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r.calls != 3 {
		t.Errorf("got %d reconciles, want 3 (initial, forced, post-hangup iteration)", r.calls)
	}
	if s.reloads != 1 {
		t.Errorf("got %d reloads, want exactly 1", s.reloads)
	}
	if s.upgrades != 0 {
		t.Errorf("got %d upgrades during forced pass, want 0", s.upgrades)
	}
}

func TestRunChangeTriggersUpgrade(t *testing.T) {
	b := &fakeBuilder{topo: topology.Topology{}}
	r := &fakeReconciler{changed: []bool{true}}
	s := &fakeSupervisor{}
	sig := &fakeSignals{events: []sigmux.Kind{sigmux.KindTerminate}}

	if err := newTestEngine(b, r, s, sig).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.upgrades != 1 {
		t.Errorf("got %d upgrades, want 1", s.upgrades)
	}
	if s.reloads != 0 {
		t.Errorf("got %d direct reloads, want 0", s.reloads)
	}
}

func TestRunRenderFailureSuppressesReload(t *testing.T) {
	b := &fakeBuilder{topo: topology.Topology{}}
	r := &fakeReconciler{err: errors.New("template: broken")}
	s := &fakeSupervisor{}
	sig := &fakeSignals{events: []sigmux.Kind{sigmux.KindHangup, sigmux.KindTerminate}}

	if err := newTestEngine(b, r, s, sig).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.reloads != 0 || s.upgrades != 0 {
		t.Errorf("got %d reloads and %d upgrades on render failure, want 0/0", s.reloads, s.upgrades)
	}
	// The loop keeps running and still tries to keep the proxy up: once per
	// iteration plus once after the forced pass.
	if s.starts != 3 {
		t.Errorf("got %d start attempts, want 3", s.starts)
	}
}

func TestRunBuildFailureSkipsReconcile(t *testing.T) {
	b := &fakeBuilder{err: errors.New("daemon unavailable")}
	r := &fakeReconciler{}
	s := &fakeSupervisor{}
	sig := &fakeSignals{events: []sigmux.Kind{sigmux.KindTerminate}}

	if err := newTestEngine(b, r, s, sig).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r.calls != 0 {
		t.Errorf("got %d reconciles after build failure, want 0", r.calls)
	}
	if s.starts != 1 {
		t.Errorf("got %d start attempts, want 1", s.starts)
	}
}

func TestRunChildDeathReaps(t *testing.T) {
	b := &fakeBuilder{topo: topology.Topology{}}
	r := &fakeReconciler{}
	s := &fakeSupervisor{}
	sig := &fakeSignals{events: []sigmux.Kind{sigmux.KindChild, sigmux.KindTerminate}}

	if err := newTestEngine(b, r, s, sig).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.reaps != 1 {
		t.Errorf("got %d reaps, want 1", s.reaps)
	}
}
