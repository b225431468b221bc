package core

import (
	"context"
	"time"

	"github.com/auto-proxy/docker-nginx-sync/internal/sigmux"
	"github.com/auto-proxy/docker-nginx-sync/internal/topology"
)

type topologyBuilder interface {
	Build(ctx context.Context) (topology.Topology, error)
}

type configReconciler interface {
	Reconcile(topo topology.Topology) (bool, error)
}

type proxySupervisor interface {
	Start(ctx context.Context) error
	Reload() error
	Stop() error
	Upgrade(ctx context.Context) error
	Reap()
}

type signalSource interface {
	Watch(ctx context.Context, timeout time.Duration) (sigmux.Kind, bool)
}

type topologySink interface {
	Publish(topo topology.Topology)
}
