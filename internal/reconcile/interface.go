package reconcile

import "github.com/auto-proxy/docker-nginx-sync/internal/topology"

type renderer interface {
	Render(name string, src []byte, topo topology.Topology) ([]byte, error)
}
