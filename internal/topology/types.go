package topology

import (
	"sort"
	"time"
)

const (
	// weightPrimary is assigned to the earliest-created container of a
	// service; the proxy skews traffic toward it.
	weightPrimary = 100
	// weightSecondary is assigned to every other container.
	weightSecondary = 1
)

// ContainerRecord is one backend endpoint derived from a live container.
type ContainerRecord struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
	IP      string    `json:"ip"`
	Port    uint16    `json:"port"`
	Weight  int       `json:"weight"`
}

// Service groups the containers of one proxy-routable backend set under a
// normalized image name.
type Service struct {
	Key        string            `json:"key"`
	ImageID    string            `json:"image_id"`
	Port       uint16            `json:"port"`
	Containers []ContainerRecord `json:"containers"`
}

// Topology maps service keys to their backend sets for one reconciliation
// cycle. It is rebuilt from scratch every cycle and never mutated afterwards.
type Topology map[string]*Service

// Services returns the services ordered lexically by key. Rendering iterates
// this order so identical topologies produce byte-identical output.
func (t Topology) Services() []*Service {
	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	services := make([]*Service, 0, len(keys))
	for _, key := range keys {
		services = append(services, t[key])
	}
	return services
}
