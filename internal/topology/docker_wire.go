package topology

import (
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/go-connections/nat"
)

func fromContainerSummary(c container.Summary) ContainerRecord {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	port, _ := publishedPort(c)
	return ContainerRecord{
		ID:      c.ID,
		Name:    name,
		Created: time.Unix(c.Created, 0),
		IP:      containerIP(c),
		Port:    port,
	}
}

// publishedPort returns the lowest host-published port of the container.
func publishedPort(c container.Summary) (uint16, bool) {
	best := uint16(0)
	for _, p := range c.Ports {
		if p.PublicPort == 0 {
			continue
		}
		if best == 0 || p.PublicPort < best {
			best = p.PublicPort
		}
	}
	return best, best != 0
}

func containerIP(c container.Summary) string {
	if c.NetworkSettings == nil {
		return ""
	}
	names := make([]string, 0, len(c.NetworkSettings.Networks))
	for name := range c.NetworkSettings.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if ep := c.NetworkSettings.Networks[name]; ep != nil && ep.IPAddress != "" {
			return ep.IPAddress
		}
	}
	return ""
}

// primaryExposedPort returns the lowest port the image declares as exposed.
// The set is unordered, so lowest-wins keeps rendered output deterministic.
func primaryExposedPort(img image.InspectResponse) (uint16, bool) {
	if img.Config == nil || len(img.Config.ExposedPorts) == 0 {
		return 0, false
	}
	best := 0
	for spec := range img.Config.ExposedPorts {
		p := nat.Port(spec).Int()
		if p <= 0 {
			continue
		}
		if best == 0 || p < best {
			best = p
		}
	}
	if best == 0 {
		return 0, false
	}
	return uint16(best), true
}

// serviceKeyFor derives the grouping key from the image's first repo tag,
// stripping any leading registry path and trailing tag. Untagged images have
// no key.
func serviceKeyFor(img image.InspectResponse) (string, bool) {
	if len(img.RepoTags) == 0 {
		return "", false
	}
	key := img.RepoTags[0]
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	if i := strings.LastIndex(key, ":"); i >= 0 {
		key = key[:i]
	}
	if key == "" || key == "<none>" {
		return "", false
	}
	return key, true
}
