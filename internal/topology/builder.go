package topology

import (
	"context"
	"fmt"
	"sort"

	"github.com/docker/docker/api/types/container"
	"github.com/rs/zerolog"
)

// Builder snapshots the container runtime into a weighted service topology.
type Builder struct {
	logger zerolog.Logger
	cli    dockerClient
}

func NewBuilder(cli dockerClient, logger zerolog.Logger) *Builder {
	return &Builder{
		logger: logger,
		cli:    cli,
	}
}

// Build lists running containers, resolves each to its image and groups the
// survivors into services. Containers whose image cannot be resolved, whose
// image exposes no ports, or which publish no ports themselves are skipped,
// never fatal.
func (b *Builder) Build(ctx context.Context) (Topology, error) {
	containers, err := b.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	topo := Topology{}
	for _, c := range containers {
		if _, ok := publishedPort(c); !ok {
			b.logger.Debug().Str("container", c.ID).Msg("Skipping container with no published ports")
			continue
		}
		img, err := b.cli.ImageInspect(ctx, c.ImageID)
		if err != nil {
			b.logger.Debug().Err(err).Str("container", c.ID).Msg("Skipping container with unresolvable image")
			continue
		}
		port, ok := primaryExposedPort(img)
		if !ok {
			b.logger.Debug().Str("container", c.ID).Str("image", img.ID).Msg("Skipping container whose image exposes no ports")
			continue
		}
		key, ok := serviceKeyFor(img)
		if !ok {
			b.logger.Debug().Str("container", c.ID).Str("image", img.ID).Msg("Skipping container with untagged image")
			continue
		}

		record := fromContainerSummary(c)
		if svc, exists := topo[key]; exists {
			if svc.ImageID != img.ID {
				b.logger.Warn().
					Str("service", key).
					Str("previous_image", svc.ImageID).
					Str("image", img.ID).
					Msg("Multiple images share a service key; representative image overwritten")
			}
			svc.ImageID = img.ID
			svc.Port = port
			svc.Containers = append(svc.Containers, record)
		} else {
			topo[key] = &Service{
				Key:        key,
				ImageID:    img.ID,
				Port:       port,
				Containers: []ContainerRecord{record},
			}
		}
	}

	for _, svc := range topo {
		orderAndWeight(svc)
	}
	return topo, nil
}

// orderAndWeight sorts a service's containers by creation time ascending and
// assigns the blue/green weights: earliest container 100, the rest 1.
func orderAndWeight(svc *Service) {
	sort.SliceStable(svc.Containers, func(i, j int) bool {
		a, b := svc.Containers[i], svc.Containers[j]
		if a.Created.Equal(b.Created) {
			return a.ID < b.ID
		}
		return a.Created.Before(b.Created)
	})
	for i := range svc.Containers {
		if i == 0 {
			svc.Containers[i].Weight = weightPrimary
		} else {
			svc.Containers[i].Weight = weightSecondary
		}
	}
}
