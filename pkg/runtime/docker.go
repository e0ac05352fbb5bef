package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/vigil/pkg/events"
	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/types"
	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	dockerevents "github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"
)

// dockerAPI is the subset of the Docker client the inspector uses
type dockerAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (dockertypes.ContainerJSON, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]dockertypes.Container, error)
	Events(ctx context.Context, options dockerevents.ListOptions) (<-chan dockerevents.Message, <-chan error)
	Close() error
}

// DockerInspector implements Inspector on the Docker Engine API
type DockerInspector struct {
	api    dockerAPI
	logger zerolog.Logger
}

// NewDockerInspector connects using the standard Docker environment
// (DOCKER_HOST, DOCKER_API_VERSION, DOCKER_CERT_PATH)
func NewDockerInspector() (*DockerInspector, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to docker: %w", err)
	}
	return newDockerInspector(cli), nil
}

func newDockerInspector(api dockerAPI) *DockerInspector {
	return &DockerInspector{
		api:    api,
		logger: log.WithComponent("runtime").With().Str("runtime", KindDocker).Logger(),
	}
}

// Inspect returns the container's state and health check status
func (d *DockerInspector) Inspect(ctx context.Context, name string) (types.Observation, error) {
	info, err := d.api.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return types.NotFound(), nil
		}
		return types.Observation{}, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}

	if info.ContainerJSONBase == nil || info.State == nil {
		return types.Observation{Status: types.StatusUnknown, Exists: true}, nil
	}

	obs := types.Observation{
		Status: dockerStatus(info.State.Status),
		Exists: true,
	}
	if info.State.Health != nil {
		obs.Health = dockerHealth(info.State.Health.Status)
	}
	return obs, nil
}

// List returns the names of all containers, running or not
func (d *DockerInspector) List(ctx context.Context) ([]string, error) {
	containers, err := d.api.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	names := make([]string, 0, len(containers))
	for _, c := range containers {
		if len(c.Names) == 0 {
			continue
		}
		names = append(names, strings.TrimPrefix(c.Names[0], "/"))
	}
	return names, nil
}

// Subscribe streams container events from the daemon
func (d *DockerInspector) Subscribe(ctx context.Context) (<-chan events.RawEvent, <-chan error) {
	msgs, errs := d.api.Events(ctx, dockerevents.ListOptions{
		Filters: filters.NewArgs(filters.Arg("type", string(dockerevents.ContainerEventType))),
	})

	out := make(chan events.RawEvent)
	outErrs := make(chan error, 1)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				if err != nil && ctx.Err() == nil {
					outErrs <- fmt.Errorf("docker event stream: %w", err)
				}
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- dockerRawEvent(msg):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	d.logger.Debug().Msg("Subscribed to docker events")
	return out, outErrs
}

// Close closes the Docker client
func (d *DockerInspector) Close() error {
	return d.api.Close()
}

func dockerRawEvent(msg dockerevents.Message) events.RawEvent {
	at := time.Unix(0, msg.TimeNano)
	if msg.TimeNano == 0 {
		at = time.Unix(msg.Time, 0)
	}
	return events.RawEvent{
		Category:   string(msg.Type),
		Action:     string(msg.Action),
		Attributes: msg.Actor.Attributes,
		Time:       at.UTC(),
	}
}

// dockerStatus maps State.Status onto the monitor vocabulary
func dockerStatus(s string) types.Status {
	switch s {
	case "running":
		return types.StatusRunning
	case "exited", "dead", "removing":
		return types.StatusExited
	case "created":
		return types.StatusStopped
	case "restarting":
		return types.StatusRestarting
	case "paused":
		return types.StatusPaused
	default:
		return types.StatusUnknown
	}
}

// dockerHealth maps State.Health.Status; "none" means no health check
func dockerHealth(s string) types.Health {
	switch s {
	case "healthy":
		return types.HealthHealthy
	case "unhealthy":
		return types.HealthUnhealthy
	case "starting":
		return types.HealthStarting
	default:
		return types.HealthNone
	}
}
