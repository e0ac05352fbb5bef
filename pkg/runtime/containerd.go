package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/containerd/containerd"
	apievents "github.com/containerd/containerd/api/events"
	"github.com/containerd/containerd/errdefs"
	ctrdevents "github.com/containerd/containerd/events"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/typeurl/v2"
	"github.com/cuemby/vigil/pkg/events"
	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/types"
	"github.com/rs/zerolog"
)

const (
	// DefaultNamespace is the containerd namespace watched by default
	DefaultNamespace = "default"

	// DefaultSocketPath is the default containerd socket
	DefaultSocketPath = "/run/containerd/containerd.sock"

	// taskTopics matches the task lifecycle topics
	taskTopics = `topic~="^/tasks/"`
)

// topicActions maps containerd task topics to lifecycle actions
var topicActions = map[string]string{
	"/tasks/start":   "start",
	"/tasks/exit":    "die",
	"/tasks/delete":  "stop",
	"/tasks/paused":  "pause",
	"/tasks/resumed": "unpause",
	"/tasks/oom":     "kill",
}

// ContainerdInspector implements Inspector on a containerd socket. The
// containerd container ID is used as the container name.
type ContainerdInspector struct {
	client    *containerd.Client
	namespace string
	logger    zerolog.Logger
}

// NewContainerdInspector creates a new containerd runtime client
func NewContainerdInspector(socketPath, namespace string) (*ContainerdInspector, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to containerd: %w", err)
	}

	return &ContainerdInspector{
		client:    client,
		namespace: namespace,
		logger: log.WithComponent("runtime").With().
			Str("runtime", KindContainerd).
			Str("namespace", namespace).
			Logger(),
	}, nil
}

// Close closes the containerd client connection
func (r *ContainerdInspector) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Inspect returns the task status of a container. containerd has no
// health checks; health comes from configured probes, if any.
func (r *ContainerdInspector) Inspect(ctx context.Context, name string) (types.Observation, error) {
	ctx = namespaces.WithNamespace(ctx, r.namespace)

	container, err := r.client.LoadContainer(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return types.NotFound(), nil
		}
		return types.Observation{}, fmt.Errorf("failed to load container %s: %w", name, err)
	}

	task, err := container.Task(ctx, nil)
	if err != nil {
		if errdefs.IsNotFound(err) {
			// No task means the container is not running
			return types.Observation{Status: types.StatusStopped, Exists: true}, nil
		}
		return types.Observation{}, fmt.Errorf("failed to get task for %s: %w", name, err)
	}

	status, err := task.Status(ctx)
	if err != nil {
		return types.Observation{}, fmt.Errorf("failed to get task status for %s: %w", name, err)
	}

	return types.Observation{Status: taskStatus(status.Status), Exists: true}, nil
}

// List returns all container IDs in the namespace
func (r *ContainerdInspector) List(ctx context.Context) ([]string, error) {
	ctx = namespaces.WithNamespace(ctx, r.namespace)

	containers, err := r.client.Containers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	ids := make([]string, 0, len(containers))
	for _, c := range containers {
		ids = append(ids, c.ID())
	}

	return ids, nil
}

// Subscribe streams task events of the namespace as lifecycle events
func (r *ContainerdInspector) Subscribe(ctx context.Context) (<-chan events.RawEvent, <-chan error) {
	envelopes, errs := r.client.Subscribe(ctx, taskTopics)

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
					outErrs <- fmt.Errorf("containerd event stream: %w", err)
				}
				return
			case env, ok := <-envelopes:
				if !ok {
					return
				}
				if env.Namespace != r.namespace {
					continue
				}
				ev, ok := r.rawEvent(env)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	r.logger.Debug().Msg("Subscribed to containerd events")
	return out, outErrs
}

func (r *ContainerdInspector) rawEvent(env *ctrdevents.Envelope) (events.RawEvent, bool) {
	action, ok := topicActions[env.Topic]
	if !ok {
		return events.RawEvent{}, false
	}

	decoded, err := typeurl.UnmarshalAny(env.Event)
	if err != nil {
		r.logger.Warn().Err(err).Str("topic", env.Topic).Msg("Failed to decode containerd event")
		return events.RawEvent{}, false
	}

	id, ok := taskContainerID(decoded)
	if !ok {
		return events.RawEvent{}, false
	}

	return newTaskEvent(action, id, env.Timestamp), true
}

func newTaskEvent(action, id string, at time.Time) events.RawEvent {
	return events.RawEvent{
		Category:   events.CategoryContainer,
		Action:     action,
		Attributes: map[string]string{"name": id},
		Time:       at.UTC(),
	}
}

// taskContainerID extracts the container ID from a decoded task event
func taskContainerID(v interface{}) (string, bool) {
	switch e := v.(type) {
	case *apievents.TaskStart:
		return e.ContainerID, true
	case *apievents.TaskExit:
		return e.ContainerID, true
	case *apievents.TaskDelete:
		return e.ContainerID, true
	case *apievents.TaskPaused:
		return e.ContainerID, true
	case *apievents.TaskResumed:
		return e.ContainerID, true
	case *apievents.TaskOOM:
		return e.ContainerID, true
	default:
		return "", false
	}
}

// taskStatus maps a containerd process status onto the monitor vocabulary
func taskStatus(s containerd.ProcessStatus) types.Status {
	switch s {
	case containerd.Running:
		return types.StatusRunning
	case containerd.Stopped:
		return types.StatusExited
	case containerd.Paused, containerd.Pausing:
		return types.StatusPaused
	case containerd.Created:
		return types.StatusStopped
	default:
		return types.StatusUnknown
	}
}
