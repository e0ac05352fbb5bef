package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/vigil/pkg/events"
	"github.com/cuemby/vigil/pkg/types"
)

const (
	// KindDocker selects the Docker Engine API
	KindDocker = "docker"

	// KindContainerd selects a containerd socket
	KindContainerd = "containerd"
)

// ErrUnsupportedRuntime is returned by New for an unknown runtime kind
var ErrUnsupportedRuntime = errors.New("unsupported container runtime")

// Inspector answers status queries and streams lifecycle events for
// containers of one runtime
type Inspector interface {
	// Inspect returns the current status and health of a container. A
	// container that does not exist yields types.NotFound() and no error.
	Inspect(ctx context.Context, name string) (types.Observation, error)

	// List returns the names of all containers known to the runtime
	List(ctx context.Context) ([]string, error)

	// Subscribe streams raw lifecycle events until ctx is cancelled or the
	// stream fails; a failure is delivered on the error channel, after
	// which the caller should subscribe again.
	Subscribe(ctx context.Context) (<-chan events.RawEvent, <-chan error)

	// Close releases the runtime connection
	Close() error
}

// HealthSource supplies health for containers whose runtime reports none
type HealthSource interface {
	Has(name string) bool
	Health(name string) types.Health
	Events() <-chan events.RawEvent
}

// Options selects and configures the runtime connection
type Options struct {
	Kind string

	// ContainerdAddress is the containerd socket path
	ContainerdAddress string

	// ContainerdNamespace is the namespace holding the monitored containers
	ContainerdNamespace string
}

// New connects to the configured runtime. When probes is non-nil, its
// health fills in for containers without a runtime health check.
func New(opts Options, probes HealthSource) (Inspector, error) {
	var (
		inspector Inspector
		err       error
	)

	switch opts.Kind {
	case "", KindDocker:
		inspector, err = NewDockerInspector()
	case KindContainerd:
		inspector, err = NewContainerdInspector(opts.ContainerdAddress, opts.ContainerdNamespace)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRuntime, opts.Kind)
	}
	if err != nil {
		return nil, err
	}

	if probes != nil {
		inspector = WithProbes(inspector, probes)
	}
	return inspector, nil
}

// probedInspector overlays probe health and probe events on an Inspector
type probedInspector struct {
	Inspector
	probes HealthSource
}

// WithProbes wraps inspector so that probe health is reported for running
// containers the runtime itself has no health check for
func WithProbes(inspector Inspector, probes HealthSource) Inspector {
	return &probedInspector{Inspector: inspector, probes: probes}
}

func (p *probedInspector) Inspect(ctx context.Context, name string) (types.Observation, error) {
	obs, err := p.Inspector.Inspect(ctx, name)
	if err != nil {
		return obs, err
	}
	if obs.Exists && obs.Health == types.HealthNone && p.probes.Has(name) {
		obs.Health = p.probes.Health(name)
	}
	return obs, nil
}

func (p *probedInspector) Subscribe(ctx context.Context) (<-chan events.RawEvent, <-chan error) {
	upstream, upErrs := p.Inspector.Subscribe(ctx)

	out := make(chan events.RawEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(out)

		forward := func(ev events.RawEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-upErrs:
				if err != nil {
					errs <- err
				}
				return
			case ev, ok := <-upstream:
				if !ok {
					return
				}
				if !forward(ev) {
					return
				}
			case ev := <-p.probes.Events():
				if !forward(ev) {
					return
				}
			}
		}
	}()

	return out, errs
}
