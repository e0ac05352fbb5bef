/*
Package runtime connects the monitor to a container runtime.

An Inspector answers three questions: what is the state of this container
(Inspect), which containers exist (List), and what is happening right now
(Subscribe). DockerInspector talks to the Docker Engine API through the
Docker SDK and honours DOCKER_HOST and friends. ContainerdInspector talks to
containerd over its socket and maps task events to the same lifecycle
actions Docker emits.

# Status mapping

	docker state      containerd task    Status
	running           running            running
	exited, dead      stopped            exited
	created           (no task)          stopped
	restarting        -                  restarting
	paused            paused, pausing    paused
	(not found)       (not found)        not_found
	anything else     anything else      unknown

containerd has no notion of container health. WithProbes overlays the
health reported by a health.Prober on any Inspector, and merges the
prober's transitions into the event stream.

# Discovery

Discovery selects the monitored containers: an explicit list when one is
configured, otherwise every container whose name starts with the prefix.
Explicit names are monitored even when the runtime does not know them;
they are reported as not_found.
*/
package runtime
