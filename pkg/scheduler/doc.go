/*
Package scheduler drives the reconciliation engine.

Two producers feed a single worker goroutine:

	runtime events ──▶ Filter ──▶ HintQueue ──┐
	                                          ├──▶ worker ──▶ Engine ──▶ Notifier
	ticker (Interval) ────────────────────────┘

The worker handles one hint or one poll at a time. A hint triggers a fresh
Inspect of the named container; the event payload is never trusted as
state. A poll re-runs discovery and inspects every candidate.

# Startup

On Start the scheduler resolves the monitored containers, sends a startup
intent listing them when the list is non-empty, and reconciles all of
them before entering the loop. Containers that went down while the monitor
was stopped are therefore reported on the first pass.

# Event stream

The stream consumer subscribes to the runtime and pushes hints into the
bounded queue. When the queue is full the newest hint is dropped; the next
poll covers it. When the stream fails the consumer waits StreamBackoff and
subscribes again, counting each attempt in vigil_stream_reconnects_total
and marking the event_stream component unhealthy in between.

# Errors

An Inspect error skips that container for the current pass and leaves its
stored state untouched. The runtime component is marked unhealthy until a
pass succeeds again.

# Shutdown

Stop (or cancelling the context passed to Start) stops the consumer, waits
for the in-flight reconciliation and flushes the snapshot once more.
*/
package scheduler
