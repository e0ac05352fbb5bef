/*
Package metrics exposes Prometheus metrics and a component health registry.

All collectors are registered at init under the vigil_ namespace and served
by Handler. The Collector refreshes the container gauges from the engine
snapshot; the other metrics are updated inline by the packages that own
the event.

The component registry tracks the runtime, state_store, event_stream and
notifier components. Readiness requires runtime and state_store to be
healthy; the others only degrade /health.
*/
package metrics
