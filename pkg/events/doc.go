/*
Package events reduces runtime lifecycle events to re-observation hints.

A Filter accepts container events whose action is one of start, stop, die,
kill, pause, unpause, restart or a "health_status: ..." transition, and
whose container is monitored. Everything else is dropped.

Accepted hints go through a HintQueue, a bounded FIFO. Offer never blocks:
when the queue is full the incoming hint is discarded and counted in
vigil_hints_dropped_total. Dropping is safe because a hint carries no
state, and the periodic poll observes every container anyway.
*/
package events
