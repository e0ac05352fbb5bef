/*
Package reconciler turns container observations into notification intents.

The Engine owns the monitor snapshot: one ContainerState per monitored
container plus the time of the last update. Every observation, whether it
comes from the periodic poll or from a runtime event, goes through the same
transition function, so the two producers can never disagree about what
was already announced.

# Architecture

	┌──────────── Scheduler worker ────────────┐
	│  poll tick            event hint          │
	│      │                    │               │
	│      ▼                    ▼               │
	│  Inspect(all)        Inspect(name)        │
	│      │                    │               │
	│      └───────┬────────────┘               │
	│              ▼                            │
	│   Engine.ReconcileBatch / Reconcile       │
	│              │                            │
	│     ┌────────┴────────┐                   │
	│     ▼                 ▼                   │
	│  Store.Save        []*Intent ─────▶ Notifier
	└───────────────────────────────────────────┘

# Transitions

A container is available when its status is running and its health is
either absent or healthy. Comparing the stored state with a new
observation yields at most one intent:

	previous       observed       intent       downtimeStart
	(unknown)      available      none         nil
	(unknown)      unavailable    down         now
	available      unavailable    down         now
	unavailable    available      recovered    nil
	same avail.    new status     changed      unchanged
	same avail.    same status    none         unchanged

The changed intent is suppressed when the new status equals LastStatus, the
last status that was announced. This stops a container that flaps between
two unavailable states from producing a message on every poll.

Recovered intents carry the downtime in whole seconds, measured from
downtimeStart. A record without downtimeStart recovers with zero downtime.
After classification the engine repairs downtimeStart so that it is set
exactly when the container is unavailable.

# Ordering

lastCheck never moves backwards. An observation whose timestamp is older
than the stored lastCheck is evaluated at lastCheck instead, which keeps
downtime non-negative when a slow inspect races a later poll.

# Persistence

The snapshot is saved after every Reconcile and once per ReconcileBatch.
A failed save is logged and counted in vigil_state_save_failures_total;
the in-memory snapshot stays authoritative and the next save writes it
again.

# Usage

	store, _ := storage.NewFileStore("/var/lib/vigil/state.json")
	engine := reconciler.NewEngine(store)

	intent := engine.Reconcile("shop_bi_api", obs, time.Now())
	if intent != nil {
		notifier.Notify(ctx, *intent)
	}

Engine methods are safe for concurrent use, but the scheduler calls them
from a single goroutine so that reconciliations of one container are
applied in the order they were observed.

# See Also

  - pkg/scheduler for the poll and event producers
  - pkg/storage for the snapshot document format
  - pkg/notify for intent rendering
*/
package reconciler
