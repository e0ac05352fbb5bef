// Package types defines the data shared by the monitor packages: runtime
// observations, the persisted per-container state and snapshot, and the
// notification intents produced by the reconciler.
package types
