package storage

import (
	"fmt"

	"github.com/cuemby/vigil/pkg/types"
)

// Backend names accepted by New
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Store persists the monitor snapshot.
//
// Load never fails: a missing or unreadable state yields an empty snapshot,
// because the state can always be rebuilt by observing the containers again.
// Save reports write failures so the caller can log them; the in-memory
// snapshot stays authoritative either way.
type Store interface {
	Load() *types.Snapshot
	Save(snap *types.Snapshot) error
	Close() error
}

// New opens the store for the given backend
func New(backend, path string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(path)
	case BackendBolt:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unsupported state backend: %s", backend)
	}
}
