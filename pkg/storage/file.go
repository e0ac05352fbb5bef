package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultStatePath is where the snapshot lives when no path is configured
const DefaultStatePath = "/tmp/docker-monitor-state.json"

// FileStore keeps the snapshot as a single JSON document
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore creates a file-backed store, creating the parent directory
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultStatePath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &FileStore{
		path:   path,
		logger: log.WithComponent("storage"),
	}, nil
}

// Load reads the snapshot from disk
func (s *FileStore) Load() *types.Snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Failed to read state file, starting empty")
		}
		return types.NewSnapshot()
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("State file is malformed, starting empty")
		return types.NewSnapshot()
	}

	s.logger.Info().
		Int("containers", len(snap.Containers)).
		Str("path", s.path).
		Msg("Loaded monitor state")
	return snap
}

// Save writes the snapshot through a temp file and rename so that a crash
// mid-write leaves the previous document intact.
func (s *FileStore) Save(snap *types.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}

// decodeSnapshot parses a snapshot document, filling in names and a
// non-nil container map for documents written by older versions.
func decodeSnapshot(data []byte) (*types.Snapshot, error) {
	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}

	if snap.Containers == nil {
		snap.Containers = make(map[string]*types.ContainerState)
	}
	for name, state := range snap.Containers {
		if state == nil {
			delete(snap.Containers, name)
			continue
		}
		if state.Name == "" {
			state.Name = name
		}
	}
	return &snap, nil
}
