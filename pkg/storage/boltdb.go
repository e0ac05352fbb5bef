package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/types"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketContainers = []byte("containers")
	bucketMeta       = []byte("meta")

	keyLastUpdate = []byte("last_update")
)

// BoltStore keeps the snapshot in a BoltDB file, one key per container
type BoltStore struct {
	db     *bolt.DB
	logger zerolog.Logger
}

// NewBoltStore opens (or creates) the database at path
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "vigil.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketContainers, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{
		db:     db,
		logger: log.WithComponent("storage"),
	}, nil
}

// Load reads every container record; any undecodable record discards the
// whole snapshot so that partial state is never mixed with fresh observations.
func (s *BoltStore) Load() *types.Snapshot {
	snap := types.NewSnapshot()

	err := s.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(bucketMeta).Get(keyLastUpdate); raw != nil {
			if err := snap.LastUpdate.UnmarshalText(raw); err != nil {
				return fmt.Errorf("invalid last_update: %w", err)
			}
		}

		return tx.Bucket(bucketContainers).ForEach(func(k, v []byte) error {
			var state types.ContainerState
			if err := json.Unmarshal(v, &state); err != nil {
				return fmt.Errorf("invalid record %s: %w", k, err)
			}
			if state.Name == "" {
				state.Name = string(k)
			}
			snap.Containers[string(k)] = &state
			return nil
		})
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("State database is malformed, starting empty")
		return types.NewSnapshot()
	}

	s.logger.Info().Int("containers", len(snap.Containers)).Msg("Loaded monitor state")
	return snap
}

// Save replaces the stored snapshot in a single transaction
func (s *BoltStore) Save(snap *types.Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketContainers); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to reset containers bucket: %w", err)
		}
		b, err := tx.CreateBucket(bucketContainers)
		if err != nil {
			return fmt.Errorf("failed to create containers bucket: %w", err)
		}

		for name, state := range snap.Containers {
			data, err := json.Marshal(state)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(name), data); err != nil {
				return err
			}
		}

		ts, err := snap.LastUpdate.UTC().MarshalText()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyLastUpdate, ts)
	})
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
