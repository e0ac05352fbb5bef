package storage

import (
	"path/filepath"
	"testing"

	"github.com/cuemby/vigil/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func TestBoltStore_EmptyDatabase(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "vigil.db"))
	require.NoError(t, err)
	defer store.Close()

	snap := store.Load()
	require.NotNil(t, snap)
	assert.Empty(t, snap.Containers)
}

func TestBoltStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vigil.db")
	store, err := NewBoltStore(path)
	require.NoError(t, err)

	want := sampleSnapshot()
	require.NoError(t, store.Save(want))
	require.NoError(t, store.Close())

	// Reopen to make sure the data reached the file
	store, err = NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, want, store.Load())
}

func TestBoltStore_SaveReplacesRemovedContainers(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "vigil.db"))
	require.NoError(t, err)
	defer store.Close()

	snap := sampleSnapshot()
	require.NoError(t, store.Save(snap))

	delete(snap.Containers, "shop_bi_worker")
	require.NoError(t, store.Save(snap))

	loaded := store.Load()
	assert.Len(t, loaded.Containers, 1)
	assert.Contains(t, loaded.Containers, "shop_bi_api")
}

func TestBoltStore_CorruptRecord(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "vigil.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(sampleSnapshot()))

	err = store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketContainers).Put([]byte("broken"), []byte("{oops"))
	})
	require.NoError(t, err)

	snap := store.Load()
	require.NotNil(t, snap)
	assert.Empty(t, snap.Containers)
}

func TestBoltStore_ImplementsStore(t *testing.T) {
	var _ Store = (*BoltStore)(nil)
	var _ Store = (*FileStore)(nil)

	snap := types.NewSnapshot()
	assert.NotNil(t, snap.Containers)
}
