package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func newBoltStore(t *testing.T, log *corruptionLog) *BoltStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewBoltStore(BoltConfig{
		Path:       filepath.Join(dir, BoltFile),
		ExportPath: filepath.Join(dir, AccessListFile),
		OnCorrupt:  log.record,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func putRaw(t *testing.T, s *BoltStore, bucket []byte, value []byte) {
	t.Helper()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(seqKey(99), value)
	})
	require.NoError(t, err)
}

func TestBoltStoreCorruptApplications(t *testing.T) {
	ctx := context.Background()
	var log corruptionLog
	s := newBoltStore(t, &log)
	require.NoError(t, s.SaveApplications(ctx, sampleApplications()))
	putRaw(t, s, bucketApplications, []byte{0xff, 0x00, 0x13})

	apps, err := s.LoadApplications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, apps.Len())
	require.Len(t, log.events, 1)
	assert.Equal(t, CollectionApplications, log.events[0].Collection)

	apps, err = s.LoadApplications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, apps.Len())
	assert.Len(t, log.events, 1)
}

func TestBoltStoreUnknownStatusIsCorruption(t *testing.T) {
	ctx := context.Background()
	var log corruptionLog
	s := newBoltStore(t, &log)

	apps := NewApplications()
	apps.Put("a", Application{RequesterID: "1", Status: "banned"})
	require.NoError(t, s.SaveApplications(ctx, apps))

	got, err := s.LoadApplications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Len(t, log.events, 1)
}

func TestBoltStoreCorruptAccessList(t *testing.T) {
	ctx := context.Background()
	var log corruptionLog
	s := newBoltStore(t, &log)
	require.NoError(t, s.SaveAccessList(ctx, AccessList{{Name: "a", XUID: "1"}}))
	putRaw(t, s, bucketAccessList, []byte("not cbor"))

	list, err := s.LoadAccessList(ctx)
	require.NoError(t, err)
	assert.Equal(t, AccessList{}, list)
	require.Len(t, log.events, 1)
	assert.Equal(t, CollectionAccessList, log.events[0].Collection)

	list, err = s.LoadAccessList(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Len(t, log.events, 1)
}

func TestBoltStoreShrinkingSaveDropsOldKeys(t *testing.T) {
	ctx := context.Background()
	s := newBoltStore(t, &corruptionLog{})
	require.NoError(t, s.SaveAccessList(ctx, AccessList{{Name: "a", XUID: "1"}, {Name: "b", XUID: "2"}}))
	require.NoError(t, s.SaveAccessList(ctx, AccessList{{Name: "b", XUID: "2"}}))

	list, err := s.LoadAccessList(ctx)
	require.NoError(t, err)
	assert.Equal(t, AccessList{{Name: "b", XUID: "2"}}, list)
}
