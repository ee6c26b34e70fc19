package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLStore(t *testing.T, log *corruptionLog) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(SQLConfig{
		Path:      filepath.Join(t.TempDir(), SQLiteFile),
		OnCorrupt: log.record,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStoreUnknownStatusIsCorruption(t *testing.T) {
	ctx := context.Background()
	var log corruptionLog
	s := newSQLStore(t, &log)
	require.NoError(t, s.SaveApplications(ctx, sampleApplications()))

	_, err := s.db.ExecContext(ctx, `UPDATE applications SET status = 'garbled' WHERE gamertag = 'Bob'`)
	require.NoError(t, err)

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

func TestSQLStoreRejectsDuplicateXUIDInOneSave(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t, &corruptionLog{})
	require.NoError(t, s.SaveAccessList(ctx, AccessList{{Name: "a", XUID: "1"}}))

	err := s.SaveAccessList(ctx, AccessList{{Name: "b", XUID: "2"}, {Name: "c", XUID: "2"}})
	assert.Error(t, err)

	// The failed transaction leaves the prior content.
	list, err := s.LoadAccessList(ctx)
	require.NoError(t, err)
	assert.Equal(t, AccessList{{Name: "a", XUID: "1"}}, list)
}

func TestNewSQLStoreRequiresPath(t *testing.T) {
	_, err := NewSQLStore(SQLConfig{Path: "  "})
	assert.Error(t, err)
}
