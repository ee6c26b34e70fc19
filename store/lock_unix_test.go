//go:build unix

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreLocksDirectory(t *testing.T) {
	dir := t.TempDir()
	first, err := NewFileStore(FileConfig{Dir: dir})
	require.NoError(t, err)

	_, err = NewFileStore(FileConfig{Dir: dir})
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Close())
	second, err := NewFileStore(FileConfig{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
