package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReplacesContent(t *testing.T) {
	for name, write := range map[string]func(string, []byte, os.FileMode) error{
		"atomic": Write,
		"direct": WriteDirect,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "data.json")

			require.NoError(t, write(path, []byte("first content that is long"), 0644))
			require.NoError(t, write(path, []byte("second"), 0644))

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "second", string(got))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
		})
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, Write(path, []byte("{}"), 0600))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.json", entries[0].Name())
}

func TestWriteMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "data.json")
	assert.Error(t, Write(path, []byte("{}"), 0600))
	assert.Error(t, WriteDirect(path, []byte("{}"), 0600))
}
