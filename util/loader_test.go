package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectoryFrameFiles(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"frame-10.json": `{"boxes": []}`,
		"frame-2.json":  `{"boxes": [[0, 0, 1, 1]]}`,
		"notes.txt":     "ignored",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame-3.json"), 0o755))

	frames, err := LoadDirectoryFrameFiles(dir)
	require.NoError(t, err)

	require.Len(t, frames, 2)
	assert.Equal(t, 2, frames[0].Frame)
	assert.Equal(t, 10, frames[1].Frame)
	assert.Equal(t, filepath.Join(dir, "frame-2.json"), frames[0].Path)
	assert.Equal(t, `{"boxes": [[0, 0, 1, 1]]}`, string(frames[0].Data))
}

func TestLoadDirectoryFrameFilesErrors(t *testing.T) {
	_, err := LoadDirectoryFrameFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-last.json"), []byte("{}"), 0o644))
	_, err = LoadDirectoryFrameFiles(dir)
	assert.ErrorContains(t, err, "frame-last.json")
}
