package pipeline

import (
	"dashd/internal/structures"
	"dashd/internal/testutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T) (*FileWriter, string) {
	t.Helper()
	dir := t.TempDir()
	conf := &structures.Config{Downloads: structures.Downloads{Dir: dir}}
	fw, err := NewFileWriter(conf, &testutil.MockLogger{})
	require.NoError(t, err)
	return fw, dir
}

func TestFileWriter_Save(t *testing.T) {
	fw, dir := newTestWriter(t)

	path, err := fw.Save("predicted.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "predicted.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	// No temp file left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileWriter_Save_SanitizesName(t *testing.T) {
	fw, dir := newTestWriter(t)

	path, err := fw.Save("../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "passwd"), path)

	path, err = fw.Save(`C:\temp\evil.csv`, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "evil.csv"), path)

	path, err = fw.Save("..", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "download.csv"), path)
}

func TestFileWriter_Save_Overwrites(t *testing.T) {
	fw, _ := newTestWriter(t)

	_, err := fw.Save("out.csv", []byte("first"))
	require.NoError(t, err)
	path, err := fw.Save("out.csv", []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
