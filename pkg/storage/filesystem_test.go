package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	rel, err := store.Save("reports/job-1/work_order_report.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "reports/job-1/work_order_report.csv", rel)

	f, err := store.Open(rel)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "a,b\n", string(body))

	require.NoError(t, store.Delete(rel))
	require.NoError(t, store.Delete(rel))
	_, err = os.Stat(filepath.Join(dir, rel))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageConfinesPaths(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(dir, "exports"))
	require.NoError(t, err)

	_, err = store.Save("../../escape.csv", []byte("x"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "exports", "escape.csv"))
	assert.NoError(t, err)

	_, err = store.Save("", []byte("x"))
	assert.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new.csv", []byte("new"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)
}
