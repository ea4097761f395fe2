package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupcart/catalog-cli/internal/model"
)

func TestProgress_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ingest.json")

	fresh, err := LoadProgress(path)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.RunID, "fresh progress gets a run ID")
	assert.Zero(t, fresh.Offset)

	fresh.Offset = 40
	fresh.Succeeded = 31
	fresh.Partial = 6
	fresh.Failed = 3
	fresh.ConsecutiveFailures = 2
	require.NoError(t, SaveProgress(path, fresh))

	loaded, err := LoadProgress(path)
	require.NoError(t, err)
	assert.Equal(t, fresh, loaded)
}

func TestLoadProgress_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ingest.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadProgress(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse progress")
}

func TestSaveProgress_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ingest.json")
	require.NoError(t, SaveProgress(path, &model.JobProgress{RunID: "r1", Offset: 20}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ingest.json", entries[0].Name())
}

func TestClearProgress(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ingest.json")
	require.NoError(t, SaveProgress(path, &model.JobProgress{RunID: "r1"}))
	require.NoError(t, ClearProgress(path))
	assert.NoFileExists(t, path)

	// Clearing an already-missing file is fine.
	require.NoError(t, ClearProgress(path))
}
