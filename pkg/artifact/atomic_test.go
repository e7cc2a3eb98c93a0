package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSaveAtomic_CreatesNestedDirAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "artifact.json")
	err := SaveAtomic(path, sample{Name: "acme", Count: 3})
	require.NoError(t, err)

	var got sample
	require.NoError(t, Load(path, &got))
	assert.Equal(t, sample{Name: "acme", Count: 3}, got)
}

func TestSaveAtomic_OverwritesPriorVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.json")
	require.NoError(t, SaveAtomic(path, sample{Name: "v1", Count: 1}))
	require.NoError(t, SaveAtomic(path, sample{Name: "v2", Count: 2}))

	var got sample
	require.NoError(t, Load(path, &got))
	assert.Equal(t, "v2", got.Name)
	assert.Equal(t, 2, got.Count)
}

func TestSaveAtomic_LeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.json")
	require.NoError(t, SaveAtomic(path, sample{Name: "acme"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "artifact.json", entries[0].Name())
}

func TestLoad_ReturnsErrorWhenFileMissing(t *testing.T) {
	var got sample
	err := Load(filepath.Join(t.TempDir(), "missing.json"), &got)
	assert.Error(t, err)
}

func TestLoad_ReturnsErrorOnMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	var got sample
	err := Load(path, &got)
	assert.Error(t, err)
}
