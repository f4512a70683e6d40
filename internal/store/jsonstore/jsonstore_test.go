package jsonstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLoadMissing(t *testing.T) {
	var d doc
	found, err := Load(filepath.Join(t.TempDir(), "missing.json"), &d)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveLoadRemove(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "doc.json")

	require.NoError(t, Save(p, doc{Name: "a", Count: 2}, 0o600))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	var got doc
	found, err := Load(p, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, doc{Name: "a", Count: 2}, got)

	require.NoError(t, Remove(p))
	require.NoError(t, Remove(p))
	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadCorrupt(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(p, []byte("{"), 0o600))
	var d doc
	found, err := Load(p, &d)
	assert.True(t, found)
	assert.Error(t, err)
}
