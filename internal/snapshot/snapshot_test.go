package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultFile, NewWriter("").path)
}

func TestSave_OverwritesAndIndents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw_alerts.json")
	w := NewWriter(path)

	require.NoError(t, w.Save([]byte(`{"data":[{"id":"a"}],"metadata":{"size":1}}`)))
	require.NoError(t, w.Save([]byte(`{"data":[]}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"data\": []\n}\n", string(data))
}

func TestSave_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw_alerts.json")
	w := NewWriter(path)

	err := w.Save([]byte("<html>"))
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestSave_UnwritablePath(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "missing", "raw_alerts.json"))

	err := w.Save([]byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write snapshot")
}
