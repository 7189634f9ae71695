package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	reg := Default()

	assert.Equal(t, []string{"/api/chat", "/api/style"}, reg.Endpoints())
	assert.ElementsMatch(t, []string{ChatID, StyleID, QuotaID}, reg.TaskTypes())

	a, ok := reg.Find(ChatID)
	require.True(t, ok)
	assert.Equal(t, "POST", a.Method)

	_, ok = reg.Find("missing")
	assert.False(t, ok)
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"2","activities":[{"id":"x","endpoint":"/api/x"}]}`), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2", reg.Version)
	assert.Equal(t, []string{"/api/x"}, reg.Endpoints())

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = LoadRegistry(path)
	assert.Error(t, err)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}
