package handlers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanCacheRemovesConfiguredDirs(t *testing.T) {
	base := t.TempDir()
	cacheDir := filepath.Join(base, "cache")
	configDir := filepath.Join(base, "config")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	t.Setenv("GIT_CI_CACHE_DIR", cacheDir)
	t.Setenv("GIT_CI_CONFIG_DIR", configDir)

	require.NoError(t, cleanCache())

	_, cacheErr := os.Stat(cacheDir)
	_, configErr := os.Stat(configDir)
	assert.True(t, os.IsNotExist(cacheErr))
	assert.True(t, os.IsNotExist(configErr))
}
