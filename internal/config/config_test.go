package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCacheDirHonorsEnvOverride(t *testing.T) {
	t.Setenv("GIT_CI_CACHE_DIR", filepath.Join("/tmp", "custom-cache"))
	assert.Equal(t, filepath.Join("/tmp", "custom-cache"), GetCacheDir())
}

func TestGetConfigDirHonorsEnvOverride(t *testing.T) {
	t.Setenv("GIT_CI_CONFIG_DIR", filepath.Join("/tmp", "custom-config"))
	assert.Equal(t, filepath.Join("/tmp", "custom-config"), GetConfigDir())
}

func TestDefaultConfigSandboxFieldsDefaultOff(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Sandbox)
	assert.False(t, cfg.SandboxStrict)
}
