package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSandbox(t *testing.T, cfg Config) *Sandbox {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestValidateCommandBlocksDangerousPatterns(t *testing.T) {
	s := newTestSandbox(t, DefaultConfig())

	assert.Error(t, s.validateCommand("rm -rf /"))
	assert.Error(t, s.validateCommand("dd if=/dev/zero of=/dev/sda"))
	assert.Error(t, s.validateCommand("sudo rm -rf /home"))
	assert.Error(t, s.validateCommand("bash -c 'rm -rf /'"))
}

func TestValidateCommandErrorIncludesSecurityBlockMarker(t *testing.T) {
	s := newTestSandbox(t, DefaultConfig())

	err := s.validateCommand("rm -rf /")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECURITY BLOCK")
}

func TestValidateCommandAllowsSafeCommands(t *testing.T) {
	s := newTestSandbox(t, DefaultConfig())

	assert.NoError(t, s.validateCommand("echo hello"))
	assert.NoError(t, s.validateCommand("ls -la"))
	assert.NoError(t, s.validateCommand("git status"))
}

func TestValidateCommandStrictWhitelist(t *testing.T) {
	s := newTestSandbox(t, StrictConfig())

	assert.NoError(t, s.validateCommand("echo hello"))
	assert.NoError(t, s.validateCommand("ls"))

	assert.Error(t, s.validateCommand("git clone https://example.com/repo"))
	assert.Error(t, s.validateCommand("cargo build"))
}

func TestShouldSkipFile(t *testing.T) {
	assert.True(t, shouldSkipFile("id_rsa"))
	assert.True(t, shouldSkipFile(".ssh"))
	assert.True(t, shouldSkipFile("credentials"))

	assert.False(t, shouldSkipFile("go.mod"))
	assert.False(t, shouldSkipFile("README.md"))
	assert.False(t, shouldSkipFile(".gitignore"))
}

func TestSplitShellCommand(t *testing.T) {
	parts := splitShellCommand("echo a && echo b || echo c; echo d | echo e")
	assert.ElementsMatch(t, []string{"echo a", "echo b", "echo c", "echo d", "echo e"}, parts)
}
