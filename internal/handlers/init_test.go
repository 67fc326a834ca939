package handlers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdInitGithubReusableTemplate(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "ci.yml")

	c := newTestContext(t,
		nil,
		map[string]string{"provider": "github", "template": "reusable", "output": out},
	)

	require.NoError(t, CmdInit(c))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "uses: ./.github/workflows/tests.yml")
}

func TestCmdInitGitlabRulesTemplate(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, ".gitlab-ci.yml")

	c := newTestContext(t,
		nil,
		map[string]string{"provider": "gitlab", "template": "rules", "output": out},
	)

	require.NoError(t, CmdInit(c))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rules:")
}

func TestCmdInitRefusesToOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "ci.yml")
	require.NoError(t, os.WriteFile(out, []byte("existing"), 0o644))

	c := newTestContext(t,
		nil,
		map[string]string{"provider": "github", "template": "basic", "output": out},
	)

	err := CmdInit(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
