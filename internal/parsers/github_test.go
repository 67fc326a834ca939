package parsers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorkflow(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseReusableWorkflowSetsJobUses(t *testing.T) {
	path := writeWorkflow(t, `
name: ci
on: push
jobs:
  call:
    uses: ./.github/workflows/build.yml
    with:
      environment: staging
`)

	pipeline, err := (&GithubParser{}).Parse(path)
	require.NoError(t, err)

	job, ok := pipeline.Jobs["call"]
	require.True(t, ok)
	assert.Equal(t, "./.github/workflows/build.yml", job.Uses)
	assert.Equal(t, "staging", job.With["environment"])
}
