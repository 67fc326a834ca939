package handlers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sanix-darker/git-ci/internal/parsers"
	"github.com/sanix-darker/git-ci/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsGitlabPath(t *testing.T) {
	assert.True(t, isGitlabPath(".gitlab-ci.yml"))
	assert.True(t, isGitlabPath("sub/project-gitlab-ci.yml"))
	assert.True(t, isGitlabPath(filepath.Join(".gitlab", "ci", "build.yml")))
	assert.False(t, isGitlabPath(".github/workflows/ci.yml"))
}

func TestIsGitlabContent(t *testing.T) {
	assert.True(t, isGitlabContent([]byte("stages:\n  - build\nbefore_script:\n  - echo hi\n")))
	assert.False(t, isGitlabContent([]byte("on:\n  push:\njobs:\n  build:\n    runs-on: ubuntu-latest\n")))
	assert.False(t, isGitlabContent([]byte("name: ambiguous\n")))
}

func TestDetectParser(t *testing.T) {
	dir := t.TempDir()

	gitlabPath := filepath.Join(dir, ".gitlab-ci.yml")
	require.NoError(t, os.WriteFile(gitlabPath, []byte("stages:\n  - build\n"), 0o644))
	assert.IsType(t, &parsers.GitlabParser{}, detectParser(gitlabPath))

	githubPath := filepath.Join(dir, "workflow.yml")
	require.NoError(t, os.WriteFile(githubPath, []byte("on:\n  push:\njobs:\n  build:\n    runs-on: ubuntu-latest\n"), 0o644))
	assert.IsType(t, &parsers.GithubParser{}, detectParser(githubPath))

	ambiguousPath := filepath.Join(dir, "ambiguous.yml")
	require.NoError(t, os.WriteFile(ambiguousPath, []byte("name: ambiguous\n"), 0o644))
	assert.IsType(t, &parsers.GithubParser{}, detectParser(ambiguousPath))
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("build", "build"))
	assert.True(t, matchPattern("build-linux", "build*"))
	assert.True(t, matchPattern("test-build-amd64", "*build*"))
	assert.False(t, matchPattern("deploy", "build"))
}

func TestFilterJobs(t *testing.T) {
	jobs := map[string]*types.Job{
		"build-linux": {},
		"build-mac":   {},
		"deploy":      {},
	}

	only := filterJobs(jobs, []string{"build*"}, nil)
	assert.Len(t, only, 2)
	assert.Contains(t, only, "build-linux")
	assert.Contains(t, only, "build-mac")

	except := filterJobs(jobs, nil, []string{"deploy"})
	assert.Len(t, except, 2)
	assert.NotContains(t, except, "deploy")

	assert.Equal(t, jobs, filterJobs(jobs, nil, nil))
}

func TestGetJobsByStage(t *testing.T) {
	jobs := map[string]*types.Job{
		"unit":  {Stage: "test"},
		"lint":  {Stage: "test"},
		"image": {Stage: "build"},
	}
	pipeline := &types.Pipeline{Jobs: jobs}

	result := getJobsByStage(pipeline, "test")
	assert.Len(t, result, 2)
	assert.Contains(t, result, "unit")
	assert.Contains(t, result, "lint")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nFOO=bar\nBAZ=\"quoted\"\n\nEMPTY_LINE_ABOVE=1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	env, err := loadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bar", env["FOO"])
	assert.Equal(t, "quoted", env["BAZ"])
	assert.Equal(t, "1", env["EMPTY_LINE_ABOVE"])
}

func TestCmdNotImplemented(t *testing.T) {
	action := CmdNotImplemented("tui")
	err := action(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tui")
	assert.Contains(t, err.Error(), "not implemented")
}
