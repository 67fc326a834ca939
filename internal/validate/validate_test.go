package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanix-darker/git-ci/pkg/types"
)

func TestFileNonMappingRoot(t *testing.T) {
	issues, err := File([]byte(`hello`))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Workflow file is not a valid YAML mapping", issues[0].Message)
}

func TestFileEmptyJobsIsValid(t *testing.T) {
	issues, err := File([]byte("on: push\njobs: {}\n"))
	require.NoError(t, err)
	for _, i := range issues {
		assert.NotContains(t, i.Message, "missing 'on'")
		assert.NotContains(t, i.Message, "missing 'jobs'")
	}
	assert.False(t, issues.HasErrors())
}

func TestFileMissingJobsSection(t *testing.T) {
	issues, err := File([]byte("on: push\n"))
	require.NoError(t, err)
	assert.Contains(t, issues.Messages(), "Workflow is missing 'jobs' section")
}

func TestFileMissingOnSection(t *testing.T) {
	issues, err := File([]byte("jobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo hi\n"))
	require.NoError(t, err)
	assert.Contains(t, issues.Messages(), "Workflow is missing 'on' section (triggers)")
}

func TestValidateStepsMissingFields(t *testing.T) {
	steps := []interface{}{
		map[string]interface{}{"env": map[string]interface{}{"A": "1"}},
	}
	issues := validateSteps("build", steps)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "Missing 'name', 'uses', or 'run'")
}

func TestValidateStepsBothUsesAndRun(t *testing.T) {
	steps := []interface{}{
		map[string]interface{}{"name": "dup", "uses": "actions/checkout@v4", "run": "echo hi"},
	}
	issues := validateSteps("build", steps)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "both 'uses' and 'run'")
}

func TestValidateStepsDuplicateID(t *testing.T) {
	steps := []interface{}{
		map[string]interface{}{"id": "a", "run": "echo 1"},
		map[string]interface{}{"id": "a", "run": "echo 2"},
	}
	issues := validateSteps("build", steps)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "may not be used more than once")
}

func TestValidateJobsUndefinedNeeds(t *testing.T) {
	jobs := map[string]interface{}{
		"b": map[string]interface{}{"runs-on": "ubuntu-latest", "needs": "ghost"},
	}
	issues := validateJobs(jobs)
	found := false
	for _, i := range issues {
		if i.Severity == types.SeverityError {
			found = true
		}
	}
	assert.True(t, found)
}

func TestParseActionReferenceVariants(t *testing.T) {
	ref, err := ParseActionReference("actions/checkout@v4")
	require.NoError(t, err)
	assert.Equal(t, types.ActionRemoteRepo, ref.Kind)
	assert.Equal(t, "actions", ref.Owner)
	assert.Equal(t, "checkout", ref.Repo)
	assert.Equal(t, "v4", ref.Ref)

	ref, err = ParseActionReference("./local/action")
	require.NoError(t, err)
	assert.Equal(t, types.ActionLocalPath, ref.Kind)

	ref, err = ParseActionReference("docker://alpine:3.19")
	require.NoError(t, err)
	assert.Equal(t, types.ActionDockerImage, ref.Kind)
	assert.Equal(t, "alpine", ref.Image)
	assert.Equal(t, "3.19", ref.Tag)

	_, err = ParseActionReference("no-version-here")
	assert.Error(t, err)
}
