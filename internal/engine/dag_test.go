package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanix-darker/git-ci/pkg/types"
)

func pipelineWithJobs(jobs map[string]*types.Job) *types.Pipeline {
	return &types.Pipeline{Name: "test", Jobs: jobs}
}

func TestBuildLevelsLinearChain(t *testing.T) {
	p := pipelineWithJobs(map[string]*types.Job{
		"a": {Name: "a"},
		"b": {Name: "b", Needs: []string{"a"}},
		"c": {Name: "c", Needs: []string{"b"}},
	})

	levels, err := BuildLevels(p)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, levels)
}

func TestBuildLevelsFanOut(t *testing.T) {
	p := pipelineWithJobs(map[string]*types.Job{
		"build": {Name: "build"},
		"test":  {Name: "test", Needs: []string{"build"}},
		"lint":  {Name: "lint", Needs: []string{"build"}},
		"ship":  {Name: "ship", Needs: []string{"test", "lint"}},
	})

	levels, err := BuildLevels(p)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"build"}, levels[0])
	assert.ElementsMatch(t, []string{"lint", "test"}, levels[1])
	assert.Equal(t, []string{"ship"}, levels[2])
}

func TestBuildLevelsDetectsCycle(t *testing.T) {
	p := pipelineWithJobs(map[string]*types.Job{
		"a": {Name: "a", Needs: []string{"b"}},
		"b": {Name: "b", Needs: []string{"a"}},
	})

	_, err := BuildLevels(p)
	assert.Error(t, err)
}

func TestBuildLevelsUndefinedDependency(t *testing.T) {
	p := pipelineWithJobs(map[string]*types.Job{
		"a": {Name: "a", Needs: []string{"ghost"}},
	})

	_, err := BuildLevels(p)
	assert.Error(t, err)
}
