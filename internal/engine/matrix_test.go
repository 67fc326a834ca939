package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sanix-darker/git-ci/pkg/types"
)

func TestExpandMatrixNoMatrixYieldsSingleBinding(t *testing.T) {
	job := &types.Job{Name: "build"}
	bindings := ExpandMatrix(job)
	assert.Equal(t, []MatrixBinding{{}}, bindings)
}

func TestExpandMatrixCartesianProduct(t *testing.T) {
	job := &types.Job{
		Name: "build",
		Strategy: &types.Strategy{
			Matrix: map[string][]interface{}{
				"os":      {"linux", "macos"},
				"version": {"18", "20"},
			},
		},
	}
	bindings := ExpandMatrix(job)
	assert.Len(t, bindings, 4)
}

func TestExpandMatrixExclude(t *testing.T) {
	job := &types.Job{
		Name: "build",
		Strategy: &types.Strategy{
			Matrix: map[string][]interface{}{
				"os":      {"linux", "macos"},
				"version": {"18", "20"},
			},
			Exclude: []map[string]interface{}{
				{"os": "macos", "version": "18"},
			},
		},
	}
	bindings := ExpandMatrix(job)
	assert.Len(t, bindings, 3)
	for _, b := range bindings {
		if b["os"] == "macos" {
			assert.NotEqual(t, "18", b["version"])
		}
	}
}

func TestExpandMatrixInclude(t *testing.T) {
	job := &types.Job{
		Name: "build",
		Strategy: &types.Strategy{
			Matrix: map[string][]interface{}{
				"os": {"linux"},
			},
			Include: []map[string]interface{}{
				{"os": "windows", "version": "custom"},
			},
		},
	}
	bindings := ExpandMatrix(job)
	assert.Len(t, bindings, 2)
}

func TestExpandMatrixGitLabParallel(t *testing.T) {
	job := &types.Job{
		Name: "build",
		Parallel: &types.Parallel{
			Matrix: []map[string]interface{}{
				{"NODE_ENV": "test"},
				{"NODE_ENV": "prod"},
			},
		},
	}
	bindings := ExpandMatrix(job)
	assert.Len(t, bindings, 2)
}
