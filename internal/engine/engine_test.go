package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanix-darker/git-ci/internal/runtime/emulationrt"
	"github.com/sanix-darker/git-ci/pkg/types"
)

func newDirectEngine(t *testing.T) *Engine {
	t.Helper()
	rt, err := emulationrt.New(emulationrt.ModeDirect)
	require.NoError(t, err)
	return New(rt, nil, t.TempDir())
}

func TestRunEnvLayering(t *testing.T) {
	eng := newDirectEngine(t)
	eng.GlobalEnv = map[string]string{"FOO": "global", "BAZ": "global"}

	pipeline := &types.Pipeline{
		Name:        "p",
		Environment: map[string]string{"FOO": "pipeline", "BAR": "pipeline"},
		Jobs: map[string]*types.Job{
			"build": {
				Name:        "build",
				Environment: map[string]string{"FOO": "job"},
				Steps: []types.Step{
					{ID: "s1", Run: `echo "$CI|$FOO|$BAR|$BAZ"`},
				},
			},
		},
	}

	result, err := eng.Run(context.Background(), pipeline)
	require.NoError(t, err)
	require.True(t, result.Success())

	jr := result.Jobs["build"]
	require.Len(t, jr.Steps, 1)
	out := strings.TrimSpace(jr.Steps[0].Output.Stdout)
	assert.Equal(t, "true|job|pipeline|global", out)
}

func TestRunDependencySkip(t *testing.T) {
	eng := newDirectEngine(t)

	pipeline := &types.Pipeline{
		Name: "p",
		Jobs: map[string]*types.Job{
			"a": {Name: "a", Steps: []types.Step{{ID: "s1", Run: "exit 1"}}},
			"b": {Name: "b", Needs: []string{"a"}, Steps: []types.Step{{ID: "s1", Run: "echo hi"}}},
		},
	}

	result, err := eng.Run(context.Background(), pipeline)
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, types.ResultFailure, result.Jobs["a"].Status)
	assert.Equal(t, types.ResultSkipped, result.Jobs["b"].Status)
}

func TestRunStepIfCondition(t *testing.T) {
	eng := newDirectEngine(t)

	pipeline := &types.Pipeline{
		Name: "p",
		Jobs: map[string]*types.Job{
			"build": {
				Name: "build",
				Steps: []types.Step{
					{ID: "s1", Run: "exit 1", ContinueOnErr: true},
					{ID: "s2", If: "failure()", Run: "echo recovered"},
					{ID: "s3", If: "success()", Run: "echo should-skip"},
				},
			},
		},
	}

	result, err := eng.Run(context.Background(), pipeline)
	require.NoError(t, err)

	steps := result.Jobs["build"].Steps
	require.Len(t, steps, 3)
	assert.Equal(t, types.ResultFailure, steps[0].Status)
	assert.Equal(t, types.ResultSuccess, steps[1].Status)
	assert.Equal(t, "recovered", strings.TrimSpace(steps[1].Output.Stdout))
	assert.Equal(t, types.ResultSkipped, steps[2].Status)
}

func TestRunReusableWorkflow(t *testing.T) {
	eng := newDirectEngine(t)
	eng.Resolve = func(ref string) (*types.Pipeline, error) {
		assert.Equal(t, "./child.yml", ref)
		return &types.Pipeline{
			Name: "child",
			Jobs: map[string]*types.Job{
				"inner": {Name: "inner", Steps: []types.Step{{ID: "s1", Run: "echo hi"}}},
			},
		}, nil
	}

	pipeline := &types.Pipeline{
		Name: "p",
		Jobs: map[string]*types.Job{
			"call": {Name: "call", Uses: "./child.yml"},
		},
	}

	result, err := eng.Run(context.Background(), pipeline)
	require.NoError(t, err)
	assert.True(t, result.Success())
	require.Len(t, result.Jobs["call"].Steps, 1)
	assert.Equal(t, types.ResultSuccess, result.Jobs["call"].Steps[0].Status)
	assert.Contains(t, result.Jobs["call"].Log, "Called workflow:")
	assert.Contains(t, result.Jobs["call"].Log, "- inner: Success")
}

func TestRunReusableWorkflowFailureLog(t *testing.T) {
	eng := newDirectEngine(t)
	eng.Resolve = func(ref string) (*types.Pipeline, error) {
		return &types.Pipeline{
			Name: "child",
			Jobs: map[string]*types.Job{
				"inner": {Name: "inner", Steps: []types.Step{{ID: "s1", Run: "exit 1"}}},
			},
		}, nil
	}

	pipeline := &types.Pipeline{
		Jobs: map[string]*types.Job{
			"call": {Name: "call", Uses: "./child.yml"},
		},
	}

	result, err := eng.Run(context.Background(), pipeline)
	require.NoError(t, err)
	assert.Equal(t, types.ResultFailure, result.Jobs["call"].Status)
	assert.Contains(t, result.Jobs["call"].Log, "- inner: Failure")
}

func TestRunReusableWorkflowCycle(t *testing.T) {
	eng := newDirectEngine(t)
	eng.Resolve = func(ref string) (*types.Pipeline, error) {
		return &types.Pipeline{
			Jobs: map[string]*types.Job{
				"call": {Name: "call", Uses: ref},
			},
		}, nil
	}

	pipeline := &types.Pipeline{
		Jobs: map[string]*types.Job{
			"call": {Name: "call", Uses: "./self.yml"},
		},
	}

	result, err := eng.Run(context.Background(), pipeline)
	require.NoError(t, err)
	require.Equal(t, types.ResultFailure, result.Jobs["call"].Status)
	assert.Contains(t, result.Jobs["call"].Log, "cycle detected")
}

func TestRunJobConditionSkipsJob(t *testing.T) {
	eng := newDirectEngine(t)

	pipeline := &types.Pipeline{
		Jobs: map[string]*types.Job{
			"deploy": {
				Name:  "deploy",
				If:    "false",
				Steps: []types.Step{{ID: "s1", Run: "echo should-not-run"}},
			},
		},
	}

	result, err := eng.Run(context.Background(), pipeline)
	require.NoError(t, err)
	assert.Equal(t, types.ResultSkipped, result.Jobs["deploy"].Status)
}

func TestRunJobConditionRunsJobWhenTrue(t *testing.T) {
	eng := newDirectEngine(t)

	pipeline := &types.Pipeline{
		Environment: map[string]string{"CI_COMMIT_BRANCH": "main"},
		Jobs: map[string]*types.Job{
			"deploy": {
				Name:  "deploy",
				If:    `env.CI_COMMIT_BRANCH == "main"`,
				Steps: []types.Step{{ID: "s1", Run: "echo deploying"}},
			},
		},
	}

	result, err := eng.Run(context.Background(), pipeline)
	require.NoError(t, err)
	assert.Equal(t, types.ResultSuccess, result.Jobs["deploy"].Status)
}

func TestEvalJobConditionFailsOpenOnParseError(t *testing.T) {
	job := &types.Job{If: "((("}
	assert.True(t, evalJobCondition(job, &types.Pipeline{}))
}

func TestResolveJobImage(t *testing.T) {
	assert.Equal(t, "node:20", resolveJobImage(&types.Job{Image: "node:20"}))
	assert.Equal(t, "custom:tag", resolveJobImage(&types.Job{Container: &types.Container{Image: "custom:tag"}}))
	assert.Equal(t, "ubuntu:22.04", resolveJobImage(&types.Job{}))
}

func TestResolveUsesStepRemoteActionFails(t *testing.T) {
	_, err := resolveUsesStep(&types.Step{Uses: "actions/checkout@v4"}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network access")
}

func TestResolveUsesStepDockerRef(t *testing.T) {
	script, err := resolveUsesStep(&types.Step{
		Uses: "docker://alpine:3.19",
		With: map[string]string{"args": "echo hi"},
	}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "docker run --rm alpine:3.19 echo hi", script)
}

func TestResolveLocalActionComposite(t *testing.T) {
	dir := t.TempDir()
	manifest := `
runs:
  using: composite
  steps:
    - run: echo step-one
    - run: echo step-two
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "action.yml"), []byte(manifest), 0o644))

	script, err := resolveLocalAction(dir, map[string]string{"my-input": "value"})
	require.NoError(t, err)
	assert.Contains(t, script, "export INPUT_MY_INPUT='value'")
	assert.Contains(t, script, "echo step-one")
	assert.Contains(t, script, "echo step-two")
}

func TestResolveLocalActionMissingManifest(t *testing.T) {
	_, err := resolveLocalAction(t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no action.yml")
}

func TestRunUsesStepLocalComposite(t *testing.T) {
	eng := newDirectEngine(t)

	actionDir := filepath.Join(eng.WorkingDir, "my-action")
	require.NoError(t, os.MkdirAll(actionDir, 0o755))
	manifest := "runs:\n  using: composite\n  steps:\n    - run: echo from-composite\n"
	require.NoError(t, os.WriteFile(filepath.Join(actionDir, "action.yml"), []byte(manifest), 0o644))

	pipeline := &types.Pipeline{
		Jobs: map[string]*types.Job{
			"build": {
				Name:  "build",
				Steps: []types.Step{{ID: "s1", Uses: "./my-action"}},
			},
		},
	}

	result, err := eng.Run(context.Background(), pipeline)
	require.NoError(t, err)
	require.True(t, result.Success())
	assert.Equal(t, "from-composite", strings.TrimSpace(result.Jobs["build"].Steps[0].Output.Stdout))
}
