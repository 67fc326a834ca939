package handlers

import (
	"context"
	"flag"
	"testing"

	"github.com/sanix-darker/git-ci/internal/config"
	"github.com/sanix-darker/git-ci/internal/runtime"
	"github.com/sanix-darker/git-ci/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v2"
)

func newTestContext(t *testing.T, bools map[string]bool, strs map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for k, v := range strs {
		set.String(k, v, "")
	}
	for k, v := range bools {
		set.Bool(k, v, "")
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestRuntimeLabel(t *testing.T) {
	assert.Equal(t, "docker", runtimeLabel(newTestContext(t, map[string]bool{"docker": true}, nil)))
	assert.Equal(t, "podman", runtimeLabel(newTestContext(t, map[string]bool{"podman": true}, nil)))
	assert.Equal(t, "docker", runtimeLabel(newTestContext(t, nil, map[string]string{"runtime": "docker"})))
	assert.Equal(t, "emulation", runtimeLabel(newTestContext(t, nil, nil)))
}

func TestWithTransitiveDependencies(t *testing.T) {
	all := map[string]*types.Job{
		"unit":      {Name: "unit"},
		"lint":      {Name: "lint"},
		"build":     {Name: "build", Needs: []string{"unit", "lint"}},
		"deploy":    {Name: "deploy", Needs: []string{"build"}},
		"unrelated": {Name: "unrelated"},
	}

	selected := map[string]*types.Job{"deploy": all["deploy"]}
	out := withTransitiveDependencies(selected, all)

	assert.Contains(t, out, "deploy")
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "unit")
	assert.Contains(t, out, "lint")
	assert.NotContains(t, out, "unrelated")
}

func TestNewEmulationRuntimeDirectByDefault(t *testing.T) {
	rt, err := newEmulationRuntime(&config.RunnerConfig{})
	require.NoError(t, err)
	assert.NotNil(t, rt)
}

func TestNewEmulationRuntimeSandboxStrictBlocksUnlistedCommands(t *testing.T) {
	rt, err := newEmulationRuntime(&config.RunnerConfig{Sandbox: true, SandboxStrict: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Cleanup(nil) })

	_, err = rt.RunStep(context.Background(), runtime.StepRequest{
		Job:  &types.Job{},
		Step: &types.Step{Run: "curl https://example.com"},
	})
	require.Error(t, err)
}

func TestDryRunPipeline(t *testing.T) {
	pipeline := &types.Pipeline{
		Jobs: map[string]*types.Job{
			"unit":  {Name: "unit", Steps: []types.Step{{Run: "go test ./..."}}},
			"build": {Name: "build", Needs: []string{"unit"}, Steps: []types.Step{{Uses: "docker/build-push-action@v5"}}},
		},
	}

	assert.NoError(t, dryRunPipeline(pipeline))
}
