// Package emulationrt runs steps directly on the host shell, generalizing
// the teacher's original bash-runner execution model into the
// runtime.Runtime contract. Direct mode execs the step's script as-is;
// Secure mode delegates to internal/sandbox for command vetting and
// workspace isolation.
package emulationrt

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sanix-darker/git-ci/internal/runtime"
	"github.com/sanix-darker/git-ci/internal/sandbox"
	"github.com/sanix-darker/git-ci/pkg/types"
)

// Mode selects whether commands run unrestricted or through the sandbox.
type Mode string

const (
	ModeDirect Mode = "direct"
	ModeSecure Mode = "secure"
)

// Runtime executes steps on the host, either directly or through a
// Sandbox.
type Runtime struct {
	mode      Mode
	sandbox   *sandbox.Sandbox
	resources *runtime.TrackedResources
	cache     *runtime.ImageCache
}

// New constructs an emulation runtime. Secure mode allocates a Sandbox
// configured with the workflow allow-list; Direct mode needs no sandbox at
// all.
func New(mode Mode) (*Runtime, error) {
	return NewWithConfig(mode, sandbox.WorkflowConfig())
}

// NewWithConfig is New with an explicit Sandbox config, letting callers opt
// into sandbox.StrictConfig() for --sandbox-strict. The config is ignored in
// Direct mode.
func NewWithConfig(mode Mode, cfg sandbox.Config) (*Runtime, error) {
	rt := &Runtime{mode: mode, resources: runtime.NewTrackedResources(), cache: runtime.NewImageCache()}
	if mode == ModeSecure {
		sb, err := sandbox.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("emulationrt: failed to create sandbox: %w", err)
		}
		rt.sandbox = sb
	}
	return rt, nil
}

func (r *Runtime) Backend() runtime.Backend { return runtime.BackendEmulation }

func (r *Runtime) RunStep(ctx context.Context, req runtime.StepRequest) (types.ContainerOutput, error) {
	script := stepScript(req.Step)
	if script == "" {
		return types.ContainerOutput{}, nil
	}

	if r.mode == ModeSecure {
		env := make([]string, 0, len(req.Env))
		for k, v := range req.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		return r.sandbox.ExecuteCommand(ctx, []string{script}, env, req.WorkingDir)
	}

	return r.runDirect(ctx, script, req)
}

func (r *Runtime) runDirect(ctx context.Context, script string, req runtime.StepRequest) (types.ContainerOutput, error) {
	workdir := req.WorkingDir
	if req.Step.WorkingDir != "" {
		workdir = req.Step.WorkingDir
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", script)
	cmd.Dir = workdir

	env := make([]string, 0, len(req.Env))
	for k, v := range req.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env, env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if req.Step.ContinueOnErr {
			exitCode = 1
		} else {
			return types.ContainerOutput{}, fmt.Errorf("emulationrt: step %q failed: %w", req.Step.Name, err)
		}
	}

	return types.ContainerOutput{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}, nil
}

// stepScript assumes a uses: step has already been dispatched into an
// equivalent Run/Script by engine.runStep - an empty result here means the
// step genuinely has no command to run, not an unresolved action reference.
func stepScript(step *types.Step) string {
	if len(step.Script) > 0 {
		return strings.Join(step.Script, "\n")
	}
	return step.Run
}

func (r *Runtime) PullImage(ctx context.Context, imageName string) error {
	return fmt.Errorf("emulationrt: images are not used outside container backends")
}

func (r *Runtime) BuildImage(ctx context.Context, contextDir, imageName string) error {
	return fmt.Errorf("emulationrt: images are not used outside container backends")
}

func (r *Runtime) PrepareLanguageEnvironment(ctx context.Context, lang, version string) (string, error) {
	if img, ok := r.cache.Get(lang, version); ok {
		return img, nil
	}
	name := runtime.Key(lang, version)
	r.cache.Set(lang, version, name)
	return name, nil
}

func (r *Runtime) Cleanup(ctx context.Context) error {
	if r.sandbox != nil {
		return r.sandbox.Close()
	}
	return nil
}
