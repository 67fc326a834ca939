// Package podmanrt drives Podman through its CLI via os/exec, since no
// first-party Go client library for the Podman REST API appears among the
// example repos' dependencies. Grounded on
// crates/executor/src/podman.rs, which itself shells out to the podman
// binary rather than using its bindings crate.
package podmanrt

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sanix-darker/git-ci/internal/runtime"
	"github.com/sanix-darker/git-ci/pkg/types"
)

// Runtime runs steps as Podman containers via the `podman` CLI.
type Runtime struct {
	resources *runtime.TrackedResources
	cache     *runtime.ImageCache
}

// New returns a Podman runtime, failing if the podman binary is not
// reachable within the availability probe window.
func New(ctx context.Context) (*Runtime, error) {
	if !IsAvailable(ctx) {
		return nil, fmt.Errorf("podmanrt: podman is not available on this system")
	}
	return &Runtime{resources: runtime.NewTrackedResources(), cache: runtime.NewImageCache()}, nil
}

// IsAvailable probes `podman version` with an outer 3s budget, matching
// the original's is_available() check.
func IsAvailable(parent context.Context) bool {
	ctx, cancel := context.WithTimeout(parent, 3*time.Second)
	defer cancel()

	probeCtx, probeCancel := context.WithTimeout(ctx, 1*time.Second)
	defer probeCancel()

	if err := runQuiet(probeCtx, "version", "--format", "{{.Version}}"); err != nil {
		logrus.Debug("podmanrt: podman CLI is not available")
		return false
	}

	infoCtx, infoCancel := context.WithTimeout(ctx, 2*time.Second)
	defer infoCancel()
	if err := runQuiet(infoCtx, "info", "--format", "{{.Host.Hostname}}"); err != nil {
		logrus.Debug("podmanrt: podman info command failed")
		return false
	}
	return true
}

func runQuiet(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "podman", args...)
	return cmd.Run()
}

func (r *Runtime) Backend() runtime.Backend { return runtime.BackendPodman }

func (r *Runtime) RunStep(ctx context.Context, req runtime.StepRequest) (types.ContainerOutput, error) {
	if req.Image == "" {
		return types.ContainerOutput{}, fmt.Errorf("podmanrt: step %q has no resolved image", req.Step.Name)
	}

	containerName := fmt.Sprintf("git-ci-%s", uuid.NewString())
	script := buildStepScript(req.Step)

	args := []string{
		"run", "--rm", "--name", containerName,
		"-v", fmt.Sprintf("%s:/workspace", req.WorkingDir),
		"-w", "/workspace",
	}
	for k, v := range req.Env {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, req.Image, "sh", "-c", script)

	r.resources.Track("container", containerName)
	defer r.resources.Untrack("container", containerName)

	cmd := exec.CommandContext(ctx, "podman", args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return types.ContainerOutput{}, fmt.Errorf("podmanrt: run failed: %w", err)
		}
	}

	return types.ContainerOutput{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}, nil
}

func buildStepScript(step *types.Step) string {
	var lines []string
	lines = append(lines, "set -e")
	if step.WorkingDir != "" {
		lines = append(lines, fmt.Sprintf("cd %s", step.WorkingDir))
	}
	run := step.Run
	if len(step.Script) > 0 {
		run = strings.Join(step.Script, "\n")
	}
	lines = append(lines, run)
	if step.ContinueOnErr {
		lines[len(lines)-1] += " || true"
	}
	return strings.Join(lines, "\n")
}

func (r *Runtime) PullImage(ctx context.Context, imageName string) error {
	cmd := exec.CommandContext(ctx, "podman", "pull", imageName)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("podmanrt: failed to pull image %s: %w: %s", imageName, err, out)
	}
	return nil
}

func (r *Runtime) BuildImage(ctx context.Context, contextDir, imageName string) error {
	cmd := exec.CommandContext(ctx, "podman", "build", "-t", imageName, contextDir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("podmanrt: failed to build image %s: %w: %s", imageName, err, out)
	}
	return nil
}

// canonicalLanguageImages mirrors get_language_specific_image's base-image
// table, which differs from the generic "{lang}:{version}" fallback for a
// few ecosystems.
var canonicalLanguageImages = map[string]string{
	"java":   "eclipse-temurin",
	"dotnet": "mcr.microsoft.com/dotnet/sdk",
}

func (r *Runtime) PrepareLanguageEnvironment(ctx context.Context, lang, version string) (string, error) {
	if img, ok := r.cache.Get(lang, version); ok {
		return img, nil
	}

	base := lang
	if mapped, ok := canonicalLanguageImages[lang]; ok {
		base = mapped
	}
	img := fmt.Sprintf("%s:%s", base, version)

	if err := r.PullImage(ctx, img); err != nil {
		return "", err
	}
	r.cache.Set(lang, version, img)
	return img, nil
}

func (r *Runtime) Cleanup(ctx context.Context) error {
	snapshot := r.resources.Snapshot()
	var errs []string
	for _, name := range snapshot["container"] {
		cmd := exec.CommandContext(ctx, "podman", "rm", "-f", name)
		if out, err := cmd.CombinedOutput(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v: %s", name, err, out))
			continue
		}
		r.resources.Untrack("container", name)
	}
	if len(errs) > 0 {
		return fmt.Errorf("podmanrt: cleanup completed with errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
