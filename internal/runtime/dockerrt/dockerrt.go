// Package dockerrt adapts the teacher's Docker runner into a per-step
// runtime.Runtime backend: one container per step instead of one script
// per job, so the execution engine can interleave steps with eval/secrets
// processing and matrix/DAG scheduling between them.
package dockerrt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/sirupsen/logrus"

	"github.com/sanix-darker/git-ci/internal/runtime"
	"github.com/sanix-darker/git-ci/pkg/types"
)

// Runtime runs steps as short-lived Docker containers.
type Runtime struct {
	client    *client.Client
	resources *runtime.TrackedResources
	cache     *runtime.ImageCache
	verbose   bool
}

// New connects to the local Docker daemon, verifying it is reachable.
func New(verbose bool) (*Runtime, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		switch {
		case strings.Contains(err.Error(), "permission denied"):
			return nil, fmt.Errorf("docker daemon permission denied: try sudo usermod -aG docker $USER")
		case strings.Contains(err.Error(), "cannot connect"):
			return nil, fmt.Errorf("docker daemon is not running")
		default:
			return nil, fmt.Errorf("docker daemon is not accessible: %w", err)
		}
	}

	return &Runtime{
		client:    cli,
		resources: runtime.NewTrackedResources(),
		cache:     runtime.NewImageCache(),
		verbose:   verbose,
	}, nil
}

func (r *Runtime) Backend() runtime.Backend { return runtime.BackendDocker }

func (r *Runtime) RunStep(ctx context.Context, req runtime.StepRequest) (types.ContainerOutput, error) {
	imageName := req.Image
	if imageName == "" {
		return types.ContainerOutput{}, fmt.Errorf("dockerrt: step %q has no resolved image", req.Step.Name)
	}

	if !r.imageExists(ctx, imageName) {
		if err := r.PullImage(ctx, imageName); err != nil {
			return types.ContainerOutput{}, err
		}
	}

	containerID, err := r.createContainer(ctx, req, imageName)
	if err != nil {
		return types.ContainerOutput{}, err
	}
	r.resources.Track("container", containerID)
	defer r.removeContainer(containerID)

	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return types.ContainerOutput{}, fmt.Errorf("failed to start container: %w", err)
	}

	var stdout, stderr strings.Builder
	if err := r.streamLogs(ctx, containerID, &stdout, &stderr); err != nil {
		logrus.Warnf("dockerrt: log streaming error: %v", err)
	}

	statusCh, errCh := r.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return types.ContainerOutput{}, fmt.Errorf("container wait error: %w", err)
		}
	case status := <-statusCh:
		return types.ContainerOutput{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: int(status.StatusCode),
		}, nil
	case <-ctx.Done():
		return types.ContainerOutput{}, ctx.Err()
	}

	return types.ContainerOutput{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (r *Runtime) imageExists(ctx context.Context, imageName string) bool {
	images, err := r.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return true
			}
		}
	}
	return false
}

func (r *Runtime) PullImage(ctx context.Context, imageName string) error {
	reader, err := r.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	if r.verbose {
		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			logrus.Debug(scanner.Text())
		}
	} else {
		_, _ = io.Copy(io.Discard, reader)
	}
	return nil
}

func (r *Runtime) BuildImage(ctx context.Context, contextDir, imageName string) error {
	return fmt.Errorf("dockerrt: BuildImage not implemented, use PullImage with a published image")
}

func (r *Runtime) PrepareLanguageEnvironment(ctx context.Context, lang, version string) (string, error) {
	if img, ok := r.cache.Get(lang, version); ok {
		return img, nil
	}
	img := runtime.ResolveLanguageImage(lang, version)
	if err := r.PullImage(ctx, img); err != nil {
		return "", err
	}
	r.cache.Set(lang, version, img)
	return img, nil
}

func (r *Runtime) createContainer(ctx context.Context, req runtime.StepRequest, imageName string) (string, error) {
	script := buildStepScript(req.Step)

	containerConfig := &container.Config{
		Image:      imageName,
		Cmd:        []string{"/bin/sh", "-c", script},
		WorkingDir: "/workspace",
		Env:        buildEnv(req.Env),
		Tty:        false,
	}

	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: req.WorkingDir, Target: "/workspace"},
		},
		AutoRemove: false,
		Resources: container.Resources{
			Memory:     2 * 1024 * 1024 * 1024,
			MemorySwap: 2 * 1024 * 1024 * 1024,
			CPUShares:  1024,
		},
	}

	if req.Job.Container != nil {
		for _, vol := range req.Job.Container.Volumes {
			parts := strings.Split(vol, ":")
			if len(parts) >= 2 {
				hostConfig.Mounts = append(hostConfig.Mounts, mount.Mount{
					Type:     mount.TypeBind,
					Source:   parts[0],
					Target:   parts[1],
					ReadOnly: len(parts) > 2 && parts[2] == "ro",
				})
			}
		}
	}

	containerName := fmt.Sprintf("git-ci-%s-%d",
		strings.ReplaceAll(strings.ToLower(req.Step.Name), " ", "-"),
		time.Now().UnixNano())

	resp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	return resp.ID, nil
}

// buildStepScript assumes a uses: step has already been dispatched into an
// equivalent Run/Script by engine.runStep - this backend only ever sees
// shell commands to execute, never a bare action reference.
func buildStepScript(step *types.Step) string {
	var lines []string
	lines = append(lines, "#!/bin/sh", "set -e")
	if step.WorkingDir != "" {
		lines = append(lines, fmt.Sprintf("cd %s", step.WorkingDir))
	}
	for k, v := range step.Env {
		lines = append(lines, fmt.Sprintf("export %s='%s'", k, v))
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

func buildEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

func (r *Runtime) streamLogs(ctx context.Context, containerID string, stdout, stderr *strings.Builder) error {
	reader, err := r.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to get container logs: %w", err)
	}
	defer reader.Close()

	_, err = stdcopy.StdCopy(stdout, stderr, reader)
	if err != nil && err != io.EOF {
		return fmt.Errorf("error streaming logs: %w", err)
	}
	return nil
}

func (r *Runtime) removeContainer(containerID string) {
	ctx := context.Background()
	_ = r.client.ContainerStop(ctx, containerID, container.StopOptions{})
	if err := r.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		logrus.Warnf("dockerrt: failed to remove container %s: %v", containerID[:12], err)
		return
	}
	r.resources.Untrack("container", containerID)
}

func (r *Runtime) Cleanup(ctx context.Context) error {
	snapshot := r.resources.Snapshot()
	var errs []string
	for _, id := range snapshot["container"] {
		_ = r.client.ContainerStop(ctx, id, container.StopOptions{})
		if err := r.client.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		r.resources.Untrack("container", id)
	}
	if len(errs) > 0 {
		return fmt.Errorf("dockerrt: cleanup completed with errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
