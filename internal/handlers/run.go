package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sanix-darker/git-ci/internal/config"
	"github.com/sanix-darker/git-ci/internal/engine"
	"github.com/sanix-darker/git-ci/internal/parsers"
	"github.com/sanix-darker/git-ci/internal/runners"
	"github.com/sanix-darker/git-ci/internal/runtime"
	"github.com/sanix-darker/git-ci/internal/runtime/dockerrt"
	"github.com/sanix-darker/git-ci/internal/runtime/emulationrt"
	"github.com/sanix-darker/git-ci/internal/runtime/podmanrt"
	"github.com/sanix-darker/git-ci/internal/sandbox"
	"github.com/sanix-darker/git-ci/internal/secrets"
	"github.com/sanix-darker/git-ci/pkg/types"
	cli "github.com/urfave/cli/v2"
)

// CmdRun handles the run command. It parses the pipeline, builds a DAG
// engine bound to the chosen runtime backend, and drives every selected
// job through dependency order, matrix expansion, and step conditionals.
func CmdRun(c *cli.Context) error {
	filePath := c.String("file")

	pipeline, err := parseInputWithOverride(filePath, c.Bool("gitlab"))
	if err != nil {
		return fmt.Errorf("failed to parse pipeline: %w", err)
	}

	runID := uuid.NewString()
	printVerbose(c, "Parsed pipeline: %s (run %s)\n", pipeline.Name, runID)

	workdir, err := getWorkdir(c)
	if err != nil {
		return err
	}

	cfg := buildRunnerConfig(c)

	jobs := selectJobsToRun(c, pipeline)
	if len(jobs) == 0 {
		return fmt.Errorf("no jobs to run")
	}
	jobs = withTransitiveDependencies(jobs, pipeline.Jobs)
	selected := &types.Pipeline{
		Name:        pipeline.Name,
		Description: pipeline.Description,
		Jobs:        jobs,
		Environment: pipeline.Environment,
		Provider:    pipeline.Provider,
		Triggers:    pipeline.Triggers,
		Stages:      pipeline.Stages,
	}

	if cfg.DryRun {
		return dryRunPipeline(selected)
	}

	ctx := context.Background()

	rt, cleanupRuntime, err := buildRuntime(ctx, c, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer cleanupRuntime()

	eng := engine.New(rt, secrets.NewManager(), workdir)
	eng.Resolve = localReusableWorkflowResolver(filepath.Dir(resolvedFilePath(filePath)), c.Bool("gitlab"))
	eng.GlobalEnv = cfg.Environment
	// Jobs at the same DAG level always run concurrently; --max-parallel
	// only caps how many run at once. --parallel is accepted for backward
	// compatibility but no longer gates concurrency - the engine's
	// level-based scheduling is concurrent by construction.
	if maxParallel := c.Int("max-parallel"); maxParallel > 0 {
		eng.MaxConcurrency = maxParallel
	}

	formatter := runners.NewOutputFormatter(c.Bool("verbose"))
	runnerLabel := runtimeLabel(c)

	startTime := time.Now()
	result, err := eng.Run(ctx, selected)
	totalDuration := time.Since(startTime)
	if err != nil {
		return fmt.Errorf("pipeline execution failed: %w", err)
	}

	successCount, failureCount, skippedCount := printPipelineResult(formatter, runnerLabel, workdir, result)

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Pipeline completed in %s\n", formatter.FormatDuration(totalDuration))
	fmt.Printf("Success: %d, Failed: %d, Skipped: %d, Total: %d\n",
		successCount, failureCount, skippedCount, len(result.Jobs))

	if !result.Success() && !c.Bool("continue-on-error") {
		return fmt.Errorf("%s", result.FailureDetails)
	}

	return nil
}

// printPipelineResult renders every job and step outcome through the
// shared OutputFormatter and tallies status counts for the summary line.
func printPipelineResult(f *runners.OutputFormatter, runnerLabel, workdir string, result *types.PipelineResult) (success, failed, skipped int) {
	for jobID, jr := range result.Jobs {
		f.PrintHeader(jobID, workdir, runnerLabel)

		for i, sr := range jr.Steps {
			stepResult := &runners.StepResult{
				Name:     sr.Name,
				Success:  sr.Status == types.ResultSuccess,
				Skipped:  sr.Status == types.ResultSkipped,
				Duration: sr.Duration,
				Output:   sr.Output.Stdout,
				Error:    sr.Err,
			}
			f.PrintStepResult(stepResult, i+1, len(jr.Steps))
		}

		ok := jr.Status == types.ResultSuccess
		f.PrintJobComplete(jobID, jr.EndTime.Sub(jr.StartTime), ok)

		switch jr.Status {
		case types.ResultSuccess:
			success++
		case types.ResultSkipped:
			skipped++
		default:
			failed++
		}
	}
	return success, failed, skipped
}

// runtimeLabel names the runtime backend for the OutputFormatter header,
// mirroring the runner-name argument the old flat runners passed in.
func runtimeLabel(c *cli.Context) string {
	requested := strings.ToLower(c.String("runtime"))
	switch {
	case c.Bool("docker") || requested == "docker":
		return "docker"
	case c.Bool("podman") || requested == "podman":
		return "podman"
	default:
		return "emulation"
	}
}

// buildRuntime selects a runtime.Runtime backend from the --docker/--podman
// boolean flags or the newer --runtime flag, defaulting to direct host
// emulation. The returned cleanup func releases every resource the backend
// tracked for this run, unless --preserve-containers-on-failure was passed
// and the pipeline failed.
func buildRuntime(ctx context.Context, c *cli.Context, cfg *config.RunnerConfig) (runtime.Runtime, func(), error) {
	label := runtimeLabel(c)

	var rt runtime.Runtime
	var err error

	switch label {
	case "docker":
		rt, err = dockerrt.New(cfg.Verbose)
	case "podman":
		rt, err = podmanrt.New(ctx)
	default:
		rt, err = newEmulationRuntime(cfg)
	}
	if err != nil {
		return nil, func() {}, err
	}

	cleanup := func() {
		if c.Bool("preserve-containers-on-failure") {
			printVerbose(c, "Preserving %s resources for inspection\n", label)
			return
		}
		if cleanupErr := rt.Cleanup(ctx); cleanupErr != nil {
			printVerbose(c, "Warning: runtime cleanup failed: %v\n", cleanupErr)
		}
	}

	return rt, cleanup, nil
}

// newEmulationRuntime picks Direct or Secure emulation mode from the
// --sandbox/--sandbox-strict flags, threaded through buildRunnerConfig.
func newEmulationRuntime(cfg *config.RunnerConfig) (runtime.Runtime, error) {
	if !cfg.Sandbox {
		return emulationrt.New(emulationrt.ModeDirect)
	}
	sandboxCfg := sandbox.WorkflowConfig()
	if cfg.SandboxStrict {
		sandboxCfg = sandbox.StrictConfig()
	}
	return emulationrt.NewWithConfig(emulationrt.ModeSecure, sandboxCfg)
}

// resolvedFilePath mirrors the auto-detection parseInputWithOverride
// performs, so the reusable-workflow resolver looks next to the same file
// that was actually parsed even when --file was left empty.
func resolvedFilePath(filePath string) string {
	if filePath != "" {
		return filePath
	}
	candidates := []string{".github/workflows/ci.yml", ".gitlab-ci.yml"}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ".github/workflows/ci.yml"
}

// localReusableWorkflowResolver resolves a job's `uses:` reference against
// workflow files stored next to the entry pipeline, the way GitHub Actions
// resolves a local reusable workflow path (./.github/workflows/build.yml).
// It does not attempt the remote owner/repo/path@ref form - that requires a
// network fetch this build deliberately doesn't perform (see DESIGN.md).
func localReusableWorkflowResolver(baseDir string, forceGitlab bool) engine.Resolver {
	return func(ref string) (*types.Pipeline, error) {
		ref = strings.TrimPrefix(ref, "./")
		if strings.Contains(ref, "@") || strings.Count(ref, "/") > 2 {
			return nil, fmt.Errorf("remote reusable workflow references are not supported in this build: %s", ref)
		}

		path := ref
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, ref)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("reusable workflow %s not found at %s: %w", ref, path, err)
		}

		var parser types.Parser
		if forceGitlab || isGitlabPath(path) {
			parser = &parsers.GitlabParser{}
		} else {
			parser = &parsers.GithubParser{}
		}

		return parser.Parse(path)
	}
}

// dryRunPipeline prints the DAG execution plan and every step's command
// without invoking any runtime, for the --dry-run flag.
func dryRunPipeline(pipeline *types.Pipeline) error {
	levels, err := engine.BuildLevels(pipeline)
	if err != nil {
		return fmt.Errorf("failed to plan pipeline: %w", err)
	}

	formatter := runners.NewOutputFormatter(true)
	formatter.PrintDryRun()

	for levelIdx, level := range levels {
		formatter.PrintSection(fmt.Sprintf("Level %d", levelIdx))
		for _, jobID := range level {
			job := pipeline.Jobs[jobID]
			formatter.PrintSubSection(jobID)

			if job.Uses != "" {
				formatter.PrintKeyValue("uses", job.Uses, 1)
				continue
			}

			for _, binding := range engine.ExpandMatrix(job) {
				if len(binding) > 0 {
					formatter.PrintKeyValue("matrix", fmt.Sprintf("%v", map[string]interface{}(binding)), 1)
				}
				for _, step := range job.Steps {
					switch {
					case step.Run != "":
						formatter.PrintCommand(step.Run, 2)
					case step.Uses != "":
						formatter.PrintKeyValue("uses", step.Uses, 2)
					}
				}
			}
		}
	}

	return nil
}

// withTransitiveDependencies pulls in every job a selected job's `needs`
// chain requires, so --job/--stage/--only filtering doesn't hand the DAG
// engine a needs-edge to a job that got filtered out.
func withTransitiveDependencies(selected, all map[string]*types.Job) map[string]*types.Job {
	out := make(map[string]*types.Job, len(selected))
	var include func(id string)
	include = func(id string) {
		if _, already := out[id]; already {
			return
		}
		job, ok := all[id]
		if !ok {
			return
		}
		out[id] = job
		for _, dep := range append(append(append([]string{}, job.Needs...), job.Dependencies...), job.Requires...) {
			include(dep)
		}
	}
	for id := range selected {
		include(id)
	}
	return out
}

// selectJobsToRun selects which jobs to run based on flags
func selectJobsToRun(c *cli.Context, pipeline *types.Pipeline) map[string]*types.Job {
	jobs := pipeline.Jobs

	// Filter by specific job name
	if jobName := c.String("job"); jobName != "" {
		if job, exists := jobs[jobName]; exists {
			return map[string]*types.Job{jobName: job}
		}
		// Try pattern matching
		matchedJobs := make(map[string]*types.Job)
		for name, j := range jobs {
			if matchPattern(name, jobName) {
				matchedJobs[name] = j
			}
		}
		if len(matchedJobs) > 0 {
			return matchedJobs
		}

		fmt.Printf("Warning: job '%s' not found\n", jobName)
		return nil
	}

	// Filter by stage
	if stage := c.String("stage"); stage != "" {
		jobs = getJobsByStage(pipeline, stage)
		if len(jobs) == 0 {
			fmt.Printf("Warning: no jobs found for stage '%s'\n", stage)
			return nil
		}
	}

	// Apply only/except filters
	only := c.StringSlice("only")
	except := c.StringSlice("except")
	jobs = filterJobs(jobs, only, except)

	return jobs
}
