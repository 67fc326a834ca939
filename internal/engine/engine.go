package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	yaml "gopkg.in/yaml.v3"

	"github.com/sanix-darker/git-ci/internal/eval"
	"github.com/sanix-darker/git-ci/internal/runtime"
	"github.com/sanix-darker/git-ci/internal/secrets"
	"github.com/sanix-darker/git-ci/pkg/types"
)

// Resolver loads a reusable workflow (job.Uses) into a Pipeline, for
// reusable-workflow recursion. The CLI wires this to a file-loading
// implementation; tests can stub it.
type Resolver func(ref string) (*types.Pipeline, error)

// Engine executes a Pipeline's jobs, honoring dependency order, matrix
// expansion, step conditionals, and reusable-workflow recursion.
type Engine struct {
	Runtime        runtime.Runtime
	Secrets        *secrets.Manager
	Resolve        Resolver
	WorkingDir     string
	MaxConcurrency int

	// GlobalEnv is merged into every job's environment beneath the
	// pipeline/job/step layers (e.g. operator-supplied --env flags).
	GlobalEnv map[string]string

	visitedMu sync.Mutex
	visited   map[string]bool // reusable-workflow cycle guard, ref -> in progress
}

// New constructs an Engine bound to a runtime backend and secrets manager.
func New(rt runtime.Runtime, mgr *secrets.Manager, workdir string) *Engine {
	return &Engine{
		Runtime:        rt,
		Secrets:        mgr,
		WorkingDir:     workdir,
		MaxConcurrency: 0,
		visited:        make(map[string]bool),
	}
}

// Run executes every job in the pipeline, level by level, and returns the
// aggregated result. A job whose dependency failed is recorded as skipped
// unless its `if:` condition explicitly overrides (e.g. always()).
func (e *Engine) Run(ctx context.Context, pipeline *types.Pipeline) (*types.PipelineResult, error) {
	levels, err := BuildLevels(pipeline)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	result := &types.PipelineResult{Jobs: make(map[string]*types.JobResult, len(pipeline.Jobs))}

	for _, level := range levels {
		level := level
		group, gctx := errgroup.WithContext(ctx)
		if e.MaxConcurrency > 0 {
			group.SetLimit(e.MaxConcurrency)
		}

		for _, jobID := range level {
			jobID := jobID
			job := pipeline.Jobs[jobID]
			group.Go(func() error {
				jr := e.runJob(gctx, jobID, job, pipeline, result)
				result.Jobs[jobID] = jr
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			return result, err
		}
	}

	if !result.Success() {
		var failed []string
		for id, jr := range result.Jobs {
			if jr.Status == types.ResultFailure {
				failed = append(failed, id)
			}
		}
		result.FailureDetails = fmt.Sprintf("jobs failed: %v", failed)
	}

	return result, nil
}

func (e *Engine) runJob(ctx context.Context, jobID string, job *types.Job, pipeline *types.Pipeline, result *types.PipelineResult) *types.JobResult {
	start := time.Now()

	if dependencyFailed(job, result) {
		return &types.JobResult{JobID: jobID, Status: types.ResultSkipped, StartTime: start, EndTime: time.Now()}
	}

	if !evalJobCondition(job, pipeline) {
		return &types.JobResult{JobID: jobID, Status: types.ResultSkipped, StartTime: start, EndTime: time.Now()}
	}

	if job.Uses != "" {
		return e.runReusableJob(ctx, jobID, job, start)
	}

	bindings := ExpandMatrix(job)
	if len(bindings) == 1 {
		return e.runJobInstance(ctx, jobID, job, pipeline.Environment, bindings[0], start)
	}

	return e.runMatrixJob(ctx, jobID, job, pipeline.Environment, bindings, start)
}

// evalJobCondition evaluates a job-level `if:` expression (GitHub Actions'
// own job.if, or a GitLab rules: block reduced to one by deriveJobIf) before
// the job is dispatched. An empty condition always runs. A condition this
// evaluator can't parse fails open - job.If was never evaluated at all
// before this, so treating a parse failure as "run" can't newly skip a job
// that previously ran.
func evalJobCondition(job *types.Job, pipeline *types.Pipeline) bool {
	if job.If == "" {
		return true
	}
	evalCtx := eval.NewContext()
	evalCtx.Namespaces["env"] = mergedEnv(pipeline.Environment, job.Environment)
	ok, err := eval.EvalBool(job.If, evalCtx)
	if err != nil {
		return true
	}
	return ok
}

func dependencyFailed(job *types.Job, result *types.PipelineResult) bool {
	for _, dep := range jobDependencies(job) {
		if jr, ok := result.Jobs[dep]; ok && jr.Status != types.ResultSuccess {
			return true
		}
	}
	return false
}

func (e *Engine) runMatrixJob(ctx context.Context, jobID string, job *types.Job, pipelineEnv map[string]string, bindings []MatrixBinding, start time.Time) *types.JobResult {
	failFast := job.Strategy != nil && job.Strategy.FailFast
	maxParallel := 0
	if job.Strategy != nil {
		maxParallel = job.Strategy.MaxParallel
	}

	group, gctx := errgroup.WithContext(ctx)
	if maxParallel > 0 {
		group.SetLimit(maxParallel)
	}

	results := make([]*types.JobResult, len(bindings))
	for i, binding := range bindings {
		i, binding := i, binding
		group.Go(func() error {
			jr := e.runJobInstance(gctx, jobID, job, pipelineEnv, binding, time.Now())
			results[i] = jr
			if failFast && jr.Status == types.ResultFailure {
				return fmt.Errorf("matrix instance failed: %v", binding)
			}
			return nil
		})
	}
	_ = group.Wait()

	agg := &types.JobResult{JobID: jobID, Status: types.ResultSuccess, StartTime: start, EndTime: time.Now()}
	for _, jr := range results {
		if jr == nil {
			continue
		}
		agg.Steps = append(agg.Steps, jr.Steps...)
		if jr.Status == types.ResultFailure {
			agg.Status = types.ResultFailure
		}
	}
	return agg
}

func (e *Engine) runJobInstance(ctx context.Context, jobID string, job *types.Job, pipelineEnv map[string]string, binding MatrixBinding, start time.Time) *types.JobResult {
	execCtx := types.NewExecutionContext(jobID)
	execCtx.Matrix = binding
	execCtx.RunnerOS = goruntime.GOOS
	execCtx.RunnerArch = goruntime.GOARCH
	execCtx.Env["CI"] = "true"
	execCtx.Env["RUNNER_OS"] = execCtx.RunnerOS
	execCtx.Env["RUNNER_ARCH"] = execCtx.RunnerArch
	execCtx.Env["GITHUB_WORKSPACE"] = e.WorkingDir
	for k, v := range e.GlobalEnv {
		execCtx.Env[k] = v
	}
	for k, v := range pipelineEnv {
		execCtx.Env[k] = v
	}
	for k, v := range job.Environment {
		execCtx.Env[k] = v
	}

	evalCtx := eval.NewContext()
	evalCtx.Namespaces["matrix"] = binding
	evalCtx.Namespaces["env"] = execCtx.Env

	jr := &types.JobResult{JobID: jobID, Status: types.ResultSuccess, StartTime: start}

	for i := range job.Steps {
		step := &job.Steps[i]
		sr := e.runStep(ctx, job, step, execCtx, evalCtx)
		jr.Steps = append(jr.Steps, sr)
		execCtx.RecordStepStatus(sr.Status)
		evalCtx.StepStatuses = append(evalCtx.StepStatuses, eval.StepStatus{
			Success: sr.Status == types.ResultSuccess,
		})

		if sr.Status == types.ResultFailure && !step.ContinueOnErr && !step.AllowFailure {
			jr.Status = types.ResultFailure
			break
		}
	}

	jr.EndTime = time.Now()
	return jr
}

func (e *Engine) runStep(ctx context.Context, job *types.Job, step *types.Step, execCtx *types.ExecutionContext, evalCtx *eval.Context) types.StepResult {
	start := time.Now()

	if step.If != "" {
		ok, err := eval.EvalBool(step.If, evalCtx)
		if err != nil {
			return types.StepResult{StepID: step.ID, Name: step.Name, Status: types.ResultFailure, Err: err, Duration: time.Since(start)}
		}
		if !ok {
			return types.StepResult{StepID: step.ID, Name: step.Name, Status: types.ResultSkipped, Duration: time.Since(start)}
		}
	}

	env := mergedEnv(execCtx.Env, job.Environment, step.Env)

	evalCtx.Namespaces["env"] = env
	interpolated, err := interpolateStep(step, env, evalCtx)
	if err != nil {
		return types.StepResult{StepID: step.ID, Name: step.Name, Status: types.ResultFailure, Err: err, Duration: time.Since(start)}
	}

	if interpolated.Uses != "" && interpolated.Run == "" && len(interpolated.Script) == 0 {
		script, err := resolveUsesStep(interpolated, e.WorkingDir)
		if err != nil {
			return types.StepResult{StepID: step.ID, Name: step.Name, Status: types.ResultFailure, Err: err, Duration: time.Since(start)}
		}
		dispatched := *interpolated
		dispatched.Run = script
		interpolated = &dispatched
	}

	if e.Secrets != nil {
		sub := e.Secrets.NewSubstitution()
		for k, v := range env {
			if secrets.ContainsSecrets(v) {
				resolved, err := sub.Substitute(v)
				if err != nil {
					return types.StepResult{StepID: step.ID, Name: step.Name, Status: types.ResultFailure, Err: err, Duration: time.Since(start)}
				}
				env[k] = resolved
			}
		}
	}

	req := runtime.StepRequest{
		Job:        job,
		Step:       interpolated,
		Image:      resolveJobImage(job),
		Env:        env,
		WorkingDir: e.WorkingDir,
	}

	output, err := e.Runtime.RunStep(ctx, req)
	status := types.ResultSuccess
	if err != nil || !output.Success() {
		status = types.ResultFailure
	}

	return types.StepResult{
		StepID:   step.ID,
		Name:     step.Name,
		Status:   status,
		Output:   output,
		Duration: time.Since(start),
		Err:      err,
	}
}

// resolveJobImage picks the container image a step should run in, for
// backends that need one (dockerrt, podmanrt); emulationrt ignores it. Falls
// back to a generic Ubuntu image when the job names a bare runner label
// instead of an explicit image.
func resolveJobImage(job *types.Job) string {
	if job.Container != nil && job.Container.Image != "" {
		return job.Container.Image
	}
	if job.Image != "" {
		return job.Image
	}
	return "ubuntu:22.04"
}

// interpolateStep expands `${{ }}` expressions across a step's Run, Script,
// With, and env values, returning a shallow copy so the pipeline's own step
// definition stays untouched across matrix instances and repeated runs.
func interpolateStep(step *types.Step, env map[string]string, evalCtx *eval.Context) (*types.Step, error) {
	out := *step

	run, err := eval.Interpolate(step.Run, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("interpolating run: %w", err)
	}
	out.Run = run

	if len(step.Script) > 0 {
		script := make([]string, len(step.Script))
		for i, line := range step.Script {
			v, err := eval.Interpolate(line, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("interpolating script line %d: %w", i, err)
			}
			script[i] = v
		}
		out.Script = script
	}

	if len(step.With) > 0 {
		with := make(map[string]string, len(step.With))
		for k, v := range step.With {
			iv, err := eval.Interpolate(v, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("interpolating with.%s: %w", k, err)
			}
			with[k] = iv
		}
		out.With = with
	}

	for k, v := range env {
		iv, err := eval.Interpolate(v, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("interpolating env.%s: %w", k, err)
		}
		env[k] = iv
	}

	return &out, nil
}

// resolveUsesStep turns a `uses:` step into the shell script the runtime
// backends already know how to execute (spec.md §4.6.3 step 3). It handles
// the two action forms this build can run without a network fetch:
// docker://image (run the referenced image directly) and a composite/node
// action already checked out on disk (./path/to/action). A remote
// owner/repo@ref action reference fails loudly instead of silently
// producing a green no-op step - fetching and caching the action tree needs
// a git client this build doesn't ship.
func resolveUsesStep(step *types.Step, workdir string) (string, error) {
	ref := step.Uses

	switch {
	case strings.HasPrefix(ref, "docker://"):
		return dockerRunCommand(strings.TrimPrefix(ref, "docker://"), step.With["args"]), nil

	case strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../"):
		return resolveLocalAction(filepath.Join(workdir, ref), step.With)

	default:
		return "", fmt.Errorf("uses %q: fetching remote actions requires network access, not supported in this build", ref)
	}
}

func dockerRunCommand(image, args string) string {
	cmd := "docker run --rm " + image
	if args != "" {
		cmd += " " + args
	}
	return cmd
}

// actionManifest is the subset of action.yml/action.yaml this build dispatches
// on: composite (recurse into its own steps), docker (run the image), and
// node (invoke the entry script with node).
type actionManifest struct {
	Runs struct {
		Using string `yaml:"using"`
		Main  string `yaml:"main"`
		Image string `yaml:"image"`
		Steps []struct {
			Run string `yaml:"run"`
		} `yaml:"steps"`
	} `yaml:"runs"`
}

func resolveLocalAction(dir string, with map[string]string) (string, error) {
	var manifestPath string
	for _, name := range []string{"action.yml", "action.yaml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			manifestPath = candidate
			break
		}
	}
	if manifestPath == "" {
		return "", fmt.Errorf("uses %q: no action.yml/action.yaml found", dir)
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", manifestPath, err)
	}

	var manifest actionManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return "", fmt.Errorf("parsing %s: %w", manifestPath, err)
	}

	var lines []string
	for k, v := range with {
		name := strings.ToUpper(strings.ReplaceAll(k, "-", "_"))
		lines = append(lines, fmt.Sprintf("export INPUT_%s='%s'", name, v))
	}

	switch manifest.Runs.Using {
	case "composite":
		for _, s := range manifest.Runs.Steps {
			if s.Run != "" {
				lines = append(lines, s.Run)
			}
		}
	case "node12", "node16", "node20":
		lines = append(lines, "node "+filepath.Join(dir, manifest.Runs.Main))
	case "docker":
		image := strings.TrimPrefix(manifest.Runs.Image, "docker://")
		if image == "" || image == "Dockerfile" {
			return "", fmt.Errorf("uses %q: docker actions built from a local Dockerfile are not supported in this build", dir)
		}
		lines = append(lines, dockerRunCommand(image, ""))
	default:
		return "", fmt.Errorf("uses %q: unsupported runs.using %q", dir, manifest.Runs.Using)
	}

	if len(lines) == 0 {
		return "", fmt.Errorf("uses %q: composite action has no runnable steps", dir)
	}

	return strings.Join(lines, "\n"), nil
}

func mergedEnv(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// runReusableJob resolves job.Uses into a child Pipeline and recursively
// runs it, guarding against self-referential cycles.
func (e *Engine) runReusableJob(ctx context.Context, jobID string, job *types.Job, start time.Time) *types.JobResult {
	if e.Resolve == nil {
		return &types.JobResult{
			JobID:  jobID,
			Status: types.ResultFailure,
			Log:    "engine: no reusable-workflow resolver configured for uses: " + job.Uses,
		}
	}

	e.visitedMu.Lock()
	if e.visited[job.Uses] {
		e.visitedMu.Unlock()
		return &types.JobResult{
			JobID:  jobID,
			Status: types.ResultFailure,
			Log:    "engine: cycle detected in reusable workflow chain at " + job.Uses,
		}
	}
	e.visited[job.Uses] = true
	e.visitedMu.Unlock()
	defer func() {
		e.visitedMu.Lock()
		delete(e.visited, job.Uses)
		e.visitedMu.Unlock()
	}()

	child, err := e.Resolve(job.Uses)
	if err != nil {
		return &types.JobResult{JobID: jobID, Status: types.ResultFailure, Log: err.Error(), StartTime: start, EndTime: time.Now()}
	}

	childResult, err := e.Run(ctx, child)
	status := types.ResultSuccess
	if err != nil || (childResult != nil && !childResult.Success()) {
		status = types.ResultFailure
	}

	jr := &types.JobResult{JobID: jobID, Status: status, StartTime: start, EndTime: time.Now()}
	if childResult != nil {
		childJobIDs := make([]string, 0, len(childResult.Jobs))
		for childJobID := range childResult.Jobs {
			childJobIDs = append(childJobIDs, childJobID)
		}
		sort.Strings(childJobIDs)

		summary := make([]string, 0, len(childJobIDs))
		for _, childJobID := range childJobIDs {
			childJR := childResult.Jobs[childJobID]
			jr.Steps = append(jr.Steps, types.StepResult{
				StepID: childJobID,
				Name:   job.Uses + "/" + childJobID,
				Status: childJR.Status,
			})
			summary = append(summary, fmt.Sprintf("- %s: %s", childJobID, displayStatus(childJR.Status)))
		}

		jr.Log = fmt.Sprintf("Called workflow: %s\n%s", job.Uses, strings.Join(summary, "\n"))
	}
	return jr
}

// displayStatus renders a ResultStatus the way spec.md's reusable-workflow
// summary log expects it: capitalized ("Success", "Failure", "Skipped")
// rather than the lowercase wire value.
func displayStatus(status types.ResultStatus) string {
	switch status {
	case types.ResultSuccess:
		return "Success"
	case types.ResultFailure:
		return "Failure"
	case types.ResultSkipped:
		return "Skipped"
	default:
		return string(status)
	}
}
