package types

import "time"

// ActionReferenceKind tags the variant held by an ActionReference.
type ActionReferenceKind string

const (
	ActionRemoteRepo  ActionReferenceKind = "remote_repo"
	ActionLocalPath   ActionReferenceKind = "local_path"
	ActionDockerImage ActionReferenceKind = "docker_image"
)

// ActionReference is the parsed form of a step's `uses:` value. Exactly the
// fields matching Kind are meaningful; the rest are zero.
type ActionReference struct {
	Kind ActionReferenceKind

	// RemoteRepo: owner/repo@ref, ref is a branch, tag, or sha.
	Owner string
	Repo  string
	Ref   string
	Path  string // optional subdirectory within the repo, e.g. owner/repo/sub@ref

	// LocalPath: ./local/path
	LocalPath string

	// DockerImage: docker://image[:tag]
	Image string
	Tag   string
}

// String renders the reference back into its source form.
func (a ActionReference) String() string {
	switch a.Kind {
	case ActionRemoteRepo:
		s := a.Owner + "/" + a.Repo
		if a.Path != "" {
			s += "/" + a.Path
		}
		return s + "@" + a.Ref
	case ActionLocalPath:
		return a.LocalPath
	case ActionDockerImage:
		if a.Tag != "" {
			return "docker://" + a.Image + ":" + a.Tag
		}
		return "docker://" + a.Image
	default:
		return ""
	}
}

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single accumulated validation finding. The Validator never
// short-circuits; it collects every Issue it finds before returning.
type Issue struct {
	Severity Severity
	Message  string
	JobID    string
	StepIdx  int // -1 when not step-scoped
}

// Issues is the accumulated validation result for one pipeline file.
type Issues []Issue

// HasErrors reports whether any issue at SeverityError is present.
func (is Issues) HasErrors() bool {
	for _, i := range is {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Messages returns just the message strings, in order, for callers that only
// care about text (tests, compact CLI output).
func (is Issues) Messages() []string {
	out := make([]string, len(is))
	for i, issue := range is {
		out[i] = issue.Message
	}
	return out
}

// ContainerOutput is the result of running a command through any Runtime.
type ContainerOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited zero.
func (c ContainerOutput) Success() bool {
	return c.ExitCode == 0
}

// ResultStatus is the terminal status of a step or job.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailure ResultStatus = "failure"
	ResultSkipped ResultStatus = "skipped"
)

// StepResult is the outcome of executing one step.
type StepResult struct {
	StepID   string
	Name     string
	Status   ResultStatus
	Output   ContainerOutput
	Duration time.Duration
	Err      error
}

// JobResult aggregates every step's outcome for one job (or one matrix
// expansion of a job).
type JobResult struct {
	JobID     string
	Status    ResultStatus
	Steps     []StepResult
	Log       string
	StartTime time.Time
	EndTime   time.Time
}

// PipelineResult aggregates every job's outcome for a pipeline run.
type PipelineResult struct {
	Jobs           map[string]*JobResult
	FailureDetails string // empty iff every job succeeded (no skips due to if-skip notwithstanding)
}

// Success reports whether every job in the result succeeded or was skipped
// intentionally (skip is not itself a failure at the pipeline level unless
// it cascaded from a failed predecessor).
func (r *PipelineResult) Success() bool {
	for _, j := range r.Jobs {
		if j.Status == ResultFailure {
			return false
		}
	}
	return true
}

// ExecutionContext is the per-step evaluation environment: merged env,
// lazily-resolved secrets snapshot, prior step outputs, matrix bindings, and
// runner metadata. Created when a job starts, mutated between steps by
// appending prior outputs, and dropped when the job completes.
type ExecutionContext struct {
	JobID        string
	Env          map[string]string
	Matrix       map[string]interface{}
	StepOutputs  map[string]map[string]string // stepID -> outputs
	RunnerOS     string
	RunnerArch   string
	StepStatuses []ResultStatus // aggregate status observed so far, in order
}

// NewExecutionContext builds an empty context for a job.
func NewExecutionContext(jobID string) *ExecutionContext {
	return &ExecutionContext{
		JobID:       jobID,
		Env:         make(map[string]string),
		Matrix:      make(map[string]interface{}),
		StepOutputs: make(map[string]map[string]string),
	}
}

// RecordStepStatus appends a step's terminal status to the aggregate, for
// success()/failure()/always()/cancelled() evaluation.
func (c *ExecutionContext) RecordStepStatus(s ResultStatus) {
	c.StepStatuses = append(c.StepStatuses, s)
}

// AnyFailed reports whether any recorded step so far failed.
func (c *ExecutionContext) AnyFailed() bool {
	for _, s := range c.StepStatuses {
		if s == ResultFailure {
			return true
		}
	}
	return false
}

// PublishOutputs records a step's published `name=value` outputs for use by
// subsequent steps via steps.<id>.outputs.<name>.
func (c *ExecutionContext) PublishOutputs(stepID string, outputs map[string]string) {
	if stepID == "" || len(outputs) == 0 {
		return
	}
	if c.StepOutputs[stepID] == nil {
		c.StepOutputs[stepID] = make(map[string]string)
	}
	for k, v := range outputs {
		c.StepOutputs[stepID][k] = v
	}
}
