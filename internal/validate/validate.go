// Package validate checks a workflow file's raw YAML structure before it is
// typed into pkg/types.Pipeline, accumulating every issue found rather than
// stopping at the first, grounded on
// crates/evaluator/src/lib.rs's evaluate_workflow_file and
// crates/validators/src/steps.rs's validate_steps.
package validate

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sanix-darker/git-ci/pkg/types"
)

// File parses raw YAML bytes and runs structural validation against them,
// never stopping at the first issue found.
func File(content []byte) (types.Issues, error) {
	var doc interface{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return Document(doc), nil
}

// Document validates an already-decoded YAML document.
func Document(doc interface{}) types.Issues {
	var issues types.Issues

	root, ok := asMapping(doc)
	if !ok {
		return append(issues, types.Issue{
			Severity: types.SeverityError,
			Message:  "Workflow file is not a valid YAML mapping",
			StepIdx:  -1,
		})
	}

	switch jobs := root["jobs"].(type) {
	case nil:
		if _, present := root["jobs"]; !present {
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				Message:  "Workflow is missing 'jobs' section",
				StepIdx:  -1,
			})
		}
	case map[string]interface{}:
		issues = append(issues, validateJobs(jobs)...)
	default:
		if m, ok := asMapping(jobs); ok {
			issues = append(issues, validateJobs(m)...)
		} else {
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				Message:  "'jobs' section is not a mapping",
				StepIdx:  -1,
			})
		}
	}

	if on, present := root["on"]; !present || on == nil {
		issues = append(issues, types.Issue{
			Severity: types.SeverityWarning,
			Message:  "Workflow is missing 'on' section (triggers)",
			StepIdx:  -1,
		})
	} else {
		issues = append(issues, validateTriggers(on)...)
	}

	return issues
}

func asMapping(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func validateTriggers(on interface{}) types.Issues {
	var issues types.Issues
	switch v := on.(type) {
	case string:
		if v == "" {
			issues = append(issues, types.Issue{
				Severity: types.SeverityWarning,
				Message:  "'on' trigger is empty",
				StepIdx:  -1,
			})
		}
	case []interface{}:
		if len(v) == 0 {
			issues = append(issues, types.Issue{
				Severity: types.SeverityWarning,
				Message:  "'on' trigger list is empty",
				StepIdx:  -1,
			})
		}
	case map[string]interface{}, map[interface{}]interface{}:
		// mapping form (e.g. push/pull_request with filters) is always valid shape-wise
	default:
		issues = append(issues, types.Issue{
			Severity: types.SeverityError,
			Message:  "'on' section has an unrecognized shape",
			StepIdx:  -1,
		})
	}
	return issues
}

func validateJobs(jobs map[string]interface{}) types.Issues {
	var issues types.Issues

	jobIDs := make(map[string]struct{}, len(jobs))
	for id := range jobs {
		jobIDs[id] = struct{}{}
	}

	for jobID, raw := range jobs {
		jobMap, ok := asMapping(raw)
		if !ok {
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("Job '%s' is not a valid mapping", jobID),
				JobID:    jobID,
				StepIdx:  -1,
			})
			continue
		}

		if _, hasRunsOn := jobMap["runs-on"]; !hasRunsOn {
			if _, hasImage := jobMap["image"]; !hasImage {
				if _, hasAgent := jobMap["agent"]; !hasAgent {
					issues = append(issues, types.Issue{
						Severity: types.SeverityWarning,
						Message:  fmt.Sprintf("Job '%s' does not specify a runner (runs-on/image/agent)", jobID),
						JobID:    jobID,
						StepIdx:  -1,
					})
				}
			}
		}

		for _, needKey := range []string{"needs", "dependencies", "requires"} {
			issues = append(issues, validateReferences(jobID, needKey, jobMap[needKey], jobIDs)...)
		}

		if rawSteps, ok := jobMap["steps"]; ok {
			steps, ok := rawSteps.([]interface{})
			if !ok {
				issues = append(issues, types.Issue{
					Severity: types.SeverityError,
					Message:  fmt.Sprintf("Job '%s': 'steps' is not a list", jobID),
					JobID:    jobID,
					StepIdx:  -1,
				})
			} else {
				issues = append(issues, validateSteps(jobID, steps)...)
			}
		}
	}

	return issues
}

func validateReferences(jobID, key string, raw interface{}, jobIDs map[string]struct{}) types.Issues {
	var issues types.Issues
	var refs []string

	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		refs = []string{v}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				refs = append(refs, s)
			}
		}
	}

	for _, ref := range refs {
		if _, ok := jobIDs[ref]; !ok {
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("Job '%s' %s references undefined job '%s'", jobID, key, ref),
				JobID:    jobID,
				StepIdx:  -1,
			})
		}
	}
	return issues
}

// validateSteps mirrors validate_steps: each step must have at least one of
// name/uses/run, never both uses and run, step ids must be unique within
// the job, and uses values must parse as a valid action reference.
func validateSteps(jobID string, steps []interface{}) types.Issues {
	var issues types.Issues
	seenIDs := make(map[string]struct{})

	for i, raw := range steps {
		stepMap, ok := asMapping(raw)
		if !ok {
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("Job '%s', step %d: Not a valid mapping", jobID, i+1),
				JobID:    jobID,
				StepIdx:  i,
			})
			continue
		}

		_, hasName := stepMap["name"]
		_, hasUses := stepMap["uses"]
		_, hasRun := stepMap["run"]

		if !hasName && !hasUses && !hasRun {
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("Job '%s', step %d: Missing 'name', 'uses', or 'run' field", jobID, i+1),
				JobID:    jobID,
				StepIdx:  i,
			})
		}

		if hasUses && hasRun {
			issues = append(issues, types.Issue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("Job '%s', step %d: Contains both 'uses' and 'run' (should only use one)", jobID, i+1),
				JobID:    jobID,
				StepIdx:  i,
			})
		}

		if id, ok := stepMap["id"].(string); ok && id != "" {
			if _, dup := seenIDs[id]; dup {
				issues = append(issues, types.Issue{
					Severity: types.SeverityError,
					Message:  fmt.Sprintf("Job '%s', step %d: The identifier '%s' may not be used more than once within the same scope", jobID, i+1, id),
					JobID:    jobID,
					StepIdx:  i,
				})
			}
			seenIDs[id] = struct{}{}
		}

		if uses, ok := stepMap["uses"].(string); ok {
			if err := ValidateActionReference(uses); err != nil {
				issues = append(issues, types.Issue{
					Severity: types.SeverityError,
					Message:  fmt.Sprintf("Job '%s', step %d: %v", jobID, i+1, err),
					JobID:    jobID,
					StepIdx:  i,
				})
			}
		}
	}

	return issues
}
